// Package loader defines the boundary the engine reads raw table data
// through before temporal filtering and joins run (§4.2, §6).
package loader

import (
	"context"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/resolver"
)

// Loader loads a table's rows from a resolved location into a frame.Frame.
type Loader interface {
	Load(ctx context.Context, location resolver.ResolvedLocation, schema model.TableSchema) (frame.Frame, error)
}
