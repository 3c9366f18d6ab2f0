// Package writer defines the boundary the Output operator (§4.9) writes a
// finished frame.Frame through.
package writer

import (
	"context"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
)

// Destination names where Write should land rows, decoded from
// model.OutputDestination.
type Destination struct {
	Table  string
	Schema string
	Path   string
}

// Writer persists a frame's rows to an output destination.
type Writer interface {
	Write(ctx context.Context, dest Destination, schema model.TableSchema, f frame.Frame) error
}
