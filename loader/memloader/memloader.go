// Package memloader is a deterministic fixture Loader, the test-resolver
// analogue the harness drives scenarios through instead of a live database
// (grounded on the original implementation's in-memory test resolver; see
// SPEC_FULL.md §6).
package memloader

import (
	"context"
	"fmt"
	"sync"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/frame/memframe"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/resolver"
)

// Loader serves fixed rowsets keyed by "datasource/path/table".
type Loader struct {
	mu  sync.RWMutex
	set map[string][]frame.Row
}

// New returns an empty Loader.
func New() *Loader { return &Loader{set: make(map[string][]frame.Row)} }

// Seed registers the rows returned for a given resolved (datasource, path,
// table) triple.
func (l *Loader) Seed(datasourceID, path, table string, rows []frame.Row) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set[key(datasourceID, path, table)] = rows
}

func (l *Loader) Load(ctx context.Context, location resolver.ResolvedLocation, schema model.TableSchema) (frame.Frame, error) {
	l.mu.RLock()
	rows, ok := l.set[key(location.DatasourceID, location.Path, location.Table)]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memloader: no fixture for datasource=%s path=%s table=%s", location.DatasourceID, location.Path, location.Table)
	}
	cols := make([]frame.Column, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = frame.Column{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
	}
	return memframe.New(frame.Schema{Columns: cols}, rows), nil
}

func key(datasourceID, path, table string) string {
	return datasourceID + "/" + path + "/" + table
}
