// Package store defines the Metadata Store boundary (§6) the engine reads
// datasets, projects, and resolvers through, and registers new dataset
// versions via.
package store

import (
	"context"
	"errors"

	"github.com/tabkit/pipeline/model"
)

var (
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrVersionNotFound  = errors.New("dataset version not found")
	ErrProjectNotFound  = errors.New("project not found")
	ErrResolverNotFound = errors.New("resolver not found")
)

// Store is the read/write metadata-store contract (§6).
type Store interface {
	GetDataset(ctx context.Context, id model.DatasetID, version *int) (model.Dataset, error)
	GetDatasetByName(ctx context.Context, name string) (*model.Dataset, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	GetResolver(ctx context.Context, id string) (model.Resolver, error)
	GetDefaultResolver(ctx context.Context) (model.Resolver, error)
	ListResolvers(ctx context.Context) ([]model.Resolver, error)

	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	// RegisterDataset registers a new dataset version and returns its id.
	RegisterDataset(ctx context.Context, dataset model.Dataset) (model.DatasetID, error)
}

// RegistrationStore is the registration method of Store declared on its own
// (§4.9, §9 open question #3). The run orchestrator takes no separate
// RegistrationStore; it registers output datasets through
// Store.RegisterDataset.
type RegistrationStore interface {
	RegisterDataset(ctx context.Context, dataset model.Dataset) (model.DatasetID, error)
}
