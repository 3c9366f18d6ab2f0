// Package memstore is an in-memory store.Store, the fixture-driven metadata
// backend the harness runs scenarios against (mirrors the teacher's
// in-process test doubles; see SPEC_FULL.md §6).
package memstore

import (
	"context"
	"sync"

	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/store"
)

// Store keeps datasets keyed by id, tracking every registered version.
type Store struct {
	mu        sync.RWMutex
	datasets  map[model.DatasetID][]model.Dataset
	byName    map[string]model.DatasetID
	projects  map[string]model.Project
	resolvers map[string]model.Resolver
	runStatus map[string]model.RunStatus
	nextID    int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		datasets:  make(map[model.DatasetID][]model.Dataset),
		byName:    make(map[string]model.DatasetID),
		projects:  make(map[string]model.Project),
		resolvers: make(map[string]model.Resolver),
		runStatus: make(map[string]model.RunStatus),
	}
}

// Seed loads fixture datasets/projects/resolvers in bulk, the way harness
// scenario setup populates a Store before a run.
func (s *Store) Seed(datasets []model.Dataset, projects []model.Project, resolvers []model.Resolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range datasets {
		s.datasets[d.ID] = append(s.datasets[d.ID], d)
	}
	for _, p := range projects {
		s.projects[p.ID] = p
	}
	for _, r := range resolvers {
		s.resolvers[r.ID] = r
	}
}

func (s *Store) GetDataset(ctx context.Context, id model.DatasetID, version *int) (model.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.datasets[id]
	if !ok || len(versions) == 0 {
		return model.Dataset{}, store.ErrDatasetNotFound
	}
	if version == nil {
		return versions[len(versions)-1], nil
	}
	for _, d := range versions {
		if d.Version == *version {
			return d, nil
		}
	}
	return model.Dataset{}, store.ErrVersionNotFound
}

func (s *Store) GetDatasetByName(ctx context.Context, name string) (*model.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[name]
	if !ok {
		return nil, nil
	}
	versions := s.datasets[id]
	if len(versions) == 0 {
		return nil, nil
	}
	d := versions[len(versions)-1]
	return &d, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return model.Project{}, store.ErrProjectNotFound
	}
	return p, nil
}

func (s *Store) GetResolver(ctx context.Context, id string) (model.Resolver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resolvers[id]
	if !ok {
		return model.Resolver{}, store.ErrResolverNotFound
	}
	return r, nil
}

func (s *Store) GetDefaultResolver(ctx context.Context) (model.Resolver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.resolvers {
		if r.IsDefault && r.Status == model.ResolverActive {
			return r, nil
		}
	}
	return model.Resolver{}, store.ErrResolverNotFound
}

func (s *Store) ListResolvers(ctx context.Context) ([]model.Resolver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Resolver, 0, len(s.resolvers))
	for _, r := range s.resolvers {
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runStatus[runID] = status
	return nil
}

func (s *Store) RegisterDataset(ctx context.Context, dataset model.Dataset) (model.DatasetID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dataset.ID == "" {
		s.nextID++
		dataset.ID = model.DatasetID(genID(s.nextID))
	}
	versions := s.datasets[dataset.ID]
	dataset.Version = len(versions) + 1
	s.datasets[dataset.ID] = append(versions, dataset)
	if dataset.MainTable.Name != "" {
		s.byName[dataset.MainTable.Name] = dataset.ID
	}
	return dataset.ID, nil
}

func genID(n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	if n == 0 {
		return "dataset-0"
	}
	buf := make([]byte, 0, 8)
	for n > 0 {
		buf = append(buf, alphabet[n%len(alphabet)])
		n /= len(alphabet)
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return "dataset-" + string(buf)
}
