package memstore

import (
	"context"
	"testing"

	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/store"
)

func TestGetDatasetDefaultsToLatestVersion(t *testing.T) {
	s := New()
	s.Seed([]model.Dataset{
		{ID: "ds1", Version: 1, MainTable: model.TableSchema{Name: "sales"}},
		{ID: "ds1", Version: 2, MainTable: model.TableSchema{Name: "sales"}},
	}, nil, nil)

	got, err := s.GetDataset(context.Background(), "ds1", nil)
	if err != nil {
		t.Fatalf("get dataset: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("expected latest version 2, got %d", got.Version)
	}
}

func TestGetDatasetSpecificVersion(t *testing.T) {
	s := New()
	s.Seed([]model.Dataset{
		{ID: "ds1", Version: 1, MainTable: model.TableSchema{Name: "sales"}},
		{ID: "ds1", Version: 2, MainTable: model.TableSchema{Name: "sales"}},
	}, nil, nil)

	one := 1
	got, err := s.GetDataset(context.Background(), "ds1", &one)
	if err != nil {
		t.Fatalf("get dataset: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}

	missing := 99
	_, err = s.GetDataset(context.Background(), "ds1", &missing)
	if err != store.ErrVersionNotFound {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestGetDatasetNotFound(t *testing.T) {
	s := New()
	_, err := s.GetDataset(context.Background(), "nope", nil)
	if err != store.ErrDatasetNotFound {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
}

func TestRegisterDatasetAssignsVersionAndID(t *testing.T) {
	s := New()
	id, err := s.RegisterDataset(context.Background(), model.Dataset{MainTable: model.TableSchema{Name: "out"}})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated dataset id")
	}
	got, err := s.GetDataset(context.Background(), id, nil)
	if err != nil {
		t.Fatalf("get registered dataset: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("expected first registration to be version 1, got %d", got.Version)
	}

	id2, err := s.RegisterDataset(context.Background(), model.Dataset{ID: id, MainTable: model.TableSchema{Name: "out"}})
	if err != nil {
		t.Fatalf("register again: %v", err)
	}
	if id2 != id {
		t.Fatalf("expected same id reused, got %q vs %q", id2, id)
	}
	got2, err := s.GetDataset(context.Background(), id, nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got2.Version != 2 {
		t.Fatalf("expected second registration to bump version to 2, got %d", got2.Version)
	}
}

func TestGetDefaultResolverRequiresActiveAndDefault(t *testing.T) {
	s := New()
	s.Seed(nil, nil, []model.Resolver{
		{ID: "r1", IsDefault: false, Status: model.ResolverActive},
		{ID: "r2", IsDefault: true, Status: model.ResolverDisabled},
		{ID: "r3", IsDefault: true, Status: model.ResolverActive},
	})

	got, err := s.GetDefaultResolver(context.Background())
	if err != nil {
		t.Fatalf("get default resolver: %v", err)
	}
	if got.ID != "r3" {
		t.Fatalf("expected r3, got %q", got.ID)
	}
}

func TestGetDefaultResolverNoneQualifies(t *testing.T) {
	s := New()
	s.Seed(nil, nil, []model.Resolver{{ID: "r1", IsDefault: false, Status: model.ResolverActive}})

	_, err := s.GetDefaultResolver(context.Background())
	if err != store.ErrResolverNotFound {
		t.Fatalf("expected ErrResolverNotFound, got %v", err)
	}
}
