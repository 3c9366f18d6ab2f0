// Package sqlstore is a store.Store backed by database/sql, selecting among
// the four drivers the teacher's adapters wire up (mysql, postgres, mssql,
// sqlite) at Open time (mirrors database/mysql, database/postgres,
// database/mssql, database/sqlite3's NewDatabase(config) pattern; see
// SPEC_FULL.md §6).
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/store"
)

// Driver names one of the four supported backends.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverMSSQL    Driver = "sqlserver"
	DriverSQLite   Driver = "sqlite"
)

// Config selects a backend and DSN, mirroring database.Config's per-driver
// DSN builders but collapsed to one already-built DSN string since the
// engine's callers (CLI, harness) build it themselves.
type Config struct {
	Driver Driver
	DSN    string
}

// Store reads and writes engine metadata tables (datasets, projects,
// resolvers, runs) through a *sql.DB.
type Store struct {
	db     *sql.DB
	driver Driver
}

// Open opens a connection for the configured driver and pings it. It does
// not check that the metadata tables (created by the caller's migration
// step) exist.
func Open(cfg Config) (*Store, error) {
	db, err := sql.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", cfg.Driver, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlstore: ping %s: %w", cfg.Driver, err)
	}
	return &Store{db: db, driver: cfg.Driver}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) GetDataset(ctx context.Context, id model.DatasetID, version *int) (model.Dataset, error) {
	var row *sql.Row
	if version == nil {
		row = s.db.QueryRowContext(ctx,
			`SELECT id, version, status, resolver_id, main_table, lookups, natural_key_cols
			 FROM datasets WHERE id = ? ORDER BY version DESC LIMIT 1`, id)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT id, version, status, resolver_id, main_table, lookups, natural_key_cols
			 FROM datasets WHERE id = ? AND version = ?`, id, *version)
	}
	d, err := scanDataset(row)
	if err == sql.ErrNoRows {
		if version == nil {
			return model.Dataset{}, store.ErrDatasetNotFound
		}
		return model.Dataset{}, store.ErrVersionNotFound
	}
	return d, err
}

func (s *Store) GetDatasetByName(ctx context.Context, name string) (*model.Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, version, status, resolver_id, main_table, lookups, natural_key_cols
		 FROM datasets WHERE json_extract(main_table, '$.name') = ? ORDER BY version DESC LIMIT 1`, name)
	d, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	var p model.Project
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM projects WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return model.Project{}, store.ErrProjectNotFound
	}
	if err != nil {
		return model.Project{}, err
	}
	if err := json.Unmarshal(blob, &p); err != nil {
		return model.Project{}, fmt.Errorf("sqlstore: decode project %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) GetResolver(ctx context.Context, id string) (model.Resolver, error) {
	return s.scanResolver(ctx, `SELECT body FROM resolvers WHERE id = ?`, id)
}

func (s *Store) GetDefaultResolver(ctx context.Context) (model.Resolver, error) {
	return s.scanResolver(ctx, `SELECT body FROM resolvers WHERE is_default = 1 AND status = 'active' LIMIT 1`)
}

func (s *Store) scanResolver(ctx context.Context, query string, args ...any) (model.Resolver, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&blob)
	if err == sql.ErrNoRows {
		return model.Resolver{}, store.ErrResolverNotFound
	}
	if err != nil {
		return model.Resolver{}, err
	}
	var r model.Resolver
	if err := json.Unmarshal(blob, &r); err != nil {
		return model.Resolver{}, fmt.Errorf("sqlstore: decode resolver: %w", err)
	}
	return r, nil
}

func (s *Store) ListResolvers(ctx context.Context) ([]model.Resolver, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM resolvers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Resolver
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var r model.Resolver
		if err := json.Unmarshal(blob, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ? WHERE id = ?`, string(status), runID)
	return err
}

func (s *Store) RegisterDataset(ctx context.Context, dataset model.Dataset) (model.DatasetID, error) {
	mainTable, err := json.Marshal(dataset.MainTable)
	if err != nil {
		return "", err
	}
	lookups, err := json.Marshal(dataset.Lookups)
	if err != nil {
		return "", err
	}
	naturalKeys, err := json.Marshal(dataset.NaturalKeyCols)
	if err != nil {
		return "", err
	}

	var nextVersion int
	err = s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM datasets WHERE id = ?`, dataset.ID).Scan(&nextVersion)
	if err != nil {
		return "", err
	}
	dataset.Version = nextVersion

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, version, status, resolver_id, main_table, lookups, natural_key_cols)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dataset.ID, dataset.Version, string(dataset.Status), dataset.ResolverID, mainTable, lookups, naturalKeys)
	if err != nil {
		return "", fmt.Errorf("sqlstore: register dataset %s: %w", dataset.ID, err)
	}
	return dataset.ID, nil
}

func scanDataset(row *sql.Row) (model.Dataset, error) {
	var d model.Dataset
	var status, mainTable, lookups, naturalKeys []byte
	var id string
	if err := row.Scan(&id, &d.Version, &status, &d.ResolverID, &mainTable, &lookups, &naturalKeys); err != nil {
		return model.Dataset{}, err
	}
	d.ID = model.DatasetID(id)
	d.Status = model.DatasetStatus(status)
	if err := json.Unmarshal(mainTable, &d.MainTable); err != nil {
		return model.Dataset{}, err
	}
	if err := json.Unmarshal(lookups, &d.Lookups); err != nil {
		return model.Dataset{}, err
	}
	if err := json.Unmarshal(naturalKeys, &d.NaturalKeyCols); err != nil {
		return model.Dataset{}, err
	}
	return d, nil
}
