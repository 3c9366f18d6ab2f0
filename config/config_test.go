package config

import "testing"

func TestParseConfigStringParsesNestedFields(t *testing.T) {
	cfg, err := ParseConfigString(`
store:
  kind: sql
  driver: mysql
  dsn: "user:pass@/db"
project_id: proj-1
request_period: "2026-01"
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Store.Kind != "sql" || cfg.Store.Driver != "mysql" {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.ProjectID != "proj-1" || cfg.RequestPeriod != "2026-01" {
		t.Fatalf("unexpected top-level config: %+v", cfg)
	}
}

func TestParseConfigStringEmptyReturnsZeroValue(t *testing.T) {
	cfg, err := ParseConfigString("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg != (Config{}) {
		t.Fatalf("expected zero-value config, got %+v", cfg)
	}
}

func TestMergeOverlaysNonZeroOverrideFields(t *testing.T) {
	base := Config{ProjectID: "base-proj", Store: StoreConfig{Kind: "memory"}}
	override := Config{RequestPeriod: "2026-02"}

	merged := Merge(base, override)
	if merged.ProjectID != "base-proj" {
		t.Fatalf("expected base project id preserved, got %q", merged.ProjectID)
	}
	if merged.Store.Kind != "memory" {
		t.Fatalf("expected base store preserved, got %+v", merged.Store)
	}
	if merged.RequestPeriod != "2026-02" {
		t.Fatalf("expected override request period applied, got %q", merged.RequestPeriod)
	}
}

func TestMergeOverrideStoreReplacesWholeStruct(t *testing.T) {
	base := Config{Store: StoreConfig{Kind: "memory"}}
	override := Config{Store: StoreConfig{Kind: "sql", Driver: "mysql"}}

	merged := Merge(base, override)
	if merged.Store.Kind != "sql" || merged.Store.Driver != "mysql" {
		t.Fatalf("expected override store to fully replace base, got %+v", merged.Store)
	}
}
