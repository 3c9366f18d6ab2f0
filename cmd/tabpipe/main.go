package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/k0kubun/pp/v3"
	"go.uber.org/zap"

	"github.com/tabkit/pipeline/config"
	"github.com/tabkit/pipeline/errtax"
	"github.com/tabkit/pipeline/harness"
	"github.com/tabkit/pipeline/idgen"
	"github.com/tabkit/pipeline/loader"
	"github.com/tabkit/pipeline/loader/fileloader"
	"github.com/tabkit/pipeline/loader/httploader"
	"github.com/tabkit/pipeline/loader/memloader"
	"github.com/tabkit/pipeline/loader/sqlloader"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/run"
	"github.com/tabkit/pipeline/store"
	"github.com/tabkit/pipeline/store/memstore"
	"github.com/tabkit/pipeline/store/sqlstore"
	"github.com/tabkit/pipeline/writer"
	"github.com/tabkit/pipeline/writer/filewriter"
	"github.com/tabkit/pipeline/writer/sqlwriter"
)

func main() {
	cfg, opts := parseOptions(os.Args[1:])

	logger := newLogger(opts.Verbose)
	defer logger.Sync()

	if opts.Scenario != "" {
		runScenario(logger, opts)
		return
	}

	st, err := buildStore(cfg.Store)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}

	ctx := context.Background()

	if opts.Command == "validate" {
		if !runValidate(ctx, logger, st, cfg.ProjectID) {
			os.Exit(1)
		}
		return
	}

	ld, err := buildLoader(cfg.Loader)
	if err != nil {
		logger.Fatal("open loader", zap.Error(err))
	}
	wr, err := buildWriter(cfg.Writer)
	if err != nil {
		logger.Fatal("open writer", zap.Error(err))
	}

	project, err := st.GetProject(ctx, cfg.ProjectID)
	if err != nil {
		logger.Fatal("load project", zap.String("project_id", cfg.ProjectID), zap.Error(err))
	}

	runID, err := idgen.RowID()
	if err != nil {
		logger.Fatal("generate run id", zap.Error(err))
	}
	runPeriod := model.Period{Identifier: cfg.RequestPeriod}

	orch := &run.Orchestrator{Store: st, Loader: ld, Writer: wr, Logger: logger}
	startedAt := time.Now()
	modelRun, _, err := orch.Execute(ctx, project, runPeriod, runID, startedAt)
	if err != nil {
		tag := errtax.Classify(err)
		logger.Error("run failed", zap.String("run_id", runID), zap.String("error_tag", string(tag)), zap.Error(err))
		if opts.Verbose {
			pp.Println(err)
		}
		os.Exit(1)
	}

	logger.Info("run succeeded", zap.String("run_id", runID), zap.Int("operations", len(project.Operations)))
	if opts.Verbose {
		pp.Println(modelRun)
	}
}

func runScenario(logger *zap.Logger, opts cliOptions) {
	scenario, err := harness.LoadScenario(opts.Scenario)
	if err != nil {
		logger.Fatal("load scenario", zap.Error(err))
	}
	outcome, err := harness.Run(context.Background(), scenario)
	if err != nil {
		logger.Fatal("run scenario", zap.Error(err))
	}
	if opts.Verbose {
		pp.Println(outcome)
	}
	if !outcome.Passed {
		for _, m := range outcome.Mismatches {
			fmt.Fprintln(os.Stderr, m.String())
		}
		if outcome.Err != nil {
			fmt.Fprintf(os.Stderr, "scenario %q failed: %v (tag=%s)\n", scenario.Name, outcome.Err, outcome.Tag)
		}
		os.Exit(1)
	}
	logger.Info("scenario passed", zap.String("name", scenario.Name))
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		log.Fatal(err)
	}
	return logger
}

func buildStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Kind {
	case "", "memory":
		return memstore.New(), nil
	case "sql":
		return sqlstore.Open(sqlstore.Config{Driver: sqlstore.Driver(cfg.Driver), DSN: cfg.DSN})
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

func buildLoader(cfg config.LoaderConfig) (loader.Loader, error) {
	switch cfg.Kind {
	case "", "memory":
		return memloader.New(), nil
	case "file":
		return &fileloader.Loader{BaseDir: cfg.BaseDir}, nil
	case "sql":
		db, err := openSQL(cfg.BaseDir)
		if err != nil {
			return nil, err
		}
		return &sqlloader.Loader{DB: db}, nil
	case "http":
		return httploader.New(nil), nil
	default:
		return nil, fmt.Errorf("unknown loader kind %q", cfg.Kind)
	}
}

func buildWriter(cfg config.WriterConfig) (writer.Writer, error) {
	switch cfg.Kind {
	case "", "file":
		return filewriter.New(cfg.BaseDir), nil
	case "sql":
		db, err := openSQL(cfg.BaseDir)
		if err != nil {
			return nil, err
		}
		return &sqlwriter.Writer{DB: db}, nil
	default:
		return nil, fmt.Errorf("unknown writer kind %q", cfg.Kind)
	}
}

// openSQL is a thin helper for the sql loader/writer backends: it opens a
// new sqlite *sql.DB with the configured base_dir as its DSN. It does not
// share the connection the store opened.
func openSQL(dsn string) (*sql.DB, error) {
	return sql.Open("sqlite", dsn)
}
