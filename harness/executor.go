package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/tabkit/pipeline/errtax"
	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/idgen"
	"github.com/tabkit/pipeline/loader/memloader"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/run"
	"github.com/tabkit/pipeline/store/memstore"
	"github.com/tabkit/pipeline/writer/filewriter"
)

// Outcome is one scenario's executed result: either a successful run (Run
// and Output populated) or a failed one (Err populated, classified by Tag).
type Outcome struct {
	Run        *model.Run
	Output     frame.Frame
	Mismatches []Mismatch
	Err        error
	Tag        errtax.Tag
	Passed     bool
}

// Run parses nothing further: it wires memory-backed Store/Loader/Writer
// from the scenario's fixtures, drives a run.Orchestrator end to end, and
// compares the result against the scenario's expectation.
func Run(ctx context.Context, s Scenario) (Outcome, error) {
	st := memstore.New()

	var datasets []model.Dataset
	ld := memloader.New()
	for _, df := range s.Datasets {
		ds := df.toDataset()
		datasets = append(datasets, ds)
		ld.Seed(df.DatasourceID, "", df.TableName, df.toRows())
	}
	resolvers := make([]model.Resolver, len(s.Resolvers))
	for i, rf := range s.Resolvers {
		resolvers[i] = rf.toResolver()
	}
	st.Seed(datasets, nil, resolvers)

	cal, periods := s.Calendar.toCalendar()
	runPeriod, _ := findPeriod(periods, s.RequestPeriod)
	if runPeriod.Identifier == "" {
		runPeriod = model.Period{Identifier: s.RequestPeriod}
	}

	project := s.Project.toProject()

	wr := filewriter.New("/tmp")
	orch := &run.Orchestrator{Store: st, Loader: ld, Writer: wr, Calendar: cal, Periods: periods}

	runID, err := idgen.RowID()
	if err != nil {
		return Outcome{}, fmt.Errorf("harness: generate run id: %w", err)
	}

	startedAt := time.Time{}
	modelRun, output, err := orch.Execute(ctx, project, runPeriod, runID, startedAt)
	if err != nil {
		tag := errtax.Classify(err)
		if s.Expected.ErrorTag != "" {
			return Outcome{Err: err, Tag: tag, Passed: string(tag) == s.Expected.ErrorTag}, nil
		}
		return Outcome{Run: modelRun, Err: err, Tag: tag, Passed: false}, nil
	}

	if s.Expected.ErrorTag != "" {
		return Outcome{Run: modelRun, Output: output, Passed: false}, nil
	}

	mismatches, err := Compare(output, s.Expected.Rows, MatchMode(s.Expected.MatchMode))
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Run: modelRun, Output: output, Mismatches: mismatches, Passed: len(mismatches) == 0}, nil
}

func (p ProjectFixture) toProject() model.Project {
	overrides := make(map[model.DatasetID]string, len(p.ResolverOverrides))
	for k, v := range p.ResolverOverrides {
		overrides[model.DatasetID(k)] = v
	}
	return model.Project{
		ID:                  p.ID,
		InputDatasetID:      model.DatasetID(p.InputDatasetID),
		InputDatasetVersion: p.InputDatasetVersion,
		Operations:          p.Operations,
		Selectors:           p.Selectors,
		ResolverOverrides:   overrides,
	}
}
