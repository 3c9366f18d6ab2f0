package calendar

import (
	"testing"

	"github.com/tabkit/pipeline/model"
)

func testCalendar() model.Calendar {
	return model.Calendar{
		ID: "fiscal",
		Levels: []model.Level{
			{Name: "year"},
			{Name: "quarter", ParentLevel: "year"},
			{Name: "month", ParentLevel: "quarter"},
		},
	}
}

func testPeriods() []model.Period {
	return []model.Period{
		{Identifier: "2026", Level: "year"},
		{Identifier: "2026-Q1", ParentID: "2026", Sequence: 1, Level: "quarter"},
		{Identifier: "2026-Q2", ParentID: "2026", Sequence: 2, Level: "quarter"},
		{Identifier: "2026-01", ParentID: "2026-Q1", Sequence: 1, Level: "month"},
		{Identifier: "2026-02", ParentID: "2026-Q1", Sequence: 2, Level: "month"},
		{Identifier: "2026-03", ParentID: "2026-Q1", Sequence: 3, Level: "month"},
		{Identifier: "2026-04", ParentID: "2026-Q2", Sequence: 1, Level: "month"},
	}
}

func TestExpandSameLevelReturnsRequestPeriod(t *testing.T) {
	req := model.Period{Identifier: "2026-Q1", Level: "quarter"}
	out, err := Expand(req, testCalendar(), testPeriods(), "quarter")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(out) != 1 || out[0].Identifier != "2026-Q1" {
		t.Fatalf("expected [2026-Q1], got %+v", out)
	}
}

func TestExpandAnyLevelReturnsRequestPeriod(t *testing.T) {
	req := model.Period{Identifier: "2026-Q1", Level: "quarter"}
	out, err := Expand(req, testCalendar(), testPeriods(), "any")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(out) != 1 || out[0].Identifier != "2026-Q1" {
		t.Fatalf("expected [2026-Q1], got %+v", out)
	}
}

func TestExpandDescendsInSequenceOrder(t *testing.T) {
	req := model.Period{Identifier: "2026", Level: "year"}
	out, err := Expand(req, testCalendar(), testPeriods(), "month")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"2026-01", "2026-02", "2026-03", "2026-04"}
	if len(out) != len(want) {
		t.Fatalf("expected %d months, got %d: %+v", len(want), len(out), out)
	}
	for i, id := range want {
		if out[i].Identifier != id {
			t.Fatalf("expected %v at position %d, got %+v", want, i, out)
		}
	}
}

func TestExpandUnknownLevelIsExpansionError(t *testing.T) {
	req := model.Period{Identifier: "2026", Level: "year"}
	_, err := Expand(req, testCalendar(), testPeriods(), "week")
	if _, ok := err.(ExpansionError); !ok {
		t.Fatalf("expected ExpansionError, got %v (%T)", err, err)
	}
}

func TestExpandNonDescendantLevelIsExpansionError(t *testing.T) {
	req := model.Period{Identifier: "2026-Q1", Level: "quarter"}
	_, err := Expand(req, testCalendar(), testPeriods(), "year")
	if _, ok := err.(ExpansionError); !ok {
		t.Fatalf("expected ExpansionError for upward expansion, got %v (%T)", err, err)
	}
}
