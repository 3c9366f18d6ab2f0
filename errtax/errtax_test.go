package errtax

import (
	"errors"
	"testing"

	"github.com/tabkit/pipeline/calendar"
	"github.com/tabkit/pipeline/join"
	"github.com/tabkit/pipeline/ops"
	"github.com/tabkit/pipeline/resolver"
)

func TestClassifyMapsKnownErrorTypes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Tag
	}{
		{"expansion", calendar.ExpansionError{Reason: "bad"}, TagPeriodExpansion},
		{"resolver", resolver.Error{Kind: resolver.ErrNoMatchingRule}, TagResolutionError},
		{"join", join.Error{Kind: join.ErrInvalidAlias}, TagJoinError},
		{"append", ops.AppendError{Kind: ops.ErrAppendSchemaMismatch}, TagAppendError},
		{"update", ops.UpdateError{Kind: ops.ErrUpdateReservedTarget}, TagUpdateError},
		{"aggregate", ops.AggregateError{Kind: ops.ErrAggregateGroupColumnMissing}, TagAggregateError},
		{"output", ops.OutputError{Kind: ops.ErrOutputColumnMissing}, TagOutputError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestClassifyWrappedErrorStillMatches(t *testing.T) {
	wrapped := errors.New("outer: " + join.Error{Kind: join.ErrDuplicateAlias}.Error())
	if got := Classify(wrapped); got != TagUnknown {
		t.Fatalf("a plain errors.New should not match any family, got %s", got)
	}

	inner := join.Error{Kind: join.ErrDuplicateAlias}
	var wrappedErr error = &wrapError{inner}
	if got := Classify(wrappedErr); got != TagJoinError {
		t.Fatalf("expected errors.As to unwrap to JoinError, got %s", got)
	}
}

type wrapError struct{ err error }

func (w *wrapError) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapError) Unwrap() error { return w.err }
