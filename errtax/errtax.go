// Package errtax maps any of the engine's closed per-package error types
// onto the single ErrorType tag used by the outer harness and CLI to report
// failures uniformly (§7).
package errtax

import (
	"errors"

	"github.com/tabkit/pipeline/calendar"
	"github.com/tabkit/pipeline/expr"
	"github.com/tabkit/pipeline/join"
	"github.com/tabkit/pipeline/ops"
	"github.com/tabkit/pipeline/resolver"
	"github.com/tabkit/pipeline/temporal"
)

// Tag is one of the closed error-family names enumerated in §7.
type Tag string

const (
	TagCompileError     Tag = "CompileError"
	TagExpressionError  Tag = "ExpressionError"
	TagResolutionError  Tag = "ResolutionError"
	TagPeriodExpansion  Tag = "PeriodExpansionFailure"
	TagTemporalError    Tag = "TemporalFilterError"
	TagJoinError        Tag = "JoinError"
	TagAppendError      Tag = "AppendError"
	TagUpdateError      Tag = "UpdateError"
	TagAggregateError   Tag = "AggregateError"
	TagOutputError      Tag = "OutputError"
	TagUnknown          Tag = "Unknown"
)

// Classify inspects err's concrete type and returns the family tag a
// harness comparator or CLI error reporter keys its output on.
func Classify(err error) Tag {
	var (
		compileErr   expr.CompileError
		exprErr      expr.ExpressionError
		expansionErr calendar.ExpansionError
		resolverErr  resolver.Error
		temporalErr  temporal.Error
		joinErr      join.Error
		appendErr    ops.AppendError
		updateErr    ops.UpdateError
		aggregateErr ops.AggregateError
		outputErr    ops.OutputError
	)
	switch {
	case errors.As(err, &compileErr):
		return TagCompileError
	case errors.As(err, &exprErr):
		return TagExpressionError
	case errors.As(err, &expansionErr):
		return TagPeriodExpansion
	case errors.As(err, &resolverErr):
		return TagResolutionError
	case errors.As(err, &temporalErr):
		return TagTemporalError
	case errors.As(err, &joinErr):
		return TagJoinError
	case errors.As(err, &appendErr):
		return TagAppendError
	case errors.As(err, &updateErr):
		return TagUpdateError
	case errors.As(err, &aggregateErr):
		return TagAggregateError
	case errors.As(err, &outputErr):
		return TagOutputError
	default:
		return TagUnknown
	}
}
