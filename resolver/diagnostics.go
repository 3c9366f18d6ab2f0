package resolver

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// RenderDiagnostic renders a one-line-per-rule human-readable trace of a
// Diagnostic, the way the teacher's reporters turn a structured result into
// terminal-friendly output (grounded on the original implementation's
// per-rule trace lines, reimplemented as a String()-style renderer rather
// than a ported struct; see SPEC_FULL.md §5).
func RenderDiagnostic(d Diagnostic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "resolver %s (%s): %s\n", d.ResolverID, d.ResolverSource, d.Outcome)
	for _, r := range d.EvaluatedRules {
		status := "skipped"
		if r.Matched {
			status = "matched"
		}
		fmt.Fprintf(&b, "  rule %q: %s (%s)\n", r.RuleName, status, r.Reason)
	}
	if len(d.ExpandedPeriods) > 0 {
		fmt.Fprintf(&b, "  expanded periods: %s\n", strings.Join(d.ExpandedPeriods, ", "))
	}
	return b.String()
}

// MarshalLogObject lets a Diagnostic be passed directly to zap.Object,
// so callers log resolution outcomes as structured fields instead of
// pre-rendering RenderDiagnostic's text into a single message string.
func (d Diagnostic) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("resolver_id", d.ResolverID)
	enc.AddString("resolver_source", string(d.ResolverSource))
	enc.AddString("outcome", string(d.Outcome))
	matched := 0
	for _, r := range d.EvaluatedRules {
		if r.Matched {
			matched++
		}
	}
	enc.AddInt("rules_evaluated", len(d.EvaluatedRules))
	enc.AddInt("rules_matched", matched)
	if len(d.ExpandedPeriods) > 0 {
		enc.AddString("expanded_periods", strings.Join(d.ExpandedPeriods, ","))
	}
	return nil
}
