// Package calendar navigates a Calendar's level hierarchy and expands a
// request period down to a target data level (§4.2).
package calendar

import (
	"fmt"
	"sort"

	"github.com/tabkit/pipeline/model"
)

// ExpansionError is the closed failure set for period expansion (§4.2, §7).
type ExpansionError struct{ Reason string }

func (e ExpansionError) Error() string { return "PeriodExpansionFailure: " + e.Reason }

// Expand implements §4.2: if dataLevel is "any" or equals the request
// period's level, returns [requestPeriod]. Otherwise walks descendants from
// the request level to dataLevel through the declared parent_level chain,
// sorted by the descent chain's sequence values (§8 property 4).
func Expand(requestPeriod model.Period, calendar model.Calendar, periods []model.Period, dataLevel string) ([]model.Period, error) {
	if dataLevel == "any" || dataLevel == requestPeriod.Level {
		return []model.Period{requestPeriod}, nil
	}
	if _, ok := calendar.LevelByName(dataLevel); !ok {
		return nil, ExpansionError{Reason: fmt.Sprintf("unknown target level %q", dataLevel)}
	}
	if err := calendar.Validate(); err != nil {
		return nil, ExpansionError{Reason: err.Error()}
	}
	if !descendsFrom(calendar, dataLevel, requestPeriod.Level) {
		return nil, ExpansionError{Reason: fmt.Sprintf("level %q does not descend from %q", dataLevel, requestPeriod.Level)}
	}

	byParent := map[string][]model.Period{}
	for _, p := range periods {
		byParent[p.ParentID] = append(byParent[p.ParentID], p)
	}

	type chainEntry struct {
		period model.Period
		chain  []int // sequence values from request period downward
	}
	frontier := []chainEntry{{period: requestPeriod, chain: nil}}
	for {
		if frontier[0].period.Level == dataLevel {
			break
		}
		var next []chainEntry
		for _, f := range frontier {
			children := byParent[f.period.Identifier]
			for _, c := range children {
				next = append(next, chainEntry{period: c, chain: append(append([]int{}, f.chain...), c.Sequence)})
			}
		}
		if len(next) == 0 {
			return nil, ExpansionError{Reason: fmt.Sprintf("no descendants found at level %q", dataLevel)}
		}
		frontier = next
	}

	sort.SliceStable(frontier, func(i, j int) bool {
		ci, cj := frontier[i].chain, frontier[j].chain
		for k := 0; k < len(ci) && k < len(cj); k++ {
			if ci[k] != cj[k] {
				return ci[k] < cj[k]
			}
		}
		return len(ci) < len(cj)
	})

	out := make([]model.Period, len(frontier))
	for i, f := range frontier {
		out[i] = f.period
	}
	return out, nil
}

// descendsFrom reports whether target is reachable from start by following
// parent_level links downward (i.e. start is an ancestor level of target).
func descendsFrom(c model.Calendar, target, start string) bool {
	name := target
	for {
		if name == start {
			return true
		}
		lvl, ok := c.LevelByName(name)
		if !ok || lvl.ParentLevel == "" {
			return name == start
		}
		name = lvl.ParentLevel
	}
}
