// Package join implements the Runtime Join Compiler & Executor (§4.8):
// alias validation, join-dataset resolution, predicate classification into
// key pairs and join-side filters, column suffixing, and left-join
// execution against the working frame.
package join

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tabkit/pipeline/expr/joincond"
	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/model"
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateAlias checks one join's alias against §4.8's naming rule: a valid
// identifier, at most 64 characters, not already used by an earlier join in
// the same Update, and not equal to the working table's own name.
func ValidateAlias(alias, workingTable string, seen map[string]bool) error {
	if !aliasPattern.MatchString(alias) {
		return Error{Kind: ErrInvalidAlias, Alias: alias, Reason: "alias must match ^[A-Za-z_][A-Za-z0-9_]*$"}
	}
	if len(alias) > 64 {
		return Error{Kind: ErrInvalidAlias, Alias: alias, Reason: "alias exceeds 64 characters"}
	}
	if alias == workingTable {
		return Error{Kind: ErrAliasConflictsWorking, Alias: alias, Reason: "alias conflicts with the working table's own name"}
	}
	if seen[alias] {
		return Error{Kind: ErrDuplicateAlias, Alias: alias, Reason: "alias already used by an earlier join in this update"}
	}
	seen[alias] = true
	return nil
}

// Plan is the compiled outcome of classifying one join condition: the
// equality key pairs driving the frame.Frame.Join call, plus any filters
// that apply only to the join-side frame before the join executes.
type Plan struct {
	Keys         []frame.KeyPair
	RightFilters []joincond.Node
}

// Compile parses and classifies a join-condition expression for one alias
// against the working table's available columns.
func Compile(onExpr, alias string, workingColumns map[string]bool) (Plan, error) {
	node, err := joincond.Parse(onExpr)
	if err != nil {
		return Plan{}, Error{Kind: ErrInvalidJoinCondition, Alias: alias, Reason: err.Error()}
	}

	var plan Plan
	for _, conjunct := range splitAnd(node) {
		if err := classify(conjunct, alias, workingColumns, &plan); err != nil {
			return Plan{}, err
		}
	}
	if len(plan.Keys) == 0 {
		return Plan{}, Error{Kind: ErrNoKeyPredicate, Alias: alias, Reason: "join condition has no equality predicate between the working table and the joined alias"}
	}
	return plan, nil
}

// splitAnd flattens top-level AND conjuncts; an OR anywhere in the tree is
// left as a single opaque conjunct, which classify then rejects (§4.8 only
// admits a conjunction of equalities and alias-scoped filters).
func splitAnd(n joincond.Node) []joincond.Node {
	if l, ok := n.(joincond.Logical); ok && l.Op == joincond.OpAnd {
		return append(splitAnd(l.Left), splitAnd(l.Right)...)
	}
	return []joincond.Node{n}
}

func classify(n joincond.Node, alias string, workingColumns map[string]bool, plan *Plan) error {
	cmp, ok := n.(joincond.Comparison)
	if !ok {
		return Error{Kind: ErrRejectedPredicate, Alias: alias, Reason: "only a conjunction of comparisons is allowed in a join condition"}
	}

	leftSide, leftOK := sideOf(cmp.Left, alias, workingColumns)
	rightSide, rightOK := sideOf(cmp.Right, alias, workingColumns)

	if cmp.Op == joincond.OpEq && leftOK && rightOK && leftSide.isWorking != rightSide.isWorking {
		working, joined := leftSide, rightSide
		if rightSide.isWorking {
			working, joined = rightSide, leftSide
		}
		plan.Keys = append(plan.Keys, frame.KeyPair{Left: working.column, Right: joined.column})
		return nil
	}

	if (leftOK && !leftSide.isWorking || !leftOK) && (rightOK && !rightSide.isWorking || !rightOK) {
		if referencesWorking(cmp.Left, alias, workingColumns) {
			return Error{Kind: ErrRejectedPredicate, Alias: alias, Reason: "non-equality predicates mixing the working table and a joined alias are not allowed"}
		}
		plan.RightFilters = append(plan.RightFilters, n)
		return nil
	}

	return Error{Kind: ErrRejectedPredicate, Alias: alias, Reason: fmt.Sprintf("predicate %v is neither a valid key equality nor an alias-scoped filter", n)}
}

type side struct {
	isWorking bool
	column    string
}

// sideOf classifies one operand of a comparison: an unqualified reference is
// a working-table column, an `alias.column` reference is the joined side,
// and anything else (literal) is reported as not a reference at all.
func sideOf(n joincond.Node, alias string, workingColumns map[string]bool) (side, bool) {
	ref, ok := n.(joincond.Reference)
	if !ok {
		return side{}, false
	}
	if dot := strings.IndexByte(ref.Name, '.'); dot >= 0 {
		refAlias, col := ref.Name[:dot], ref.Name[dot+1:]
		if refAlias != alias {
			return side{}, false
		}
		return side{isWorking: false, column: col}, true
	}
	if workingColumns[ref.Name] {
		return side{isWorking: true, column: ref.Name}, true
	}
	return side{}, false
}

func referencesWorking(n joincond.Node, alias string, workingColumns map[string]bool) bool {
	switch t := n.(type) {
	case joincond.Reference:
		s, ok := sideOf(t, alias, workingColumns)
		return ok && s.isWorking
	case joincond.Comparison:
		return referencesWorking(t.Left, alias, workingColumns) || referencesWorking(t.Right, alias, workingColumns)
	case joincond.Logical:
		return referencesWorking(t.Left, alias, workingColumns) || referencesWorking(t.Right, alias, workingColumns)
	}
	return false
}

// SuffixColumns returns a rename map for the joined side's non-key columns,
// applying the `name_<alias>` suffix (§4.8) and failing if the suffixed name
// collides with an existing working or already-suffixed column.
func SuffixColumns(schema model.TableSchema, alias string, keyColumns map[string]bool, existing map[string]bool) (map[string]string, error) {
	rename := make(map[string]string)
	for _, c := range schema.Columns {
		if keyColumns[c.Name] {
			continue
		}
		suffixed := c.Name + "_" + alias
		if existing[suffixed] {
			return nil, Error{Kind: ErrColumnSuffixConflict, Alias: alias, Reason: fmt.Sprintf("suffixed column %q already exists", suffixed)}
		}
		existing[suffixed] = true
		rename[c.Name] = suffixed
	}
	return rename, nil
}
