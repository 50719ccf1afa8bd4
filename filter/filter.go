// Package filter implements the filter condition (C3), the filter (C4), and
// the filter evaluator (C6): evaluating a loaded filter against a single JSON
// row under one of the four evaluation modes.
package filter

import (
	"github.com/tidwall/gjson"

	"github.com/atlasgurus/discoveryd/exprslot"
	"github.com/atlasgurus/discoveryd/macropath"
	"github.com/atlasgurus/discoveryd/regexpset"
)

// Operator is the condition's match polarity.
type Operator int

const (
	OpRegexp Operator = iota
	OpNotRegexp
)

// EvalType selects how a filter's conditions combine into a single verdict.
type EvalType int

const (
	EvalAndOr EvalType = iota
	EvalAnd
	EvalOr
	EvalExpression
)

// Condition is one predicate: a macro, its resolved regexp operand (a
// literal pattern or a named global set, resolved exactly once at load
// time), an operator, and the condition id referenced by EXPRESSION-mode
// filters. Immutable after construction.
type Condition struct {
	ID        uint64
	Macro     string
	Regexp    string
	Op        Operator
	RegexpSet []regexpset.GlobalRegexp
}

// Filter is the full set of conditions for one discovery rule plus the mode
// that combines them. When EvalType is EvalAndOr, Conditions must already be
// sorted by Macro so equal-macro runs are contiguous (see Sort).
type Filter struct {
	Conditions []Condition
	Expression string
	EvalType   EvalType
}

// Sort orders Conditions by Macro, required before evaluating in AndOr mode.
func (f *Filter) Sort() {
	sortConditionsByMacro(f.Conditions)
}

func sortConditionsByMacro(conditions []Condition) {
	// insertion sort: condition lists are small (single-digit to low-double-digit
	// per rule) and this keeps equal-macro runs in their original relative
	// order, which the AND_OR grouping walk depends on being contiguous, not
	// on any particular tie-break.
	for i := 1; i < len(conditions); i++ {
		for j := i; j > 0 && conditions[j].Macro < conditions[j-1].Macro; j-- {
			conditions[j], conditions[j-1] = conditions[j-1], conditions[j]
		}
	}
}

// Macros returns the macro referenced by each condition, in order, including
// repeats — used by the row iterator (C7) to emit one coverage diagnostic
// per condition that fails to resolve on a given row.
func (f *Filter) Macros() []string {
	result := make([]string, len(f.Conditions))
	for i, c := range f.Conditions {
		result[i] = c.Macro
	}
	return result
}

// match resolves condition's macro and runs the regexp engine against it,
// per spec §4.5.
func match(row gjson.Result, table *macropath.Table, c *Condition) bool {
	value, ok := macropath.Resolve(row, table, c.Macro)
	if !ok {
		return false
	}

	result, err := regexpset.Match(c.RegexpSet, value, c.Regexp, true)
	if err != nil {
		return false
	}

	switch result {
	case regexpset.Match:
		return c.Op == OpRegexp
	case regexpset.NoMatch:
		return c.Op == OpNotRegexp
	default:
		return false
	}
}

// Evaluate checks whether row passes the filter under its configured mode.
func (f *Filter) Evaluate(row gjson.Result, table *macropath.Table) (bool, error) {
	switch f.EvalType {
	case EvalAnd:
		return evaluateAnd(f, row, table), nil
	case EvalOr:
		return evaluateOr(f, row, table), nil
	case EvalExpression:
		return evaluateExpression(f, row, table)
	default:
		return evaluateAndOr(f, row, table), nil
	}
}

func evaluateAnd(f *Filter, row gjson.Result, table *macropath.Table) bool {
	for i := range f.Conditions {
		if !match(row, table, &f.Conditions[i]) {
			return false
		}
	}
	return true
}

func evaluateOr(f *Filter, row gjson.Result, table *macropath.Table) bool {
	for i := range f.Conditions {
		if match(row, table, &f.Conditions[i]) {
			return true
		}
	}
	return false
}

// evaluateAndOr walks the (pre-sorted) conditions once, grouping
// consecutive equal-macro conditions with OR and combining the resulting
// per-macro verdicts with AND. On a macro transition the previous group's
// verdict is committed immediately — a FAIL there ends the whole
// evaluation — before the next group is seeded with the current match.
func evaluateAndOr(f *Filter, row gjson.Result, table *macropath.Table) bool {
	conditions := f.Conditions
	if len(conditions) == 0 {
		return true
	}

	groupVerdict := true
	haveGroup := false
	lastMacro := ""

	for i := range conditions {
		c := &conditions[i]
		result := match(row, table, c)

		if !haveGroup || c.Macro != lastMacro {
			if haveGroup && !groupVerdict {
				return false
			}
			groupVerdict = result
			haveGroup = true
		} else if result {
			groupVerdict = true
		}
		lastMacro = c.Macro
	}

	return groupVerdict
}

func evaluateExpression(f *Filter, row gjson.Result, table *macropath.Table) (bool, error) {
	expression := f.Expression
	for i := range f.Conditions {
		c := &f.Conditions[i]
		digit := byte('0')
		if match(row, table, c) {
			digit = '1'
		}
		expression = exprslot.Substitute(expression, c.ID, digit)
	}

	result, err := exprslot.Evaluate(expression)
	if err != nil {
		return false, nil
	}
	return exprslot.IsNonZero(result), nil
}
