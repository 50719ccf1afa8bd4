// Package exprslot implements the EXPRESSION evaluation mode's token
// substitution (spec §4.5) and wraps github.com/Knetic/govaluate as the
// external "expr.evaluate(text) -> (double, error)" collaborator named in
// spec §6.
package exprslot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
)

// Substitute replaces every occurrence of the token "{id}" in expression with
// digit (must be "0" or "1"), padding the remaining characters of the token
// with spaces so the total length of expression is preserved — token offsets
// elsewhere in the expression must not drift.
func Substitute(expression string, id uint64, digit byte) string {
	token := "{" + strconv.FormatUint(id, 10) + "}"
	tokenLen := len(token)

	var b strings.Builder
	b.Grow(len(expression))

	rest := expression
	for {
		idx := strings.Index(rest, token)
		if idx < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:idx])
		b.WriteByte(digit)
		for i := 1; i < tokenLen; i++ {
			b.WriteByte(' ')
		}
		rest = rest[idx+tokenLen:]
	}
	return b.String()
}

// doubleTolerance mirrors the original's zbx_double_compare epsilon for
// comparing an evaluated result against zero.
const doubleTolerance = 1e-9

// Evaluate parses and evaluates text, returning the numeric result. Any
// parse or evaluation error is surfaced to the caller, which per spec §4.5
// must treat it as FAIL.
func Evaluate(text string) (float64, error) {
	expr, err := govaluate.NewEvaluableExpression(rewriteOperators(text))
	if err != nil {
		return 0, fmt.Errorf("cannot parse expression: %w", err)
	}

	result, err := expr.Evaluate(nil)
	if err != nil {
		return 0, fmt.Errorf("cannot evaluate expression: %w", err)
	}

	switch v := result.(type) {
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected expression result type %T", result)
	}
}

// IsNonZero applies the double-tolerant comparison required by spec §4.5:
// the EXPRESSION mode passes iff the evaluated result is not equal to 0.
func IsNonZero(v float64) bool {
	if v < 0 {
		v = -v
	}
	return v > doubleTolerance
}

// rewriteOperators translates the zabbix-style keyword operators and/or/not
// into govaluate's &&/||/! before parsing, skipping anything inside a quoted
// string literal. govaluate itself only understands the symbolic forms.
// govaluate's logical operators also accept only booleans, so every number
// literal N is rewritten to "(N != 0)": non-zero is true. Arithmetic on
// number literals is therefore not supported.
func rewriteOperators(expr string) string {
	var out strings.Builder
	out.Grow(len(expr))

	inString := false
	var quote byte

	for i := 0; i < len(expr); {
		ch := expr[i]

		if inString {
			out.WriteByte(ch)
			if ch == '\\' && i+1 < len(expr) {
				out.WriteByte(expr[i+1])
				i += 2
				continue
			}
			if ch == quote {
				inString = false
			}
			i++
			continue
		}

		if ch == '"' || ch == '\'' {
			inString = true
			quote = ch
			out.WriteByte(ch)
			i++
			continue
		}

		if ch >= '0' && ch <= '9' {
			j := i + 1
			for j < len(expr) && ((expr[j] >= '0' && expr[j] <= '9') || expr[j] == '.') {
				j++
			}
			out.WriteString("(" + expr[i:j] + " != 0)")
			i = j
			continue
		}

		if isWordStart(ch) {
			j := i + 1
			for j < len(expr) && isWordChar(expr[j]) {
				j++
			}
			switch expr[i:j] {
			case "and":
				out.WriteString("&&")
			case "or":
				out.WriteString("||")
			case "not":
				out.WriteString("!")
			default:
				out.WriteString(expr[i:j])
			}
			i = j
			continue
		}

		out.WriteByte(ch)
		i++
	}
	return out.String()
}

func isWordStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isWordChar(ch byte) bool {
	return isWordStart(ch) || (ch >= '0' && ch <= '9')
}
