// Package filterload implements the filter loader (C5): turning a discovery
// rule's raw stored conditions into a ready-to-evaluate filter.Filter,
// resolving named global regexp sets and substituting simple macros into
// literal operands along the way.
package filterload

import (
	"context"
	"strings"

	"github.com/atlasgurus/discoveryd/filter"
	"github.com/atlasgurus/discoveryd/lldwerr"
	"github.com/atlasgurus/discoveryd/macrosub"
	"github.com/atlasgurus/discoveryd/regexpset"
	"github.com/atlasgurus/discoveryd/store"
)

// RegexpResolver resolves a named global regexp set, mirroring
// store.ConfigCache.ResolveGlobalRegexp without binding this package to the
// concrete store type.
type RegexpResolver interface {
	ResolveGlobalRegexp(name string) ([]string, bool)
}

// ConditionReader reads a rule's raw conditions, mirroring
// store.ConditionStore.GetConditions without binding this package to the
// concrete pgx-backed store — tests can supply an in-memory fake.
type ConditionReader interface {
	GetConditions(ctx context.Context, ruleID uint64) ([]store.RawCondition, error)
}

// Load reads conditions for ruleID from conditions, resolves "@name"
// operands against resolver, applies simple-macro substitution against
// host's context to literal operands, and assembles the filter per spec
// §4.4. evalType and expression come from the owning RuleRecord. Any
// condition failing to resolve fails the whole load, discarding the partial
// list.
func Load(ctx context.Context, conditions ConditionReader, resolver RegexpResolver, host macrosub.Context, ruleID uint64, evalType filter.EvalType, expression string) (*filter.Filter, error) {
	raw, err := conditions.GetConditions(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	built := make([]filter.Condition, 0, len(raw))
	for _, rc := range raw {
		cond := filter.Condition{
			ID:    rc.ID,
			Macro: rc.Macro,
			Op:    operatorOf(rc.Operator),
		}

		if strings.HasPrefix(rc.Value, "@") {
			name := rc.Value[1:]
			exprs, ok := resolver.ResolveGlobalRegexp(name)
			if !ok {
				return nil, &lldwerr.ErrUnknownGlobalRegexp{Name: name}
			}
			cond.RegexpSet = make([]regexpset.GlobalRegexp, len(exprs))
			for i, e := range exprs {
				cond.RegexpSet[i] = regexpset.GlobalRegexp{Name: name, Expression: e}
			}
		} else {
			cond.Regexp = macrosub.Substitute(rc.Value, host)
		}

		built = append(built, cond)
	}

	f := &filter.Filter{
		Conditions: built,
		Expression: expression,
		EvalType:   evalType,
	}
	if f.EvalType == filter.EvalAndOr {
		f.Sort()
	}
	return f, nil
}

func operatorOf(raw int) filter.Operator {
	if raw == 1 {
		return filter.OpNotRegexp
	}
	return filter.OpRegexp
}
