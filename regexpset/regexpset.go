// Package regexpset adapts github.com/dlclark/regexp2 to the
// "regexp.match(regexp_set, value, literal_pattern, case_sensitive)"
// collaborator named in spec §6: it matches a value against either a literal
// pattern or an already resolved global regexp set. Resolving set names is
// done by store.ConfigCache.ResolveGlobalRegexp.
package regexpset

import (
	"sync"

	"github.com/dlclark/regexp2"
)

// GlobalRegexp is one named, server-wide regular expression, as resolved by
// config.resolve_global_regexp(name).
type GlobalRegexp struct {
	Name       string
	Expression string
}

// MatchResult is the three-way outcome of a single match attempt.
type MatchResult int

const (
	NoMatch MatchResult = iota
	Match
	MatchError
)

// compileCache memoizes compiled patterns across calls; LLD filters are
// evaluated once per row and the same condition's pattern is recompiled on
// every call otherwise, which dominates cost on large discovery payloads.
type compileCache struct {
	mu    sync.Mutex
	byKey map[string]*regexp2.Regexp
}

var globalCache = &compileCache{byKey: make(map[string]*regexp2.Regexp)}

func (c *compileCache) compile(pattern string, caseSensitive bool) (*regexp2.Regexp, error) {
	key := pattern
	if caseSensitive {
		key = "cs:" + pattern
	} else {
		key = "ci:" + pattern
	}

	c.mu.Lock()
	if re, ok := c.byKey[key]; ok {
		c.mu.Unlock()
		return re, nil
	}
	c.mu.Unlock()

	opts := regexp2.RE2
	if !caseSensitive {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.byKey[key] = re
	c.mu.Unlock()
	return re, nil
}

// Match matches value against a resolved regexp set if non-empty, otherwise
// against literalPattern. caseSensitive is supplied explicitly by the caller
// per the collaborator contract rather than encoded into the pattern text.
func Match(set []GlobalRegexp, value, literalPattern string, caseSensitive bool) (MatchResult, error) {
	if len(set) > 0 {
		for _, g := range set {
			re, err := globalCache.compile(g.Expression, caseSensitive)
			if err != nil {
				return MatchError, err
			}
			ok, err := re.MatchString(value)
			if err != nil {
				return MatchError, err
			}
			if ok {
				return Match, nil
			}
		}
		return NoMatch, nil
	}

	re, err := globalCache.compile(literalPattern, caseSensitive)
	if err != nil {
		return MatchError, err
	}
	ok, err := re.MatchString(value)
	if err != nil {
		return MatchError, err
	}
	if ok {
		return Match, nil
	}
	return NoMatch, nil
}
