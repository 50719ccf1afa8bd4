// Package macropath implements the LLD macro-path table (C1) and the macro
// resolver (C2): turning a row's JSON payload plus a per-rule ordered mapping
// of {#MACRO} -> JSON path into concrete string values.
package macropath

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/atlasgurus/discoveryd/lldwerr"
)

// RawMacroPath is one (lld_macro, path) pair as read from the
// lld_macro_path table, keyed by rule id, before JSON-path validation.
type RawMacroPath struct {
	Macro string
	Path  string
}

// MacroPath is one validated table entry. GJSONPath is the path rewritten
// into gjson's dot-path syntax so repeated lookups don't re-parse the
// original "$.a.b[0]" form on every row.
type MacroPath struct {
	Macro     string
	Path      string
	GJSONPath string
}

// Table is the ordered, binary-searchable mapping for one discovery rule.
// Invariant: entries are sorted by Macro and Macro values are unique.
type Table struct {
	entries []MacroPath
}

// NewTable validates every path and builds the ordered table. On the first
// invalid path it discards the partial table and returns
// lldwerr.ErrCannotProcessMacro, matching the "whole load fails" semantics of
// spec §4.1.
func NewTable(raw []RawMacroPath) (*Table, error) {
	entries := make([]MacroPath, 0, len(raw))
	for _, r := range raw {
		gpath, err := toGJSONPath(r.Path)
		if err != nil {
			return nil, &lldwerr.ErrCannotProcessMacro{Macro: r.Macro, Reason: err.Error()}
		}
		entries = append(entries, MacroPath{Macro: r.Macro, Path: r.Path, GJSONPath: gpath})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Macro < entries[j].Macro })
	return &Table{entries: entries}, nil
}

// Lookup finds the table entry for macro by binary search. The table is
// expected to already be sorted by Macro (NewTable guarantees this).
func (t *Table) Lookup(macro string) (MacroPath, bool) {
	if t == nil {
		return MacroPath{}, false
	}
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Macro >= macro })
	if i < len(t.entries) && t.entries[i].Macro == macro {
		return t.entries[i], true
	}
	return MacroPath{}, false
}

// Len reports the number of entries in the table (used by tests).
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// openPath opens entry's path against row, returning the scalar value as a
// string and whether the path resolved.
func openPath(row gjson.Result, entry MacroPath) (string, bool) {
	res := row.Get(entry.GJSONPath)
	if !res.Exists() {
		return "", false
	}
	return res.String(), true
}

// directLookup searches row's top-level key/value pairs for a key equal to
// macro, per spec §4.2 step 2. Only top-level pairs are considered: the
// macro name itself may contain characters ('{', '#', '}') that would be
// ambiguous as a gjson path, so the row is consulted as a flat map rather
// than through path syntax.
func directLookup(row gjson.Result, macro string) (string, bool) {
	if !row.IsObject() {
		return "", false
	}
	var value string
	var found bool
	row.ForEach(func(key, val gjson.Result) bool {
		if key.String() == macro {
			value = val.String()
			found = true
			return false
		}
		return true
	})
	return value, found
}

// Resolve implements the macro resolver (C2): if macro has a declared path
// in the table, that path is authoritative — a failure to open it is a miss,
// and direct lookup is never attempted. Otherwise, macro is looked up as a
// top-level key of row.
func Resolve(row gjson.Result, table *Table, macro string) (string, bool) {
	if entry, ok := table.Lookup(macro); ok {
		return openPath(row, entry)
	}
	return directLookup(row, macro)
}

// Diagnose reports the "cannot accurately apply filter" line for macro
// against row, or ("", false) if the macro resolves. It mirrors Resolve's
// decision tree exactly (C1 entry takes precedence over direct lookup) so
// that diagnostics and evaluation can never disagree about why a condition
// failed to find a value.
func Diagnose(row gjson.Result, table *Table, macro string) (string, bool) {
	if entry, ok := table.Lookup(macro); ok {
		if _, resolved := openPath(row, entry); resolved {
			return "", false
		}
		return fmt.Sprintf(
			"Cannot accurately apply filter: no value received for macro \"%s\" json path '%s'.",
			entry.Macro, entry.Path), true
	}
	if _, resolved := directLookup(row, macro); resolved {
		return "", false
	}
	return fmt.Sprintf("Cannot accurately apply filter: no value received for macro \"%s\".", macro), true
}

// pathTokenRe matches one "$.name", "$['name']" or "$[0]" style path segment,
// which is the subset of JSON-path syntax LLD macro paths are restricted to.
var pathTokenRe = regexp.MustCompile(`^(?:\.[A-Za-z_][A-Za-z0-9_]*|\[\d+\]|\['[^']*'\]|\["[^"]*"\])`)

// toGJSONPath validates path as a syntactically valid JSON path (spec §4.1)
// and rewrites it into gjson's dot-path syntax. Accepted forms: "$", followed
// by one or more ".identifier", "[index]", "['key']" or "[\"key\"]" segments;
// a bare "$" is rejected.
func toGJSONPath(path string) (string, error) {
	if !strings.HasPrefix(path, "$") {
		return "", fmt.Errorf("path must start with '$'")
	}
	rest := path[1:]
	var segments []string
	for len(rest) > 0 {
		loc := pathTokenRe.FindString(rest)
		if loc == "" {
			return "", fmt.Errorf("invalid path syntax at %q", rest)
		}
		switch {
		case strings.HasPrefix(loc, "."):
			segments = append(segments, loc[1:])
		case strings.HasPrefix(loc, "["):
			inner := strings.Trim(loc[1:len(loc)-1], "'\"")
			segments = append(segments, inner)
		}
		rest = rest[len(loc):]
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("path must reference at least one field")
	}
	return strings.Join(segments, "."), nil
}
