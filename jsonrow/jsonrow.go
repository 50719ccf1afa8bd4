// Package jsonrow implements the row iterator (C7): opening a discovery
// payload, yielding the rows that survive the filter, and producing the
// filter-coverage diagnostics that flow into the rule's persisted error text.
package jsonrow

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/atlasgurus/discoveryd/filter"
	"github.com/atlasgurus/discoveryd/lldwerr"
	"github.com/atlasgurus/discoveryd/macropath"
	"github.com/atlasgurus/discoveryd/types"
)

// ItemLink is populated by downstream materialisers once a row's item
// prototypes are matched against existing items; the row iterator never
// writes it.
type ItemLink struct {
	ItemID uint64
}

// Row pairs one surviving payload element with the item links downstream
// stages attach to it.
type Row struct {
	JP        gjson.Result
	ItemLinks []ItemLink
}

// ExtractRows opens payload, which must be a JSON array or a legacy
// {"data": [...]} object, and returns the elements that pass f, plus an
// "info" diagnostic buffer describing macros the filter references that
// produced no value for one or more rows. Non-object elements are skipped
// silently; anything else at the top level fails the whole call with
// lldwerr.ErrPayloadNotArray.
func ExtractRows(payload []byte, f *filter.Filter, table *macropath.Table) (rows []*Row, info string, err error) {
	parsed := gjson.ParseBytes(payload)

	array := parsed
	if parsed.IsObject() {
		data := parsed.Get("data")
		if !data.Exists() || !data.IsArray() {
			return nil, "", lldwerr.ErrPayloadNotArray
		}
		array = data
	} else if !parsed.IsArray() {
		return nil, "", lldwerr.ErrPayloadNotArray
	}

	macros := f.Macros()
	var diagnostics types.ErrorLog

	array.ForEach(func(_, element gjson.Result) bool {
		if !element.IsObject() {
			return true
		}

		for _, m := range macros {
			if msg, missing := macropath.Diagnose(element, table, m); missing {
				diagnostics.LogError(fmt.Errorf("%s", msg))
			}
		}

		ok, evalErr := f.Evaluate(element, table)
		if evalErr != nil || !ok {
			return true
		}

		rows = append(rows, &Row{JP: element})
		return true
	})

	lines := types.MapSlice(diagnostics.Errors(), func(e error) string { return e.Error() + "\n" })
	return rows, strings.Join(lines, ""), nil
}
