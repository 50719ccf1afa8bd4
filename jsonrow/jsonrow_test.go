package jsonrow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasgurus/discoveryd/filter"
	"github.com/atlasgurus/discoveryd/jsonrow"
	"github.com/atlasgurus/discoveryd/lldwerr"
	"github.com/atlasgurus/discoveryd/macropath"
)

func mustTable(t *testing.T, raw []macropath.RawMacroPath) *macropath.Table {
	t.Helper()
	table, err := macropath.NewTable(raw)
	require.NoError(t, err)
	return table
}

func TestExtractRows_ArrayForm(t *testing.T) {
	table := mustTable(t, nil)
	f := &filter.Filter{
		EvalType: filter.EvalAnd,
		Conditions: []filter.Condition{
			{Macro: "{#FSNAME}", Regexp: "^/(var|tmp)$", Op: filter.OpRegexp},
		},
	}

	payload := []byte(`[{"{#FSNAME}":"/var"},{"{#FSNAME}":"/home"},{"{#FSNAME}":"/tmp"}]`)
	rows, info, err := jsonrow.ExtractRows(payload, f, table)
	require.NoError(t, err)
	assert.Empty(t, info)
	assert.Len(t, rows, 2)
}

func TestExtractRows_LegacyDataObjectForm(t *testing.T) {
	table := mustTable(t, nil)
	f := &filter.Filter{EvalType: filter.EvalAnd}

	payload := []byte(`{"data":[{"{#A}":"x"}]}`)
	rows, _, err := jsonrow.ExtractRows(payload, f, table)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExtractRows_NonArrayFails(t *testing.T) {
	table := mustTable(t, nil)
	f := &filter.Filter{EvalType: filter.EvalAnd}

	_, _, err := jsonrow.ExtractRows([]byte(`"just a string"`), f, table)
	assert.ErrorIs(t, err, lldwerr.ErrPayloadNotArray)
}

func TestExtractRows_NonObjectElementsSkipped(t *testing.T) {
	table := mustTable(t, nil)
	f := &filter.Filter{EvalType: filter.EvalAnd}

	payload := []byte(`[1, "two", {"{#A}":"x"}, null]`)
	rows, _, err := jsonrow.ExtractRows(payload, f, table)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExtractRows_MissingMacroProducesDiagnostic(t *testing.T) {
	table := mustTable(t, []macropath.RawMacroPath{{Macro: "{#FSNAME}", Path: "$.name"}})
	f := &filter.Filter{
		EvalType: filter.EvalAnd,
		Conditions: []filter.Condition{
			{Macro: "{#FSNAME}", Regexp: ".*", Op: filter.OpRegexp},
		},
	}

	payload := []byte(`[{"other":"value"}]`)
	rows, info, err := jsonrow.ExtractRows(payload, f, table)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Contains(t, info, "{#FSNAME}")
	assert.Contains(t, info, "$.name")
}
