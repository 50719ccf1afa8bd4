package regexpset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasgurus/discoveryd/regexpset"
)

func TestMatch_LiteralPattern(t *testing.T) {
	result, err := regexpset.Match(nil, "sda1", `^sd[a-z]\d$`, true)
	require.NoError(t, err)
	assert.Equal(t, regexpset.Match, result)
}

func TestMatch_LiteralPatternNoMatch(t *testing.T) {
	result, err := regexpset.Match(nil, "nvme0n1", `^sd[a-z]\d$`, true)
	require.NoError(t, err)
	assert.Equal(t, regexpset.NoMatch, result)
}

func TestMatch_CaseInsensitive(t *testing.T) {
	result, err := regexpset.Match(nil, "SDA1", `^sd[a-z]\d$`, false)
	require.NoError(t, err)
	assert.Equal(t, regexpset.Match, result)
}

func TestMatch_GlobalSetAnyMemberMatches(t *testing.T) {
	set := []regexpset.GlobalRegexp{
		{Name: "disks", Expression: `^hd[a-z]$`},
		{Name: "disks", Expression: `^sd[a-z]$`},
	}
	result, err := regexpset.Match(set, "sdb", "", true)
	require.NoError(t, err)
	assert.Equal(t, regexpset.Match, result)
}

func TestMatch_GlobalSetNoMemberMatches(t *testing.T) {
	set := []regexpset.GlobalRegexp{
		{Name: "disks", Expression: `^hd[a-z]$`},
	}
	result, err := regexpset.Match(set, "nvme0n1", "", true)
	require.NoError(t, err)
	assert.Equal(t, regexpset.NoMatch, result)
}

func TestMatch_InvalidPatternIsError(t *testing.T) {
	_, err := regexpset.Match(nil, "x", `(unterminated`, true)
	assert.Error(t, err)
}
