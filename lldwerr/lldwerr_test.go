package lldwerr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasgurus/discoveryd/lldwerr"
)

func TestErrInvalidRuleID_Message(t *testing.T) {
	err := &lldwerr.ErrInvalidRuleID{RuleID: 42}
	assert.Equal(t, "Invalid discovery rule ID [42].", err.Error())
}

func TestErrUnknownGlobalRegexp_Message(t *testing.T) {
	err := &lldwerr.ErrUnknownGlobalRegexp{Name: "disks"}
	assert.Equal(t, `Global regular expression "disks" does not exist.`, err.Error())
}

func TestErrCannotProcessMacro_Message(t *testing.T) {
	err := &lldwerr.ErrCannotProcessMacro{Macro: "{#A}", Reason: "bad syntax"}
	assert.Equal(t, `Cannot process LLD macro "{#A}": bad syntax.`, err.Error())
}

func TestErrPayloadNotArray_Message(t *testing.T) {
	assert.Equal(t, "Value should be a JSON array.", lldwerr.ErrPayloadNotArray.Error())
}
