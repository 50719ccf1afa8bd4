// Package lldwerr defines the typed hard-failure kinds a discovery rule
// processing run can end on. Each carries the exact user-visible text that
// ends up persisted to the rule's error column, since error consolidation
// (see package driver) concatenates this text with row-extraction diagnostics
// before comparing it against the previously persisted value.
package lldwerr

import "fmt"

// ErrPayloadNotArray is returned when the top-level JSON value is neither an
// array nor a legacy {"data": [...]} object.
var ErrPayloadNotArray = fmt.Errorf("Value should be a JSON array.")

// ErrInvalidRuleID is returned by store.RuleStore.GetRule when the items
// table has no row for the rule id.
type ErrInvalidRuleID struct {
	RuleID uint64
}

func (e *ErrInvalidRuleID) Error() string {
	return fmt.Sprintf("Invalid discovery rule ID [%d].", e.RuleID)
}

// ErrUnknownGlobalRegexp is returned when an "@name" condition operand
// resolves to an empty global regexp set.
type ErrUnknownGlobalRegexp struct {
	Name string
}

func (e *ErrUnknownGlobalRegexp) Error() string {
	return fmt.Sprintf("Global regular expression \"%s\" does not exist.", e.Name)
}

// ErrCannotProcessMacro is returned when a macro path fails JSON-path
// validation while loading the macro-path table.
type ErrCannotProcessMacro struct {
	Macro  string
	Reason string
}

func (e *ErrCannotProcessMacro) Error() string {
	return fmt.Sprintf("Cannot process LLD macro \"%s\": %s.", e.Macro, e.Reason)
}

// ErrParentHostRemoved signals that a downstream materialiser found the
// parent host gone mid-run. It short-circuits the driver: no state/error
// diff is persisted once this is observed.
var ErrParentHostRemoved = fmt.Errorf("parent host removed")
