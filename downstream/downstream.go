// Package downstream defines the external materialisers the driver (C8)
// hands surviving rows to: update_items, sort_item_links, update_triggers,
// update_graphs, update_hosts (spec §4.7 step 6). These own their own
// transactions and are out of scope to implement in full; this package
// fixes the interface contract and ships an in-memory reference
// implementation for tests and for embedders who have not yet wired real
// materialisation.
package downstream

import (
	"context"
	"errors"

	"github.com/atlasgurus/discoveryd/jsonrow"
	"github.com/atlasgurus/discoveryd/lldwerr"
	"github.com/atlasgurus/discoveryd/macropath"
)

// ErrBuffer accumulates non-fatal materialiser diagnostics that still flow
// into the rule's persisted error column, mirroring spec §4.7's
// "accumulating error buffer" parameter.
type ErrBuffer struct {
	messages []string
}

func (b *ErrBuffer) Add(msg string) {
	b.messages = append(b.messages, msg)
}

func (b *ErrBuffer) String() string {
	if len(b.messages) == 0 {
		return ""
	}
	s := b.messages[0]
	for _, m := range b.messages[1:] {
		s += "; " + m
	}
	return s
}

// Materialisers is the set of downstream stages invoked, in order, once per
// rule processing pass. UpdateItems, UpdateTriggers and UpdateGraphs return
// lldwerr.ErrParentHostRemoved when the owning host has been deleted
// concurrently, which per spec §4.7 step 6 aborts the remaining stages
// without persisting any state/error diff. The driver does not check
// SortItemLinks or UpdateHosts for that signal.
type Materialisers interface {
	UpdateItems(ctx context.Context, hostID, ruleID uint64, rows []*jsonrow.Row, table *macropath.Table, errs *ErrBuffer, lifetime, now int64) error
	SortItemLinks(ctx context.Context, hostID, ruleID uint64, rows []*jsonrow.Row) error
	UpdateTriggers(ctx context.Context, hostID, ruleID uint64, rows []*jsonrow.Row, errs *ErrBuffer, now int64) error
	UpdateGraphs(ctx context.Context, hostID, ruleID uint64, rows []*jsonrow.Row, errs *ErrBuffer, now int64) error
	UpdateHosts(ctx context.Context, hostID, ruleID uint64, rows []*jsonrow.Row, errs *ErrBuffer, lifetime, now int64) error
}

// RecordingMaterialisers is an in-memory Materialisers that records every
// call it receives and never fails; useful for exercising the driver in
// tests without a real materialisation backend.
type RecordingMaterialisers struct {
	Calls []string
}

func (m *RecordingMaterialisers) UpdateItems(ctx context.Context, hostID, ruleID uint64, rows []*jsonrow.Row, table *macropath.Table, errs *ErrBuffer, lifetime, now int64) error {
	m.Calls = append(m.Calls, "update_items")
	return nil
}

func (m *RecordingMaterialisers) SortItemLinks(ctx context.Context, hostID, ruleID uint64, rows []*jsonrow.Row) error {
	m.Calls = append(m.Calls, "sort_item_links")
	return nil
}

func (m *RecordingMaterialisers) UpdateTriggers(ctx context.Context, hostID, ruleID uint64, rows []*jsonrow.Row, errs *ErrBuffer, now int64) error {
	m.Calls = append(m.Calls, "update_triggers")
	return nil
}

func (m *RecordingMaterialisers) UpdateGraphs(ctx context.Context, hostID, ruleID uint64, rows []*jsonrow.Row, errs *ErrBuffer, now int64) error {
	m.Calls = append(m.Calls, "update_graphs")
	return nil
}

func (m *RecordingMaterialisers) UpdateHosts(ctx context.Context, hostID, ruleID uint64, rows []*jsonrow.Row, errs *ErrBuffer, lifetime, now int64) error {
	m.Calls = append(m.Calls, "update_hosts")
	return nil
}

var _ Materialisers = (*RecordingMaterialisers)(nil)

// IsParentHostRemoved reports whether err is (or wraps) the short-circuit
// signal documented on the Materialisers interface.
func IsParentHostRemoved(err error) bool {
	return errors.Is(err, lldwerr.ErrParentHostRemoved)
}
