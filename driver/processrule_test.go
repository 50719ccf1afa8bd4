package driver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atlasgurus/discoveryd/downstream"
	"github.com/atlasgurus/discoveryd/driver"
	"github.com/atlasgurus/discoveryd/events"
	"github.com/atlasgurus/discoveryd/lock"
	"github.com/atlasgurus/discoveryd/macropath"
	"github.com/atlasgurus/discoveryd/store"
)

type fakeRules struct {
	rec *store.RuleRecord
}

func (f *fakeRules) GetRule(ctx context.Context, ruleID uint64) (*store.RuleRecord, error) {
	return f.rec, nil
}

type fakeConditions struct{}

func (fakeConditions) GetConditions(ctx context.Context, ruleID uint64) ([]store.RawCondition, error) {
	return nil, nil
}

type fakeMacroPaths struct{}

func (fakeMacroPaths) GetMacroPaths(ctx context.Context, ruleID uint64) ([]macropath.RawMacroPath, error) {
	return nil, nil
}

type fakeConfig struct {
	applied []store.RuleDiff
}

func (f *fakeConfig) GetHost(hostID uint64) (*store.Host, bool) {
	return &store.Host{HostID: hostID, HostHost: "host1"}, true
}

func (f *fakeConfig) ResolveGlobalRegexp(name string) ([]string, bool) {
	return nil, false
}

func (f *fakeConfig) ApplyItemDiffs(ctx context.Context, diffs []store.RuleDiff) error {
	f.applied = append(f.applied, diffs...)
	return nil
}

// TestProcessRule_NotSupportedTransitionsToNormalAndEmitsEventOnce exercises
// the full happy-path pass for a rule currently marked NOTSUPPORTED: every
// materialiser runs in order, exactly one state-transition event is queued
// and flushed, and the persisted diff carries the new state in the same
// composite update as the (empty) error text.
func TestProcessRule_NotSupportedTransitionsToNormalAndEmitsEventOnce(t *testing.T) {
	rec := &store.RuleRecord{
		HostID:     1,
		State:      store.StateNotSupported,
		EvalType:   1, // EvalAnd
		Expression: "",
		LastError:  "previous failure",
	}

	mats := &downstream.RecordingMaterialisers{}
	var delivered [][]events.Event
	bus := events.NewMemoryBus(func(ctx context.Context, evs []events.Event) error {
		delivered = append(delivered, evs)
		return nil
	})
	cfg := &fakeConfig{}

	d := &driver.Driver{
		Locks:         lock.NewRuleLockTable(2),
		Rules:         &fakeRules{rec: rec},
		Conditions:    fakeConditions{},
		MacroPaths:    fakeMacroPaths{},
		Cache:         cfg,
		Materialisers: mats,
		Events:        bus,
		MaxLifetime:   100,
		Log:           zap.NewNop(),
	}

	err := d.ProcessRule(context.Background(), 42, []byte(`[]`), 1000)
	require.NoError(t, err)

	assert.Equal(t, []string{"update_items", "sort_item_links", "update_triggers", "update_graphs", "update_hosts"}, mats.Calls)

	require.Len(t, delivered, 1)
	require.Len(t, delivered[0], 1)
	assert.Equal(t, uint64(42), delivered[0][0].ObjectID)
	assert.Equal(t, int(store.StateNormal), delivered[0][0].NewState)

	require.Len(t, cfg.applied, 1)
	diff := cfg.applied[0]
	require.NotNil(t, diff.State)
	assert.Equal(t, store.StateNormal, *diff.State)
	require.NotNil(t, diff.Error)
	assert.Equal(t, "", *diff.Error)
}
