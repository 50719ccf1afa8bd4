// Package driver implements the rule-processing driver (C8): the full
// lock -> load -> filter -> downstream -> state-transition ->
// error-persistence -> unlock pass described in spec §4.7.
package driver

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/atlasgurus/discoveryd/config"
	"github.com/atlasgurus/discoveryd/downstream"
	"github.com/atlasgurus/discoveryd/events"
	"github.com/atlasgurus/discoveryd/filter"
	"github.com/atlasgurus/discoveryd/filterload"
	"github.com/atlasgurus/discoveryd/jsonrow"
	"github.com/atlasgurus/discoveryd/lock"
	"github.com/atlasgurus/discoveryd/macropath"
	"github.com/atlasgurus/discoveryd/macrosub"
	"github.com/atlasgurus/discoveryd/store"
)

// RuleReader loads a discovery rule's stored record, mirroring
// store.RuleStore.GetRule without binding the driver to the concrete
// pgx-backed store — tests can supply an in-memory fake.
type RuleReader interface {
	GetRule(ctx context.Context, ruleID uint64) (*store.RuleRecord, error)
}

// MacroPathReader loads a rule's macro-path table, mirroring
// store.MacroPathStore.GetMacroPaths.
type MacroPathReader interface {
	GetMacroPaths(ctx context.Context, ruleID uint64) ([]macropath.RawMacroPath, error)
}

// ConfigReader is the subset of store.ConfigCache the driver needs: host
// lookup for macro substitution, global regexp resolution for the filter
// loader, and diff persistence.
type ConfigReader interface {
	filterload.RegexpResolver
	GetHost(hostID uint64) (*store.Host, bool)
	ApplyItemDiffs(ctx context.Context, diffs []store.RuleDiff) error
}

// Driver wires the collaborators one rule-processing pass needs.
type Driver struct {
	Locks         *lock.RuleLockTable
	Rules         RuleReader
	Conditions    filterload.ConditionReader
	MacroPaths    MacroPathReader
	Cache         ConfigReader
	Materialisers downstream.Materialisers
	Events        events.Bus
	MaxLifetime   int64
	Log           *zap.Logger
}

// NewDriver builds a Driver from its collaborators, applying cfg's lifetime
// ceiling.
func NewDriver(locks *lock.RuleLockTable, rules *store.RuleStore, conditions *store.ConditionStore, macroPaths *store.MacroPathStore, cache *store.ConfigCache, mats downstream.Materialisers, bus events.Bus, cfg config.Config, log *zap.Logger) *Driver {
	return &Driver{
		Locks:         locks,
		Rules:         rules,
		Conditions:    conditions,
		MacroPaths:    macroPaths,
		Cache:         cache,
		Materialisers: mats,
		Events:        bus,
		MaxLifetime:   cfg.EffectiveMaxLifetime(),
		Log:           log,
	}
}

// ProcessRule runs one processing pass for ruleID against payload. now is
// the monotonic timestamp handed to downstream stages and used as the
// state-transition event's ts. It implements spec §4.7 steps 1-10 in order.
func (d *Driver) ProcessRule(ctx context.Context, ruleID uint64, payload []byte, now int64) error {
	// Step 1: lock.
	if !d.Locks.TryLock(ruleID) {
		d.Log.Warn("discovery rule already being processed, skipping", zap.Uint64("rule_id", ruleID))
		return nil
	}
	defer d.Locks.Unlock(ruleID)

	// Step 2: load rule.
	rule, err := d.Rules.GetRule(ctx, ruleID)
	if err != nil {
		d.Log.Warn("discovery rule not found, releasing lock", zap.Uint64("rule_id", ruleID), zap.Error(err))
		return nil
	}
	d.Log.Debug("loaded discovery rule", zap.Uint64("rule_id", ruleID), zap.Uint64("host_id", rule.HostID))

	host := hostContext(d.Cache, rule.HostID)

	// Step 3: parse lifetime.
	lifetime := d.parseLifetime(rule.Lifetime, host)

	var errBuf downstream.ErrBuffer
	var info string
	var rows []*jsonrow.Row

	// Step 4: load filter + macro-path table.
	f, macroTable, loadErr := d.loadFilterAndMacros(ctx, ruleID, rule, host)
	if loadErr != nil {
		errBuf.Add(loadErr.Error())
		d.Log.Debug("skipping downstream update after load failure", zap.Uint64("rule_id", ruleID), zap.Error(loadErr))
	} else {
		// Step 5: extract rows.
		rows, info, err = jsonrow.ExtractRows(payload, f, macroTable)
		if err != nil {
			errBuf.Add(err.Error())
		} else {
			// Step 6: downstream.
			if removed := d.runDownstream(ctx, ruleID, rule, rows, macroTable, &errBuf, lifetime, now); removed {
				return nil
			}
		}
	}

	var diff store.RuleDiff

	// Step 7: state transition.
	if loadErr == nil && err == nil && rule.State == store.StateNotSupported {
		d.Events.Add(events.Event{Source: "INTERNAL", Object: "LLD_RULE", ObjectID: ruleID, Ts: now, NewState: int(store.StateNormal)})
		if procErr := d.Events.Process(ctx); procErr != nil {
			d.Log.Warn("failed to flush state-transition event", zap.Uint64("rule_id", ruleID), zap.Error(procErr))
		}
		newState := store.StateNormal
		diff.State = &newState
	}

	// Step 8: error consolidation.
	consolidated := errBuf.String()
	if info != "" {
		if consolidated != "" {
			consolidated += "\n"
		}
		consolidated += info
	}
	diff.RuleID = ruleID
	if consolidated != rule.LastError {
		errText := consolidated
		diff.Error = &errText
	}

	// Step 9: persist.
	if diff.HasChanges() {
		if err := d.Cache.ApplyItemDiffs(ctx, []store.RuleDiff{diff}); err != nil {
			d.Log.Warn("failed to persist discovery rule diff", zap.Uint64("rule_id", ruleID), zap.Error(err))
			return err
		}
	}

	// Step 10: unlock happens via the deferred call above.
	return nil
}

// loadFilterAndMacros implements step 4.
func (d *Driver) loadFilterAndMacros(ctx context.Context, ruleID uint64, rule *store.RuleRecord, host macrosub.Context) (*filter.Filter, *macropath.Table, error) {
	evalType := filter.EvalType(rule.EvalType)

	f, err := filterload.Load(ctx, d.Conditions, d.Cache, host, ruleID, evalType, rule.Expression)
	if err != nil {
		return nil, nil, err
	}

	raw, err := d.MacroPaths.GetMacroPaths(ctx, ruleID)
	if err != nil {
		return nil, nil, err
	}
	table, err := macropath.NewTable(raw)
	if err != nil {
		return nil, nil, err
	}
	return f, table, nil
}

// runDownstream calls the materialisers in the fixed order required by
// spec §4.7 step 6, reporting whether a parent-host-removed short-circuit
// occurred.
func (d *Driver) runDownstream(ctx context.Context, ruleID uint64, rule *store.RuleRecord, rows []*jsonrow.Row, table *macropath.Table, errBuf *downstream.ErrBuffer, lifetime, now int64) (removed bool) {
	if err := d.Materialisers.UpdateItems(ctx, rule.HostID, ruleID, rows, table, errBuf, lifetime, now); err != nil {
		return downstream.IsParentHostRemoved(err)
	}
	if err := d.Materialisers.SortItemLinks(ctx, rule.HostID, ruleID, rows); err != nil {
		return false
	}
	if err := d.Materialisers.UpdateTriggers(ctx, rule.HostID, ruleID, rows, errBuf, now); err != nil {
		return downstream.IsParentHostRemoved(err)
	}
	if err := d.Materialisers.UpdateGraphs(ctx, rule.HostID, ruleID, rows, errBuf, now); err != nil {
		return downstream.IsParentHostRemoved(err)
	}
	if err := d.Materialisers.UpdateHosts(ctx, rule.HostID, ruleID, rows, errBuf, lifetime, now); err != nil {
		return false
	}
	return false
}

func hostContext(cache ConfigReader, hostID uint64) macrosub.Context {
	host, ok := cache.GetHost(hostID)
	if !ok {
		return macrosub.Context{}
	}
	return macrosub.Context{HostHost: host.HostHost, HostName: host.HostName, HostIP: host.HostIP}
}

var timeSuffixRe = regexp.MustCompile(`^(\d+)([smhdw]?)$`)

// parseLifetime substitutes simple macros into spec, then parses it as a
// Zabbix-style time suffix (a decimal count followed by one of s/m/h/d/w,
// seconds implied when the suffix is absent). On failure it warns and
// returns the configured ceiling, matching spec §4.7 step 3.
func (d *Driver) parseLifetime(spec string, host macrosub.Context) int64 {
	substituted := macrosub.Substitute(spec, host)

	m := timeSuffixRe.FindStringSubmatch(strings.TrimSpace(substituted))
	if m == nil {
		d.Log.Warn("invalid discovery rule lifetime, using default", zap.String("lifetime_spec", spec))
		return d.MaxLifetime
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		d.Log.Warn("invalid discovery rule lifetime, using default", zap.String("lifetime_spec", spec))
		return d.MaxLifetime
	}

	var seconds int64
	switch m[2] {
	case "", "s":
		seconds = n
	case "m":
		seconds = n * 60
	case "h":
		seconds = n * 60 * 60
	case "d":
		seconds = n * 60 * 60 * 24
	case "w":
		seconds = n * 60 * 60 * 24 * 7
	default:
		seconds = n
	}

	if seconds > d.MaxLifetime {
		return d.MaxLifetime
	}
	return seconds
}
