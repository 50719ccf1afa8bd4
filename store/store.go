// Package store is the Postgres-backed persistence layer for discovery
// rules, their filter conditions, and their macro-path tables (spec §6's
// "store queries consumed"), plus the in-process ConfigCache that fronts it
// and stands in for the "config.*" collaborators of spec §6 (get_item,
// resolve_global_regexp, apply_item_diffs); rule locking lives in package
// lock.
//
// Grounded on the pgxpool-backed rule engine in
// other_examples/.../uzzalhcse-CrawlPilot__microservices-worker-internal-recovery-rule_engine.go.go:
// a connection pool handed a SQL string, Scan into typed fields, zap for
// scan-failure logging.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/atlasgurus/discoveryd/lldwerr"
	"github.com/atlasgurus/discoveryd/macropath"
)

// ItemState mirrors the wire-compatible "state" column enum (spec §6).
type ItemState int

const (
	StateNormal ItemState = iota
	StateNotSupported
)

// RuleRecord is the row loaded by RuleStore.GetRule — spec §3 "RuleRecord".
type RuleRecord struct {
	HostID     uint64
	Key        string
	State      ItemState
	EvalType   int
	Expression string
	LastError  string
	Lifetime   string
}

// RawCondition is one unresolved row from item_condition.
type RawCondition struct {
	ID       uint64
	Macro    string
	Value    string
	Operator int
}

// RuleDiff is materialised only when State changes or Error differs from the
// rule's previously persisted error (spec §3 "RuleDiff").
type RuleDiff struct {
	RuleID     uint64
	State      *ItemState
	Error      *string
}

// HasChanges reports whether the diff carries any column to persist.
func (d RuleDiff) HasChanges() bool {
	return d.State != nil || d.Error != nil
}

// RuleStore reads and writes the items table's discovery-rule columns.
type RuleStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewRuleStore(pool *pgxpool.Pool, log *zap.Logger) *RuleStore {
	return &RuleStore{pool: pool, log: log}
}

// GetRule implements "select hostid,key_,state,evaltype,formula,error,lifetime
// from items where itemid=?" (spec §6).
func (s *RuleStore) GetRule(ctx context.Context, ruleID uint64) (*RuleRecord, error) {
	row := s.pool.QueryRow(ctx,
		`select hostid, key_, state, evaltype, formula, error, lifetime from items where itemid = $1`,
		ruleID)

	var rec RuleRecord
	var state, evalType int
	if err := row.Scan(&rec.HostID, &rec.Key, &state, &evalType, &rec.Expression, &rec.LastError, &rec.Lifetime); err != nil {
		if err == pgx.ErrNoRows {
			return nil, &lldwerr.ErrInvalidRuleID{RuleID: ruleID}
		}
		return nil, fmt.Errorf("loading discovery rule %d: %w", ruleID, err)
	}
	rec.State = ItemState(state)
	rec.EvalType = evalType
	return &rec, nil
}

// ApplyDiff issues a single composite update, writing only the columns
// carried by diff, per spec §4.7 step 9.
func (s *RuleStore) ApplyDiff(ctx context.Context, diff RuleDiff) error {
	if !diff.HasChanges() {
		return nil
	}

	sql := "update items set "
	args := []any{}
	sep := ""

	if diff.State != nil {
		args = append(args, int(*diff.State))
		sql += fmt.Sprintf("%sstate = $%d", sep, len(args))
		sep = ", "
	}
	if diff.Error != nil {
		args = append(args, *diff.Error)
		sql += fmt.Sprintf("%serror = $%d", sep, len(args))
		sep = ", "
	}

	args = append(args, diff.RuleID)
	sql += fmt.Sprintf(" where itemid = $%d", len(args))

	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		s.log.Warn("failed to persist discovery rule diff", zap.Uint64("rule_id", diff.RuleID), zap.Error(err))
		return fmt.Errorf("persisting diff for rule %d: %w", diff.RuleID, err)
	}
	return nil
}

// ConditionStore reads item_condition rows.
type ConditionStore struct {
	pool *pgxpool.Pool
}

func NewConditionStore(pool *pgxpool.Pool) *ConditionStore {
	return &ConditionStore{pool: pool}
}

// GetConditions implements "select item_conditionid,macro,value,operator
// from item_condition where itemid=?" (spec §6).
func (s *ConditionStore) GetConditions(ctx context.Context, ruleID uint64) ([]RawCondition, error) {
	rows, err := s.pool.Query(ctx,
		`select item_conditionid, macro, value, operator from item_condition where itemid = $1`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("loading conditions for rule %d: %w", ruleID, err)
	}
	defer rows.Close()

	var result []RawCondition
	for rows.Next() {
		var c RawCondition
		if err := rows.Scan(&c.ID, &c.Macro, &c.Value, &c.Operator); err != nil {
			return nil, fmt.Errorf("scanning condition row for rule %d: %w", ruleID, err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// MacroPathStore reads lld_macro_path rows.
type MacroPathStore struct {
	pool *pgxpool.Pool
}

func NewMacroPathStore(pool *pgxpool.Pool) *MacroPathStore {
	return &MacroPathStore{pool: pool}
}

// GetMacroPaths implements "select lld_macro,path from lld_macro_path where
// itemid=? order by lld_macro" (spec §6). The store already orders by
// lld_macro; macropath.NewTable re-sorts defensively so the table's
// ordering never depends on the query plan. Neither checks that macros are
// unique.
func (s *MacroPathStore) GetMacroPaths(ctx context.Context, ruleID uint64) ([]macropath.RawMacroPath, error) {
	rows, err := s.pool.Query(ctx,
		`select lld_macro, path from lld_macro_path where itemid = $1 order by lld_macro`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("loading macro paths for rule %d: %w", ruleID, err)
	}
	defer rows.Close()

	var result []macropath.RawMacroPath
	for rows.Next() {
		var mp macropath.RawMacroPath
		if err := rows.Scan(&mp.Macro, &mp.Path); err != nil {
			return nil, fmt.Errorf("scanning macro path row for rule %d: %w", ruleID, err)
		}
		result = append(result, mp)
	}
	return result, rows.Err()
}

// Item is the scoping context config.get_item(id) hands back for macro
// substitution of condition operands (spec §4.4: "host, interface-independent
// macros").
type Item struct {
	ItemID   uint64
	HostID   uint64
	HostHost string
	HostName string
	HostIP   string
}

// Host is the subset of Item's fields that depend only on the host, cached
// separately so the driver can resolve {HOST.*} macros from a hostid alone
// without needing the discovery rule's own item id twice.
type Host struct {
	HostID   uint64
	HostHost string
	HostName string
	HostIP   string
}

// ConfigCache is the in-process cache fronting the store, standing in for
// the config.* collaborators named in spec §6. Reads are served from
// sync.Maps seeded through the Put* methods; a miss is not loaded from the
// store. ApplyItemDiffs persists through RuleStore and leaves the cached
// entries unchanged.
type ConfigCache struct {
	items     sync.Map // itemID -> *Item
	hosts     sync.Map // hostID -> *Host
	regexps   sync.Map // name -> []string (raw expressions for a global regexp set)
	ruleStore *RuleStore
}

func NewConfigCache(ruleStore *RuleStore) *ConfigCache {
	return &ConfigCache{ruleStore: ruleStore}
}

// GetItem returns the cached item context, or (nil, false) if unknown.
// Neither the driver nor the filter loader consults it; a missing rule is
// reported by RuleStore.GetRule as lldwerr.ErrInvalidRuleID.
func (c *ConfigCache) GetItem(itemID uint64) (*Item, bool) {
	v, ok := c.items.Load(itemID)
	if !ok {
		return nil, false
	}
	return v.(*Item), true
}

// PutItem seeds/updates the cache entry for item.ItemID.
func (c *ConfigCache) PutItem(item *Item) {
	c.items.Store(item.ItemID, item)
}

// GetHost returns the cached host context for hostID, or (nil, false) if
// unknown. Used to resolve {HOST.HOST}/{HOST.NAME}/{HOST.IP} macros when
// substituting a rule's lifetime and filter operands.
func (c *ConfigCache) GetHost(hostID uint64) (*Host, bool) {
	v, ok := c.hosts.Load(hostID)
	if !ok {
		return nil, false
	}
	return v.(*Host), true
}

// PutHost seeds/updates the host cache.
func (c *ConfigCache) PutHost(host *Host) {
	c.hosts.Store(host.HostID, host)
}

// PutGlobalRegexp seeds the named global regexp set cache entry.
func (c *ConfigCache) PutGlobalRegexp(name string, expressions []string) {
	c.regexps.Store(name, expressions)
}

// ResolveGlobalRegexp returns the raw expression texts registered under
// name, implementing config.resolve_global_regexp(name) (spec §6). An empty
// or missing set both report ok=false; the filter loader turns that into
// lldwerr.ErrUnknownGlobalRegexp.
func (c *ConfigCache) ResolveGlobalRegexp(name string) (expressions []string, ok bool) {
	v, found := c.regexps.Load(name)
	if !found {
		return nil, false
	}
	exprs := v.([]string)
	if len(exprs) == 0 {
		return nil, false
	}
	return exprs, true
}

// ApplyItemDiffs persists diffs via RuleStore, implementing
// config.apply_item_diffs(diffs) (spec §6). It stops at the first failing
// diff. The cached items and hosts do not hold state or error, and are not
// changed.
func (c *ConfigCache) ApplyItemDiffs(ctx context.Context, diffs []RuleDiff) error {
	for _, diff := range diffs {
		if err := c.ruleStore.ApplyDiff(ctx, diff); err != nil {
			return err
		}
	}
	return nil
}
