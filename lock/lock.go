// Package lock provides the non-blocking, per-rule mutual exclusion
// required by spec §4.7 step 1 ("a rule already being processed is skipped,
// not queued") and Invariant §8.1. Adapted from the teacher's actors.Actor
// mailbox idea: a mailbox serializes *all* work for a busy receiver, which
// makes every processing attempt queue rather than bounce. sync.Mutex.TryLock
// expresses the required non-queueing, immediate-rejection-on-contention
// semantics directly.
package lock

import "sync"

type shard struct {
	mu   sync.Mutex
	held map[uint64]*sync.Mutex
}

// RuleLockTable hands out non-blocking per-rule locks, sharded by rule id to
// keep the bookkeeping mutex's critical section short under concurrent
// processing of unrelated rules.
type RuleLockTable struct {
	shards []shard
}

// NewRuleLockTable returns a lock table with shardCount shards. shardCount
// is clamped to at least 1.
func NewRuleLockTable(shardCount int) *RuleLockTable {
	if shardCount < 1 {
		shardCount = 1
	}
	t := &RuleLockTable{shards: make([]shard, shardCount)}
	for i := range t.shards {
		t.shards[i].held = make(map[uint64]*sync.Mutex)
	}
	return t
}

func (t *RuleLockTable) shardFor(ruleID uint64) *shard {
	return &t.shards[ruleID%uint64(len(t.shards))]
}

func (s *shard) mutexFor(ruleID uint64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.held[ruleID]
	if !ok {
		m = &sync.Mutex{}
		s.held[ruleID] = m
	}
	return m
}

// TryLock attempts to acquire ruleID's lock without blocking, returning
// false immediately if another goroutine already holds it.
func (t *RuleLockTable) TryLock(ruleID uint64) bool {
	return t.shardFor(ruleID).mutexFor(ruleID).TryLock()
}

// Unlock releases ruleID's lock. Must only be called by the TryLock winner.
func (t *RuleLockTable) Unlock(ruleID uint64) {
	t.shardFor(ruleID).mutexFor(ruleID).Unlock()
}
