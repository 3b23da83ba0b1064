// Package alert compiles the threshold-rule DSL and evaluates compiled
// rules against a stream of per-pid process samples, including the
// windowed FOR/INCREASING/DECREASING conditions.
package alert

import (
	"strconv"
	"sync"
	"time"

	"github.com/portwatch/portwatch/internal/model"
)

// DefaultMaxHistory is the default retention window for a pid's sample
// ring, sized for a 10-minute INCREASING/DECREASING lookback.
const DefaultMaxHistory = 10 * time.Minute

type historyEntry struct {
	sample    model.ProcessSample
	timestamp time.Time
}

// Engine evaluates AlertRules against a stream of per-pid samples,
// maintaining the ring history windowed conditions need and the
// per-(pid, rule-expression) trigger-start bookkeeping FOR needs.
type Engine struct {
	mu         sync.Mutex
	maxHistory time.Duration
	history    map[int][]historyEntry
	triggerAt  map[string]time.Time // key: pid + "\x00" + rule.Expression
}

// NewEngine builds an Engine with the given history retention window (use
// DefaultMaxHistory when the caller has no override).
func NewEngine(maxHistory time.Duration) *Engine {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Engine{
		maxHistory: maxHistory,
		history:    make(map[int][]historyEntry),
		triggerAt:  make(map[string]time.Time),
	}
}

// Reset clears every pid's history and trigger-start state, used when a
// monitor run is cancelled and its alert state must not leak into the
// next run.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = make(map[int][]historyEntry)
	e.triggerAt = make(map[string]time.Time)
}

// ForgetPID drops one pid's history and trigger-start state, used when a
// monitored process exits and its pid may be reused.
func (e *Engine) ForgetPID(pid int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.history, pid)
	prefix := strconv.Itoa(pid) + "\x00"
	for k := range e.triggerAt {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(e.triggerAt, k)
		}
	}
}

// Evaluate records sample into pid's history, then evaluates every rule
// against it, returning one AlertResult per rule in the same order.
func (e *Engine) Evaluate(sample model.ProcessSample, rules []model.AlertRule, now time.Time) []model.AlertResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := append(e.history[sample.PID], historyEntry{sample: sample, timestamp: now})
	cutoff := now.Add(-e.maxHistory)
	pruned := entries[:0]
	for _, ent := range entries {
		if !ent.timestamp.Before(cutoff) {
			pruned = append(pruned, ent)
		}
	}
	e.history[sample.PID] = pruned

	results := make([]model.AlertResult, len(rules))
	for i, rule := range rules {
		results[i] = e.evaluateRule(sample, rule, pruned, now)
	}
	return results
}

func (e *Engine) evaluateRule(sample model.ProcessSample, rule model.AlertRule, entries []historyEntry, now time.Time) model.AlertResult {
	current := model.Extract(sample, rule.Metric)
	key := triggerKeyFor(sample.PID, rule.Expression)

	base := model.AlertResult{
		Rule:         rule,
		CurrentValue: current,
		Threshold:    rule.Threshold,
		Sample:       sample,
		Timestamp:    now,
	}

	if !rule.HasWindow {
		triggered := compare(rule.Operator, current, rule.Threshold)
		base.Triggered = triggered
		base.Message = describe(rule, current, triggered)
		return base
	}

	switch rule.WindowCondition {
	case model.WindowFor:
		predicate := compare(rule.Operator, current, rule.Threshold)
		if !predicate {
			delete(e.triggerAt, key)
			base.Triggered = false
			base.Message = "condition not met"
			return base
		}
		start, ok := e.triggerAt[key]
		if !ok {
			e.triggerAt[key] = now
			base.Triggered = false
			base.Message = "condition met, waiting out window"
			return base
		}
		if now.Sub(start) >= rule.Window {
			base.Triggered = true
			base.Message = describe(rule, current, true)
			return base
		}
		base.Triggered = false
		base.Message = "condition met, waiting out window"
		return base

	case model.WindowIncreasing, model.WindowDecreasing:
		if len(entries) < 2 {
			base.Triggered = false
			base.Message = "insufficient history"
			return base
		}
		old := oldestWithinWindow(entries, rule.Metric, now, rule.Window)
		delta := current - old
		if rule.WindowCondition == model.WindowDecreasing {
			delta = old - current
		}
		triggered := delta >= rule.Threshold
		base.Triggered = triggered
		base.Message = describe(rule, current, triggered)
		return base

	default:
		base.Triggered = false
		base.Message = "unknown window condition"
		return base
	}
}

// oldestWithinWindow returns the extracted metric value from the oldest
// entry whose timestamp is >= now-window, defaulting to the oldest
// available entry when every sample falls inside the window already.
func oldestWithinWindow(entries []historyEntry, metric model.Metric, now time.Time, window time.Duration) float64 {
	cutoff := now.Add(-window)
	for _, ent := range entries {
		if !ent.timestamp.Before(cutoff) {
			return model.Extract(ent.sample, metric)
		}
	}
	return model.Extract(entries[0].sample, metric)
}

func compare(op model.Operator, lhs, rhs float64) bool {
	switch op {
	case model.OpGT:
		return lhs > rhs
	case model.OpGE:
		return lhs >= rhs
	case model.OpLT:
		return lhs < rhs
	case model.OpLE:
		return lhs <= rhs
	case model.OpEQ:
		return lhs == rhs
	case model.OpNE:
		return lhs != rhs
	default:
		return false
	}
}

func describe(rule model.AlertRule, current float64, triggered bool) string {
	if triggered {
		return "rule triggered: " + rule.Expression
	}
	return "rule not triggered: " + rule.Expression
}

func triggerKeyFor(pid int, expression string) string {
	return strconv.Itoa(pid) + "\x00" + expression
}
