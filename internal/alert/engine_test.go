package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/model"
)

func mustCompile(t *testing.T, expr string) model.AlertRule {
	t.Helper()
	rule, err := Compile(expr)
	require.NoError(t, err)
	return rule
}

func TestEngine_SimpleThreshold_NoWindow(t *testing.T) {
	e := NewEngine(time.Minute)
	rule := mustCompile(t, "cpu > 80")
	now := time.Now()

	below := model.ProcessSample{PID: 1, CPU: model.CPUStats{PercentInstant: 50}}
	results := e.Evaluate(below, []model.AlertRule{rule}, now)
	require.Len(t, results, 1)
	assert.False(t, results[0].Triggered)
	assert.Equal(t, 50.0, results[0].CurrentValue)

	above := model.ProcessSample{PID: 1, CPU: model.CPUStats{PercentInstant: 95}}
	results = e.Evaluate(above, []model.AlertRule{rule}, now)
	require.Len(t, results, 1)
	assert.True(t, results[0].Triggered)
}

func TestEngine_ForWindow_RequiresSustainedBreach(t *testing.T) {
	e := NewEngine(time.Hour)
	rule := mustCompile(t, "cpu > 80 for 10s")
	base := time.Now()

	sample := model.ProcessSample{PID: 1, CPU: model.CPUStats{PercentInstant: 90}}

	results := e.Evaluate(sample, []model.AlertRule{rule}, base)
	assert.False(t, results[0].Triggered, "first breach starts the window, doesn't trigger yet")

	results = e.Evaluate(sample, []model.AlertRule{rule}, base.Add(5*time.Second))
	assert.False(t, results[0].Triggered, "window not yet elapsed")

	results = e.Evaluate(sample, []model.AlertRule{rule}, base.Add(11*time.Second))
	assert.True(t, results[0].Triggered, "window elapsed while still breaching")
}

func TestEngine_ForWindow_ResetsOnRecovery(t *testing.T) {
	e := NewEngine(time.Hour)
	rule := mustCompile(t, "cpu > 80 for 10s")
	base := time.Now()

	breach := model.ProcessSample{PID: 1, CPU: model.CPUStats{PercentInstant: 90}}
	recover := model.ProcessSample{PID: 1, CPU: model.CPUStats{PercentInstant: 10}}

	e.Evaluate(breach, []model.AlertRule{rule}, base)
	e.Evaluate(recover, []model.AlertRule{rule}, base.Add(5*time.Second))
	results := e.Evaluate(breach, []model.AlertRule{rule}, base.Add(11*time.Second))

	assert.False(t, results[0].Triggered, "recovery resets the trigger-start clock")
}

func TestEngine_IncreasingWindow(t *testing.T) {
	e := NewEngine(time.Hour)
	rule := mustCompile(t, "rss > 100 increasing 1m")
	base := time.Now()

	e.Evaluate(model.ProcessSample{PID: 1, Memory: model.MemoryStats{RSSBytes: 1000}}, []model.AlertRule{rule}, base)
	results := e.Evaluate(model.ProcessSample{PID: 1, Memory: model.MemoryStats{RSSBytes: 1150}}, []model.AlertRule{rule}, base.Add(30*time.Second))

	assert.True(t, results[0].Triggered, "growth of 150 bytes exceeds the 100-byte threshold")
}

func TestEngine_DecreasingWindow(t *testing.T) {
	e := NewEngine(time.Hour)
	rule := mustCompile(t, "rss > 100 decreasing 1m")
	base := time.Now()

	e.Evaluate(model.ProcessSample{PID: 1, Memory: model.MemoryStats{RSSBytes: 1000}}, []model.AlertRule{rule}, base)
	results := e.Evaluate(model.ProcessSample{PID: 1, Memory: model.MemoryStats{RSSBytes: 850}}, []model.AlertRule{rule}, base.Add(30*time.Second))

	assert.True(t, results[0].Triggered, "decline of 150 bytes exceeds the 100-byte threshold")
}

func TestEngine_IncreasingWindow_InsufficientHistory(t *testing.T) {
	e := NewEngine(time.Hour)
	rule := mustCompile(t, "rss > 100 increasing 1m")

	results := e.Evaluate(model.ProcessSample{PID: 1, Memory: model.MemoryStats{RSSBytes: 1000}}, []model.AlertRule{rule}, time.Now())

	assert.False(t, results[0].Triggered)
	assert.Equal(t, "insufficient history", results[0].Message)
}

func TestEngine_PerPIDIsolation(t *testing.T) {
	e := NewEngine(time.Hour)
	rule := mustCompile(t, "cpu > 80 for 10s")
	base := time.Now()

	e.Evaluate(model.ProcessSample{PID: 1, CPU: model.CPUStats{PercentInstant: 90}}, []model.AlertRule{rule}, base)
	results := e.Evaluate(model.ProcessSample{PID: 2, CPU: model.CPUStats{PercentInstant: 90}}, []model.AlertRule{rule}, base.Add(11*time.Second))

	assert.False(t, results[0].Triggered, "pid 2's window must not inherit pid 1's trigger-start time")
}

func TestEngine_HistoryPruning(t *testing.T) {
	e := NewEngine(50 * time.Millisecond)
	rule := mustCompile(t, "rss > 100 increasing 10s")
	base := time.Now()

	e.Evaluate(model.ProcessSample{PID: 1, Memory: model.MemoryStats{RSSBytes: 1000}}, []model.AlertRule{rule}, base)
	e.Evaluate(model.ProcessSample{PID: 1, Memory: model.MemoryStats{RSSBytes: 1000}}, []model.AlertRule{rule}, base.Add(time.Hour))

	e.mu.Lock()
	entries := e.history[1]
	e.mu.Unlock()
	assert.Len(t, entries, 1, "entries older than maxHistory must be pruned")
}

func TestEngine_Reset(t *testing.T) {
	e := NewEngine(time.Hour)
	rule := mustCompile(t, "cpu > 80 for 10s")
	e.Evaluate(model.ProcessSample{PID: 1, CPU: model.CPUStats{PercentInstant: 90}}, []model.AlertRule{rule}, time.Now())

	e.Reset()

	e.mu.Lock()
	defer e.mu.Unlock()
	assert.Empty(t, e.history)
	assert.Empty(t, e.triggerAt)
}

func TestEngine_ForgetPID(t *testing.T) {
	e := NewEngine(time.Hour)
	rule := mustCompile(t, "cpu > 80")
	e.Evaluate(model.ProcessSample{PID: 1, CPU: model.CPUStats{PercentInstant: 90}}, []model.AlertRule{rule}, time.Now())

	e.ForgetPID(1)

	e.mu.Lock()
	defer e.mu.Unlock()
	assert.NotContains(t, e.history, 1)
}
