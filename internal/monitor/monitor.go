// Package monitor implements the timer-driven loop that samples a target
// selector, evaluates alert rules against each sample, and dispatches
// dump-on-breach diagnostics.
package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/portwatch/portwatch/internal/alert"
	"github.com/portwatch/portwatch/internal/diag"
	"github.com/portwatch/portwatch/internal/model"
	"github.com/portwatch/portwatch/internal/obs"
)

// TargetMode selects how a Monitor resolves the pid(s) to sample each
// tick.
type TargetMode int

const (
	TargetPID TargetMode = iota
	TargetName
	TargetTopCPU
	TargetTopMemory
)

// Target describes which process(es) a Monitor watches.
type Target struct {
	Mode          TargetMode
	PID           int
	NamePattern   string
	CommandFilter string
	TopN          int
}

// Sampler is the subset of the Platform Probe a Monitor needs.
type Sampler interface {
	SampleByPid(ctx context.Context, pid int) (model.ProcessSample, bool)
	SampleByName(ctx context.Context, substr string) []model.ProcessSample
	TopByCPU(ctx context.Context, n int) []model.ProcessSample
	TopByMemory(ctx context.Context, n int) []model.ProcessSample
}

// DumpKind is an external diagnostic tool the orchestrator can invoke
// synchronously when an alert triggers.
type DumpKind string

const (
	DumpJstack DumpKind = "jstack"
	DumpJmap   DumpKind = "jmap"
	DumpPstack DumpKind = "pstack"
	DumpLsof   DumpKind = "lsof"
)

// DumpRunner executes a dump tool against a pid with a hard deadline,
// returning its captured stdout.
type DumpRunner interface {
	Run(ctx context.Context, kind DumpKind, pid int) (string, error)
}

// SampleListener receives every sample a tick produces.
type SampleListener func(model.ProcessSample)

// AlertListener receives every triggered AlertResult a tick produces.
type AlertListener func(model.AlertResult)

// DumpListener receives the captured output of a dump-on-breach
// invocation (or its error message on timeout/failure).
type DumpListener func(pid int, kind DumpKind, output string, err error)

// Config is the full set of parameters a monitoring run needs.
type Config struct {
	Target        Target
	Interval      time.Duration
	Count         int // -1 = forever, 1 = single-shot
	Rules         []model.AlertRule
	DumpOnBreach  DumpKind // "" = disabled
	OnSample      SampleListener
	OnAlert       AlertListener
	OnDump        DumpListener
	MaxHistory    time.Duration
}

// Monitor drives one target selector's sampling loop. Each Monitor owns
// an independent Alert Engine history — two monitors watching the same
// pid never share trigger-start state.
type Monitor struct {
	id       string
	sampler  Sampler
	dumper   DumpRunner
	engine   *alert.Engine
	metrics  *obs.Metrics
	log      zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds a Monitor. metrics and dumper may be nil (metrics become a
// no-op, dump-on-breach becomes unavailable and is reported via OnDump).
func New(sampler Sampler, dumper DumpRunner, metrics *obs.Metrics, log zerolog.Logger) *Monitor {
	return &Monitor{
		id:      uuid.NewString(),
		sampler: sampler,
		dumper:  dumper,
		engine:  alert.NewEngine(0),
		metrics: metrics,
		log:     log,
	}
}

// ID returns this Monitor's run identifier, used to correlate log lines
// and dump output across a long-lived watch session.
func (m *Monitor) ID() string { return m.id }

// Start begins the tick loop. For cfg.Count == 1 it performs a single
// tick synchronously and returns without scheduling further work. For any
// other count it runs in a background goroutine until Stop is called or
// the count is exhausted; callers get results exclusively through the
// configured listeners.
func (m *Monitor) Start(ctx context.Context, cfg Config) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil // idempotent: already running
	}
	m.running = true
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	if cfg.MaxHistory > 0 {
		m.engine = alert.NewEngine(cfg.MaxHistory)
	}
	m.mu.Unlock()

	if cfg.Count == 1 {
		defer close(m.done)
		defer func() { m.mu.Lock(); m.running = false; m.mu.Unlock() }()
		m.tick(runCtx, cfg)
		return nil
	}

	go m.loop(runCtx, cfg)
	return nil
}

func (m *Monitor) loop(ctx context.Context, cfg Config) {
	defer close(m.done)
	defer func() { m.mu.Lock(); m.running = false; m.mu.Unlock() }()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	remaining := cfg.Count
	for {
		m.tick(ctx, cfg)
		if remaining > 0 {
			remaining--
			if remaining == 0 {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) tick(ctx context.Context, cfg Config) {
	samples := m.resolveSamples(ctx, cfg.Target)
	now := time.Now()

	for _, sample := range samples {
		if m.metrics != nil {
			m.metrics.SamplesTaken.Inc()
		}
		if cfg.OnSample != nil {
			cfg.OnSample(sample)
		}

		results := m.engine.Evaluate(sample, cfg.Rules, now)
		for _, result := range results {
			if !result.Triggered {
				continue
			}
			if m.metrics != nil {
				m.metrics.AlertsTriggered.WithLabelValues(string(result.Rule.Metric)).Inc()
			}
			if cfg.OnAlert != nil {
				cfg.OnAlert(result)
			}
			m.maybeDump(ctx, sample.PID, cfg)
		}
	}

	if m.metrics != nil {
		m.metrics.HistoryPids.Set(float64(len(samples)))
	}
}

func (m *Monitor) maybeDump(ctx context.Context, pid int, cfg Config) {
	if cfg.DumpOnBreach == "" {
		return
	}
	if m.dumper == nil {
		if cfg.OnDump != nil {
			cfg.OnDump(pid, cfg.DumpOnBreach, "", diag.ErrPlatformToolAbsent)
		}
		return
	}
	if m.metrics != nil {
		m.metrics.DumpsInvoked.WithLabelValues(string(cfg.DumpOnBreach)).Inc()
	}
	output, err := m.dumper.Run(ctx, cfg.DumpOnBreach, pid)
	if errors.Is(err, diag.ErrDumpTimeout) && m.metrics != nil {
		m.metrics.DumpTimeouts.Inc()
	}
	if cfg.OnDump != nil {
		cfg.OnDump(pid, cfg.DumpOnBreach, output, err)
	}
}

func (m *Monitor) resolveSamples(ctx context.Context, t Target) []model.ProcessSample {
	switch t.Mode {
	case TargetPID:
		sample, ok := m.sampler.SampleByPid(ctx, t.PID)
		if !ok {
			return nil
		}
		return []model.ProcessSample{sample}
	case TargetName:
		samples := m.sampler.SampleByName(ctx, t.NamePattern)
		if t.CommandFilter == "" {
			return samples
		}
		out := make([]model.ProcessSample, 0, len(samples))
		for _, s := range samples {
			if containsSubstr(s.CommandLine, t.CommandFilter) {
				out = append(out, s)
			}
		}
		return out
	case TargetTopCPU:
		return m.sampler.TopByCPU(ctx, t.TopN)
	case TargetTopMemory:
		return m.sampler.TopByMemory(ctx, t.TopN)
	default:
		return nil
	}
}

// Stop cancels any pending tick and waits for an in-flight tick to finish
// before returning, clearing all per-pid alert history. Idempotent: stopping an already-stopped Monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	running := m.running
	m.mu.Unlock()

	if !running || cancel == nil {
		return
	}
	cancel()
	<-done
	m.engine.Reset()
}

// containsSubstr mirrors probe's case-insensitive substring match; kept
// local since Monitor must not import probe (probe implements Sampler,
// not the reverse).
func containsSubstr(s, substr string) bool {
	if substr == "" {
		return false
	}
	s = strings.ToLower(s)
	substr = strings.ToLower(substr)
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
