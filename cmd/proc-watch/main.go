// Command proc-watch repeatedly samples a process target (by pid, by
// name, or by top CPU/memory rank), evaluates alert rules against each
// sample, and optionally dumps diagnostics when a rule triggers.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/portwatch/portwatch/internal/cliout"
	"github.com/portwatch/portwatch/internal/config"
	"github.com/portwatch/portwatch/internal/diag"
	"github.com/portwatch/portwatch/internal/jvm"
	"github.com/portwatch/portwatch/internal/model"
	"github.com/portwatch/portwatch/internal/monitor"
	"github.com/portwatch/portwatch/internal/obs"
	"github.com/portwatch/portwatch/internal/probe"
)

type opts struct {
	pid         int
	name        string
	match       string
	top         string
	interval    string
	count       int
	once        bool
	alerts      []string
	dumpOnBreach string
	jvmURL      string
	metricsAddr string

	jsonFlag, jsonlFlag, tableFlag, csvFlag, compactFlag, quietFlag bool
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "proc-watch",
		Short: "Sample a process target on an interval and evaluate alert rules against it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, o)
		},
	}

	flags := root.Flags()
	flags.IntVar(&o.pid, "pid", 0, "watch a single pid")
	flags.StringVar(&o.name, "name", "", "watch every process whose name contains this substring")
	flags.StringVar(&o.match, "match", "", "further restrict --name matches to this command-line substring")
	flags.StringVar(&o.top, "top", "", "watch the top N processes by rank: cpu or memory (use with --count as N)")
	flags.StringVar(&o.interval, "interval", "5s", "sampling interval (Ns|Nm|Nh)")
	flags.IntVar(&o.count, "count", -1, "number of ticks to run (-1 = forever); also the N for --top")
	flags.BoolVar(&o.once, "once", false, "take a single sample and exit")
	flags.StringArrayVar(&o.alerts, "alert", nil, "alert rule expression, e.g. \"cpu > 80 for 30s\" (repeatable)")
	flags.StringVar(&o.dumpOnBreach, "dump-on-breach", "", "external dump tool to invoke on alert trigger: jstack, jmap, pstack, lsof")
	flags.StringVar(&o.jvmURL, "jvm", "", "Jolokia base URL to poll JVM metrics from alongside process samples")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics at this address while watching (e.g. :9090)")

	flags.BoolVar(&o.jsonFlag, "json", false, "render as an indented JSON array")
	flags.BoolVar(&o.jsonlFlag, "jsonl", false, "render as newline-delimited JSON")
	flags.BoolVar(&o.tableFlag, "table", false, "render as an aligned table (default)")
	flags.BoolVar(&o.csvFlag, "csv", false, "render as CSV")
	flags.BoolVar(&o.compactFlag, "compact", false, "render one line per record, space-separated")
	flags.BoolVar(&o.quietFlag, "quiet", false, "print nothing; drive the exit code only")

	if err := root.Execute(); err != nil {
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, "proc-watch:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	format := config.ResolveFormat(o.jsonFlag, o.jsonlFlag, o.csvFlag, o.compactFlag, o.quietFlag)

	target, err := resolveTarget(o)
	if err != nil {
		return err
	}

	interval, err := config.ParseInterval(o.interval)
	if err != nil {
		return err
	}

	rules, err := config.CompileRules(o.alerts)
	if err != nil {
		return err
	}

	dumpKind, err := config.DumpKindFromFlag(o.dumpOnBreach)
	if err != nil {
		return err
	}

	count := o.count
	if o.once {
		count = 1
	}

	var jvmClient *jvm.Client
	if o.jvmURL != "" {
		jvmClient = jvm.NewClient(o.jvmURL)
	}

	log := obs.Default()
	reg := prometheus.NewRegistry()
	metrics := obs.NewMetrics(reg)
	if o.metricsAddr != "" {
		srv := &http.Server{Addr: o.metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}

	prober := probe.New()
	sampleWriter := cliout.New(os.Stdout, format, []string{"PID", "NAME", "STATE", "CPU", "RSS", "THREADS", "TIME"})
	alertWriter := cliout.New(os.Stdout, format, []string{"PID", "RULE", "TRIGGERED", "VALUE", "THRESHOLD", "MESSAGE"})
	defer sampleWriter.Close()
	defer alertWriter.Close()

	triggeredAny := false
	sawSample := false

	cfg := monitor.Config{
		Target:       target,
		Interval:     interval,
		Count:        count,
		Rules:        rules,
		DumpOnBreach: monitor.DumpKind(dumpKind),
		OnSample: func(s model.ProcessSample) {
			sawSample = true
			sampleWriter.Emit(cliout.SampleRow(s))
			if jvmClient != nil {
				emitJVM(ctx, jvmClient, format)
			}
		},
		OnAlert: func(r model.AlertResult) {
			if r.Triggered {
				triggeredAny = true
				log.Warn().Str("rule", r.Rule.Expression).Int("pid", r.Sample.PID).Msg("alert triggered")
			}
			alertWriter.Emit(cliout.AlertRow(r))
		},
		OnDump: func(pid int, kind monitor.DumpKind, output string, err error) {
			if err != nil {
				log.Error().Err(err).Str("kind", string(kind)).Int("pid", pid).Msg("dump failed")
				return
			}
			fmt.Fprintf(os.Stderr, "--- %s dump for pid %d ---\n%s\n", kind, pid, output)
		},
	}

	m := monitor.New(prober, monitor.NewExternalDumpRunner(), metrics, log)

	if count == 1 {
		if err := m.Start(ctx, cfg); err != nil {
			return err
		}
	} else {
		if err := m.Start(ctx, cfg); err != nil {
			return err
		}
		<-ctx.Done()
		m.Stop()
	}

	if !sawSample {
		return fmt.Errorf("%w: no process matched this target", diag.ErrTargetMissing)
	}
	if triggeredAny {
		return errRecoverable{}
	}
	return nil
}

func resolveTarget(o opts) (monitor.Target, error) {
	selected := 0
	if o.pid != 0 {
		selected++
	}
	if o.name != "" {
		selected++
	}
	if o.top != "" {
		selected++
	}
	if selected == 0 {
		return monitor.Target{}, fmt.Errorf("%w: exactly one of --pid, --name, --top is required", diag.ErrInputInvalid)
	}
	if selected > 1 {
		return monitor.Target{}, fmt.Errorf("%w: --pid, --name, and --top are mutually exclusive", diag.ErrInputInvalid)
	}

	switch {
	case o.pid != 0:
		return monitor.Target{Mode: monitor.TargetPID, PID: o.pid}, nil
	case o.name != "":
		return monitor.Target{Mode: monitor.TargetName, NamePattern: o.name, CommandFilter: o.match}, nil
	default:
		n := o.count
		if n <= 0 {
			n = 10
		}
		switch o.top {
		case "cpu":
			return monitor.Target{Mode: monitor.TargetTopCPU, TopN: n}, nil
		case "memory":
			return monitor.Target{Mode: monitor.TargetTopMemory, TopN: n}, nil
		default:
			return monitor.Target{}, fmt.Errorf("%w: --top must be cpu or memory, got %q", diag.ErrInputInvalid, o.top)
		}
	}
}

func emitJVM(ctx context.Context, c *jvm.Client, format config.OutputFormat) {
	if format == config.FormatQuiet {
		_, _ = c.Poll(ctx)
		return
	}
	m, err := c.Poll(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "proc-watch: jvm poll:", err)
		return
	}
	fmt.Fprintf(os.Stderr, "jvm: heap=%d/%d threads=%d classes=%d uptime=%s\n",
		m.HeapUsedBytes, m.HeapMaxBytes, m.ThreadCount, m.LoadedClassCount,
		time.Duration(m.UptimeMs)*time.Millisecond)
}

// errRecoverable signals exit code 1 for a completed, alert-triggering
// run without printing a duplicate message — the alert rows themselves
// already carried the detail.
type errRecoverable struct{}

func (errRecoverable) Error() string { return "" }
