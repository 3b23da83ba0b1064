// Command portinfo is the one-shot and periodic port-inspection CLI:
// lookups, range scans, health checks, security reports, container
// context, and port termination, all over the same Platform Probe the
// proc-watch monitor uses.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/portwatch/portwatch/internal/cliout"
	"github.com/portwatch/portwatch/internal/config"
	"github.com/portwatch/portwatch/internal/container"
	"github.com/portwatch/portwatch/internal/enrich"
	"github.com/portwatch/portwatch/internal/health"
	"github.com/portwatch/portwatch/internal/model"
	"github.com/portwatch/portwatch/internal/probe"
	"github.com/portwatch/portwatch/internal/registry"
	"github.com/portwatch/portwatch/internal/security"
)

const _console = `portinfo - cross-platform port and process inspector

* part of the portwatch toolkit

`

type opts struct {
	udp  bool
	all  bool
	listenOnly bool
	overview   bool
	rangeSpec  string
	pidFilter  int
	nameFilter string

	check bool
	http  bool
	ssl   bool
	host  string

	securityFlag bool
	docker       bool
	dev          bool
	free         int

	kill  bool
	force bool
	watch string

	jsonFlag    bool
	jsonlFlag   bool
	tableFlag   bool
	csvFlag     bool
	compactFlag bool
	quietFlag   bool
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "portinfo [port]",
		Short: "Inspect, probe, and manage TCP/UDP port bindings",
		Long:  _console + `Examples:
  portinfo 8080
  portinfo --all
  portinfo --range 3000-9000
  portinfo 443 --ssl
  portinfo --security
  portinfo 8080 --kill`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o, args)
		},
	}

	f := root.Flags()
	f.BoolVar(&o.udp, "udp", false, "consider UDP bindings instead of TCP")
	f.BoolVar(&o.all, "all", false, "list all bindings")
	f.BoolVar(&o.listenOnly, "listen", false, "list LISTEN-state bindings only")
	f.BoolVar(&o.overview, "overview", false, "listing plus summary statistics")
	f.StringVar(&o.rangeSpec, "range", "", "scan a port range, e.g. 3000-9000")
	f.IntVar(&o.pidFilter, "pid", 0, "filter bindings by pid")
	f.StringVar(&o.nameFilter, "name", "", "filter bindings by process name substring")

	f.BoolVar(&o.check, "check", false, "probe reachability of <port>")
	f.BoolVar(&o.http, "http", false, "use HTTP for --check instead of plain TCP")
	f.BoolVar(&o.ssl, "ssl", false, "probe the TLS certificate on <port>")
	f.StringVar(&o.host, "host", "localhost", "host to probe for --check/--ssl")

	f.BoolVar(&o.securityFlag, "security", false, "emit a security findings report")
	f.BoolVar(&o.docker, "docker", false, "list container-runtime context")
	f.BoolVar(&o.dev, "dev", false, "list bindings on common dev-server ports")
	f.IntVar(&o.free, "free", 0, "check a port is free and suggest alternatives")

	f.BoolVar(&o.kill, "kill", false, "terminate the process owning <port>")
	f.BoolVar(&o.force, "force", false, "skip the interactive kill confirmation")
	f.StringVar(&o.watch, "watch", "", "periodically re-run the lookup, e.g. 5s, 1m")

	f.BoolVar(&o.jsonFlag, "json", false, "output format: indented JSON array")
	f.BoolVar(&o.jsonlFlag, "jsonl", false, "output format: newline-delimited JSON")
	f.BoolVar(&o.tableFlag, "table", false, "output format: aligned table (default)")
	f.BoolVar(&o.csvFlag, "csv", false, "output format: CSV")
	f.BoolVar(&o.compactFlag, "compact", false, "output format: one line per record")
	f.BoolVar(&o.quietFlag, "quiet", false, "suppress output, exit code only")

	if err := root.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts, args []string) error {
	format := config.ResolveFormat(o.jsonFlag, o.jsonlFlag, o.csvFlag, o.compactFlag, o.quietFlag)
	prober := probe.New()
	reg := registry.Default()
	enricher := enrich.New(reg, prober, containerSourceOrNil(ctx))

	var port int
	var hasPort bool
	if len(args) == 1 {
		p, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w", err)
		}
		if err := config.ValidatePort(p); err != nil {
			return err
		}
		port, hasPort = p, true
	}

	switch {
	case o.docker:
		return runDocker(ctx, format)
	case o.securityFlag:
		return runSecurity(ctx, prober, reg, format, hasPort, port)
	case o.overview:
		return runOverview(ctx, prober, enricher, format)
	case o.rangeSpec != "":
		return runRange(ctx, prober, enricher, format, o)
	case o.pidFilter != 0:
		return runBindings(ctx, enricher, format, prober.FindByPid(o.pidFilter))
	case o.nameFilter != "":
		return runBindings(ctx, enricher, format, prober.FindByProcessName(o.nameFilter))
	case o.all || o.listenOnly:
		return runListing(ctx, prober, enricher, format, o)
	case o.dev:
		return runDev(ctx, prober, enricher, format)
	case o.free != 0:
		return runFree(prober, o.free, format)
	case hasPort && o.kill:
		return runKill(prober, port, o)
	case hasPort && o.watch != "":
		return runWatch(ctx, prober, enricher, format, o, port)
	case hasPort && o.ssl:
		return runHealthOne(ctx, health.New(), port, o.host, model.ProtoSSL, o)
	case hasPort && o.check:
		kind := model.ProtoTCP
		if o.http {
			kind = model.ProtoHTTP
		}
		return runHealthOne(ctx, health.New(), port, o.host, kind, o)
	case hasPort:
		return runSinglePort(ctx, prober, enricher, format, port, o.udp)
	default:
		return fmt.Errorf("no action requested; see --help")
	}
}

func containerSourceOrNil(ctx context.Context) enrich.ContainerInfoSource {
	adapter, err := container.New(ctx)
	if err != nil {
		return nil
	}
	return adapter
}

func runSinglePort(ctx context.Context, p *probe.Prober, e *enrich.Enricher, format config.OutputFormat, port int, udp bool) error {
	bindings := p.FindByPort(port, !udp, udp)
	if len(bindings) == 0 && format != config.FormatJSON && format != config.FormatJSONL && format != config.FormatQuiet {
		fmt.Printf("port %d is free\n", port)
		return nil
	}
	return runBindings(ctx, e, format, bindings)
}

func runListing(ctx context.Context, p *probe.Prober, e *enrich.Enricher, format config.OutputFormat, o opts) error {
	var bindings []model.PortBinding
	if o.listenOnly {
		bindings = p.FindAllListening()
	} else {
		bindings = p.FindAll(true, true)
	}
	if o.udp {
		filtered := make([]model.PortBinding, 0, len(bindings))
		for _, b := range bindings {
			if b.Protocol == model.UDP {
				filtered = append(filtered, b)
			}
		}
		bindings = filtered
	}
	return runBindings(ctx, e, format, bindings)
}

func runRange(ctx context.Context, p *probe.Prober, e *enrich.Enricher, format config.OutputFormat, o opts) error {
	from, to, err := parseRange(o.rangeSpec)
	if err != nil {
		return err
	}
	if err := config.ValidateRange(from, to); err != nil {
		return err
	}
	return runBindings(ctx, e, format, p.FindInRange(from, to, o.listenOnly))
}

func parseRange(spec string) (int, int, error) {
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range must be FROM-TO, got %q", spec)
	}
	from, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	to, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("range must be FROM-TO, got %q", spec)
	}
	return from, to, nil
}

func runBindings(ctx context.Context, e *enrich.Enricher, format config.OutputFormat, bindings []model.PortBinding) error {
	enriched := e.EnrichAll(ctx, bindings, enrich.Options{Service: true, Process: false, Container: false})
	w := cliout.New(os.Stdout, format, []string{"PORT", "PROTO", "STATE", "PID", "PROCESS", "ADDRESS", "SERVICE"})
	for _, eb := range enriched {
		w.Emit(cliout.BindingRow(eb))
	}
	w.Close()
	return nil
}

func runOverview(ctx context.Context, p *probe.Prober, e *enrich.Enricher, format config.OutputFormat) error {
	bindings := p.FindAll(true, true)
	if err := runBindings(ctx, e, format, bindings); err != nil {
		return err
	}
	if format == config.FormatQuiet {
		return nil
	}
	listening, exposed := 0, 0
	byProto := map[model.Protocol]int{}
	for _, b := range bindings {
		byProto[b.Protocol]++
		if b.State == model.StateListen {
			listening++
		}
		if b.IsExposed() {
			exposed++
		}
	}
	fmt.Println()
	fmt.Printf("total bindings: %d (TCP %d, UDP %d)\n", len(bindings), byProto[model.TCP], byProto[model.UDP])
	fmt.Printf("listening:      %d\n", listening)
	fmt.Printf("exposed:        %d\n", exposed)
	return nil
}

func runDev(ctx context.Context, p *probe.Prober, e *enrich.Enricher, format config.OutputFormat) error {
	all := p.FindAll(true, true)
	out := make([]model.PortBinding, 0)
	for _, b := range all {
		if info, ok := registry.Default().Lookup(b.Port, b.Protocol); ok && info.Category == model.CategoryDev {
			out = append(out, b)
		}
	}
	return runBindings(ctx, e, format, out)
}

func runFree(p *probe.Prober, port int, format config.OutputFormat) error {
	bindings := p.FindByPort(port, true, true)
	if len(bindings) == 0 {
		if format != config.FormatQuiet {
			fmt.Printf("port %d is free\n", port)
		}
		return nil
	}
	if format != config.FormatQuiet {
		fmt.Printf("port %d is in use; nearby free ports:\n", port)
		alternatives := nearbyFreePorts(p, port, 5)
		for _, alt := range alternatives {
			fmt.Printf("  %d\n", alt)
		}
	}
	return errRecoverable{}
}

func nearbyFreePorts(p *probe.Prober, start int, want int) []int {
	used := make(map[int]struct{})
	for _, b := range p.FindAll(true, true) {
		used[b.Port] = struct{}{}
	}
	out := make([]int, 0, want)
	for candidate := start + 1; candidate <= 65535 && len(out) < want; candidate++ {
		if _, busy := used[candidate]; !busy {
			out = append(out, candidate)
		}
	}
	return out
}

func runSecurity(ctx context.Context, p *probe.Prober, reg *registry.Registry, format config.OutputFormat, hasPort bool, port int) error {
	bindings := p.FindAll(true, true)
	if hasPort {
		filtered := make([]model.PortBinding, 0)
		for _, b := range bindings {
			if b.Port == port {
				filtered = append(filtered, b)
			}
		}
		bindings = filtered
	}
	report := security.New(reg).BuildReport(bindings)

	if format == config.FormatJSON || format == config.FormatJSONL {
		b, _ := cliout.PrintJSONArray(report)
		fmt.Println(string(b))
		return nil
	}
	if format == config.FormatQuiet {
		return nil
	}
	w := cliout.New(os.Stdout, format, []string{"SEVERITY", "CATEGORY", "TITLE", "PORT", "RECOMMENDATION"})
	for _, f := range report.Findings {
		w.Emit(cliout.SecurityRow(f))
	}
	w.Close()
	fmt.Printf("\ncritical=%d high=%d warning=%d info=%d\n",
		report.Summary.CriticalCount, report.Summary.HighCount, report.Summary.WarningCount, report.Summary.InfoCount)
	return nil
}

func runDocker(ctx context.Context, format config.OutputFormat) error {
	adapter, err := container.New(ctx)
	if err != nil {
		if format != config.FormatQuiet {
			fmt.Fprintln(os.Stderr, "container runtime unavailable:", err)
		}
		return nil
	}
	defer adapter.Close()

	infos, err := adapter.List(ctx)
	if err != nil {
		if format != config.FormatQuiet {
			fmt.Fprintln(os.Stderr, "container listing failed:", err)
		}
		return nil
	}
	if format == config.FormatJSON || format == config.FormatJSONL {
		b, _ := cliout.PrintJSONArray(infos)
		fmt.Println(string(b))
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%s\t%s\t%s\t%s\n", info.ContainerID, info.ContainerName, info.Image, info.Status)
	}
	return nil
}

func runHealthOne(ctx context.Context, p *health.Prober, port int, host string, kind model.HealthProtocol, o opts) error {
	var result model.HealthCheckResult
	switch kind {
	case model.ProtoSSL:
		result = p.SSL(ctx, host, port)
	case model.ProtoHTTP:
		result = p.HTTP(ctx, host, port, "/", false)
	default:
		result = p.TCP(ctx, host, port)
	}

	format := config.ResolveFormat(o.jsonFlag, o.jsonlFlag, o.csvFlag, o.compactFlag, o.quietFlag)
	if format == config.FormatQuiet {
		if result.Status != model.StatusReachable {
			return errRecoverable{}
		}
		return nil
	}
	w := cliout.New(os.Stdout, format, []string{"PORT", "PROTOCOL", "STATUS", "LATENCY", "MESSAGE"})
	w.Emit(cliout.HealthRow(result))
	w.Close()
	if result.Status != model.StatusReachable {
		return errRecoverable{}
	}
	return nil
}

func runKill(p *probe.Prober, port int, o opts) error {
	bindings := p.FindByPort(port, true, true)
	if len(bindings) == 0 {
		return fmt.Errorf("no process bound to port %d", port)
	}
	pid := bindings[0].PID
	if pid == 0 {
		return fmt.Errorf("port %d has no resolvable owning pid", port)
	}

	if !o.force {
		fmt.Printf("terminate pid %d (%s) listening on port %d? [y/N] ", pid, bindings[0].ProcessName, port)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("aborted")
			return nil
		}
	}

	if !p.KillProcess(pid, o.force) {
		return fmt.Errorf("failed to terminate pid %d", pid)
	}
	fmt.Printf("terminated pid %d\n", pid)
	return nil
}

func runWatch(ctx context.Context, p *probe.Prober, e *enrich.Enricher, format config.OutputFormat, o opts, port int) error {
	interval, err := config.ParseInterval(o.watch)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := runSinglePort(ctx, p, e, format, port, o.udp); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// errRecoverable signals the "recoverable error" exit code (1) without
// printing an additional message — the human output already explains
// the outcome.
type errRecoverable struct{}

func (errRecoverable) Error() string { return "" }
