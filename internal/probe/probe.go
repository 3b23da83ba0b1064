// Package probe implements the platform-abstracted collection of port
// bindings and process samples. The cross-platform backbone is
// gopsutil/v4; each OS still gets its own thin variant file for the
// detail gopsutil can't give uniformly (open file descriptor counts).
//
// Every method here follows the probe contract: I/O or spawn failures
// degrade to an empty result or not-found, never a propagated error — the
// orchestrator must never see a probe-layer panic or error return.
package probe

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/portwatch/portwatch/internal/model"
)

// Prober is the platform-abstracted capability surface the Monitor
// Orchestrator and CLI drive. The platform variant is chosen at compile
// time by build tags; the exported type is identical across platforms,
// only the unexported fd-counting helper varies per build.
type Prober struct {
	cpuCount int

	mu        sync.Mutex
	procCache map[int32]*process.Process
}

// New builds a Prober, detecting logical CPU count once at construction
// for CPU-percent normalization.
func New() *Prober {
	return &Prober{
		cpuCount:  cpuCountOrDefault(),
		procCache: make(map[int32]*process.Process),
	}
}

// cachedProcess returns the persistent *process.Process handle for pid,
// creating and caching one on first sight. gopsutil's PercentWithContext
// with a zero interval computes a delta against CPU-time state it stores on
// the handle itself from the previous call, so a fresh NewProcess every tick
// always sees no prior state and reads 0 — reusing the same handle across
// ticks is what makes the delta nonzero.
func (p *Prober) cachedProcess(pid int32) (*process.Process, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if proc, ok := p.procCache[pid]; ok {
		return proc, nil
	}
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, err
	}
	p.procCache[pid] = proc
	return proc, nil
}

// cachedHandles resolves a freshly-enumerated process list to the Prober's
// persistent handles, adopting any pid seen for the first time and pruning
// cache entries for pids that have since exited.
func (p *Prober) cachedHandles(procs []*process.Process) []*process.Process {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := make(map[int32]struct{}, len(procs))
	out := make([]*process.Process, len(procs))
	for i, proc := range procs {
		current[proc.Pid] = struct{}{}
		if cached, ok := p.procCache[proc.Pid]; ok {
			out[i] = cached
			continue
		}
		p.procCache[proc.Pid] = proc
		out[i] = proc
	}
	for pid := range p.procCache {
		if _, alive := current[pid]; !alive {
			delete(p.procCache, pid)
		}
	}
	return out
}

// FindByPort returns every binding matching port across the requested
// protocols (tcp/udp — a caller wanting just one sets the other false).
func (p *Prober) FindByPort(port int, tcp, udp bool) []model.PortBinding {
	all := p.FindAll(tcp, udp)
	out := make([]model.PortBinding, 0, 2)
	for _, b := range all {
		if b.Port == port {
			out = append(out, b)
		}
	}
	return out
}

// FindByPid returns every binding owned by pid.
func (p *Prober) FindByPid(pid int) []model.PortBinding {
	all := p.FindAll(true, true)
	out := make([]model.PortBinding, 0)
	for _, b := range all {
		if b.PID == pid {
			out = append(out, b)
		}
	}
	return out
}

// FindInRange returns bindings with port in [from, to]; listenOnly
// restricts to LISTEN-state sockets.
func (p *Prober) FindInRange(from, to int, listenOnly bool) []model.PortBinding {
	all := p.FindAll(true, true)
	out := make([]model.PortBinding, 0)
	for _, b := range all {
		if b.Port < from || b.Port > to {
			continue
		}
		if listenOnly && b.State != model.StateListen {
			continue
		}
		out = append(out, b)
	}
	return out
}

// FindAllListening returns every LISTEN-state binding, TCP and UDP.
func (p *Prober) FindAllListening() []model.PortBinding {
	all := p.FindAll(true, true)
	out := make([]model.PortBinding, 0, len(all))
	for _, b := range all {
		if b.State == model.StateListen {
			out = append(out, b)
		}
	}
	return out
}

// FindAll enumerates all sockets across the requested protocols, deduped
// on (pid, port, protocol). Any gopsutil failure yields an empty slice,
// never an error.
func (p *Prober) FindAll(tcp, udp bool) []model.PortBinding {
	kind := connKind(tcp, udp)
	conns, err := gopsnet.Connections(kind)
	if err != nil {
		return nil
	}

	procNames := snapshotProcessNames()

	seen := make(map[[3]string]struct{}, len(conns))
	out := make([]model.PortBinding, 0, len(conns))
	for _, c := range conns {
		b := bindingFromConnection(c, procNames)
		key := b.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// FindByProcessName returns bindings whose process name contains substr
// (case-insensitive substring match).
func (p *Prober) FindByProcessName(substr string) []model.PortBinding {
	all := p.FindAll(true, true)
	out := make([]model.PortBinding, 0)
	for _, b := range all {
		if containsSubstr(b.ProcessName, substr) {
			out = append(out, b)
		}
	}
	return out
}

// ProcessInfo implements enrich.ProcessInfoSource, letting the Enricher
// pull extended per-pid detail through the same Prober the rest of the
// engine uses.
func (p *Prober) ProcessInfo(ctx context.Context, pid int) (*model.ProcessInfo, bool) {
	sample, ok := p.SampleByPid(ctx, pid)
	if !ok {
		return nil, false
	}
	return &model.ProcessInfo{
		ThreadCount:         sample.ThreadCount,
		OpenFileDescriptors: sample.OpenFileDescriptors,
		MemoryRSSBytes:      uint64(sample.Memory.RSSBytes),
		CPUPercent:          sample.CPU.PercentInstant,
	}, true
}

// KillProcess sends a graceful termination (force=false) or an
// unconditional kill (force=true) to pid. Never panics; returns false on
// any failure, including pid not found.
func (p *Prober) KillProcess(pid int, force bool) bool {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	if force {
		return proc.Kill() == nil
	}
	return proc.Terminate() == nil
}

// SampleByPid builds a single-pid ProcessSample, including the
// platform-specific follow-ups (fd count) bulk enumeration skips.
func (p *Prober) SampleByPid(ctx context.Context, pid int) (model.ProcessSample, bool) {
	proc, err := p.cachedProcess(int32(pid))
	if err != nil {
		return model.ProcessSample{}, false
	}
	return p.sampleProcess(ctx, proc, true), true
}

// SampleByName returns samples for every process whose name contains
// substr.
func (p *Prober) SampleByName(ctx context.Context, substr string) []model.ProcessSample {
	return p.filterProcesses(ctx, func(name, cmdline string) bool {
		return containsSubstr(name, substr)
	})
}

// SampleByCommand returns samples for every process whose full command
// line contains substr.
func (p *Prober) SampleByCommand(ctx context.Context, substr string) []model.ProcessSample {
	return p.filterProcesses(ctx, func(name, cmdline string) bool {
		return containsSubstr(cmdline, substr)
	})
}

// TopByCPU returns the n processes with the highest instantaneous CPU
// percent.
func (p *Prober) TopByCPU(ctx context.Context, n int) []model.ProcessSample {
	samples := p.GetAllProcesses(ctx)
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].CPU.PercentInstant > samples[j].CPU.PercentInstant
	})
	return truncate(samples, n)
}

// TopByMemory returns the n processes with the highest RSS.
func (p *Prober) TopByMemory(ctx context.Context, n int) []model.ProcessSample {
	samples := p.GetAllProcesses(ctx)
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Memory.RSSBytes > samples[j].Memory.RSSBytes
	})
	return truncate(samples, n)
}

// GetAllProcesses returns a bulk sample of every process on the host.
// Bulk mode skips the per-pid follow-ups (fd counts) single-target
// queries perform, per the probe contract's speed guarantee.
func (p *Prober) GetAllProcesses(ctx context.Context) []model.ProcessSample {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil
	}
	procs = p.cachedHandles(procs)
	out := make([]model.ProcessSample, 0, len(procs))
	for _, proc := range procs {
		out = append(out, p.sampleProcess(ctx, proc, false))
	}
	return out
}

func (p *Prober) filterProcesses(ctx context.Context, match func(name, cmdline string) bool) []model.ProcessSample {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil
	}
	procs = p.cachedHandles(procs)
	out := make([]model.ProcessSample, 0)
	for _, proc := range procs {
		name, _ := proc.NameWithContext(ctx)
		cmdline, _ := proc.CmdlineWithContext(ctx)
		if !match(name, cmdline) {
			continue
		}
		out = append(out, p.sampleProcess(ctx, proc, true))
	}
	return out
}

func (p *Prober) sampleProcess(ctx context.Context, proc *process.Process, detailed bool) model.ProcessSample {
	name, _ := proc.NameWithContext(ctx)
	cmdline, _ := proc.CmdlineWithContext(ctx)
	username, _ := proc.UsernameWithContext(ctx)
	statuses, _ := proc.StatusWithContext(ctx)
	cpuPercent, _ := proc.PercentWithContext(ctx, 0)
	memInfo, _ := proc.MemoryInfoWithContext(ctx)
	memPercent, _ := proc.MemoryPercentWithContext(ctx)
	times, _ := proc.TimesWithContext(ctx)
	numThreads, _ := proc.NumThreadsWithContext(ctx)
	ioCounters, _ := proc.IOCountersWithContext(ctx)
	createTimeMs, _ := proc.CreateTimeWithContext(ctx)

	sample := model.ProcessSample{
		PID:         int(proc.Pid),
		Name:        name,
		CommandLine: cmdline,
		User:        username,
		State:       mapProcessState(statuses),
		CPU: model.CPUStats{
			PercentInstant: cpuPercent / float64(p.cpuCount),
		},
		ThreadCount: int(numThreads),
		SampleTime:  time.Now(),
	}
	if times != nil {
		sample.CPU.UserTimeMs = int64(times.User * 1000)
		sample.CPU.SystemTimeMs = int64(times.System * 1000)
		sample.CPU.TotalTimeMs = int64((times.User + times.System) * 1000)
	}

	if memInfo != nil {
		sample.Memory = model.MemoryStats{
			RSSBytes:       bytesOf(memInfo.RSS),
			VirtualBytes:   bytesOf(memInfo.VMS),
			PercentOfTotal: float64(memPercent),
		}
	}
	if ioCounters != nil {
		sample.IO = model.IOStats{
			ReadBytes:  bytesOf(ioCounters.ReadBytes),
			WriteBytes: bytesOf(ioCounters.WriteBytes),
			ReadOps:    ioCounters.ReadCount,
			WriteOps:   ioCounters.WriteCount,
		}
	}
	if createTimeMs > 0 {
		t := time.UnixMilli(createTimeMs)
		sample.StartTime = &t
	}
	if detailed {
		sample.OpenFileDescriptors = openFileDescriptors(proc, int(proc.Pid))
	}

	return sample
}

func truncate(samples []model.ProcessSample, n int) []model.ProcessSample {
	if n < 0 || n >= len(samples) {
		return samples
	}
	return samples[:n]
}

func mapProcessState(statuses []string) model.ProcessState {
	if len(statuses) == 0 {
		return model.ProcUnknown
	}
	switch statuses[0] {
	case process.Running:
		return model.ProcRunning
	case process.Sleep:
		return model.ProcSleeping
	case process.Wait:
		return model.ProcWaiting
	case process.Zombie:
		return model.ProcZombie
	case process.Stop:
		return model.ProcStopped
	case process.Idle:
		return model.ProcIdle
	default:
		return model.ProcUnknown
	}
}

// containsSubstr is a case-insensitive substring test. An empty substr
// matches nothing — "empty name filter returns empty, not all processes".
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
