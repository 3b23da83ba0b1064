// Package container maps host pids and port bindings to the containers
// that own them. It is read-only: nothing here creates, starts, or stops a
// container, it only inspects the running set describes.
package container

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"

	"github.com/portwatch/portwatch/internal/diag"
	"github.com/portwatch/portwatch/internal/model"
)

// Adapter talks to a container runtime to resolve containers and the pids
// that belong to them. It satisfies enrich.ContainerInfoSource.
type Adapter struct {
	cli *client.Client

	mu    sync.Mutex
	byPID map[int]model.ContainerInfo
}

// New connects to the local Docker-compatible daemon using the standard
// DOCKER_HOST/env-based resolution. Returns ErrPlatformToolAbsent if no
// daemon is reachable — a disabled adapter is not a fatal condition for the
// rest of the pipeline, per enrichment-source tolerance.
func New(ctx context.Context) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", diag.ErrPlatformToolAbsent, err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", diag.ErrPlatformToolAbsent, err)
	}
	return &Adapter{cli: cli, byPID: make(map[int]model.ContainerInfo)}, nil
}

// Close releases the underlying Docker client connection.
func (a *Adapter) Close() error {
	if a.cli == nil {
		return nil
	}
	return a.cli.Close()
}

// List returns every container the daemon currently knows about, running
// or not.
func (a *Adapter) List(ctx context.Context) ([]model.ContainerInfo, error) {
	containers, err := a.cli.ContainerList(ctx, types.ContainerListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	out := make([]model.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		out = append(out, toContainerInfo(c))
	}
	return out, nil
}

// PortMappings maps every published host port across all containers to the
// ContainerInfo (id, name, image, status) of the container publishing it.
// The container-side port, protocol and host IP of a mapping are not
// included.
func (a *Adapter) PortMappings(ctx context.Context) (map[int]model.ContainerInfo, error) {
	containers, err := a.cli.ContainerList(ctx, types.ContainerListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	out := make(map[int]model.ContainerInfo)
	for _, c := range containers {
		info := toContainerInfo(c)
		for _, p := range c.Ports {
			if p.PublicPort != 0 {
				out[int(p.PublicPort)] = info
			}
		}
	}
	return out, nil
}

// ContainerInfo implements enrich.ContainerInfoSource: resolve the
// container owning pid, if any. Two strategies are tried in order —
// (a) reading the pid's cgroup membership off disk on Linux, a cheap,
// no-API-call path that resolves any process within the container, then
// (b) falling back to matching pid against each container's own reported
// main pid, which works on every platform the Docker API itself reaches
// but only identifies a container's entrypoint process, not its children.
func (a *Adapter) ContainerInfo(ctx context.Context, pid int) (*model.ContainerInfo, bool) {
	if id, ok := containerIDFromCgroup(pid); ok {
		if info, ok := a.lookupByID(ctx, id); ok {
			return &info, true
		}
	}
	return a.lookupByMainPID(ctx, pid)
}

func (a *Adapter) lookupByID(ctx context.Context, id string) (model.ContainerInfo, bool) {
	inspect, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return model.ContainerInfo{}, false
	}
	status := ""
	if inspect.State != nil {
		status = inspect.State.Status
	}
	return model.ContainerInfo{
		ContainerID:   shortID(inspect.ID),
		ContainerName: strings.TrimPrefix(inspect.Name, "/"),
		Image:         inspect.Config.Image,
		Status:        status,
	}, true
}

// lookupByMainPID matches pid against each running container's reported
// entrypoint pid (ContainerJSON.State.Pid), caching the map per Adapter
// instance since building it costs one inspect call per container.
func (a *Adapter) lookupByMainPID(ctx context.Context, pid int) (*model.ContainerInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if info, ok := a.byPID[pid]; ok {
		return &info, true
	}

	containers, err := a.cli.ContainerList(ctx, types.ContainerListOptions{})
	if err != nil {
		return nil, false
	}
	for _, c := range containers {
		inspect, err := a.cli.ContainerInspect(ctx, c.ID)
		if err != nil || inspect.State == nil {
			continue
		}
		info := toContainerInfo(c)
		a.byPID[inspect.State.Pid] = info
		if inspect.State.Pid == pid {
			found := info
			return &found, true
		}
	}
	return nil, false
}

func toContainerInfo(c types.Container) model.ContainerInfo {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return model.ContainerInfo{
		ContainerID:   shortID(c.ID),
		ContainerName: name,
		Image:         c.Image,
		Status:        c.Status,
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// containerIDFromCgroup reads /proc/<pid>/cgroup on Linux and extracts a
// long-form container ID from the cgroup path — the fast path for
// same-host daemon correlation, avoiding a ContainerList/Inspect sweep for
// the common case.
func containerIDFromCgroup(pid int) (string, bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/cgroup", pid))
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if id, ok := extractContainerID(line); ok {
			return id, true
		}
	}
	return "", false
}

// extractContainerID pulls a 64-character hex container ID out of a
// cgroup path component, matching both the docker-<id>.scope (systemd
// cgroup driver) and plain /docker/<id> (cgroupfs driver) layouts.
func extractContainerID(line string) (string, bool) {
	const hexLen = 64
	parts := strings.Split(line, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		seg := parts[i]
		seg = strings.TrimSuffix(seg, ".scope")
		seg = strings.TrimPrefix(seg, "docker-")
		if len(seg) == hexLen && isHex(seg) {
			return seg, true
		}
	}
	return "", false
}

func isHex(s string) bool {
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}
