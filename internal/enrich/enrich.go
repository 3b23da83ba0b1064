// Package enrich joins a PortBinding with optional out-of-band context:
// well-known service identity, extended process info, and container info.
// Each source is independently enabled and independently tolerant of being
// unavailable — an absent source fills nothing rather than failing the
// whole enrichment.
package enrich

import (
	"context"

	"github.com/portwatch/portwatch/internal/model"
	"github.com/portwatch/portwatch/internal/registry"
)

// ProcessInfoSource fetches extended process detail for a pid. Returning
// (nil, false) means "unavailable," never an error — enrichment never
// aborts the rest of the pipeline over a missing source.
type ProcessInfoSource interface {
	ProcessInfo(ctx context.Context, pid int) (*model.ProcessInfo, bool)
}

// ContainerInfoSource fetches container context for a pid.
type ContainerInfoSource interface {
	ContainerInfo(ctx context.Context, pid int) (*model.ContainerInfo, bool)
}

// Options toggles which enrichment sources run. All default to disabled;
// a caller opts in to exactly the cost it wants to pay per binding.
type Options struct {
	Service   bool
	Process   bool
	Container bool
}

// Enricher composes a PortBinding into an EnrichedPortBinding.
type Enricher struct {
	registry  *registry.Registry
	processes ProcessInfoSource
	containers ContainerInfoSource
}

// New builds an Enricher. Either source may be nil; the corresponding
// option is then silently a no-op regardless of what Options requests.
func New(reg *registry.Registry, processes ProcessInfoSource, containers ContainerInfoSource) *Enricher {
	if reg == nil {
		reg = registry.Default()
	}
	return &Enricher{registry: reg, processes: processes, containers: containers}
}

// Enrich returns a new EnrichedPortBinding. It never mutates b's fields —
// only the optional slots are ever populated.
func (e *Enricher) Enrich(ctx context.Context, b model.PortBinding, opts Options) model.EnrichedPortBinding {
	out := model.EnrichedPortBinding{Binding: b}

	if opts.Service {
		if info, ok := e.registry.Lookup(b.Port, b.Protocol); ok {
			svc := info
			out.Service = &svc
		}
	}

	if opts.Process && e.processes != nil && b.PID > 0 {
		if info, ok := e.processes.ProcessInfo(ctx, b.PID); ok {
			out.Process = info
		}
	}

	if opts.Container && e.containers != nil && b.PID > 0 {
		if info, ok := e.containers.ContainerInfo(ctx, b.PID); ok {
			out.Container = info
		}
	}

	return out
}

// EnrichAll enriches a slice of bindings with the same options.
func (e *Enricher) EnrichAll(ctx context.Context, bindings []model.PortBinding, opts Options) []model.EnrichedPortBinding {
	out := make([]model.EnrichedPortBinding, len(bindings))
	for i, b := range bindings {
		out[i] = e.Enrich(ctx, b, opts)
	}
	return out
}
