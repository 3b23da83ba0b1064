// Package diag defines the recoverable-fault taxonomy shared across the
// engine. Every kind here is a sentinel value, never a panic: callers use
// errors.Is against these to classify a fault without string matching.
package diag

import "errors"

var (
	// ErrInputInvalid marks malformed alert DSL, an out-of-range port, or a
	// bad interval. Surfaced to the caller at setup time, before a monitor
	// starts.
	ErrInputInvalid = errors.New("diag: invalid input")

	// ErrTargetMissing marks a pid that does not exist or a name pattern
	// that matches nothing. Surfaced once; the monitor declines to start.
	ErrTargetMissing = errors.New("diag: target not found")

	// ErrPlatformToolAbsent marks a required external binary missing or
	// not permitted. The affected capability degrades to an empty result
	// rather than failing the whole request.
	ErrPlatformToolAbsent = errors.New("diag: platform tool unavailable")

	// ErrEnrichmentUnavailable marks an enrichment source (container
	// runtime, JMX endpoint) that could not be reached. The corresponding
	// slot on EnrichedPortBinding stays empty.
	ErrEnrichmentUnavailable = errors.New("diag: enrichment source unavailable")

	// ErrDumpTimeout marks an external dump tool (jstack, jmap, pstack,
	// lsof) that exceeded its budget.
	ErrDumpTimeout = errors.New("diag: dump tool timed out")

	// ErrAllTargetsExited marks a monitor tick where none of the
	// configured pids are still alive.
	ErrAllTargetsExited = errors.New("diag: all targets exited")
)
