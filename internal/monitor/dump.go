package monitor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/portwatch/portwatch/internal/diag"
)

// DumpBudget is the hard ceiling places on any dump-on-breach
// tool invocation.
const DumpBudget = 30 * time.Second

// ExternalDumpRunner shells out to the platform diagnostic tool matching a
// DumpKind. A missing binary or a run exceeding DumpBudget produces an
// error, never a crash.
type ExternalDumpRunner struct{}

// NewExternalDumpRunner builds the default, PATH-resolved DumpRunner.
func NewExternalDumpRunner() *ExternalDumpRunner { return &ExternalDumpRunner{} }

// Run invokes the tool for kind against pid, capturing combined
// stdout/stderr, bounded by DumpBudget regardless of the caller's ctx.
func (r *ExternalDumpRunner) Run(ctx context.Context, kind DumpKind, pid int) (string, error) {
	name, args, err := commandFor(kind, pid)
	if err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(ctx, DumpBudget)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("dump %s: %w: exceeded %s budget", kind, diag.ErrDumpTimeout, DumpBudget)
		}
		return out.String(), fmt.Errorf("dump %s: %w", kind, err)
	}
	return out.String(), nil
}

func commandFor(kind DumpKind, pid int) (string, []string, error) {
	pidStr := strconv.Itoa(pid)
	switch kind {
	case DumpJstack:
		return "jstack", []string{pidStr}, nil
	case DumpJmap:
		return "jmap", []string{"-histo", pidStr}, nil
	case DumpPstack:
		return "pstack", []string{pidStr}, nil
	case DumpLsof:
		return "lsof", []string{"-p", pidStr}, nil
	default:
		return "", nil, fmt.Errorf("unknown dump kind %q", kind)
	}
}
