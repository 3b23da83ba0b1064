// Package config binds cobra flags into validated option structs.
// Validation happens entirely at setup time — an invalid alert rule or a
// bad interval is reported before a Monitor is ever started.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/portwatch/portwatch/internal/alert"
	"github.com/portwatch/portwatch/internal/diag"
	"github.com/portwatch/portwatch/internal/model"
)

// intervalPattern matches the "Ns|Nm|Nh" syntax accepted by --interval
// and --watch.
var intervalPattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)(s|m|h)$`)

// ParseInterval parses the "Ns|Nm|Nh" duration syntax.
func ParseInterval(raw string) (time.Duration, error) {
	m := intervalPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, fmt.Errorf("%w: interval %q does not match Ns|Nm|Nh", diag.ErrInputInvalid, raw)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: interval %q: %v", diag.ErrInputInvalid, raw, err)
	}
	switch m[2] {
	case "s":
		return time.Duration(n * float64(time.Second)), nil
	case "m":
		return time.Duration(n * float64(time.Minute)), nil
	case "h":
		return time.Duration(n * float64(time.Hour)), nil
	default:
		return 0, fmt.Errorf("%w: interval %q: unknown unit", diag.ErrInputInvalid, raw)
	}
}

// ValidatePort checks a port falls within the valid TCP/UDP range.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range [1,65535]", diag.ErrInputInvalid, port)
	}
	return nil
}

// ValidateRange checks a port range is well-formed and within bounds.
func ValidateRange(from, to int) error {
	if err := ValidatePort(from); err != nil {
		return err
	}
	if err := ValidatePort(to); err != nil {
		return err
	}
	if from > to {
		return fmt.Errorf("%w: range %d-%d is inverted", diag.ErrInputInvalid, from, to)
	}
	return nil
}

// CompileRules compiles every DSL expression in exprs, collecting the
// first error (since a bad rule must abort setup entirely, not start a
// partially-ruled monitor).
func CompileRules(exprs []string) ([]model.AlertRule, error) {
	rules := make([]model.AlertRule, 0, len(exprs))
	for _, expr := range exprs {
		rule, err := alert.Compile(expr)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// OutputFormat is the requested rendering for CLI results.
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatJSONL   OutputFormat = "jsonl"
	FormatCSV     OutputFormat = "csv"
	FormatCompact OutputFormat = "compact"
	FormatQuiet   OutputFormat = "quiet"
)

// ResolveFormat picks the output format from the mutually-exclusive CLI
// switches, defaulting to table when none are set.
func ResolveFormat(jsonFlag, jsonlFlag, csvFlag, compactFlag, quietFlag bool) OutputFormat {
	switch {
	case quietFlag:
		return FormatQuiet
	case jsonlFlag:
		return FormatJSONL
	case jsonFlag:
		return FormatJSON
	case csvFlag:
		return FormatCSV
	case compactFlag:
		return FormatCompact
	default:
		return FormatTable
	}
}

// DumpKindFromFlag validates a --dump-on-breach flag value.
func DumpKindFromFlag(raw string) (string, error) {
	switch raw {
	case "", "jstack", "jmap", "pstack", "lsof":
		return raw, nil
	default:
		return "", fmt.Errorf("%w: unknown dump kind %q", diag.ErrInputInvalid, raw)
	}
}
