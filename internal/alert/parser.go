// Package alert compiles the single-line alert DSL into structured
// AlertRule values and evaluates them against process samples. The
// grammar is a single comparison with an optional windowed condition:
//
//	rule       := metric ws? op ws? number unit? (ws window_cond ws duration)?
//	metric     := "cpu" | "cpu%" | "rss" | "mem" | "memory" | "virtual" | "vsz" | "virt"
//	            | "threads" | "thread" | "fd" | "fds" | "files"
//	            | "read" | "read_bytes" | "write" | "write_bytes"
//	op         := ">=" | "<=" | ">" | "<" | "==" | "=" | "!=" | "<>"
//	unit       := "%" | "B" | "KB" | "MB" | "GB"
//	window_cond := "for" | "increasing" | "decreasing"
//	duration   := number ("s" | "m" | "h")
//
// Parsing is handled by participle's struct-tag grammar over a small
// custom lexer; everything past the grammar (metric aliasing, operator
// mapping, default-unit selection) is plain Go, since those decisions are
// semantic rather than syntactic and are easier to get right, and to
// test, outside the grammar itself.
package alert

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/portwatch/portwatch/internal/diag"
	"github.com/portwatch/portwatch/internal/model"
)

var ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Duration", Pattern: `[0-9]+(?:\.[0-9]+)?[smh]\b`},
	{Name: "Number", Pattern: `[0-9]+(?:\.[0-9]+)?`},
	{Name: "Op", Pattern: `>=|<=|==|!=|<>|>|<|=`},
	{Name: "Window", Pattern: `(?i)(?:for|increasing|decreasing)\b`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z_%]*`},
	{Name: "Percent", Pattern: `%`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// ruleAST is the raw parse tree; semantic mapping happens in Compile.
type ruleAST struct {
	Metric string     `parser:"@Ident"`
	Op     string     `parser:"@Op"`
	Value  float64    `parser:"@Number"`
	Unit   *string    `parser:"@(Ident|Percent)?"`
	Window *windowAST `parser:"@@?"`
}

type windowAST struct {
	Cond     string `parser:"@Window"`
	Duration string `parser:"@Duration"`
}

var ruleParser = participle.MustBuild[ruleAST](
	participle.Lexer(ruleLexer),
	participle.Elide("Whitespace"),
	participle.Unquote(),
)

var metricAliases = map[string]model.Metric{
	"cpu": model.MetricCPU, "cpu%": model.MetricCPU,
	"rss": model.MetricRSS, "mem": model.MetricRSS, "memory": model.MetricRSS,
	"virtual": model.MetricVirtual, "vsz": model.MetricVirtual, "virt": model.MetricVirtual,
	"threads": model.MetricThreads, "thread": model.MetricThreads,
	"fd": model.MetricFD, "fds": model.MetricFD, "files": model.MetricFD,
	"read": model.MetricReadBytes, "read_bytes": model.MetricReadBytes,
	"write": model.MetricWriteBytes, "write_bytes": model.MetricWriteBytes,
}

var operatorAliases = map[string]model.Operator{
	">=": model.OpGE, "<=": model.OpLE,
	">": model.OpGT, "<": model.OpLT,
	"==": model.OpEQ, "=": model.OpEQ,
	"!=": model.OpNE, "<>": model.OpNE,
}

var unitAliases = map[string]model.Unit{
	"%": model.UnitPercent, "b": model.UnitBytes,
	"kb": model.UnitKB, "mb": model.UnitMB, "gb": model.UnitGB,
}

var windowConditionAliases = map[string]model.WindowCondition{
	"for": model.WindowFor, "increasing": model.WindowIncreasing, "decreasing": model.WindowDecreasing,
}

var countMetrics = map[model.Metric]struct{}{
	model.MetricThreads: {}, model.MetricFD: {},
}

var byteMetrics = map[model.Metric]struct{}{
	model.MetricRSS: {}, model.MetricVirtual: {},
	model.MetricReadBytes: {}, model.MetricWriteBytes: {},
}

// Compile parses a DSL expression into a normalized AlertRule. It wraps
// diag.ErrInputInvalid so callers can tell a malformed rule apart from
// any other setup-time failure.
func Compile(expression string) (model.AlertRule, error) {
	trimmed := strings.TrimSpace(expression)
	ast, err := ruleParser.ParseString("", trimmed)
	if err != nil {
		return model.AlertRule{}, fmt.Errorf("%w: alert rule %q: %v", diag.ErrInputInvalid, expression, err)
	}

	metric, ok := metricAliases[strings.ToLower(ast.Metric)]
	if !ok {
		return model.AlertRule{}, fmt.Errorf("%w: alert rule %q: unknown metric %q", diag.ErrInputInvalid, expression, ast.Metric)
	}

	op, ok := operatorAliases[ast.Op]
	if !ok {
		return model.AlertRule{}, fmt.Errorf("%w: alert rule %q: unknown operator %q", diag.ErrInputInvalid, expression, ast.Op)
	}

	unit, err := resolveUnit(metric, ast.Unit)
	if err != nil {
		return model.AlertRule{}, fmt.Errorf("%w: alert rule %q: %v", diag.ErrInputInvalid, expression, err)
	}

	rule := model.AlertRule{
		Expression: trimmed,
		Metric:     metric,
		Operator:   op,
		Threshold:  ast.Value * model.UnitFactor(unit),
		Unit:       unit,
	}

	if ast.Window != nil {
		cond, ok := windowConditionAliases[strings.ToLower(ast.Window.Cond)]
		if !ok {
			return model.AlertRule{}, fmt.Errorf("%w: alert rule %q: unknown window condition %q", diag.ErrInputInvalid, expression, ast.Window.Cond)
		}
		dur, err := parseDuration(ast.Window.Duration)
		if err != nil {
			return model.AlertRule{}, fmt.Errorf("%w: alert rule %q: %v", diag.ErrInputInvalid, expression, err)
		}
		rule.HasWindow = true
		rule.WindowCondition = cond
		rule.Window = dur
	}

	return rule, nil
}

// resolveUnit applies the default-unit-by-metric-family rule when the DSL
// omits a unit: PERCENT for CPU, BYTES for memory/IO, NONE for counts.
func resolveUnit(metric model.Metric, raw *string) (model.Unit, error) {
	if raw == nil {
		switch {
		case metric == model.MetricCPU:
			return model.UnitPercent, nil
		case isByteMetric(metric):
			return model.UnitBytes, nil
		default:
			return model.UnitNone, nil
		}
	}
	unit, ok := unitAliases[strings.ToLower(*raw)]
	if !ok {
		return "", fmt.Errorf("unknown unit %q", *raw)
	}
	return unit, nil
}

func isByteMetric(m model.Metric) bool {
	_, ok := byteMetrics[m]
	return ok
}

func parseDuration(raw string) (time.Duration, error) {
	suffix := raw[len(raw)-1]
	numPart := raw[:len(raw)-1]
	n, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	switch suffix {
	case 's':
		return time.Duration(n * float64(time.Second)), nil
	case 'm':
		return time.Duration(n * float64(time.Minute)), nil
	case 'h':
		return time.Duration(n * float64(time.Hour)), nil
	default:
		return 0, fmt.Errorf("invalid duration unit in %q", raw)
	}
}
