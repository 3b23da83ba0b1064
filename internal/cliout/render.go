// Package cliout renders engine results to stdout in the formats the
// command-line tools accept: an aligned table (via text/tabwriter),
// newline-delimited or indented JSON, CSV, a one-line-per-record compact
// mode, and a quiet mode that prints nothing but still drives the
// process exit code.
package cliout

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/portwatch/portwatch/internal/config"
	"github.com/portwatch/portwatch/internal/model"
)

// Row is one renderable record: a binding, a sample, an alert result, a
// health check, or a security flag, all reduced to display cells plus
// the same values as a JSON-marshalable struct for --json/--jsonl.
type Row struct {
	Cells []string
	JSON  any
}

// Writer renders a header plus a stream of Rows to w in format.
type Writer struct {
	w      io.Writer
	format config.OutputFormat
	header []string
	tw     *tabwriter.Writer
	csvW   *csv.Writer
	jsonN  int
}

// New builds a Writer. header is used only for table/csv modes.
func New(w io.Writer, format config.OutputFormat, header []string) *Writer {
	rw := &Writer{w: w, format: format, header: header}
	switch format {
	case config.FormatTable:
		rw.tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		rw.writeTableHeader()
	case config.FormatCSV:
		rw.csvW = csv.NewWriter(w)
		_ = rw.csvW.Write(header)
	case config.FormatJSON:
		fmt.Fprint(w, "[\n")
	}
	return rw
}

func (rw *Writer) writeTableHeader() {
	if len(rw.header) == 0 {
		return
	}
	for i, h := range rw.header {
		if i > 0 {
			fmt.Fprint(rw.tw, "\t")
		}
		fmt.Fprint(rw.tw, h)
	}
	fmt.Fprintln(rw.tw)
	for i := range rw.header {
		if i > 0 {
			fmt.Fprint(rw.tw, "\t")
		}
		fmt.Fprint(rw.tw, "----")
	}
	fmt.Fprintln(rw.tw)
}

// Emit writes one Row according to the active format.
func (rw *Writer) Emit(r Row) {
	switch rw.format {
	case config.FormatQuiet:
		return
	case config.FormatTable:
		for i, c := range r.Cells {
			if i > 0 {
				fmt.Fprint(rw.tw, "\t")
			}
			fmt.Fprint(rw.tw, c)
		}
		fmt.Fprintln(rw.tw)
	case config.FormatCSV:
		_ = rw.csvW.Write(r.Cells)
	case config.FormatCompact:
		line := ""
		for i, c := range r.Cells {
			if i > 0 {
				line += " "
			}
			line += c
		}
		fmt.Fprintln(rw.w, line)
	case config.FormatJSON:
		b, _ := json.MarshalIndent(r.JSON, "  ", "  ")
		if rw.jsonN > 0 {
			fmt.Fprint(rw.w, ",\n")
		}
		rw.w.Write(b)
		rw.jsonN++
	case config.FormatJSONL:
		b, _ := json.Marshal(r.JSON)
		rw.w.Write(b)
		fmt.Fprintln(rw.w)
	}
}

// Close flushes any buffered writer and closes off JSON array framing.
func (rw *Writer) Close() {
	switch rw.format {
	case config.FormatTable:
		rw.tw.Flush()
	case config.FormatCSV:
		rw.csvW.Flush()
	case config.FormatJSON:
		fmt.Fprint(rw.w, "\n]\n")
	}
}

// bindingJSON is the flat wire schema for --json/--jsonl binding output:
// enrichment slots promoted to top-level optional fields rather than
// nested under the EnrichedPortBinding shape the rest of the engine uses.
type bindingJSON struct {
	Port          int                 `json:"port"`
	Protocol      model.Protocol      `json:"protocol"`
	State         model.SocketState   `json:"state"`
	LocalAddress  string              `json:"localAddress"`
	RemoteAddress string              `json:"remoteAddress"`
	RemotePort    int                 `json:"remotePort"`
	PID           int                 `json:"pid"`
	ProcessName   string              `json:"processName"`
	User          string              `json:"user"`
	CommandLine   string              `json:"commandLine"`
	IsExposed     bool                `json:"isExposed"`
	IsLocalOnly   bool                `json:"isLocalOnly"`
	Service       *model.ServiceInfo  `json:"service,omitempty"`
	Docker        *model.ContainerInfo `json:"docker,omitempty"`
}

func newBindingJSON(eb model.EnrichedPortBinding) bindingJSON {
	b := eb.Binding
	return bindingJSON{
		Port:          b.Port,
		Protocol:      b.Protocol,
		State:         b.State,
		LocalAddress:  b.LocalAddress,
		RemoteAddress: b.RemoteAddress,
		RemotePort:    b.RemotePort,
		PID:           b.PID,
		ProcessName:   b.ProcessName,
		User:          b.User,
		CommandLine:   b.CommandLine,
		IsExposed:     b.IsExposed(),
		IsLocalOnly:   b.IsLocalOnly(),
		Service:       eb.Service,
		Docker:        eb.Container,
	}
}

// BindingRow renders a PortBinding (optionally enriched) into a Row.
func BindingRow(eb model.EnrichedPortBinding) Row {
	b := eb.Binding
	service := ""
	if eb.Service != nil {
		service = eb.Service.Name
	}
	proc := b.ProcessName
	if proc == "" {
		proc = "-"
	}
	pid := "-"
	if b.PID > 0 {
		pid = strconv.Itoa(b.PID)
	}
	return Row{
		Cells: []string{
			strconv.Itoa(b.Port), string(b.Protocol), string(b.State),
			pid, proc, b.LocalAddress, service,
		},
		JSON: newBindingJSON(eb),
	}
}

// SampleRow renders a ProcessSample into a Row.
func SampleRow(s model.ProcessSample) Row {
	return Row{
		Cells: []string{
			strconv.Itoa(s.PID), s.Name, string(s.State),
			fmt.Sprintf("%.2f%%", s.CPU.PercentInstant),
			s.Memory.RSSBytes.Humanized(),
			strconv.Itoa(s.ThreadCount),
			s.SampleTime.Format("15:04:05"),
		},
		JSON: s,
	}
}

// AlertRow renders an AlertResult into a Row.
func AlertRow(r model.AlertResult) Row {
	return Row{
		Cells: []string{
			strconv.Itoa(r.Sample.PID), r.Rule.Expression,
			fmt.Sprintf("%v", r.Triggered),
			fmt.Sprintf("%.2f", r.CurrentValue),
			fmt.Sprintf("%.2f", r.Threshold),
			r.Message,
		},
		JSON: r,
	}
}

// HealthRow renders a HealthCheckResult into a Row.
func HealthRow(h model.HealthCheckResult) Row {
	return Row{
		Cells: []string{
			strconv.Itoa(h.Port), string(h.Protocol), string(h.Status),
			fmt.Sprintf("%.1fms", h.ResponseTimeMs), h.Message,
		},
		JSON: h,
	}
}

// SecurityRow renders a SecurityFlag into a Row.
func SecurityRow(f model.SecurityFlag) Row {
	return Row{
		Cells: []string{
			f.Severity.String(), string(f.Category), f.Title,
			strconv.Itoa(f.Binding.Port), f.Recommendation,
		},
		JSON: f,
	}
}
