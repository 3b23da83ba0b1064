package cliout

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/config"
	"github.com/portwatch/portwatch/internal/model"
)

func TestWriter_Table(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, config.FormatTable, []string{"A", "B"})
	w.Emit(Row{Cells: []string{"1", "x"}})
	w.Emit(Row{Cells: []string{"2", "y"}})
	w.Close()

	out := buf.String()
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "B")
	assert.Contains(t, out, "1")
	assert.Contains(t, out, "y")
}

func TestWriter_CSV(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, config.FormatCSV, []string{"A", "B"})
	w.Emit(Row{Cells: []string{"1", "x"}})
	w.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "A,B", lines[0])
	assert.Equal(t, "1,x", lines[1])
}

func TestWriter_Compact(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, config.FormatCompact, nil)
	w.Emit(Row{Cells: []string{"1", "x", "y"}})
	w.Close()

	assert.Equal(t, "1 x y\n", buf.String())
}

func TestWriter_JSONL(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, config.FormatJSONL, nil)
	w.Emit(Row{JSON: map[string]int{"n": 1}})
	w.Emit(Row{JSON: map[string]int{"n": 2}})
	w.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var first map[string]int
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, 1, first["n"])
}

func TestWriter_JSONArray(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, config.FormatJSON, nil)
	w.Emit(Row{JSON: map[string]int{"n": 1}})
	w.Emit(Row{JSON: map[string]int{"n": 2}})
	w.Close()

	var arr []map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &arr))
	require.Len(t, arr, 2)
	assert.Equal(t, 1, arr[0]["n"])
	assert.Equal(t, 2, arr[1]["n"])
}

func TestWriter_Quiet_PrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, config.FormatQuiet, []string{"A"})
	w.Emit(Row{Cells: []string{"1"}})
	w.Close()

	assert.Empty(t, buf.String())
}

func TestBindingRow_HandlesMissingProcessInfo(t *testing.T) {
	b := model.EnrichedPortBinding{
		Binding: model.PortBinding{Port: 8080, Protocol: model.TCP, State: model.StateListen},
	}
	row := BindingRow(b)

	assert.Equal(t, "8080", row.Cells[0])
	assert.Equal(t, "-", row.Cells[3], "pid should render as - when absent")
	assert.Equal(t, "-", row.Cells[4], "process name should render as - when absent")
}

func TestBindingRow_WithService(t *testing.T) {
	svc := model.ServiceInfo{Name: "HTTP"}
	b := model.EnrichedPortBinding{
		Binding: model.PortBinding{Port: 80, PID: 42, ProcessName: "nginx"},
		Service: &svc,
	}
	row := BindingRow(b)

	assert.Equal(t, "42", row.Cells[3])
	assert.Equal(t, "nginx", row.Cells[4])
	assert.Equal(t, "HTTP", row.Cells[6])
}

func TestBindingRow_JSONSchema(t *testing.T) {
	eb := model.EnrichedPortBinding{
		Binding: model.PortBinding{
			Port: 8080, Protocol: model.TCP, State: model.StateListen,
			PID: 1234, ProcessName: "java", LocalAddress: "0.0.0.0",
		},
		Service:   &model.ServiceInfo{Name: "HTTP-Alt", Category: model.CategoryWeb},
		Container: &model.ContainerInfo{ContainerID: "abc123"},
	}
	row := BindingRow(eb)

	b, err := json.Marshal(row.JSON)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))

	assert.Equal(t, float64(8080), decoded["port"])
	assert.Equal(t, "0.0.0.0", decoded["localAddress"])
	assert.Equal(t, true, decoded["isExposed"])
	assert.Equal(t, false, decoded["isLocalOnly"])
	assert.NotContains(t, decoded, "binding", "binding fields must be flattened, not nested")
	assert.NotContains(t, decoded, "container", "container slot must render as docker")

	service, ok := decoded["service"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "HTTP-Alt", service["name"])

	docker, ok := decoded["docker"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "abc123", docker["containerId"])
}

func TestSampleRow_JSONSchema(t *testing.T) {
	s := model.ProcessSample{
		PID: 42, Name: "java", State: model.ProcRunning,
		CPU:         model.CPUStats{PercentInstant: 85.5, UserTimeMs: 100, SystemTimeMs: 20},
		Memory:      model.MemoryStats{RSSBytes: 1024, PercentOfTotal: 1.5},
		ThreadCount: 12, OpenFileDescriptors: 7,
	}
	row := SampleRow(s)

	b, err := json.Marshal(row.JSON)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))

	assert.Equal(t, float64(42), decoded["pid"])
	assert.Equal(t, float64(12), decoded["threads"])
	assert.Equal(t, float64(7), decoded["fileDescriptors"])

	cpu, ok := decoded["cpu"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 85.5, cpu["percent"])
	assert.Equal(t, float64(100), cpu["userMs"])

	mem, ok := decoded["memory"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1024), mem["rssBytes"])
}

func TestPrintJSONArray(t *testing.T) {
	b, err := PrintJSONArray(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"a": 1`)
}
