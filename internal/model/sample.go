package model

import (
	"time"

	"github.com/portwatch/portwatch/pkg/types"
)

// ProcessState is the scheduler state of a process at sample time.
type ProcessState string

const (
	ProcRunning  ProcessState = "RUNNING"
	ProcSleeping ProcessState = "SLEEPING"
	ProcWaiting  ProcessState = "WAITING"
	ProcZombie   ProcessState = "ZOMBIE"
	ProcStopped  ProcessState = "STOPPED"
	ProcIdle     ProcessState = "IDLE"
	ProcUnknown  ProcessState = "UNKNOWN"
)

// CPUStats is the CPU-time breakdown of a ProcessSample.
type CPUStats struct {
	PercentInstant float64 `json:"percent"`
	UserTimeMs     int64   `json:"userMs"`
	SystemTimeMs   int64   `json:"systemMs"`
	TotalTimeMs    int64   `json:"totalMs"`
}

// MemoryStats is the memory breakdown of a ProcessSample. All fields are
// byte counts except PercentOfTotal.
type MemoryStats struct {
	RSSBytes       types.Bytes `json:"rssBytes"`
	VirtualBytes   types.Bytes `json:"virtualBytes"`
	SharedBytes    types.Bytes `json:"sharedBytes"`
	PercentOfTotal float64     `json:"percentOfTotal"`
}

// IOStats is the cumulative disk-io counters of a ProcessSample.
type IOStats struct {
	ReadBytes  types.Bytes `json:"readBytes"`
	WriteBytes types.Bytes `json:"writeBytes"`
	ReadOps    uint64      `json:"readOps"`
	WriteOps   uint64      `json:"writeOps"`
}

// ProcessSample is a single-point-in-time snapshot of one process's
// resource usage. It is immutable and timestamped; invariants: all byte
// counts are >= 0 and MemoryStats.PercentOfTotal is in [0, 100].
type ProcessSample struct {
	PID                 int          `json:"pid"`
	Name                string       `json:"name"`
	CommandLine         string       `json:"commandLine"`
	User                string       `json:"user"`
	State               ProcessState `json:"state"`
	CPU                 CPUStats     `json:"cpu"`
	Memory              MemoryStats  `json:"memory"`
	IO                  IOStats      `json:"io"`
	ThreadCount         int          `json:"threads"`
	OpenFileDescriptors int          `json:"fileDescriptors"`
	StartTime           *time.Time   `json:"startTime,omitempty"`
	SampleTime          time.Time    `json:"sampleTime"`
}

// Metric identifies the quantity an AlertRule evaluates.
type Metric string

const (
	MetricCPU        Metric = "CPU"
	MetricRSS        Metric = "RSS"
	MetricVirtual    Metric = "VIRTUAL"
	MetricThreads    Metric = "THREADS"
	MetricFD         Metric = "FD"
	MetricReadBytes  Metric = "READ_BYTES"
	MetricWriteBytes Metric = "WRITE_BYTES"
)

// Extract pulls the raw (un-normalized) value of m out of a sample.
func Extract(s ProcessSample, m Metric) float64 {
	switch m {
	case MetricCPU:
		return s.CPU.PercentInstant
	case MetricRSS:
		return float64(s.Memory.RSSBytes)
	case MetricVirtual:
		return float64(s.Memory.VirtualBytes)
	case MetricThreads:
		return float64(s.ThreadCount)
	case MetricFD:
		return float64(s.OpenFileDescriptors)
	case MetricReadBytes:
		return float64(s.IO.ReadBytes)
	case MetricWriteBytes:
		return float64(s.IO.WriteBytes)
	default:
		return 0
	}
}
