package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	s := ProcessSample{
		CPU:                 CPUStats{PercentInstant: 42.5},
		Memory:              MemoryStats{RSSBytes: 1024, VirtualBytes: 2048},
		ThreadCount:         7,
		OpenFileDescriptors: 3,
		IO:                  IOStats{ReadBytes: 500, WriteBytes: 250},
	}

	cases := []struct {
		metric Metric
		want   float64
	}{
		{MetricCPU, 42.5},
		{MetricRSS, 1024},
		{MetricVirtual, 2048},
		{MetricThreads, 7},
		{MetricFD, 3},
		{MetricReadBytes, 500},
		{MetricWriteBytes, 250},
		{Metric("unknown"), 0},
	}
	for _, tc := range cases {
		t.Run(string(tc.metric), func(t *testing.T) {
			assert.Equal(t, tc.want, Extract(s, tc.metric))
		})
	}
}
