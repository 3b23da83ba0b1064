package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/model"
)

type fakeProcessSource struct {
	info map[int]*model.ProcessInfo
}

func (f fakeProcessSource) ProcessInfo(ctx context.Context, pid int) (*model.ProcessInfo, bool) {
	info, ok := f.info[pid]
	return info, ok
}

type fakeContainerSource struct {
	info map[int]*model.ContainerInfo
}

func (f fakeContainerSource) ContainerInfo(ctx context.Context, pid int) (*model.ContainerInfo, bool) {
	info, ok := f.info[pid]
	return info, ok
}

func TestEnrich_ServiceOnly(t *testing.T) {
	e := New(nil, nil, nil)
	b := model.PortBinding{Port: 443, Protocol: model.TCP}

	out := e.Enrich(context.Background(), b, Options{Service: true})

	require.NotNil(t, out.Service)
	assert.Equal(t, "HTTPS", out.Service.Name)
	assert.Nil(t, out.Process)
	assert.Nil(t, out.Container)
}

func TestEnrich_ServiceDisabled_LeavesItNil(t *testing.T) {
	e := New(nil, nil, nil)
	b := model.PortBinding{Port: 443, Protocol: model.TCP}

	out := e.Enrich(context.Background(), b, Options{})

	assert.Nil(t, out.Service)
}

func TestEnrich_ProcessSource(t *testing.T) {
	procs := fakeProcessSource{info: map[int]*model.ProcessInfo{
		100: {ThreadCount: 4, MemoryRSSBytes: 2048},
	}}
	e := New(nil, procs, nil)
	b := model.PortBinding{Port: 8080, PID: 100}

	out := e.Enrich(context.Background(), b, Options{Process: true})

	require.NotNil(t, out.Process)
	assert.Equal(t, 4, out.Process.ThreadCount)
}

func TestEnrich_ProcessSource_NilWhenPIDMissing(t *testing.T) {
	procs := fakeProcessSource{info: map[int]*model.ProcessInfo{100: {ThreadCount: 4}}}
	e := New(nil, procs, nil)
	b := model.PortBinding{Port: 8080, PID: 0}

	out := e.Enrich(context.Background(), b, Options{Process: true})

	assert.Nil(t, out.Process, "a binding with no known pid must not query the process source")
}

func TestEnrich_ProcessSource_NilSourceIsTolerated(t *testing.T) {
	e := New(nil, nil, nil)
	b := model.PortBinding{Port: 8080, PID: 100}

	out := e.Enrich(context.Background(), b, Options{Process: true})

	assert.Nil(t, out.Process)
}

func TestEnrich_ContainerSource(t *testing.T) {
	containers := fakeContainerSource{info: map[int]*model.ContainerInfo{
		100: {ContainerID: "abc123", ContainerName: "web"},
	}}
	e := New(nil, nil, containers)
	b := model.PortBinding{Port: 80, PID: 100}

	out := e.Enrich(context.Background(), b, Options{Container: true})

	require.NotNil(t, out.Container)
	assert.Equal(t, "abc123", out.Container.ContainerID)
}

func TestEnrich_AllSourcesTogether(t *testing.T) {
	procs := fakeProcessSource{info: map[int]*model.ProcessInfo{100: {ThreadCount: 2}}}
	containers := fakeContainerSource{info: map[int]*model.ContainerInfo{100: {ContainerID: "xyz"}}}
	e := New(nil, procs, containers)
	b := model.PortBinding{Port: 5432, Protocol: model.TCP, PID: 100}

	out := e.Enrich(context.Background(), b, Options{Service: true, Process: true, Container: true})

	assert.NotNil(t, out.Service)
	assert.NotNil(t, out.Process)
	assert.NotNil(t, out.Container)
	assert.Equal(t, b, out.Binding, "enrichment must never mutate the original binding")
}

func TestEnrich_UnknownPort_NoServiceInfo(t *testing.T) {
	e := New(nil, nil, nil)
	b := model.PortBinding{Port: 54321, Protocol: model.TCP}

	out := e.Enrich(context.Background(), b, Options{Service: true})

	assert.Nil(t, out.Service)
}

func TestEnrichAll_PreservesOrderAndLength(t *testing.T) {
	e := New(nil, nil, nil)
	bindings := []model.PortBinding{
		{Port: 443, Protocol: model.TCP},
		{Port: 80, Protocol: model.TCP},
		{Port: 1, Protocol: model.TCP},
	}

	out := e.EnrichAll(context.Background(), bindings, Options{Service: true})

	require.Len(t, out, 3)
	assert.Equal(t, "HTTPS", out[0].Service.Name)
	assert.Nil(t, out[2].Service)
}
