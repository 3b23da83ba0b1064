// Package jvm reads JVM runtime metrics — heap, GC, threads, class
// loading, uptime, VM identity — from a Jolokia HTTP/JSON bridge exposed
// by the target process. No native Go JMX/RMI client
// exists in the ecosystem this module draws from; Jolokia's HTTP+JSON
// surface is the standard way non-JVM tooling reaches MBeans, so this
// adapter is net/http + encoding/json against Jolokia's read endpoint
// (see DESIGN.md for why that is a justified stdlib boundary rather than
// a missed third-party dependency).
package jvm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/portwatch/portwatch/internal/diag"
)

const defaultTimeout = 5 * time.Second

// Metrics is the JVM snapshot this package produces per poll.
type Metrics struct {
	HeapUsedBytes      int64
	HeapMaxBytes       int64
	HeapCommittedBytes int64
	NonHeapUsedBytes   int64
	GCCollectionCount  int64
	GCCollectionTimeMs int64
	ThreadCount        int64
	PeakThreadCount    int64
	DaemonThreadCount  int64
	LoadedClassCount   int64
	UptimeMs           int64
	VMName             string
	VMVersion          string
	VMVendor           string
}

// Client talks to one Jolokia agent endpoint (e.g.
// http://localhost:8778/jolokia). Connections are shared and serialized —
// Jolokia agents commonly wrap a single MBeanServerConnection, so this
// package funnels every read for a given Client through one mutex rather
// than trusting the agent to handle concurrent reads safely.
type Client struct {
	baseURL string
	http    *http.Client
	mu      sync.Mutex
}

// NewClient builds a Client against a Jolokia base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// jolokiaResponse is the envelope Jolokia wraps every read in.
type jolokiaResponse struct {
	Status  int             `json:"status"`
	Value   json.RawMessage `json:"value"`
	Error   string          `json:"error"`
	Timestamp int64         `json:"timestamp"`
}

// Poll reads the standard platform MXBeans in sequence and assembles a
// Metrics snapshot. A failure on any individual bean read aborts the
// whole poll — a partially-filled Metrics would misrepresent the JVM's
// state, so this method is all-or-nothing.
func (c *Client) Poll(ctx context.Context) (*Metrics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mem, err := c.readAttr(ctx, "java.lang:type=Memory", "HeapMemoryUsage")
	if err != nil {
		return nil, err
	}
	nonHeap, err := c.readAttr(ctx, "java.lang:type=Memory", "NonHeapMemoryUsage")
	if err != nil {
		return nil, err
	}
	threads, err := c.readAttrs(ctx, "java.lang:type=Threading",
		[]string{"ThreadCount", "PeakThreadCount", "DaemonThreadCount"})
	if err != nil {
		return nil, err
	}
	classes, err := c.readAttr(ctx, "java.lang:type=ClassLoading", "LoadedClassCount")
	if err != nil {
		return nil, err
	}
	runtime, err := c.readAttrs(ctx, "java.lang:type=Runtime",
		[]string{"Uptime", "VmName", "VmVersion", "VmVendor"})
	if err != nil {
		return nil, err
	}
	gc, err := c.readGC(ctx)
	if err != nil {
		return nil, err
	}

	heap := parseMemoryUsage(mem)
	nh := parseMemoryUsage(nonHeap)

	return &Metrics{
		HeapUsedBytes:      heap.used,
		HeapMaxBytes:       heap.max,
		HeapCommittedBytes: heap.committed,
		NonHeapUsedBytes:   nh.used,
		GCCollectionCount:  gc.count,
		GCCollectionTimeMs: gc.timeMs,
		ThreadCount:        asInt64(threads["ThreadCount"]),
		PeakThreadCount:    asInt64(threads["PeakThreadCount"]),
		DaemonThreadCount:  asInt64(threads["DaemonThreadCount"]),
		LoadedClassCount:   asInt64(classes),
		UptimeMs:           asInt64(runtime["Uptime"]),
		VMName:             asString(runtime["VmName"]),
		VMVersion:          asString(runtime["VmVersion"]),
		VMVendor:           asString(runtime["VmVendor"]),
	}, nil
}

type memUsage struct{ used, max, committed int64 }

func parseMemoryUsage(raw json.RawMessage) memUsage {
	var m struct {
		Used      int64 `json:"used"`
		Max       int64 `json:"max"`
		Committed int64 `json:"committed"`
	}
	_ = json.Unmarshal(raw, &m)
	return memUsage{used: m.Used, max: m.Max, committed: m.Committed}
}

type gcStats struct{ count, timeMs int64 }

// readGC sums CollectionCount/CollectionTime across every
// java.lang:type=GarbageCollector,name=* MBean, since the set of
// collectors is JVM/GC-algorithm dependent.
func (c *Client) readGC(ctx context.Context) (gcStats, error) {
	value, err := c.read(ctx, "java.lang:type=GarbageCollector,name=*", "")
	if err != nil {
		return gcStats{}, err
	}
	var byBean map[string]struct {
		CollectionCount int64 `json:"CollectionCount"`
		CollectionTime  int64 `json:"CollectionTime"`
	}
	if err := json.Unmarshal(value, &byBean); err != nil {
		return gcStats{}, fmt.Errorf("jvm: decode gc stats: %w", err)
	}
	var out gcStats
	for _, v := range byBean {
		out.count += v.CollectionCount
		out.timeMs += v.CollectionTime
	}
	return out, nil
}

func (c *Client) readAttr(ctx context.Context, mbean, attribute string) (json.RawMessage, error) {
	return c.read(ctx, mbean, attribute)
}

func (c *Client) readAttrs(ctx context.Context, mbean string, attrs []string) (map[string]json.RawMessage, error) {
	raw, err := c.read(ctx, mbean, "")
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("jvm: decode %s: %w", mbean, err)
	}
	return m, nil
}

// read issues one Jolokia GET-style read request:
// {base}/read/{mbean}[/{attribute}].
func (c *Client) read(ctx context.Context, mbean, attribute string) (json.RawMessage, error) {
	path := fmt.Sprintf("%s/read/%s", c.baseURL, url.PathEscape(mbean))
	if attribute != "" {
		path += "/" + url.PathEscape(attribute)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("jvm: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", diag.ErrPlatformToolAbsent, err)
	}
	defer resp.Body.Close()

	var jr jolokiaResponse
	if err := json.NewDecoder(resp.Body).Decode(&jr); err != nil {
		return nil, fmt.Errorf("jvm: decode jolokia envelope: %w", err)
	}
	if jr.Status != http.StatusOK {
		return nil, fmt.Errorf("jvm: jolokia status %d for %s: %s", jr.Status, mbean, jr.Error)
	}
	return jr.Value, nil
}

func asInt64(raw json.RawMessage) int64 {
	var n int64
	_ = json.Unmarshal(raw, &n)
	return n
}

func asString(raw json.RawMessage) string {
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}
