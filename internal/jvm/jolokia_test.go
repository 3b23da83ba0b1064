package jvm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jolokiaHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := r.URL.Path

		switch {
		case strings.Contains(path, "Memory") && strings.Contains(path, "NonHeap"):
			fmt.Fprint(w, `{"status":200,"value":{"used":1000,"max":4000,"committed":2000}}`)
		case strings.Contains(path, "type=Memory"):
			fmt.Fprint(w, `{"status":200,"value":{"used":500,"max":2000,"committed":1500}}`)
		case strings.Contains(path, "Threading"):
			fmt.Fprint(w, `{"status":200,"value":{"ThreadCount":12,"PeakThreadCount":20,"DaemonThreadCount":5}}`)
		case strings.Contains(path, "ClassLoading"):
			fmt.Fprint(w, `{"status":200,"value":1234}`)
		case strings.Contains(path, "Runtime"):
			fmt.Fprint(w, `{"status":200,"value":{"Uptime":99999,"VmName":"OpenJDK 64-Bit Server VM","VmVersion":"17.0.1","VmVendor":"Eclipse Adoptium"}}`)
		case strings.Contains(path, "GarbageCollector"):
			fmt.Fprint(w, `{"status":200,"value":{"G1 Young Generation":{"CollectionCount":10,"CollectionTime":100},"G1 Old Generation":{"CollectionCount":2,"CollectionTime":50}}}`)
		default:
			http.Error(w, `{"status":404,"error":"unknown mbean"}`, http.StatusOK)
		}
	}
}

func TestClient_Poll_AssemblesFullSnapshot(t *testing.T) {
	srv := httptest.NewServer(jolokiaHandler(t))
	defer srv.Close()

	c := NewClient(srv.URL + "/jolokia")
	metrics, err := c.Poll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(500), metrics.HeapUsedBytes)
	assert.Equal(t, int64(2000), metrics.HeapMaxBytes)
	assert.Equal(t, int64(1500), metrics.HeapCommittedBytes)
	assert.Equal(t, int64(1000), metrics.NonHeapUsedBytes)
	assert.Equal(t, int64(12), metrics.GCCollectionCount)
	assert.Equal(t, int64(150), metrics.GCCollectionTimeMs)
	assert.Equal(t, int64(12), metrics.ThreadCount)
	assert.Equal(t, int64(20), metrics.PeakThreadCount)
	assert.Equal(t, int64(5), metrics.DaemonThreadCount)
	assert.Equal(t, int64(1234), metrics.LoadedClassCount)
	assert.Equal(t, int64(99999), metrics.UptimeMs)
	assert.Equal(t, "OpenJDK 64-Bit Server VM", metrics.VMName)
	assert.Equal(t, "17.0.1", metrics.VMVersion)
	assert.Equal(t, "Eclipse Adoptium", metrics.VMVendor)
}

func TestClient_Poll_PropagatesJolokiaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":500,"error":"javax.management.InstanceNotFoundException"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/jolokia")
	_, err := c.Poll(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "jolokia status 500")
}

func TestClient_Poll_UnreachableAgent(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.Poll(context.Background())

	assert.Error(t, err)
}

func TestClient_Poll_MalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Poll(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode jolokia envelope")
}
