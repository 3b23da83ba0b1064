package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/model"
)

func TestLookup_KnownPort(t *testing.T) {
	r := New()

	info, ok := r.Lookup(443, model.TCP)
	require.True(t, ok)
	assert.Equal(t, "HTTPS", info.Name)
	assert.Equal(t, model.CategoryWeb, info.Category)
}

func TestLookup_UnknownPort(t *testing.T) {
	r := New()

	_, ok := r.Lookup(54321, model.TCP)
	assert.False(t, ok)
}

func TestLookup_ProtocolDistinguishesEntries(t *testing.T) {
	r := New()

	_, tcpOK := r.Lookup(53, model.TCP)
	_, udpOK := r.Lookup(53, model.UDP)
	assert.True(t, tcpOK)
	assert.True(t, udpOK)
}

func TestLookup_LastRegistrationWins(t *testing.T) {
	r := New()

	info, ok := r.Lookup(3000, model.TCP)
	require.True(t, ok)
	assert.Equal(t, "Grafana", info.Name, "later seed entry for a colliding port must win")
}

func TestDatabasePorts(t *testing.T) {
	r := New()

	dbPorts := r.DatabasePorts()
	assert.Contains(t, dbPorts, 5432)
	assert.Contains(t, dbPorts, 3306)
	assert.Contains(t, dbPorts, 27017)
	assert.NotContains(t, dbPorts, 80)
}

func TestDefault_ReturnsSameInstance(t *testing.T) {
	assert.Same(t, Default(), Default())
}
