package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/monitor"
)

func TestResolveTarget_ByPID(t *testing.T) {
	target, err := resolveTarget(opts{pid: 42})

	require.NoError(t, err)
	assert.Equal(t, monitor.TargetPID, target.Mode)
	assert.Equal(t, 42, target.PID)
}

func TestResolveTarget_ByName(t *testing.T) {
	target, err := resolveTarget(opts{name: "java", match: "app.jar"})

	require.NoError(t, err)
	assert.Equal(t, monitor.TargetName, target.Mode)
	assert.Equal(t, "java", target.NamePattern)
	assert.Equal(t, "app.jar", target.CommandFilter)
}

func TestResolveTarget_TopCPU_DefaultN(t *testing.T) {
	target, err := resolveTarget(opts{top: "cpu"})

	require.NoError(t, err)
	assert.Equal(t, monitor.TargetTopCPU, target.Mode)
	assert.Equal(t, 10, target.TopN)
}

func TestResolveTarget_TopMemory_ExplicitN(t *testing.T) {
	target, err := resolveTarget(opts{top: "memory", count: 5})

	require.NoError(t, err)
	assert.Equal(t, monitor.TargetTopMemory, target.Mode)
	assert.Equal(t, 5, target.TopN)
}

func TestResolveTarget_TopInvalidKind(t *testing.T) {
	_, err := resolveTarget(opts{top: "disk"})
	assert.Error(t, err)
}

func TestResolveTarget_NoneSelected(t *testing.T) {
	_, err := resolveTarget(opts{})
	assert.Error(t, err)
}

func TestResolveTarget_MutuallyExclusive(t *testing.T) {
	_, err := resolveTarget(opts{pid: 1, name: "java"})
	assert.Error(t, err)
}

func TestErrRecoverable_EmptyMessage(t *testing.T) {
	var err error = errRecoverable{}
	assert.Empty(t, err.Error())
}
