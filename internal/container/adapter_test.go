package container

import (
	"strings"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/stretchr/testify/assert"
)

func TestExtractContainerID_CgroupfsDriver(t *testing.T) {
	id := strings.Repeat("a", 64)
	line := "12:pids:/docker/" + id

	got, ok := extractContainerID(line)

	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestExtractContainerID_SystemdDriver(t *testing.T) {
	id := strings.Repeat("b", 64)
	line := "1:name=systemd:/system.slice/docker-" + id + ".scope"

	got, ok := extractContainerID(line)

	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestExtractContainerID_NoMatch(t *testing.T) {
	_, ok := extractContainerID("0::/user.slice/user-1000.slice")
	assert.False(t, ok)
}

func TestExtractContainerID_WrongLength(t *testing.T) {
	_, ok := extractContainerID("12:pids:/docker/tooshort")
	assert.False(t, ok)
}

func TestIsHex(t *testing.T) {
	assert.True(t, isHex("0123456789abcdef"))
	assert.False(t, isHex("0123456789ABCDEF"), "uppercase hex is not matched, mirroring real cgroup ids")
	assert.False(t, isHex("not-hex-at-all"))
}

func TestShortID_TruncatesLongIDs(t *testing.T) {
	long := strings.Repeat("f", 64)
	assert.Equal(t, long[:12], shortID(long))
}

func TestShortID_LeavesShortIDsAlone(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
}

func TestToContainerInfo_StripsLeadingSlashFromName(t *testing.T) {
	c := types.Container{
		ID:     strings.Repeat("c", 64),
		Names:  []string{"/web-1"},
		Image:  "nginx:latest",
		Status: "Up 2 hours",
	}

	info := toContainerInfo(c)

	assert.Equal(t, "web-1", info.ContainerName)
	assert.Equal(t, "nginx:latest", info.Image)
	assert.Equal(t, "Up 2 hours", info.Status)
	assert.Len(t, info.ContainerID, 12)
}

func TestToContainerInfo_NoNames(t *testing.T) {
	c := types.Container{ID: strings.Repeat("d", 64)}

	info := toContainerInfo(c)

	assert.Empty(t, info.ContainerName)
}

func TestContainerIDFromCgroup_NoSuchProcess(t *testing.T) {
	// A pid this large will never exist, so the /proc read fails and the
	// function reports "no cgroup id found" rather than erroring.
	_, ok := containerIDFromCgroup(1 << 30)
	assert.False(t, ok)
}
