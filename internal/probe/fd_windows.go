//go:build windows

package probe

import "github.com/shirou/gopsutil/v4/process"

// Windows has no open-file-descriptor concept exposed the same way; the
// handle count gopsutil can read via NumFDs on this platform is not
// reliably comparable to POSIX fd counts, so this reports 0 (unknown)
// rather than a misleading number.
func openFileDescriptors(proc *process.Process, pid int) int {
	return 0
}
