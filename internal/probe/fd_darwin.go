//go:build darwin

package probe

import "github.com/shirou/gopsutil/v4/process"

// openFileDescriptors on macOS goes through gopsutil, which shells out to
// lsof under the hood — there is no /proc to read directly.
func openFileDescriptors(proc *process.Process, pid int) int {
	n, err := proc.NumFDs()
	if err != nil {
		return 0
	}
	return int(n)
}
