//go:build windows

package privilege

import "golang.org/x/sys/windows"

const hintText = "process is not elevated; some registry locations require an administrator token"

// IsElevated returns true if the process token is elevated.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
