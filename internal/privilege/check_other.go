//go:build !windows

package privilege

import "os"

const hintText = "process is not running as root; some configuration snapshots may be unreadable"

// IsElevated returns true if the process is running with UID 0 (root).
func IsElevated() bool {
	return os.Getuid() == 0
}
