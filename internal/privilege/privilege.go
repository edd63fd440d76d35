// Package privilege reports whether the process holds administrative rights.
// It never attempts to acquire them.
package privilege

// Hint returns an operator hint for a failed read, or "" when the process is
// already elevated.
func Hint() string {
	if IsElevated() {
		return ""
	}
	return hintText
}
