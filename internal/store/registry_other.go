//go:build !windows

package store

import (
	"fmt"
	"runtime"
)

// PlatformError represents a backend that cannot run on this platform.
type PlatformError struct {
	Backend  string
	Platform string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s store is not supported on %s", e.Backend, e.Platform)
}

func (e *PlatformError) Is(target error) bool {
	return target == ErrNotSupported
}

// Registry is unavailable outside Windows.
type Registry struct{}

// NewRegistry returns a PlatformError on non-Windows platforms.
func NewRegistry() (*Registry, error) {
	return nil, &PlatformError{Backend: string(KindRegistry), Platform: runtime.GOOS}
}

// OpenReadOnly always fails outside Windows.
func (r *Registry) OpenReadOnly(location string) (Handle, error) {
	return nil, &PlatformError{Backend: string(KindRegistry), Platform: runtime.GOOS}
}
