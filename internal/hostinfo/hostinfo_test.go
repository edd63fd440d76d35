package hostinfo

import (
	"runtime"
	"testing"
)

func TestCollectFillsIdentity(t *testing.T) {
	info := Collect()

	if info.Hostname == "" {
		t.Error("hostname should never be empty")
	}
	if info.OS == "" {
		t.Error("os should never be empty")
	}
	if info.Architecture != runtime.GOARCH {
		t.Errorf("architecture = %q, want %q", info.Architecture, runtime.GOARCH)
	}
}
