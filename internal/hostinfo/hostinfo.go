// Package hostinfo identifies the machine a check ran on.
package hostinfo

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

// Info describes the host a check was run against.
type Info struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platformVersion,omitempty"`
	KernelVersion   string `json:"kernelVersion,omitempty"`
	Architecture    string `json:"architecture"`
}

// Collect gathers host identity. It falls back to the runtime's view when
// the platform query fails.
func Collect() Info {
	info := Info{
		Hostname:     hostname(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	hi, err := host.Info()
	if err != nil || hi == nil {
		return info
	}

	if hi.Hostname != "" {
		info.Hostname = hi.Hostname
	}
	if hi.OS != "" {
		info.OS = hi.OS
	}
	info.Platform = hi.Platform
	info.PlatformVersion = hi.PlatformVersion
	info.KernelVersion = hi.KernelVersion
	return info
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
