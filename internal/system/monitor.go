package system

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Facts describes the host a burn runs on. Fields the OS does not
// report are left zero.
type Facts struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	Arch            string `json:"arch"`
	MemoryTotal     uint64 `json:"memory_total"`
	// ScratchFree is the free space under the directory images are read
	// from, when one is given.
	ScratchFree uint64 `json:"scratch_free,omitempty"`
}

// CollectFacts gathers host facts. Individual probe failures are ignored;
// only what could be read is returned.
func CollectFacts(ctx context.Context, scratchDir string) Facts {
	facts := Facts{OS: runtime.GOOS, Arch: runtime.GOARCH}

	if hostInfo, err := host.InfoWithContext(ctx); err == nil {
		facts.Hostname = hostInfo.Hostname
		facts.Platform = hostInfo.Platform
		facts.PlatformVersion = hostInfo.PlatformVersion
		facts.KernelVersion = hostInfo.KernelVersion
		if hostInfo.KernelArch != "" {
			facts.Arch = hostInfo.KernelArch
		}
	}

	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		facts.MemoryTotal = memInfo.Total
	}

	if scratchDir != "" {
		if usage, err := disk.UsageWithContext(ctx, scratchDir); err == nil {
			facts.ScratchFree = usage.Free
		}
	}

	return facts
}
