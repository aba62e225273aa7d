package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ritzau/topobench/pkg/logging"
)

// Setting is one effective configuration value
type Setting struct {
	Key   string
	Value string
}

// HostInfo describes the machine a run executed on
type HostInfo struct {
	Hostname    string
	Platform    string
	CPUs        int
	MemoryTotal uint64
}

// RunInfo is everything needed to reproduce a run
type RunInfo struct {
	RunID    string
	Seed     uint64
	Settings []Setting
	Host     HostInfo
}

// CollectHost queries the local machine. Fields that cannot be read stay
// zero and are logged.
func CollectHost() HostInfo {
	var h HostInfo
	if n, err := cpu.Counts(true); err == nil {
		h.CPUs = n
	} else {
		logging.Debug("cpu count unavailable", "error", err)
	}
	if v, err := mem.VirtualMemory(); err == nil {
		h.MemoryTotal = v.Total
	} else {
		logging.Debug("memory size unavailable", "error", err)
	}
	if info, err := host.Info(); err == nil {
		h.Hostname = info.Hostname
		h.Platform = info.Platform + " " + info.PlatformVersion
	} else {
		logging.Debug("host info unavailable", "error", err)
	}
	return h
}

// WriteRunInfo writes "-key value" lines. The seed goes last.
func WriteRunInfo(w io.Writer, info RunInfo) error {
	bw := bufio.NewWriter(w)
	for _, s := range info.Settings {
		fmt.Fprintf(bw, "-%s %s\n", s.Key, s.Value)
	}
	fmt.Fprintf(bw, "-runid %s\n", info.RunID)
	if info.Host.Hostname != "" {
		fmt.Fprintf(bw, "-host %s\n", info.Host.Hostname)
	}
	if info.Host.Platform != "" {
		fmt.Fprintf(bw, "-platform %s\n", info.Host.Platform)
	}
	fmt.Fprintf(bw, "-cpus %d\n", info.Host.CPUs)
	fmt.Fprintf(bw, "-memory %d\n", info.Host.MemoryTotal)
	fmt.Fprintf(bw, "-seed %d", info.Seed)
	return bw.Flush()
}
