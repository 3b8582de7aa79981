//go:build linux

package platform

import (
	"os"
	"strconv"
	"strings"
)

// HostMemory reads resident size from /proc/self/statm and headroom from
// /proc/meminfo.
type HostMemory struct {
	pageMB float64
}

func NewHostMemory() *HostMemory {
	return &HostMemory{pageMB: float64(os.Getpagesize()) / (1024 * 1024)}
}

func (h *HostMemory) ResidentMB() float64 {
	b, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0
	}
	fields := strings.Fields(string(b))
	if len(fields) < 2 {
		return 0
	}
	pages, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0
	}
	return pages * h.pageMB
}

func (h *HostMemory) AvailableMB() *float64 {
	b, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return nil
	}
	for _, line := range strings.Split(string(b), "\n") {
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil
		}
		mb := kb / 1024
		return &mb
	}
	return nil
}
