//go:build !linux

package platform

import "runtime"

// HostMemory approximates the resident set from the Go runtime on
// platforms without a procfs. Headroom is unknown here.
type HostMemory struct{}

func NewHostMemory() *HostMemory { return &HostMemory{} }

func (*HostMemory) ResidentMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.Sys) / (1024 * 1024)
}

func (*HostMemory) AvailableMB() *float64 { return nil }
