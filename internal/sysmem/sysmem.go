// Package sysmem discovers physical RAM for the memory planner's cap check.
package sysmem

import (
	"golang.org/x/sys/unix"

	"github.com/daqtools/scopeacq/internal/constants"
)

// TotalBytes returns the host's total physical RAM in bytes, the way
// get_total_ram_bytes() reads _SC_PHYS_PAGES * _SC_PAGESIZE. It falls back
// to constants.FallbackRAMBytes if the sysinfo syscall fails.
func TotalBytes() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return constants.FallbackRAMBytes
	}
	total := uint64(info.Totalram) * uint64(info.Unit)
	if total == 0 {
		return constants.FallbackRAMBytes
	}
	return total
}
