package ippool

import (
	"net/netip"
)

const (
	DefaultRangeStart = 2
	DefaultRangeEnd   = 254
)

// Config describes the address block a Pool hands out. It is read once by
// New and never consulted again.
type Config struct {
	// Network is the first three octets of the /24, e.g. "172.16.0".
	Network string
	// Gateway is advertised to callers and never allocated.
	Gateway string
	// RangeStart and RangeEnd bound the allocatable host numbers, inclusive.
	RangeStart uint8
	RangeEnd   uint8
}

// Allocation is an address held by an owner.
type Allocation struct {
	IP       netip.Addr `json:"ip"`
	VMID     string     `json:"vm_id"`
	Hostname string     `json:"hostname,omitempty"`
}

// Stats is a point-in-time view of pool usage.
type Stats struct {
	Network   string `json:"network"`
	Gateway   string `json:"gateway"`
	Total     int    `json:"total"`
	Allocated int    `json:"allocated"`
	Available int    `json:"available"`
	// UsagePercent is Allocated/Total*100, unrounded.
	UsagePercent float64 `json:"usage"`
}

type allocationRecord struct {
	Addr     netip.Addr
	Owner    string
	Hostname string
}

func (r *allocationRecord) allocation() Allocation {
	return Allocation{
		IP:       r.Addr,
		VMID:     r.Owner,
		Hostname: r.Hostname,
	}
}
