package ippool

// IPv4Allocator is what transports need from a pool. *Pool implements it.
type IPv4Allocator interface {
	Allocate(vmID, hostname string) (Allocation, error)
	ReleaseByOwner(vmID string) (Allocation, error)
	ReleaseByAddress(ip string) (Allocation, error)
	Get(vmID string) (Allocation, error)
	List() []Allocation
	Stats() Stats
	Network() string
	Gateway() string
}

var _ IPv4Allocator = (*Pool)(nil)
