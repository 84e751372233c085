package ippool

import "errors"

var (
	// ErrNoAvailableAddresses is returned when every address in the range is
	// held. Callers may retry once something is released.
	ErrNoAvailableAddresses = errors.New("no available IPs in pool")
	// ErrNotFound is returned when the owner or address has no allocation.
	ErrNotFound = errors.New("IP not found in allocations")
	// ErrInvalidAddress is returned for addresses that do not parse as IPv4 or
	// fall outside the configured range.
	ErrInvalidAddress = errors.New("invalid IP address")
)
