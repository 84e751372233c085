package ippool

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"

	"github.com/bits-and-blooms/bitset"
)

// This is a contiguous range of IPv4 addresses that is managed as a unit.
// A set bit marks an allocated address. The range does no locking of its
// own, the owning Pool serialises access.

type ipv4Range struct {
	Start  uint32
	End    uint32
	bitmap *bitset.BitSet
}

var errRangeFull = errors.New("no IPs in the range to allocate")

func newIPv4Range(start, end netip.Addr) (*ipv4Range, error) {
	if !start.Is4() || !end.Is4() {
		return nil, fmt.Errorf("invalid IPv4 addresses given to create the range: [%s,%s]", start, end)
	}
	s, e := addrToUint32(start), addrToUint32(end)
	if s > e {
		return nil, errors.New("no IPs in the given range to allocate")
	}

	return &ipv4Range{
		Start:  s,
		End:    e,
		bitmap: bitset.New(uint(e - s + 1)),
	}, nil
}

// Allocate marks the lowest free address of the range as allocated and
// returns it.
func (r *ipv4Range) Allocate() (netip.Addr, error) {
	next, ok := r.bitmap.NextClear(0)
	if !ok {
		return netip.Addr{}, errRangeFull
	}
	r.bitmap.Set(next)
	return r.toAddr(uint32(next)), nil
}

// Free releases the address back to the range.
func (r *ipv4Range) Free(addr netip.Addr) error {
	offset, err := r.toOffset(addr)
	if err != nil {
		return err
	}
	if !r.bitmap.Test(offset) {
		return fmt.Errorf("ip address %s is not allocated in this range", addr)
	}
	r.bitmap.Clear(offset)
	return nil
}

func (r *ipv4Range) IsAllocated(addr netip.Addr) bool {
	offset, err := r.toOffset(addr)
	if err != nil {
		return false
	}
	return r.bitmap.Test(offset)
}

// Size is the number of addresses in the range, allocated or not.
func (r *ipv4Range) Size() int {
	return int(r.End-r.Start) + 1
}

func (r *ipv4Range) Allocated() int {
	return int(r.bitmap.Count())
}

func (r *ipv4Range) Available() int {
	return r.Size() - r.Allocated()
}

// Reset marks every address of the range as free.
func (r *ipv4Range) Reset() {
	r.bitmap.ClearAll()
}

func (r *ipv4Range) toAddr(offset uint32) netip.Addr {
	if offset > r.End-r.Start {
		panic("BUG: offset out of bounds")
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], r.Start+offset)
	return netip.AddrFrom4(b)
}

func (r *ipv4Range) toOffset(addr netip.Addr) (uint, error) {
	if !addr.Is4() {
		return 0, fmt.Errorf("%s is not an IPv4 address", addr)
	}
	u := addrToUint32(addr)
	if u < r.Start || u > r.End {
		return 0, errors.New("IP address out of range")
	}
	return uint(u - r.Start), nil
}

func addrToUint32(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}
