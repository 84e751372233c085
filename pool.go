package ippool

import (
	"fmt"
	"net/netip"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "ippool")

// Pool hands out addresses from a single /24 to owners identified by a VM id.
//
// The free set and the owner/address bindings form one aggregate guarded by
// mu: every mutation takes the write lock and changes all of them together,
// reads take the read lock. Nothing inside the critical sections blocks.
type Pool struct {
	prefix  netip.Prefix
	gateway netip.Addr

	mu       sync.RWMutex
	free     *ipv4Range
	bindings *bindings
}

// New builds a pool with every address of the configured range free.
func New(cfg Config) (*Pool, error) {
	prefix, err := ParseNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}

	gateway, err := netip.ParseAddr(cfg.Gateway)
	if err != nil || !gateway.Is4() {
		return nil, fmt.Errorf("invalid gateway address %q", cfg.Gateway)
	}
	if !prefix.Contains(gateway) {
		return nil, fmt.Errorf("gateway %s is not in network %s", gateway, prefix)
	}

	lo, hi := cfg.RangeStart, cfg.RangeEnd
	if lo == 0 && hi == 0 {
		lo, hi = DefaultRangeStart, DefaultRangeEnd
	}
	if lo < 1 || hi > 254 || lo > hi {
		return nil, fmt.Errorf("invalid host range %d-%d, must be within 1-254", lo, hi)
	}
	if gw := gateway.As4()[3]; gw >= lo && gw <= hi {
		return nil, fmt.Errorf("gateway %s lies inside the host range %d-%d", gateway, lo, hi)
	}

	base := prefix.Addr().As4()
	start, end := base, base
	start[3], end[3] = lo, hi
	free, err := newIPv4Range(netip.AddrFrom4(start), netip.AddrFrom4(end))
	if err != nil {
		return nil, err
	}

	return &Pool{
		prefix:   prefix,
		gateway:  gateway,
		free:     free,
		bindings: newBindings(),
	}, nil
}

// ParseNetwork accepts either the three leading octets of a /24
// ("10.0.0") or the CIDR form ("10.0.0.0/24").
func ParseNetwork(network string) (netip.Prefix, error) {
	s := strings.TrimSpace(network)
	if !strings.Contains(s, "/") {
		if strings.Count(s, ".") != 2 {
			return netip.Prefix{}, fmt.Errorf("invalid network prefix %q, want three octets such as 172.16.0", network)
		}
		s += ".0/24"
	}
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid network prefix %q: %w", network, err)
	}
	if !prefix.Addr().Is4() || prefix.Bits() != 24 {
		return netip.Prefix{}, fmt.Errorf("network %q must be an IPv4 /24", network)
	}
	return prefix.Masked(), nil
}

// Allocate returns the address held by vmID, allocating the lowest free one
// if it holds none. Calling it again for the same owner returns the same
// allocation; the hostname given on the first call is the one kept.
func (p *Pool) Allocate(vmID, hostname string) (Allocation, error) {
	p.mu.Lock()
	if rec, ok := p.bindings.owner(vmID); ok {
		a := rec.allocation()
		p.mu.Unlock()
		log.Debugf("VM %s already holds %s", vmID, a.IP)
		return a, nil
	}
	addr, err := p.free.Allocate()
	if err != nil {
		p.mu.Unlock()
		log.Warnf("Unable to allocate IP for VM %s: pool %s exhausted", vmID, p.prefix)
		return Allocation{}, ErrNoAvailableAddresses
	}
	rec := &allocationRecord{Addr: addr, Owner: vmID, Hostname: hostname}
	p.bindings.bind(rec)
	p.mu.Unlock()

	log.Infof("Allocated %s to VM %s", addr, vmID)
	return rec.allocation(), nil
}

// ReleaseByOwner returns the address held by vmID to the pool.
func (p *Pool) ReleaseByOwner(vmID string) (Allocation, error) {
	p.mu.Lock()
	rec, ok := p.bindings.unbindOwner(vmID)
	if !ok {
		p.mu.Unlock()
		return Allocation{}, fmt.Errorf("release VM %s: %w", vmID, ErrNotFound)
	}
	p.mustFree(rec.Addr)
	p.mu.Unlock()

	log.Infof("Released %s from VM %s", rec.Addr, vmID)
	return rec.allocation(), nil
}

// ReleaseByAddress returns ip to the pool whoever holds it. ip must be an
// IPv4 literal inside the pool's network; any such address that is not
// currently bound, the gateway included, is reported as not found.
func (p *Pool) ReleaseByAddress(ip string) (Allocation, error) {
	addr, err := p.parseAddr(ip)
	if err != nil {
		return Allocation{}, err
	}

	p.mu.Lock()
	rec, ok := p.bindings.unbindAddr(addr)
	if !ok {
		p.mu.Unlock()
		return Allocation{}, fmt.Errorf("release %s: %w", addr, ErrNotFound)
	}
	p.mustFree(addr)
	p.mu.Unlock()

	log.Infof("Released %s from VM %s", addr, rec.Owner)
	return rec.allocation(), nil
}

// Get returns the allocation held by vmID.
func (p *Pool) Get(vmID string) (Allocation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.bindings.owner(vmID)
	if !ok {
		return Allocation{}, fmt.Errorf("VM %s: %w", vmID, ErrNotFound)
	}
	return rec.allocation(), nil
}

// List returns every current allocation. The order is unspecified and may
// differ between calls.
func (p *Pool) List() []Allocation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bindings.snapshot()
}

// Stats reports the pool's occupancy.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	total := p.free.Size()
	allocated := p.bindings.len()
	available := p.free.Available()
	p.mu.RUnlock()

	return Stats{
		Network:      p.prefix.String(),
		Gateway:      p.gateway.String(),
		Total:        total,
		Allocated:    allocated,
		Available:    available,
		UsagePercent: float64(allocated) / float64(total) * 100,
	}
}

// Reset drops every allocation. Meant for tests and administrative use.
func (p *Pool) Reset() {
	p.mu.Lock()
	p.bindings.clear()
	p.free.Reset()
	p.mu.Unlock()
	log.Infof("Pool %s reset", p.prefix)
}

// Network returns the pool's network in CIDR form, e.g. "172.16.0.0/24".
func (p *Pool) Network() string {
	return p.prefix.String()
}

// Gateway returns the configured gateway address.
func (p *Pool) Gateway() string {
	return p.gateway.String()
}

func (p *Pool) parseAddr(ip string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%q: %w", ip, ErrInvalidAddress)
	}
	if !p.prefix.Contains(addr) {
		return netip.Addr{}, fmt.Errorf("%s is outside %s: %w", addr, p.prefix, ErrInvalidAddress)
	}
	return addr, nil
}

// mustFree puts an address that was just unbound back into the free set.
// A failure means the bindings and the bitmap disagree.
func (p *Pool) mustFree(addr netip.Addr) {
	if err := p.free.Free(addr); err != nil {
		panic(fmt.Sprintf("BUG: bound address not marked allocated: %v", err))
	}
}
