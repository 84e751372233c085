package ippool

import "net/netip"

// bindings is the two-way owner <-> address index. Every mutation touches
// both maps so that byAddr[a].Owner == o iff byOwner[o].Addr == a.
// Callers hold the Pool lock.
type bindings struct {
	byOwner map[string]*allocationRecord
	byAddr  map[netip.Addr]*allocationRecord
}

func newBindings() *bindings {
	return &bindings{
		byOwner: map[string]*allocationRecord{},
		byAddr:  map[netip.Addr]*allocationRecord{},
	}
}

func (b *bindings) bind(rec *allocationRecord) {
	b.byOwner[rec.Owner] = rec
	b.byAddr[rec.Addr] = rec
}

func (b *bindings) owner(owner string) (*allocationRecord, bool) {
	rec, ok := b.byOwner[owner]
	return rec, ok
}

func (b *bindings) addr(addr netip.Addr) (*allocationRecord, bool) {
	rec, ok := b.byAddr[addr]
	return rec, ok
}

func (b *bindings) unbindOwner(owner string) (*allocationRecord, bool) {
	rec, ok := b.byOwner[owner]
	if !ok {
		return nil, false
	}
	delete(b.byOwner, owner)
	delete(b.byAddr, rec.Addr)
	return rec, true
}

func (b *bindings) unbindAddr(addr netip.Addr) (*allocationRecord, bool) {
	rec, ok := b.byAddr[addr]
	if !ok {
		return nil, false
	}
	delete(b.byAddr, addr)
	delete(b.byOwner, rec.Owner)
	return rec, true
}

func (b *bindings) len() int {
	return len(b.byAddr)
}

// snapshot copies every binding out in map iteration order.
func (b *bindings) snapshot() []Allocation {
	out := make([]Allocation, 0, len(b.byAddr))
	for _, rec := range b.byAddr {
		out = append(out, rec.allocation())
	}
	return out
}

func (b *bindings) clear() {
	clear(b.byOwner)
	clear(b.byAddr)
}
