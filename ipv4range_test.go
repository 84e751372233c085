package ippool

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRange(t *testing.T, start, end string) *ipv4Range {
	t.Helper()
	r, err := newIPv4Range(netip.MustParseAddr(start), netip.MustParseAddr(end))
	require.NoError(t, err)
	return r
}

func TestNewIPv4Range(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		size       int
		wantErr    bool
	}{
		{name: "full host range", start: "10.0.0.2", end: "10.0.0.254", size: 253},
		{name: "single address", start: "10.0.0.7", end: "10.0.0.7", size: 1},
		{name: "reversed", start: "10.0.0.9", end: "10.0.0.2", wantErr: true},
		{name: "ipv6", start: "::1", end: "::2", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := newIPv4Range(netip.MustParseAddr(tc.start), netip.MustParseAddr(tc.end))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.size, r.Size())
			assert.Equal(t, tc.size, r.Available())
			assert.Zero(t, r.Allocated())
		})
	}
}

func TestIPv4RangeAllocateLowestFirst(t *testing.T) {
	r := mustRange(t, "10.0.0.2", "10.0.0.5")

	for _, want := range []string{"10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5"} {
		got, err := r.Allocate()
		require.NoError(t, err)
		assert.Equal(t, want, got.String())
	}

	_, err := r.Allocate()
	assert.ErrorIs(t, err, errRangeFull)

	require.NoError(t, r.Free(netip.MustParseAddr("10.0.0.4")))
	require.NoError(t, r.Free(netip.MustParseAddr("10.0.0.3")))

	got, err := r.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3", got.String())
}

func TestIPv4RangeFree(t *testing.T) {
	r := mustRange(t, "10.0.0.2", "10.0.0.5")

	assert.Error(t, r.Free(netip.MustParseAddr("10.0.0.2")), "double free")
	assert.Error(t, r.Free(netip.MustParseAddr("10.0.0.1")), "out of range")
	assert.Error(t, r.Free(netip.MustParseAddr("fe80::1")), "not ipv4")

	addr, err := r.Allocate()
	require.NoError(t, err)
	require.NoError(t, r.Free(addr))
	assert.False(t, r.IsAllocated(addr))
	assert.Equal(t, 4, r.Available())
}

func TestIPv4RangeReset(t *testing.T) {
	r := mustRange(t, "10.0.0.2", "10.0.0.3")
	_, _ = r.Allocate()
	_, _ = r.Allocate()
	require.Zero(t, r.Available())

	r.Reset()
	assert.Equal(t, 2, r.Available())
	got, err := r.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", got.String())
}
