package alloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/sdr/types"
)

func TestAllocate(t *testing.T) {
	const (
		size      = 1000
		alignment = 64
	)

	requireT := require.New(t)

	p, deallocF, err := Allocate(size, alignment, Config{})
	requireT.NoError(err)
	t.Cleanup(deallocF)

	requireT.Zero(uintptr(p) % alignment)

	b := unsafe.Slice((*byte)(p), size)
	for i := range size {
		requireT.Zero(b[i])
		b[i] = byte(i)
	}
}

func TestAllocateLocked(t *testing.T) {
	requireT := require.New(t)

	p, deallocF, err := Allocate(4096, types.Alignment, Config{Lock: true})
	if err != nil {
		// RLIMIT_MEMLOCK might be too low in the sandbox.
		t.Skipf("memory locking unavailable: %s", err)
	}
	t.Cleanup(deallocF)

	requireT.Zero(uintptr(p) % types.Alignment)
}

func TestAllocateRejectsInvalidAlignment(t *testing.T) {
	_, _, err := Allocate(1000, 11, Config{})
	require.Error(t, err)
}

func TestAllocateRejectsZeroSize(t *testing.T) {
	_, _, err := Allocate(0, types.Alignment, Config{})
	require.Error(t, err)
}

func TestLayer(t *testing.T) {
	const numOfNodes = 100

	requireT := require.New(t)

	layer, deallocF, err := NewLayer(numOfNodes, Config{})
	requireT.NoError(err)
	t.Cleanup(deallocF)

	requireT.EqualValues(numOfNodes, layer.NumOfNodes())
	requireT.Len(layer.Labels(), numOfNodes)
	requireT.Len(layer.Bytes(), numOfNodes*types.NodeSize)
	requireT.Zero(uintptr(unsafe.Pointer(layer.Label(0))) % types.Alignment)

	layer.Label(7)[0] = 0x01
	layer.Label(7)[types.NodeSize-1] = 0x02
	requireT.Equal(byte(0x01), layer.Bytes()[7*types.NodeSize])
	requireT.Equal(byte(0x02), layer.Bytes()[8*types.NodeSize-1])

	layer.Digest(9)[0] = 0xffffffff
	requireT.Equal(types.Label{0xff, 0xff, 0xff, 0xff}, *layer.Label(9))

	layer.Fill(0xaa)
	for _, b := range layer.Bytes() {
		requireT.Equal(byte(0xaa), b)
	}
}

func TestLayerRejectsZeroNodes(t *testing.T) {
	_, _, err := NewLayer(0, Config{})
	require.Error(t, err)
}
