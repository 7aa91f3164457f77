package parents

import (
	"encoding/binary"

	"github.com/cespare/xxhash"

	"github.com/outofforest/sdr/alloc"
	"github.com/outofforest/sdr/types"
)

// Number of base parents taken from the close neighbourhood of the node.
const closeParents = 2

// closeDistance is the maximum distance of close parents.
const closeDistance = 16

// NewSynthetic generates valid pseudorandom parent table deterministically derived from the seed.
// It follows the conventions of real graphs: base parents precede the node and the last base parent is
// the preceding node. Used for benchmarks and tests when parent cache is not available.
func NewSynthetic(numOfNodes, seed uint64, config alloc.Config) (*Table, func(), error) {
	table, deallocFunc, err := Allocate(numOfNodes, config)
	if err != nil {
		return nil, nil, err
	}

	var preimage [3 * types.UInt64Length]byte
	binary.LittleEndian.PutUint64(preimage[:], seed)
	random := func(node uint64, slot int) uint64 {
		binary.LittleEndian.PutUint64(preimage[types.UInt64Length:], node)
		binary.LittleEndian.PutUint64(preimage[2*types.UInt64Length:], uint64(slot))
		return xxhash.Sum64(preimage[:])
	}

	for node := uint64(1); node < numOfNodes; node++ {
		p := table.Parents(node)
		for k := range PreviousNodeSlot {
			if k < closeParents {
				p[k] = uint32(node - 1 - random(node, k)%min(node, closeDistance))
				continue
			}
			p[k] = uint32(random(node, k) % node)
		}
		p[PreviousNodeSlot] = uint32(node - 1)
		for k := types.ParentCountBase; k < types.ParentCount; k++ {
			p[k] = uint32(random(node, k) % numOfNodes)
		}
	}

	return table, deallocFunc, nil
}
