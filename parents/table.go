package parents

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/outofforest/photon"
	"github.com/outofforest/sdr/alloc"
	"github.com/outofforest/sdr/types"
)

// PreviousNodeSlot is the base parent slot which, by construction of the graph, points to the preceding node.
const PreviousNodeSlot = types.ParentCountBase - 1

// NewTable returns parent table backed by the flat index array.
func NewTable(indices []uint32) (*Table, error) {
	if len(indices) == 0 || len(indices)%types.ParentCount != 0 {
		return nil, errors.Errorf("parent table of %d indices is not a multiple of record size %d", len(indices),
			types.ParentCount)
	}
	return &Table{
		records: photon.SliceFromPointer[types.Parents](unsafe.Pointer(&indices[0]),
			len(indices)/types.ParentCount),
	}, nil
}

// Allocate allocates empty parent table for numOfNodes nodes.
func Allocate(numOfNodes uint64, config alloc.Config) (*Table, func(), error) {
	if numOfNodes == 0 {
		return nil, nil, errors.New("parent table must contain at least one node")
	}
	dataP, deallocFunc, err := alloc.Allocate(numOfNodes*types.ParentsRecordSize, types.Alignment, config)
	if err != nil {
		return nil, nil, err
	}
	return &Table{
		records: photon.SliceFromPointer[types.Parents](dataP, int(numOfNodes)),
	}, deallocFunc, nil
}

// Table is the read-only array of parent indices, one fixed-size record per node.
type Table struct {
	records []types.Parents
}

// NumOfNodes returns the number of nodes covered by the table.
func (t *Table) NumOfNodes() uint64 {
	return uint64(len(t.records))
}

// Parents returns parents of the node.
func (t *Table) Parents(node uint64) *types.Parents {
	return &t.records[node]
}

// Validate checks that the table describes a graph labels can be computed for.
// Base parents of every node except the first one must precede it and expander parents must exist.
func (t *Table) Validate() error {
	numOfNodes := t.NumOfNodes()
	for node := uint64(1); node < numOfNodes; node++ {
		p := t.Parents(node)
		for k := range types.ParentCountBase {
			if uint64(p[k]) >= node {
				return errors.Errorf("base parent %d of node %d points to node %d", k, node, p[k])
			}
		}
		for k := types.ParentCountBase; k < types.ParentCount; k++ {
			if uint64(p[k]) >= numOfNodes {
				return errors.Errorf("expander parent %d of node %d points to node %d out of %d", k, node, p[k],
					numOfNodes)
			}
		}
	}
	return nil
}

// CheckPreviousNode verifies that every node above the threshold has its preceding node in the PreviousNodeSlot.
// Producers never try to resolve that slot for such nodes.
func (t *Table) CheckPreviousNode(threshold uint64) error {
	for node := threshold + 1; node < t.NumOfNodes(); node++ {
		if p := t.Parents(node)[PreviousNodeSlot]; uint64(p) != node-1 {
			return errors.Errorf("base parent %d of node %d points to node %d instead of the preceding one",
				PreviousNodeSlot, node, p)
		}
	}
	return nil
}
