package test

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/outofforest/sdr/parents"
	"github.com/outofforest/sdr/types"
)

// referenceParents is the number of parent labels in the hashed message, parents are repeated cyclically to fill it.
const referenceParents = 37

// ReferenceLabels computes labels of the layer one by one, hashing the complete message with crypto/sha256.
// It is slow but straightforward, used to verify the pipeline.
func ReferenceLabels(
	replicaID types.ReplicaID,
	layer uint32,
	numOfNodes uint64,
	table *parents.Table,
	previous []types.Label,
) []types.Label {
	labels := make([]types.Label, numOfNodes)
	message := make([]byte, 0, types.HeaderSize+referenceParents*types.NodeSize)
	parentLabels := make([]*types.Label, 0, types.ParentCount)
	for node := range numOfNodes {
		message = message[:types.HeaderSize]
		clear(message)
		copy(message, replicaID[:])
		binary.BigEndian.PutUint32(message[types.LayerOffset:], layer)
		binary.BigEndian.PutUint64(message[types.NodeOffset:], node)

		if node > 0 {
			p := table.Parents(node)
			parentLabels = parentLabels[:0]
			for k := range types.ParentCountBase {
				parentLabels = append(parentLabels, &labels[p[k]])
			}
			if layer > 1 {
				for k := types.ParentCountBase; k < types.ParentCount; k++ {
					parentLabels = append(parentLabels, &previous[p[k]])
				}
			}
			for i := range referenceParents {
				message = append(message, parentLabels[i%len(parentLabels)][:]...)
			}
		}

		labels[node] = sha256.Sum256(message)
		labels[node][types.NodeSize-1] &= 0x3f
	}
	return labels
}
