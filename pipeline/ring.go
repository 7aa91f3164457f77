package pipeline

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/outofforest/sdr/types"
)

// NewRing creates ring of slots assembling hash input of nodes of the layer.
func NewRing(lookahead uint64, replicaID types.ReplicaID, layer uint32) (*Ring, error) {
	if lookahead == 0 {
		return nil, errors.New("lookahead must be positive")
	}

	r := &Ring{
		slots:     make([]byte, lookahead*types.SlotSize),
		missing:   make([]uint32, lookahead),
		lookahead: lookahead,
	}
	for i := range lookahead {
		slot := r.slots[i*types.SlotSize : (i+1)*types.SlotSize]
		WriteHeader(slot, replicaID, layer, 0)
	}
	return r, nil
}

// Ring stores the bounded window of slots used by nodes being prepared by producers.
// Node n uses slot (n-1) mod lookahead. Slot is owned by the producer which claimed the node until the node is
// published, then by the consumer until it advances past the node.
type Ring struct {
	slots     []byte
	missing   []uint32
	lookahead uint64
}

// Lookahead returns the number of slots.
func (r *Ring) Lookahead() uint64 {
	return r.lookahead
}

// Slot returns slot used by the node.
func (r *Ring) Slot(node uint64) []byte {
	i := (node - FirstNode) % r.lookahead
	return r.slots[i*types.SlotSize : (i+1)*types.SlotSize : (i+1)*types.SlotSize]
}

// Missing returns the mask of base parents the producer left for the consumer.
func (r *Ring) Missing(node uint64) *uint32 {
	return &r.missing[(node-FirstNode)%r.lookahead]
}

// WriteHeader stores the fixed header of the hash input:
// replica ID, big-endian layer, big-endian node and zero padding.
func WriteHeader(b []byte, replicaID types.ReplicaID, layer uint32, node uint64) {
	copy(b, replicaID[:])
	// Layers below 256 leave bytes 32..34 zero, so only byte 35 carries the layer.
	binary.BigEndian.PutUint32(b[types.LayerOffset:], layer)
	WriteNode(b, node)
	clear(b[types.NodeOffset+types.UInt64Length : types.HeaderSize])
}

// WriteNode stores big-endian node index in the header.
func WriteNode(b []byte, node uint64) {
	binary.BigEndian.PutUint64(b[types.NodeOffset:], node)
}

// Payload returns area of the slot storing parent labels.
func Payload(slot []byte) []byte {
	return slot[types.HeaderSize:]
}

// ParentPayload returns area of the slot storing label of the parent in slot k.
func ParentPayload(slot []byte, k int) []byte {
	offset := types.HeaderSize + k*types.NodeSize
	return slot[offset : offset+types.NodeSize]
}
