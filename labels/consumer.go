package labels

import (
	"context"
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/outofforest/logger"
	"github.com/outofforest/sdr/hash"
	"github.com/outofforest/sdr/pipeline"
	"github.com/outofforest/sdr/types"
)

const (
	// baseRounds is the number of times the payload of base parents is hashed in the first layer.
	baseRounds = 6

	// expanderRounds is the number of times the complete payload is hashed in expander layers.
	expanderRounds = 2

	// expanderFinalParents is the number of parents hashed in the final pass of expander layers.
	expanderFinalParents = 9

	// finalBlockLength is the message length in bits stored in the last block.
	finalBlockLength = 9984

	// fieldMask clears two most significant bits of the label, so it is an element of the scalar field.
	fieldMask = 0x3f
)

// consume hashes nodes in order, starting from the first node which has no parents.
func (r *run) consume(ctx context.Context) error {
	log := logger.Get(ctx)
	h := hash.New()

	r.hashFirstNode(h)
	r.cursors.Advance()

	for node := uint64(pipeline.FirstNode); node < r.numOfNodes; {
		ready, stalled, err := r.cursors.WaitForProducer(ctx, node)
		if err != nil {
			return err
		}
		if stalled {
			r.stalls++
			log.Debug("Producer not ready", zap.Uint32("layer", r.layer), zap.Uint64("node", node))
		}

		for ; node <= ready; node++ {
			r.finalize(h, node)
			r.cursors.Advance()
		}
	}
	return nil
}

// hashFirstNode computes label of the node 0, which is a plain SHA-256 of the header.
func (r *run) hashFirstNode(h *hash.Hasher) {
	var blocks [2 * types.HashBlockSize]byte
	pipeline.WriteHeader(blocks[:], r.replicaID, r.layer, 0)
	blocks[types.HeaderSize] = 0x80
	binary.BigEndian.PutUint64(blocks[len(blocks)-types.UInt64Length:], types.HeaderSize*8)

	digest := r.current.Digest(0)
	*digest = hash.InitialDigest
	h.Block(digest, blocks[:])
	emit(r.current.Label(0), digest)
}

// finalize completes the hash input of the node and computes its label.
func (r *run) finalize(h *hash.Hasher, node uint64) {
	slot := r.ring.Slot(node)

	// All the base parents precede the node, so they are final now.
	missing := *r.ring.Missing(node)
	for k := range types.ParentCountBase {
		if missing&(1<<k) != 0 {
			copy(pipeline.ParentPayload(slot, k), r.resolver.Final(node, k)[:])
		}
	}

	digest := r.current.Digest(node)
	payload := pipeline.Payload(slot)
	if r.layer == 1 {
		base := payload[:types.ParentCountBase*types.NodeSize]
		for range baseRounds {
			h.Block(digest, base)
		}

		final := payload[:types.HashBlockSize]
		pad(final[types.NodeSize:])
		h.Block(digest, final)
	} else {
		for range expanderRounds {
			h.Block(digest, payload)
		}

		final := payload[:(expanderFinalParents+1)*types.NodeSize]
		pad(final[expanderFinalParents*types.NodeSize:])
		h.Block(digest, final)
	}

	emit(r.current.Label(node), digest)
}

// pad overwrites the upper half of the last block with padding and the fixed message length.
// It destroys a parent label stored there, producer or consumer writes it again before the slot is reused.
func pad(b []byte) {
	clear(b)
	b[0] = 0x80
	binary.BigEndian.PutUint64(b[len(b)-types.UInt64Length:], finalBlockLength)
}

func emit(label *types.Label, digest *types.Digest) {
	hash.Emit(label, digest)
	label[types.NodeSize-1] &= fieldMask
}
