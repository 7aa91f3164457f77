package labels

import (
	"context"

	"github.com/outofforest/sdr/hash"
	"github.com/outofforest/sdr/parents"
	"github.com/outofforest/sdr/pipeline"
	"github.com/outofforest/sdr/types"
)

// allBaseParents is the mask marking every base parent as missing.
const allBaseParents = 1<<types.ParentCountBase - 1

// produce prepares slots of nodes claimed from the shared cursor until all the nodes are claimed.
func (r *run) produce(ctx context.Context) error {
	h := hash.New()
	for {
		start := r.cursors.Claim(r.config.Stride)
		if start >= r.numOfNodes {
			return nil
		}
		count := min(r.config.Stride, r.numOfNodes-start)

		for node := start; node < start+count; node++ {
			if err := r.cursors.WaitForSlot(ctx, node, r.config.Lookahead); err != nil {
				return err
			}
			r.prepare(h, node)
		}

		if err := r.cursors.Publish(ctx, start, count); err != nil {
			return err
		}
	}
}

// prepare assembles the hash input of the node and hashes its header.
func (r *run) prepare(h *hash.Hasher, node uint64) {
	slot := r.ring.Slot(node)
	pipeline.WriteNode(slot, node)

	// Header is the first block of the input, its digest is kept in the node's cell until the consumer takes over.
	digest := r.current.Digest(node)
	*digest = hash.InitialDigest
	h.Block(digest, slot[:types.HeaderSize])

	missing := r.ring.Missing(node)
	if r.config.DeferBaseParents || node <= r.config.PrefetchFrom {
		*missing = allBaseParents
	} else {
		// The preceding node is being hashed right now, there is no point in checking it.
		*missing = 1 << parents.PreviousNodeSlot
		for k := range parents.PreviousNodeSlot {
			label, ok := r.resolver.Base(node, k)
			if !ok {
				*missing |= 1 << k
				continue
			}
			copy(pipeline.ParentPayload(slot, k), label[:])
		}
	}

	if r.layer == 1 {
		return
	}
	for k := types.ParentCountBase; k < types.ParentCount; k++ {
		copy(pipeline.ParentPayload(slot, k), r.resolver.Expander(node, k)[:])
	}
}
