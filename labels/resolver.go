package labels

import (
	"github.com/outofforest/sdr/alloc"
	"github.com/outofforest/sdr/parents"
	"github.com/outofforest/sdr/pipeline"
	"github.com/outofforest/sdr/types"
)

type resolver struct {
	parents  *parents.Table
	current  *alloc.Layer
	previous *alloc.Layer
	cursors  *pipeline.Cursors
}

// Base returns label of the base parent in slot k if it has been finalized already.
func (r resolver) Base(node uint64, k int) (*types.Label, bool) {
	p := uint64(r.parents.Parents(node)[k])
	if p >= r.cursors.Consumer() {
		return nil, false
	}
	return r.current.Label(p), true
}

// Final returns label of the base parent in slot k, caller guarantees it has been finalized.
func (r resolver) Final(node uint64, k int) *types.Label {
	return r.current.Label(uint64(r.parents.Parents(node)[k]))
}

// Expander returns label of the expander parent in slot k.
// Previous layer is complete before the current one starts, so expander parents are always available.
func (r resolver) Expander(node uint64, k int) *types.Label {
	return r.previous.Label(uint64(r.parents.Parents(node)[k]))
}
