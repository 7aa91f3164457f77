package labels

import (
	"math"

	"github.com/pkg/errors"

	"github.com/outofforest/sdr/alloc"
	"github.com/outofforest/sdr/parents"
	"github.com/outofforest/sdr/types"
)

// Config stores tuning parameters of the pipeline computing one layer.
// None of them affects computed labels.
type Config struct {
	// Lookahead is the number of ring slots, it limits how far producers may run ahead of the consumer.
	Lookahead uint64 `toml:"lookahead"`

	// Producers is the number of goroutines preparing hash input.
	Producers uint64 `toml:"producers"`

	// Stride is the number of nodes claimed by a producer at once.
	Stride uint64 `toml:"stride"`

	// PrefetchFrom is the node after which producers start resolving base parents.
	// Close to the beginning of the graph parents are almost never ready in advance.
	PrefetchFrom uint64 `toml:"prefetch_from"`

	// DeferBaseParents leaves all the base parents to the consumer.
	DeferBaseParents bool `toml:"defer_base_parents"`
}

// Validate verifies that pipeline may run with the config.
func (c Config) Validate() error {
	if c.Lookahead == 0 {
		return errors.New("lookahead must be positive")
	}
	if c.Producers == 0 {
		return errors.New("at least one producer is required")
	}
	if c.Stride == 0 {
		return errors.New("stride must be positive")
	}
	// Producer publishes its range only after preparing all the nodes in it, so the whole range must fit the ring.
	if c.Stride > c.Lookahead {
		return errors.Errorf("stride %d exceeds lookahead %d", c.Stride, c.Lookahead)
	}
	return nil
}

// Input contains everything needed to compute labels of a layer.
type Input struct {
	ReplicaID  types.ReplicaID
	Layer      uint32
	NumOfNodes uint64
	Parents    *parents.Table

	// Current receives labels of the layer.
	Current *alloc.Layer

	// Previous stores labels of the previous layer, used as expander parents. Ignored by the first layer.
	Previous *alloc.Layer
}

// Validate verifies that labels may be computed for the input.
func (in Input) Validate() error {
	if in.Layer == 0 {
		return errors.New("layers are numbered from 1")
	}
	if in.NumOfNodes == 0 {
		return errors.New("layer must contain at least one node")
	}
	if in.NumOfNodes > math.MaxUint32+1 {
		return errors.Errorf("%d nodes can't be addressed by parent table", in.NumOfNodes)
	}
	if in.Parents == nil {
		return errors.New("parent table is missing")
	}
	if in.Parents.NumOfNodes() < in.NumOfNodes {
		return errors.Errorf("parent table covers %d nodes, %d are required", in.Parents.NumOfNodes(),
			in.NumOfNodes)
	}
	if in.Current == nil {
		return errors.New("layer buffer is missing")
	}
	if in.Current.NumOfNodes() < in.NumOfNodes {
		return errors.Errorf("layer buffer has room for %d nodes, %d are required", in.Current.NumOfNodes(),
			in.NumOfNodes)
	}
	if in.Layer == 1 {
		return nil
	}
	if in.Previous == nil {
		return errors.Errorf("layer %d requires labels of the previous layer", in.Layer)
	}
	if in.Previous == in.Current {
		return errors.New("current and previous layers must use different buffers")
	}
	if in.Previous.NumOfNodes() < in.NumOfNodes {
		return errors.Errorf("previous layer buffer has room for %d nodes, %d are required",
			in.Previous.NumOfNodes(), in.NumOfNodes)
	}
	return nil
}
