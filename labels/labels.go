package labels

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"
	"github.com/outofforest/sdr/alloc"
	"github.com/outofforest/sdr/pipeline"
	"github.com/outofforest/sdr/types"
)

// Stats reports how computation of a layer went.
type Stats struct {
	Layer      uint32
	NumOfNodes uint64

	// ProducerStalls counts how many times the consumer had to wait for producers.
	ProducerStalls uint64

	Duration time.Duration
}

// Create computes labels of all the nodes of the layer and stores them in the current layer buffer.
// Labels of node n depend only on replica ID, layer, n and labels of its parents.
func Create(ctx context.Context, config Config, input Input) (Stats, error) {
	if err := config.Validate(); err != nil {
		return Stats{}, err
	}
	if err := input.Validate(); err != nil {
		return Stats{}, err
	}

	ring, err := pipeline.NewRing(config.Lookahead, input.ReplicaID, input.Layer)
	if err != nil {
		return Stats{}, err
	}

	cursors := pipeline.NewCursors()
	r := &run{
		config:     config,
		replicaID:  input.ReplicaID,
		layer:      input.Layer,
		numOfNodes: input.NumOfNodes,
		current:    input.Current,
		ring:       ring,
		cursors:    cursors,
		resolver: resolver{
			parents:  input.Parents,
			current:  input.Current,
			previous: input.Previous,
			cursors:  cursors,
		},
	}

	log := logger.Get(ctx)
	log.Info("Creating labels",
		zap.Uint32("layer", input.Layer),
		zap.Uint64("nodes", input.NumOfNodes),
		zap.Uint64("lookahead", config.Lookahead),
		zap.Uint64("producers", config.Producers),
		zap.Uint64("stride", config.Stride))

	start := time.Now()
	err = parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		for i := range config.Producers {
			spawn(fmt.Sprintf("producer-%02d", i), parallel.Continue, r.produce)
		}
		spawn("consumer", parallel.Continue, r.consume)
		return nil
	})
	if err != nil {
		return Stats{}, errors.Wrapf(err, "creating labels of layer %d failed", input.Layer)
	}

	stats := Stats{
		Layer:          input.Layer,
		NumOfNodes:     input.NumOfNodes,
		ProducerStalls: r.stalls,
		Duration:       time.Since(start),
	}
	log.Info("Labels created",
		zap.Uint32("layer", input.Layer),
		zap.Duration("duration", stats.Duration),
		zap.Uint64("producerStalls", stats.ProducerStalls))

	return stats, nil
}

type run struct {
	config     Config
	replicaID  types.ReplicaID
	layer      uint32
	numOfNodes uint64
	current    *alloc.Layer
	ring       *pipeline.Ring
	cursors    *pipeline.Cursors
	resolver   resolver

	// stalls is owned by the consumer.
	stalls uint64
}
