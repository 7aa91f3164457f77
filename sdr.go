package sdr

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/logger"
	"github.com/outofforest/sdr/alloc"
	"github.com/outofforest/sdr/checksum"
	"github.com/outofforest/sdr/labels"
	"github.com/outofforest/sdr/parents"
	"github.com/outofforest/sdr/types"
)

// Config stores configuration of label generation.
type Config struct {
	// FirstLayer configures the pipeline computing the first layer, which has base parents only.
	FirstLayer labels.Config `toml:"first_layer"`

	// ExpanderLayers configures the pipeline computing all the other layers.
	ExpanderLayers labels.Config `toml:"expander_layers"`

	// Fingerprint enables logging blake3 fingerprint of each computed layer.
	Fingerprint bool `toml:"fingerprint"`
}

// DefaultConfig is the configuration used for production sectors.
var DefaultConfig = Config{
	FirstLayer: labels.Config{
		Lookahead:    400,
		Producers:    1,
		Stride:       16,
		PrefetchFrom: 2000,
	},
	ExpanderLayers: labels.Config{
		Lookahead:    800,
		Producers:    2,
		Stride:       128,
		PrefetchFrom: 2000,
	},
}

// LayerFunc is called after each layer is computed.
// The buffer is overwritten by the layer after the next one, labels must be copied to outlive it.
type LayerFunc func(ctx context.Context, layer uint32, buffer *alloc.Layer) error

// Input contains everything needed to generate labels of the sector.
type Input struct {
	ReplicaID   types.ReplicaID
	NumOfLayers uint32
	NumOfNodes  uint64
	Parents     *parents.Table

	// Buffers are used alternately by consecutive layers.
	Buffers [2]*alloc.Layer

	// OnLayer is optional.
	OnLayer LayerFunc
}

// Result reports outcome of label generation.
type Result struct {
	// Last is the buffer holding labels of the last layer.
	Last *alloc.Layer

	Stats []labels.Stats
}

// Generate computes labels of all the layers.
func Generate(ctx context.Context, config Config, input Input) (Result, error) {
	if input.NumOfLayers == 0 {
		return Result{}, errors.New("at least one layer is required")
	}
	if input.Buffers[0] == nil || input.Buffers[1] == nil {
		return Result{}, errors.New("two layer buffers are required")
	}
	if input.Buffers[0] == input.Buffers[1] {
		return Result{}, errors.New("layer buffers must be different")
	}

	log := logger.Get(ctx)
	result := Result{
		Stats: make([]labels.Stats, 0, input.NumOfLayers),
	}
	for layer := uint32(1); layer <= input.NumOfLayers; layer++ {
		layerConfig := config.ExpanderLayers
		if layer == 1 {
			layerConfig = config.FirstLayer
		}

		current := input.Buffers[(layer-1)%2]
		stats, err := labels.Create(ctx, layerConfig, labels.Input{
			ReplicaID:  input.ReplicaID,
			Layer:      layer,
			NumOfNodes: input.NumOfNodes,
			Parents:    input.Parents,
			Current:    current,
			Previous:   input.Buffers[layer%2],
		})
		if err != nil {
			return Result{}, err
		}
		result.Stats = append(result.Stats, stats)
		result.Last = current

		if config.Fingerprint {
			log.Info("Layer fingerprint",
				zap.Uint32("layer", layer),
				zap.Stringer("fingerprint", checksum.Labels(current.Labels()[:input.NumOfNodes])))
		}

		if input.OnLayer != nil {
			if err := input.OnLayer(ctx, layer, current); err != nil {
				return Result{}, errors.Wrapf(err, "processing layer %d failed", layer)
			}
		}
	}

	return result, nil
}
