package sdr

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/outofforest/logger"
	"github.com/outofforest/sdr/alloc"
	"github.com/outofforest/sdr/labels"
	"github.com/outofforest/sdr/parents"
	"github.com/outofforest/sdr/test"
	"github.com/outofforest/sdr/types"
)

const (
	testNodes  = 2000
	testLayers = 4
)

var testConfig = Config{
	FirstLayer: labels.Config{
		Lookahead:    40,
		Producers:    1,
		Stride:       4,
		PrefetchFrom: 200,
	},
	ExpanderLayers: labels.Config{
		Lookahead:    80,
		Producers:    2,
		Stride:       16,
		PrefetchFrom: 200,
	},
	Fingerprint: true,
}

func buffers(t *testing.T, numOfNodes uint64, fill byte) [2]*alloc.Layer {
	b := [2]*alloc.Layer{test.NewLayer(t, numOfNodes), test.NewLayer(t, numOfNodes)}
	b[0].Fill(fill)
	b[1].Fill(fill)
	return b
}

func TestGenerate(t *testing.T) {
	requireT := require.New(t)

	table := test.NewParents(t, testNodes, 1)
	expected := make([][]types.Label, 0, testLayers)
	var previous []types.Label
	for layer := uint32(1); layer <= testLayers; layer++ {
		previous = test.ReferenceLabels(test.ReplicaID, layer, testNodes, table, previous)
		expected = append(expected, previous)
	}

	var computed [][]types.Label
	result, err := Generate(test.Context(t), testConfig, Input{
		ReplicaID:   test.ReplicaID,
		NumOfLayers: testLayers,
		NumOfNodes:  testNodes,
		Parents:     table,
		Buffers:     buffers(t, testNodes, 0xaa),
		OnLayer: func(ctx context.Context, layer uint32, buffer *alloc.Layer) error {
			requireT.EqualValues(len(computed)+1, layer)
			computed = append(computed, append([]types.Label{}, buffer.Labels()...))
			return nil
		},
	})
	requireT.NoError(err)

	requireT.Equal(expected, computed)
	requireT.Equal(expected[testLayers-1], result.Last.Labels())
	requireT.Len(result.Stats, testLayers)
	for i, stats := range result.Stats {
		requireT.EqualValues(i+1, stats.Layer)
		requireT.EqualValues(testNodes, stats.NumOfNodes)
	}
}

func TestGenerateDoesNotDependOnBufferContent(t *testing.T) {
	requireT := require.New(t)

	table := test.NewParents(t, testNodes, 2)
	input := Input{
		ReplicaID:   test.ReplicaID,
		NumOfLayers: testLayers,
		NumOfNodes:  testNodes,
		Parents:     table,
	}

	input.Buffers = buffers(t, testNodes, 0x00)
	result1, err := Generate(test.Context(t), testConfig, input)
	requireT.NoError(err)

	input.Buffers = buffers(t, testNodes, 0xff)
	result2, err := Generate(test.Context(t), DefaultConfig, input)
	requireT.NoError(err)

	requireT.Equal(result1.Last.Labels(), result2.Last.Labels())
}

func TestGenerateLastLayerBuffer(t *testing.T) {
	requireT := require.New(t)

	table := test.NewParents(t, 100, 3)
	b := buffers(t, 100, 0)

	for layers := uint32(1); layers <= 4; layers++ {
		result, err := Generate(test.Context(t), testConfig, Input{
			ReplicaID:   test.ReplicaID,
			NumOfLayers: layers,
			NumOfNodes:  100,
			Parents:     table,
			Buffers:     b,
		})
		requireT.NoError(err)
		requireT.Same(b[(layers-1)%2], result.Last)
	}
}

func TestGenerateStopsOnLayerError(t *testing.T) {
	requireT := require.New(t)

	errTest := errors.New("test")
	table := test.NewParents(t, 100, 4)

	var layers []uint32
	_, err := Generate(test.Context(t), testConfig, Input{
		ReplicaID:   test.ReplicaID,
		NumOfLayers: testLayers,
		NumOfNodes:  100,
		Parents:     table,
		Buffers:     buffers(t, 100, 0),
		OnLayer: func(ctx context.Context, layer uint32, buffer *alloc.Layer) error {
			layers = append(layers, layer)
			if layer == 2 {
				return errTest
			}
			return nil
		},
	})
	requireT.ErrorIs(err, errTest)
	requireT.Equal([]uint32{1, 2}, layers)
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	table := test.NewParents(t, 100, 5)
	b := buffers(t, 100, 0)

	valid := Input{
		ReplicaID:   test.ReplicaID,
		NumOfLayers: testLayers,
		NumOfNodes:  100,
		Parents:     table,
		Buffers:     b,
	}

	invalid := map[string]func(in *Input){
		"noLayers":      func(in *Input) { in.NumOfLayers = 0 },
		"noBuffer":      func(in *Input) { in.Buffers[1] = nil },
		"sameBuffers":   func(in *Input) { in.Buffers[1] = in.Buffers[0] },
		"tooManyNodes":  func(in *Input) { in.NumOfNodes = 101 },
		"invalidConfig": nil,
	}
	for name, modify := range invalid {
		t.Run(name, func(t *testing.T) {
			in := valid
			config := testConfig
			if modify == nil {
				config.ExpanderLayers.Stride = config.ExpanderLayers.Lookahead + 1
			} else {
				modify(&in)
			}
			_, err := Generate(test.Context(t), config, in)
			require.Error(t, err)
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	requireT := require.New(t)

	requireT.NoError(DefaultConfig.FirstLayer.Validate())
	requireT.NoError(DefaultConfig.ExpanderLayers.Validate())
}

func TestSyntheticGraphLinksPreviousNode(t *testing.T) {
	table := test.NewParents(t, testNodes, 6)
	require.NoError(t, table.CheckPreviousNode(DefaultConfig.FirstLayer.PrefetchFrom))
}

func benchmarkLayer(b *testing.B, config labels.Config, layer uint32) {
	const numOfNodes = 1 << 16

	b.StopTimer()
	b.ResetTimer()

	table, deallocFunc, err := parents.NewSynthetic(numOfNodes, 1, alloc.Config{})
	if err != nil {
		b.Fatal(err)
	}
	defer deallocFunc()

	current, deallocCurrent, err := alloc.NewLayer(numOfNodes, alloc.Config{})
	if err != nil {
		b.Fatal(err)
	}
	defer deallocCurrent()

	previous, deallocPrevious, err := alloc.NewLayer(numOfNodes, alloc.Config{})
	if err != nil {
		b.Fatal(err)
	}
	defer deallocPrevious()

	input := labels.Input{
		ReplicaID:  test.ReplicaID,
		Layer:      layer,
		NumOfNodes: numOfNodes,
		Parents:    table,
		Current:    current,
		Previous:   previous,
	}

	ctx := logger.WithLogger(context.Background(), logger.New(logger.DefaultConfig))
	b.SetBytes(numOfNodes * types.NodeSize)
	b.StartTimer()
	for range b.N {
		if _, err := labels.Create(ctx, config, input); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()
}

func BenchmarkFirstLayer(b *testing.B) {
	benchmarkLayer(b, DefaultConfig.FirstLayer, 1)
}

func BenchmarkExpanderLayer(b *testing.B) {
	benchmarkLayer(b, DefaultConfig.ExpanderLayers, 2)
}

func TestGenerateReportsProducerStalls(t *testing.T) {
	requireT := require.New(t)

	config := testConfig
	config.FirstLayer = labels.Config{Lookahead: 1, Producers: 1, Stride: 1}
	config.ExpanderLayers = labels.Config{Lookahead: 1, Producers: 1, Stride: 1}

	result, err := Generate(test.Context(t), config, Input{
		ReplicaID:   test.ReplicaID,
		NumOfLayers: 2,
		NumOfNodes:  testNodes,
		Parents:     test.NewParents(t, testNodes, 7),
		Buffers:     buffers(t, testNodes, 0),
	})
	requireT.NoError(err)
	requireT.Len(result.Stats, 2)
	for _, stats := range result.Stats {
		requireT.Positive(stats.ProducerStalls)
		requireT.LessOrEqual(stats.ProducerStalls, uint64(testNodes-1))
	}
}
