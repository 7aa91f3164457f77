package main

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/sdr"
	"github.com/outofforest/sdr/alloc"
	"github.com/outofforest/sdr/test"
	"github.com/outofforest/sdr/types"
)

func TestParseReplicaID(t *testing.T) {
	requireT := require.New(t)

	replicaID, err := parseReplicaID(hex.EncodeToString(test.ReplicaID[:]))
	requireT.NoError(err)
	requireT.Equal(test.ReplicaID, replicaID)

	_, err = parseReplicaID("")
	requireT.Error(err)
	_, err = parseReplicaID("zz")
	requireT.Error(err)
	_, err = parseReplicaID("abcd")
	requireT.Error(err)
}

func TestLoadDefaultConfig(t *testing.T) {
	requireT := require.New(t)

	config, err := loadConfig("")
	requireT.NoError(err)
	requireT.Equal(sdr.DefaultConfig, config)
}

func TestLoadConfig(t *testing.T) {
	requireT := require.New(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	requireT.NoError(os.WriteFile(path, []byte(`
fingerprint = true

[expander_layers]
producers = 4
stride = 64
defer_base_parents = true
`), 0o600))

	config, err := loadConfig(path)
	requireT.NoError(err)

	expected := sdr.DefaultConfig
	expected.Fingerprint = true
	expected.ExpanderLayers.Producers = 4
	expected.ExpanderLayers.Stride = 64
	expected.ExpanderLayers.DeferBaseParents = true
	requireT.Equal(expected, config)
}

func TestLoadInvalidConfig(t *testing.T) {
	requireT := require.New(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	requireT.NoError(os.WriteFile(path, []byte("first_layer = 5"), 0o600))

	_, err := loadConfig(path)
	requireT.Error(err)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	requireT.Error(err)
}

func TestRunLabels(t *testing.T) {
	requireT := require.New(t)

	const (
		numOfNodes = 500
		seed       = 3
	)

	var last []types.Label
	onLayer := func(ctx context.Context, layer uint32, buffer *alloc.Layer) error {
		last = append(last[:0], buffer.Labels()[:numOfNodes]...)
		return nil
	}
	requireT.NoError(runLabels(test.Context(t), labelsFlags{
		Synthetic:     true,
		SyntheticSeed: seed,
		Nodes:         numOfNodes,
		Layers:        3,
		ReplicaID:     hex.EncodeToString(test.ReplicaID[:]),
		Validate:      true,
		Fingerprint:   true,
	}, onLayer))

	table := test.NewParents(t, numOfNodes, seed)
	var expected []types.Label
	for layer := uint32(1); layer <= 3; layer++ {
		expected = test.ReferenceLabels(test.ReplicaID, layer, numOfNodes, table, expected)
	}

	requireT.Equal(expected, last)
}

func TestRunLabelsRequiresNodesForSyntheticGraph(t *testing.T) {
	require.Error(t, runLabels(test.Context(t), labelsFlags{
		Synthetic: true,
		Layers:    1,
		ReplicaID: hex.EncodeToString(test.ReplicaID[:]),
	}, nil))
}

func TestRunLabelsRejectsUnknownSector(t *testing.T) {
	require.Error(t, runLabels(test.Context(t), labelsFlags{
		SectorSize: 1000,
		Layers:     1,
		ReplicaID:  hex.EncodeToString(test.ReplicaID[:]),
	}, nil))
}

func TestRootCommand(t *testing.T) {
	requireT := require.New(t)

	root := rootCommand()
	cmd, _, err := root.Find([]string{"labels"})
	requireT.NoError(err)
	requireT.Equal("labels", cmd.Name())
	requireT.NotNil(cmd.Flags().Lookup("replica-id"))
}
