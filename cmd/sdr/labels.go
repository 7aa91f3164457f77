package main

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/outofforest/logger"
	"github.com/outofforest/sdr"
	"github.com/outofforest/sdr/alloc"
	"github.com/outofforest/sdr/parents"
	"github.com/outofforest/sdr/types"
)

const defaultLayers = 2

type labelsFlags struct {
	ConfigFile    string
	SectorSize    uint64
	CacheDir      string
	ParentsFile   string
	Synthetic     bool
	SyntheticSeed uint64
	Nodes         uint64
	Layers        uint32
	ReplicaID     string
	Lock          bool
	Validate      bool
	Fingerprint   bool
}

func labelsCommand() *cobra.Command {
	var flags labelsFlags
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Generates labels of all the layers of the sector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabels(cmd.Context(), flags, nil)
		},
	}

	cmd.Flags().StringVar(&flags.ConfigFile, "config", "", "TOML file with pipeline configuration")
	cmd.Flags().Uint64Var(&flags.SectorSize, "sector-size", parents.Sector2KiB.Size, "size of the sector in bytes")
	cmd.Flags().StringVar(&flags.CacheDir, "cache-dir", parents.DefaultCacheDir, "directory containing parent caches")
	cmd.Flags().StringVar(&flags.ParentsFile, "parents", "", "parent cache file, overrides the one derived from sector size")
	cmd.Flags().BoolVar(&flags.Synthetic, "synthetic", false, "use synthetic parent graph instead of the cache")
	cmd.Flags().Uint64Var(&flags.SyntheticSeed, "seed", 1, "seed of the synthetic parent graph")
	cmd.Flags().Uint64Var(&flags.Nodes, "nodes", 0, "number of nodes, derived from sector size if zero")
	cmd.Flags().Uint32Var(&flags.Layers, "layers", defaultLayers, "number of layers")
	cmd.Flags().StringVar(&flags.ReplicaID, "replica-id", "", "hex-encoded 32-byte replica ID")
	cmd.Flags().BoolVar(&flags.Lock, "lock", false, "lock buffers in memory")
	cmd.Flags().BoolVar(&flags.Validate, "validate", false, "validate parent graph before computing labels")
	cmd.Flags().BoolVar(&flags.Fingerprint, "fingerprint", false, "log fingerprint of each layer")
	return cmd
}

func runLabels(ctx context.Context, flags labelsFlags, onLayer sdr.LayerFunc) error {
	config, err := loadConfig(flags.ConfigFile)
	if err != nil {
		return err
	}
	if flags.Fingerprint {
		config.Fingerprint = true
	}

	replicaID, err := parseReplicaID(flags.ReplicaID)
	if err != nil {
		return err
	}

	numOfNodes := flags.Nodes
	if numOfNodes == 0 && !flags.Synthetic {
		sector, err := parents.SectorBySize(flags.SectorSize)
		if err != nil {
			return err
		}
		numOfNodes = sector.NumOfNodes()
	}
	if numOfNodes == 0 {
		return errors.New("number of nodes must be provided for synthetic graph")
	}

	allocConfig := alloc.Config{Lock: flags.Lock}
	table, deallocParents, err := openParents(flags, numOfNodes, allocConfig)
	if err != nil {
		return err
	}
	defer deallocParents()

	if flags.Validate {
		if err := table.Validate(); err != nil {
			return err
		}
		if err := table.CheckPreviousNode(max(config.FirstLayer.PrefetchFrom,
			config.ExpanderLayers.PrefetchFrom)); err != nil {
			return err
		}
	}

	var buffers [2]*alloc.Layer
	for i := range buffers {
		buffer, deallocBuffer, err := alloc.NewLayer(numOfNodes, allocConfig)
		if err != nil {
			return err
		}
		defer deallocBuffer()
		buffers[i] = buffer
	}

	result, err := sdr.Generate(ctx, config, sdr.Input{
		ReplicaID:   replicaID,
		NumOfLayers: flags.Layers,
		NumOfNodes:  numOfNodes,
		Parents:     table,
		Buffers:     buffers,
		OnLayer:     onLayer,
	})
	if err != nil {
		return err
	}

	var stalls uint64
	for _, stats := range result.Stats {
		stalls += stats.ProducerStalls
	}
	logger.Get(ctx).Info("Sector labeled",
		zap.Uint32("layers", flags.Layers),
		zap.Uint64("nodes", numOfNodes),
		zap.Uint64("producerStalls", stalls))
	return nil
}

func openParents(flags labelsFlags, numOfNodes uint64, config alloc.Config) (*parents.Table, func(), error) {
	if flags.Synthetic {
		return parents.NewSynthetic(numOfNodes, flags.SyntheticSeed, config)
	}

	path := flags.ParentsFile
	if path == "" {
		sector, err := parents.SectorBySize(flags.SectorSize)
		if err != nil {
			return nil, nil, err
		}
		path = sector.CachePath(flags.CacheDir)
	}
	return parents.Open(filepath.Clean(path), numOfNodes, config)
}

func loadConfig(path string) (sdr.Config, error) {
	config := sdr.DefaultConfig
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sdr.Config{}, errors.WithStack(err)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return sdr.Config{}, errors.Wrapf(err, "parsing config file %q failed", path)
	}
	return config, nil
}

func parseReplicaID(value string) (types.ReplicaID, error) {
	var replicaID types.ReplicaID
	if value == "" {
		return replicaID, errors.New("replica ID is required")
	}

	b, err := hex.DecodeString(value)
	if err != nil {
		return replicaID, errors.Wrap(err, "replica ID is not valid hex")
	}
	if len(b) != len(replicaID) {
		return replicaID, errors.Errorf("replica ID must be %d bytes long, got %d", len(replicaID), len(b))
	}
	copy(replicaID[:], b)
	return replicaID, nil
}
