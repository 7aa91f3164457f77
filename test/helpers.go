package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/logger"
	"github.com/outofforest/sdr/alloc"
	"github.com/outofforest/sdr/parents"
	"github.com/outofforest/sdr/types"
)

// ReplicaID is the replica ID captured from a real sealing run.
var ReplicaID = types.ReplicaID{
	243, 174, 179, 214, 115, 147, 246, 67,
	84, 124, 187, 241, 48, 103, 161, 157,
	119, 194, 163, 152, 191, 176, 222, 127,
	19, 25, 127, 14, 126, 3, 152, 31,
}

// Context returns context with logger for unit tests.
func Context(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), logger.New(logger.DefaultConfig)))
	t.Cleanup(cancel)
	return ctx
}

// NewLayer allocates layer buffer released when test finishes.
func NewLayer(t *testing.T, numOfNodes uint64) *alloc.Layer {
	layer, deallocFunc, err := alloc.NewLayer(numOfNodes, alloc.Config{})
	require.NoError(t, err)
	t.Cleanup(deallocFunc)
	return layer
}

// NewParents generates synthetic parent table released when test finishes.
func NewParents(t *testing.T, numOfNodes, seed uint64) *parents.Table {
	table, deallocFunc, err := parents.NewSynthetic(numOfNodes, seed, alloc.Config{})
	require.NoError(t, err)
	t.Cleanup(deallocFunc)
	return table
}
