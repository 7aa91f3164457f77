package alloc

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/outofforest/photon"
	"github.com/outofforest/sdr/types"
)

// NewLayer allocates the buffer storing labels of one layer.
func NewLayer(numOfNodes uint64, config Config) (*Layer, func(), error) {
	if numOfNodes == 0 {
		return nil, nil, errors.New("layer must contain at least one node")
	}

	dataP, deallocFunc, err := Allocate(numOfNodes*types.NodeSize, types.Alignment, config)
	if err != nil {
		return nil, nil, err
	}

	return &Layer{
		labels: photon.SliceFromPointer[types.Label](dataP, int(numOfNodes)),
	}, deallocFunc, nil
}

// Layer is the buffer of labels indexed by node.
type Layer struct {
	labels []types.Label
}

// NumOfNodes returns the number of nodes the layer has room for.
func (l *Layer) NumOfNodes() uint64 {
	return uint64(len(l.labels))
}

// Label returns label of the node.
func (l *Layer) Label(node uint64) *types.Label {
	return &l.labels[node]
}

// Digest returns the node's cell viewed as SHA-256 state.
// The cell keeps the intermediate digest until the label is emitted into it.
func (l *Layer) Digest(node uint64) *types.Digest {
	return photon.FromPointer[types.Digest](unsafe.Pointer(&l.labels[node]))
}

// Labels returns all the labels.
func (l *Layer) Labels() []types.Label {
	return l.labels
}

// Bytes returns the buffer as bytes.
func (l *Layer) Bytes() []byte {
	return photon.SliceFromPointer[byte](unsafe.Pointer(&l.labels[0]), len(l.labels)*types.NodeSize)
}

// Fill sets every byte of the layer to the value.
func (l *Layer) Fill(value byte) {
	b := l.Bytes()
	for i := range b {
		b[i] = value
	}
}
