package checksum

import (
	"encoding/hex"
	"unsafe"

	"github.com/zeebo/blake3"

	"github.com/outofforest/photon"
	"github.com/outofforest/sdr/types"
)

// Fingerprint identifies the content of the layer.
type Fingerprint [32]byte

// String returns hex representation of the fingerprint.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Labels computes fingerprint of labels.
func Labels(labels []types.Label) Fingerprint {
	if len(labels) == 0 {
		return Bytes(nil)
	}
	return Bytes(photon.SliceFromPointer[byte](unsafe.Pointer(&labels[0]), len(labels)*types.NodeSize))
}

// Bytes computes fingerprint of the raw layer content.
func Bytes(data []byte) Fingerprint {
	return blake3.Sum256(data)
}
