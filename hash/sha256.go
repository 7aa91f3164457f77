package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/outofforest/sdr/types"
)

// InitialDigest is the standard initial state of SHA-256.
var InitialDigest = types.Digest{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

// Layout of the binary state produced by crypto/sha256: magic, digest, pending block, length.
const (
	stateMagic        = "sha\x03"
	stateDigestOffset = len(stateMagic)
	stateBufferOffset = stateDigestOffset + types.DigestWords*types.UInt32Length
	stateSize         = stateBufferOffset + types.HashBlockSize + types.UInt64Length
)

type stateHash interface {
	encoding.BinaryUnmarshaler
	encoding.BinaryAppender
	Write(p []byte) (int, error)
}

// New creates new block hasher.
// Block function of crypto/sha256 is used whenever its binary state matches the expected layout, because it is
// hardware-accelerated on most platforms. Otherwise portable implementation is used.
func New() *Hasher {
	h := &Hasher{}
	if sh, ok := sha256.New().(stateHash); ok {
		h.sh = sh
		if !h.selfTest() {
			h.sh = nil
		}
	}
	return h
}

// Hasher runs SHA-256 compression over caller-owned digests.
// It is not safe for concurrent use, each goroutine must create its own hasher.
type Hasher struct {
	sh    stateHash
	state [stateSize]byte
}

// Accelerated reports if crypto/sha256 block function is used.
func (h *Hasher) Accelerated() bool {
	return h.sh != nil
}

// Block compresses blocks into the digest.
// Length of blocks must be a multiple of types.HashBlockSize.
func (h *Hasher) Block(digest *types.Digest, blocks []byte) {
	if len(blocks)%types.HashBlockSize != 0 {
		panic(errors.Errorf("data length %d is not a multiple of block size", len(blocks)))
	}
	if h.sh == nil {
		BlockGeneric(digest, blocks)
		return
	}
	if err := h.block(digest, blocks); err != nil {
		panic(err)
	}
}

func (h *Hasher) block(digest *types.Digest, blocks []byte) error {
	copy(h.state[:], stateMagic)
	for i, w := range digest {
		binary.BigEndian.PutUint32(h.state[stateDigestOffset+i*types.UInt32Length:], w)
	}
	// Empty pending block and zero length, so every block passed to Write is compressed immediately.
	clear(h.state[stateBufferOffset:])

	if err := h.sh.UnmarshalBinary(h.state[:]); err != nil {
		return errors.WithStack(err)
	}
	if _, err := h.sh.Write(blocks); err != nil {
		return errors.WithStack(err)
	}
	state, err := h.sh.AppendBinary(h.state[:0])
	if err != nil {
		return errors.WithStack(err)
	}
	if len(state) != stateSize || !bytes.HasPrefix(state, []byte(stateMagic)) {
		return errors.Errorf("unexpected sha256 state of length %d", len(state))
	}

	for i := range digest {
		digest[i] = binary.BigEndian.Uint32(state[stateDigestOffset+i*types.UInt32Length:])
	}
	return nil
}

func (h *Hasher) selfTest() bool {
	var blocks [2 * types.HashBlockSize]byte
	for i := range blocks {
		blocks[i] = byte(i)
	}

	expected := InitialDigest
	BlockGeneric(&expected, blocks[:])

	d := InitialDigest
	if err := h.block(&d, blocks[:]); err != nil {
		return false
	}
	return d == expected
}

// Emit stores the digest as big-endian bytes, the standard SHA-256 output order.
// Label and digest may share the same memory.
func Emit(label *types.Label, digest *types.Digest) {
	d := *digest
	for i, w := range d {
		binary.BigEndian.PutUint32(label[i*types.UInt32Length:], w)
	}
}
