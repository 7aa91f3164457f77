package types

const (
	// UInt32Length is the number of bytes taken by uint32.
	UInt32Length = 4

	// UInt64Length is the number of bytes taken by uint64.
	UInt64Length = 8

	// NodeSize is the number of bytes taken by a label.
	NodeSize = 32

	// DigestWords is the number of 32-bit words in the SHA-256 state.
	DigestWords = NodeSize / UInt32Length

	// HashBlockSize defines how many bytes are in one block compressed by SHA-256.
	HashBlockSize = 64

	// ParentCountBase is the number of parents taken from the same layer.
	ParentCountBase = 6

	// ParentCountExpander is the number of parents taken from the previous layer.
	ParentCountExpander = 8

	// ParentCount is the number of parent indices stored for every node.
	ParentCount = ParentCountBase + ParentCountExpander

	// ParentSize is the number of bytes taken by a single parent index.
	ParentSize = UInt32Length

	// ParentsRecordSize is the number of bytes taken by parents of a single node.
	ParentsRecordSize = ParentCount * ParentSize

	// HeaderSize is the size of the fixed header preceding parent payload.
	HeaderSize = HashBlockSize

	// SlotSize is the size of the complete hash input assembled for one node.
	SlotSize = HeaderSize + ParentCount*NodeSize

	// Alignment is the alignment required for label and parent buffers.
	Alignment = HashBlockSize

	// ReplicaIDLength is the number of bytes taken by replica ID.
	ReplicaIDLength = 32
)

// Header offsets.
const (
	LayerOffset = ReplicaIDLength
	NodeOffset  = LayerOffset + UInt32Length
)

type (
	// Label is the 32-byte value computed for a node.
	Label [NodeSize]byte

	// Digest is the internal state of SHA-256.
	Digest [DigestWords]uint32

	// ReplicaID identifies the replica, it is mixed into every label.
	ReplicaID [ReplicaIDLength]byte

	// Parents stores base and expander parent indices of a node.
	Parents [ParentCount]uint32
)
