package wavstream

// ChunkInfo records an auxiliary chunk the parser skipped. Payload bytes
// are not retained; observers see them while the chunk is buffered.
type ChunkInfo struct {
	ID   [4]byte
	Size uint32
	// Order is the chunk order index encountered during decode.
	Order int
	// BeforeData indicates if this chunk appeared before the data chunk.
	BeforeData bool
}

// String implements the Stringer interface.
func (c ChunkInfo) String() string {
	return string(c.ID[:])
}
