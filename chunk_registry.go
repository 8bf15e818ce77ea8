package wavstream

// ChunkObserver inspects auxiliary chunks as the parser skips over them.
// payload is non-nil only for chunks small enough to be buffered whole; it
// is only valid for the duration of the call and must be copied if
// retained.
type ChunkObserver interface {
	CanHandle(chunkID [4]byte, listType [4]byte) bool
	Observe(d *Decoder, chunkID [4]byte, size uint32, payload []byte) error
}

// ChunkRegistry resolves auxiliary chunks to observers.
type ChunkRegistry struct {
	observers []ChunkObserver
}

func newDefaultChunkRegistry() *ChunkRegistry {
	return &ChunkRegistry{
		observers: []ChunkObserver{
			&factChunkObserver{},
		},
	}
}

// Register appends an observer to the registry.
func (r *ChunkRegistry) Register(observer ChunkObserver) {
	if r == nil || observer == nil {
		return
	}

	r.observers = append(r.observers, observer)
}

// Dispatch hands a skipped chunk to the first matching observer.
func (r *ChunkRegistry) Dispatch(dec *Decoder, chunkID, listType [4]byte, size uint32, payload []byte) error {
	if r == nil {
		return nil
	}

	for _, observer := range r.observers {
		if observer.CanHandle(chunkID, listType) {
			return observer.Observe(dec, chunkID, size, payload)
		}
	}

	return nil
}

// factChunkObserver records the per-channel frame count a fact chunk
// declares. Informational only; the data chunk length stays authoritative.
type factChunkObserver struct{}

func (o *factChunkObserver) CanHandle(chunkID [4]byte, _ [4]byte) bool {
	return chunkID == CIDFact
}

func (o *factChunkObserver) Observe(dec *Decoder, _ [4]byte, _ uint32, payload []byte) error {
	if dec == nil {
		return nil
	}

	count, ok := factSampleCount(payload, dec.parser.bigEndian)
	if ok {
		dec.factSamples = count
	}

	return nil
}
