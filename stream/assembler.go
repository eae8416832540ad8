package stream

import "sync"

// Assembler collects the chunks of one bundle and checks that they arrive
// in order. It is safe for concurrent use.
type Assembler struct {
	mu     sync.Mutex
	of     uint64
	next   uint64
	final  bool
	chunks []*Chunk
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Add appends the next chunk. It fails when the sequence has a gap or a
// duplicate, when of changes between chunks, or after the final chunk.
func (a *Assembler) Add(c *Chunk) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.final {
		return &SequenceError{Expected: a.of, Got: c.Seq, Reason: "chunk after final"}
	}
	if len(a.chunks) == 0 {
		a.of = c.Of
	} else if c.Of != a.of {
		return &SequenceError{Expected: a.of, Got: c.Of, Reason: "bundle size changed"}
	}
	if c.Seq != a.next {
		return &SequenceError{Expected: a.next, Got: c.Seq, Reason: "sequence gap"}
	}

	a.chunks = append(a.chunks, c)
	a.next++
	if c.IsFinal() {
		if a.next != a.of {
			return &SequenceError{Expected: a.of, Got: a.next, Reason: "final chunk before end of bundle"}
		}
		a.final = true
	}
	return nil
}

// Complete reports whether the final chunk has been added.
func (a *Assembler) Complete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.final
}

// Chunks returns the chunks added so far.
func (a *Assembler) Chunks() []*Chunk {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Chunk, len(a.chunks))
	copy(out, a.chunks)
	return out
}

// Payloads returns the payloads added so far, in order.
func (a *Assembler) Payloads() [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([][]byte, len(a.chunks))
	for i, c := range a.chunks {
		out[i] = c.Payload
	}
	return out
}
