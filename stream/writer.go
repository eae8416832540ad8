package stream

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Writer writes framed chunks to an io.Writer.
type Writer struct {
	w          io.Writer
	withDigest bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithDigest makes the writer add a BLAKE3 digest to every chunk.
func WithDigest() WriterOption {
	return func(w *Writer) {
		w.withDigest = true
	}
}

// NewWriter creates a chunk writer. CRC-32 is always written.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	cw := &Writer{w: w}
	for _, opt := range opts {
		opt(cw)
	}
	return cw
}

// WriteChunk writes a single chunk.
//
// Format:
//
//	@chunk{v=1 seq=N of=M len=L crc=X [sum=blake3:X] [name="..."] [final=true]}\n
//	<payload bytes>\n
func (w *Writer) WriteChunk(c *Chunk) error {
	var header strings.Builder
	header.WriteString("@chunk{v=")
	if c.Version == 0 {
		header.WriteString(strconv.Itoa(int(Version)))
	} else {
		header.WriteString(strconv.Itoa(int(c.Version)))
	}

	header.WriteString(" seq=")
	header.WriteString(strconv.FormatUint(c.Seq, 10))
	header.WriteString(" of=")
	header.WriteString(strconv.FormatUint(c.Of, 10))
	header.WriteString(" len=")
	header.WriteString(strconv.Itoa(len(c.Payload)))

	crc := ComputeCRC(c.Payload)
	if c.CRC != nil {
		crc = *c.CRC
	}
	fmt.Fprintf(&header, " crc=%08x", crc)

	digest := c.Digest
	if digest == nil && w.withDigest {
		d := Digest(c.Payload)
		digest = &d
	}
	if digest != nil {
		header.WriteString(" sum=blake3:")
		header.WriteString(DigestToHex(*digest))
	}

	if c.Name != "" {
		header.WriteString(" name=")
		header.WriteString(strconv.Quote(c.Name))
	}

	if c.IsFinal() {
		header.WriteString(" final=true")
	}
	header.WriteString("}\n")

	if _, err := io.WriteString(w.w, header.String()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(c.Payload) > 0 {
		if _, err := w.w.Write(c.Payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}
	if _, err := io.WriteString(w.w, "\n"); err != nil {
		return fmt.Errorf("write trailing newline: %w", err)
	}
	return nil
}

// WriteBundle writes payloads as one complete bundle. names may be nil or
// hold one name per payload.
func (w *Writer) WriteBundle(payloads [][]byte, names []string) error {
	if names != nil && len(names) != len(payloads) {
		return fmt.Errorf("chunk: %d names for %d payloads", len(names), len(payloads))
	}
	of := uint64(len(payloads))
	for i, p := range payloads {
		c := &Chunk{Version: Version, Seq: uint64(i), Of: of, Payload: p}
		if names != nil {
			c.Name = names[i]
		}
		if err := w.WriteChunk(c); err != nil {
			return err
		}
	}
	return nil
}
