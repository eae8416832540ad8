// Package stream implements the chunk bundle: several encoded duplication
// chunks carried in one text-framed stream.
//
// Each chunk is framed as
//
//	@chunk{v=1 seq=N of=M len=L crc=XXXXXXXX [sum=blake3:HEX] [name="..."] [final=true]}\n
//	<payload bytes>\n
//
// The payload is an opaque AD2F file. Framing gives message boundaries,
// ordering (seq counts from 0 to of-1) and integrity (CRC-32 and an
// optional BLAKE3 digest). Headers are not part of the payload.
package stream

import (
	"errors"
	"fmt"
)

// Version is the framing version.
const Version uint8 = 1

// MaxPayloadSize is the default maximum payload size (64 MiB).
const MaxPayloadSize = 64 * 1024 * 1024

// Chunk is one framed payload.
type Chunk struct {
	Version uint8
	Seq     uint64 // position in the bundle, from 0
	Of      uint64 // number of chunks in the bundle
	Name    string // optional file name
	Payload []byte

	CRC    *uint32   // CRC-32 of payload, nil if absent
	Digest *[32]byte // BLAKE3 of payload, nil if absent
	Final  bool
}

// IsFinal reports whether this is the last chunk of its bundle.
func (c *Chunk) IsFinal() bool {
	return c.Final || (c.Of > 0 && c.Seq == c.Of-1)
}

// ErrIncomplete is returned by ReadAll when the stream ends before the
// final chunk.
var ErrIncomplete = errors.New("chunk: bundle is incomplete")

// ParseError describes a malformed chunk header or payload.
type ParseError struct {
	Reason string
	Offset int
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("chunk: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("chunk: %s", e.Reason)
}

// CRCMismatchError is returned when CRC verification fails.
type CRCMismatchError struct {
	Seq      uint64
	Expected uint32
	Got      uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("chunk %d: CRC mismatch: expected %08x, got %08x", e.Seq, e.Expected, e.Got)
}

// DigestMismatchError is returned when BLAKE3 verification fails.
type DigestMismatchError struct {
	Seq      uint64
	Expected [32]byte
	Got      [32]byte
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("chunk %d: digest mismatch: expected %s, got %s", e.Seq, DigestToHex(e.Expected), DigestToHex(e.Got))
}

// SequenceError is returned when chunks arrive out of order or disagree on
// the bundle size.
type SequenceError struct {
	Expected uint64
	Got      uint64
	Reason   string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("chunk: %s: expected %d, got %d", e.Reason, e.Expected, e.Got)
}
