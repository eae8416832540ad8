package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Reader reads framed chunks from an io.Reader.
type Reader struct {
	r          *bufio.Reader
	maxPayload int
	offset     int
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxPayload sets the maximum payload size (default: 64 MiB).
func WithMaxPayload(max int) ReaderOption {
	return func(r *Reader) {
		r.maxPayload = max
	}
}

// NewReader creates a chunk reader.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r:          bufio.NewReader(r),
		maxPayload: MaxPayloadSize,
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Next reads and verifies the next chunk.
// Returns io.EOF when no more chunks are available.
func (r *Reader) Next() (*Chunk, error) {
	start := r.offset
	headerLine, err := r.r.ReadString('\n')
	r.offset += len(headerLine)
	if err != nil {
		if err == io.EOF && headerLine == "" {
			return nil, io.EOF
		}
		return nil, &ParseError{Reason: "unterminated header", Offset: start}
	}

	chunk, payloadLen, err := parseHeader(headerLine, start)
	if err != nil {
		return nil, err
	}
	if payloadLen > r.maxPayload {
		return nil, &ParseError{Reason: fmt.Sprintf("payload too large: %d > %d", payloadLen, r.maxPayload), Offset: start}
	}

	if payloadLen > 0 {
		var buf bytes.Buffer
		n, err := io.CopyN(&buf, r.r, int64(payloadLen))
		r.offset += int(n)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("payload truncated after %d of %d bytes", n, payloadLen), Offset: r.offset}
		}
		chunk.Payload = buf.Bytes()
	}

	// Trailing newline is optional at EOF.
	if b, err := r.r.ReadByte(); err == nil {
		if b != '\n' {
			_ = r.r.UnreadByte()
		} else {
			r.offset++
		}
	}

	if got := ComputeCRC(chunk.Payload); chunk.CRC != nil && got != *chunk.CRC {
		return nil, &CRCMismatchError{Seq: chunk.Seq, Expected: *chunk.CRC, Got: got}
	}
	if chunk.Digest != nil {
		if got := Digest(chunk.Payload); got != *chunk.Digest {
			return nil, &DigestMismatchError{Seq: chunk.Seq, Expected: *chunk.Digest, Got: got}
		}
	}
	return chunk, nil
}

// parseHeader parses the @chunk{...} header line.
func parseHeader(line string, offset int) (*Chunk, int, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "@chunk{") {
		return nil, 0, &ParseError{Reason: "expected @chunk{", Offset: offset}
	}
	endIdx := strings.LastIndex(line, "}")
	if endIdx < 0 {
		return nil, 0, &ParseError{Reason: "missing closing }", Offset: offset + len(line)}
	}

	chunk := &Chunk{Version: Version}
	payloadLen := -1
	seen := map[string]bool{}

	for _, pair := range tokenize(line[len("@chunk{"):endIdx]) {
		eqIdx := strings.Index(pair, "=")
		if eqIdx < 0 {
			continue
		}
		key, val := pair[:eqIdx], pair[eqIdx+1:]
		seen[key] = true

		switch key {
		case "v":
			v, err := strconv.ParseUint(val, 10, 8)
			if err != nil || uint8(v) != Version {
				return nil, 0, &ParseError{Reason: "unsupported version: " + val, Offset: offset}
			}
			chunk.Version = uint8(v)

		case "seq", "of":
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid " + key, Offset: offset}
			}
			if key == "seq" {
				chunk.Seq = n
			} else {
				chunk.Of = n
			}

		case "len":
			l, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid len", Offset: offset}
			}
			payloadLen = int(l)

		case "crc":
			crc, ok := parseCRC(val)
			if !ok {
				return nil, 0, &ParseError{Reason: "invalid crc: " + val, Offset: offset}
			}
			chunk.CRC = &crc

		case "sum":
			d, ok := HexToDigest(strings.TrimPrefix(val, "blake3:"))
			if !ok {
				return nil, 0, &ParseError{Reason: "invalid sum: " + val, Offset: offset}
			}
			chunk.Digest = &d

		case "name":
			name, err := strconv.Unquote(val)
			if err != nil {
				return nil, 0, &ParseError{Reason: "invalid name: " + val, Offset: offset}
			}
			chunk.Name = name

		case "final":
			chunk.Final = val == "true" || val == "1"
		}
	}

	for _, required := range []string{"seq", "of", "len"} {
		if !seen[required] {
			return nil, 0, &ParseError{Reason: "missing " + required, Offset: offset}
		}
	}
	if chunk.Of == 0 || chunk.Seq >= chunk.Of {
		return nil, 0, &ParseError{Reason: fmt.Sprintf("seq %d out of range for of=%d", chunk.Seq, chunk.Of), Offset: offset}
	}
	return chunk, payloadLen, nil
}

// tokenize splits key=value pairs separated by spaces or commas.
func tokenize(s string) []string {
	var tokens []string
	var current bytes.Buffer
	inQuote := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && inQuote && i+1 < len(s):
			current.WriteByte(c)
			i++
			current.WriteByte(s[i])
		case c == '"':
			inQuote = !inQuote
			current.WriteByte(c)
		case (c == ' ' || c == ',' || c == '\t') && !inQuote:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// parseCRC parses a CRC value: "crc32:XXXXXXXX" or "XXXXXXXX".
func parseCRC(val string) (uint32, bool) {
	val = strings.TrimPrefix(val, "crc32:")
	if len(val) != 8 {
		return 0, false
	}
	v, err := strconv.ParseUint(val, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// ReadAll reads one complete bundle. Chunks must arrive in order, agree on
// the bundle size and end with the final chunk.
func (r *Reader) ReadAll() ([]*Chunk, error) {
	asm := NewAssembler()
	for {
		chunk, err := r.Next()
		if errors.Is(err, io.EOF) {
			if !asm.Complete() {
				return asm.Chunks(), ErrIncomplete
			}
			return asm.Chunks(), nil
		}
		if err != nil {
			return asm.Chunks(), err
		}
		if err := asm.Add(chunk); err != nil {
			return asm.Chunks(), err
		}
	}
}
