package dupe

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Neumenon/adv2/lua"
)

// Codec5 implements format version 5.
type Codec5 struct {
	opts Options
}

// NewCodec5 returns a version 5 codec.
func NewCodec5(opts ...Option) *Codec5 {
	return &Codec5{opts: buildOptions(opts)}
}

// Version returns 5.
func (c *Codec5) Version() uint8 { return Version5 }

// IsValidSignature reports whether sig is the AD2F signature.
func (c *Codec5) IsValidSignature(sig []byte) bool {
	return string(sig) == Signature
}

// Decode reads the line ending, info block and data block that follow the
// version byte.
func (c *Codec5) Decode(r io.Reader) (*Document, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	if err := expectLineEnding(br, "header", int64(len(Signature)+1)); err != nil {
		return nil, err
	}

	raw, err := c.readInfoBlock(br)
	if err != nil {
		return nil, err
	}
	info, err := ParseInfo(raw)
	if err != nil {
		return nil, err
	}
	if size, ok := info.Size(); ok && size > uint64(c.opts.MaxPayload) {
		return nil, &DecodeError{Section: "info", Offset: -1, Reason: fmt.Sprintf("size field %d over limit %d", size, c.opts.MaxPayload), Err: ErrTooLarge}
	}
	if err := expectLineEnding(br, "info", int64(len(raw)+1)); err != nil {
		return nil, err
	}

	plain, err := decompress(br, c.opts.MaxPayload)
	if err != nil {
		return nil, err
	}
	value, err := c.decodePayload(plain)
	if err != nil {
		return nil, err
	}
	return NewDocument(info, value), nil
}

func expectLineEnding(br *bufio.Reader, section string, off int64) error {
	b, err := br.ReadByte()
	if err != nil {
		if section == "header" {
			return ErrInvalidHeader
		}
		return &DecodeError{Section: section, Offset: off, Reason: "missing line ending", Err: ErrTruncated}
	}
	if b != LineEnding {
		if section == "header" {
			return fmt.Errorf("%w: byte %#02x after version, want line ending", ErrInvalidHeader, b)
		}
		return &DecodeError{Section: section, Offset: off, Reason: fmt.Sprintf("byte %#02x, want line ending", b), Err: ErrInvalidInfo}
	}
	return nil
}

// readInfoBlock returns the bytes before the info end marker and consumes
// the marker.
func (c *Codec5) readInfoBlock(br *bufio.Reader) ([]byte, error) {
	var raw []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			return nil, &DecodeError{Section: "info", Offset: int64(len(raw)), Reason: "missing end marker", Err: ErrTruncated}
		}
		if b == InfoEnd {
			return raw, nil
		}
		if len(raw) >= c.opts.MaxInfo {
			return nil, &DecodeError{Section: "info", Offset: int64(len(raw)), Reason: fmt.Sprintf("over limit %d", c.opts.MaxInfo), Err: ErrTooLarge}
		}
		raw = append(raw, b)
	}
}

// decodePayload decodes the plain text of the data block, which must hold
// exactly one value.
func (c *Codec5) decodePayload(plain []byte) (*lua.Value, error) {
	d := &valueDecoder{r: bytes.NewReader(plain), maxDepth: c.opts.MaxDepth, maxString: int64(len(plain))}
	v, err := d.readValue(0)
	if err != nil {
		return nil, err
	}
	if rest := int64(len(plain)) - d.off; rest > 0 {
		return nil, d.fail(d.off, fmt.Sprintf("%d bytes left", rest), ErrTrailingData)
	}
	return v, nil
}

// Encode writes a version 5 file. The info block is written in field order
// with a "check" field added when missing.
func (c *Codec5) Encode(w io.Writer, doc *Document) error {
	if doc == nil {
		return &EncodeError{Reason: "nil document"}
	}

	var payload bytes.Buffer
	if err := writeValue(&payload, doc.Value()); err != nil {
		return err
	}
	data, err := compress(payload.Bytes(), c.opts.DictCap)
	if err != nil {
		return err
	}

	info := doc.Info().Clone()
	if _, ok := info.Get(KeyCheck); !ok {
		info.Set(KeyCheck, CheckValue)
	}
	if c.opts.RecomputeSize {
		info.SetSize(uint64(len(data)))
	}

	var head bytes.Buffer
	head.WriteString(Signature)
	head.WriteByte(Version5)
	head.WriteByte(LineEnding)
	if err := appendInfo(&head, info); err != nil {
		return err
	}
	head.WriteByte(LineEnding)

	if _, err := w.Write(head.Bytes()); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// EncodeValue writes v without info block or compression.
func (c *Codec5) EncodeValue(w io.Writer, v *lua.Value) error {
	return EncodeValue(w, v)
}

// DecodeValue reads one value written by EncodeValue, honoring the
// codec's depth and size limits. Bytes after the value are left unread.
func (c *Codec5) DecodeValue(r io.Reader) (*lua.Value, error) {
	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	d := &valueDecoder{r: br, maxDepth: c.opts.MaxDepth, maxString: c.opts.MaxPayload}
	return d.readValue(0)
}

// IsTruncated reports whether err was caused by input ending early.
func IsTruncated(err error) bool {
	return errors.Is(err, ErrTruncated)
}
