package dupe

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/Neumenon/adv2/lua"
)

// ============================================================
// Doubles
// ============================================================

// DoubleBytes returns the little endian IEEE-754 encoding of f.
func DoubleBytes(f float64) [8]byte {
	var b [8]byte
	byteOrder.PutUint64(b[:], math.Float64bits(f))
	return b
}

// ReadDouble reads one little endian IEEE-754 double.
func ReadDouble(r io.Reader) (float64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(byteOrder.Uint64(b[:])), nil
}

// ============================================================
// Encoding
// ============================================================

// EncodeValue writes the tagged encoding of v to w, without info block or
// compression.
func EncodeValue(w io.Writer, v *lua.Value) error {
	bw := bufio.NewWriter(w)
	if err := writeValue(bw, v); err != nil {
		return err
	}
	return bw.Flush()
}

type byteWriter interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
}

func writeValue(w byteWriter, v *lua.Value) error {
	switch v.Kind() {
	case lua.KindTable:
		t, _ := v.AsTable()
		if err := w.WriteByte(TagTable); err != nil {
			return err
		}
		for _, e := range t.Entries() {
			if err := writeValue(w, e.Key); err != nil {
				return withPath(err, "[key "+describeKey(e.Key)+"]")
			}
			if err := writeValue(w, e.Value); err != nil {
				return withPath(err, "["+describeKey(e.Key)+"]")
			}
		}
		return w.WriteByte(TagEnd)

	case lua.KindArray:
		arr, _ := v.AsArray()
		if err := w.WriteByte(TagArray); err != nil {
			return err
		}
		for i, elem := range arr {
			if err := writeValue(w, elem); err != nil {
				return withPath(err, "["+strconv.Itoa(i+1)+"]")
			}
		}
		return w.WriteByte(TagEnd)

	case lua.KindBool:
		b, _ := v.AsBool()
		if b {
			return w.WriteByte(TagTrue)
		}
		return w.WriteByte(TagFalse)

	case lua.KindDouble:
		f, _ := v.AsDouble()
		if err := w.WriteByte(TagDouble); err != nil {
			return err
		}
		return writeDouble(w, f)

	case lua.KindVector:
		vec, _ := v.AsVector()
		return writeVec3(w, TagVector, vec)

	case lua.KindAngle:
		ang, _ := v.AsAngle()
		return writeVec3(w, TagAngle, ang)

	case lua.KindString:
		s, _ := v.AsString()
		return writeString(w, s)

	default:
		return &EncodeError{Reason: "value has no type"}
	}
}

func writeDouble(w io.Writer, f float64) error {
	b := DoubleBytes(f)
	_, err := w.Write(b[:])
	return err
}

func writeVec3(w byteWriter, tag byte, v lua.Vec3) error {
	if err := w.WriteByte(tag); err != nil {
		return err
	}
	for _, f := range v {
		if err := writeDouble(w, f); err != nil {
			return err
		}
	}
	return nil
}

func writeString(w byteWriter, s string) error {
	if !utf8.ValidString(s) {
		return &EncodeError{Reason: "string is not valid UTF-8"}
	}
	if len(s) <= MaxShortString {
		if err := w.WriteByte(byte(len(s))); err != nil {
			return err
		}
	} else {
		if uint64(len(s)) > math.MaxUint32 {
			return &EncodeError{Reason: fmt.Sprintf("string of %d bytes exceeds the 32-bit length field", len(s))}
		}
		var hdr [5]byte
		hdr[0] = TagLongString
		byteOrder.PutUint32(hdr[1:], uint32(len(s)))
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
	}
	_, err := w.WriteString(s)
	return err
}

func describeKey(k *lua.Value) string {
	if s, ok := k.AsString(); ok {
		return strconv.Quote(s)
	}
	return lua.EmitCompact(k)
}

// ============================================================
// Decoding
// ============================================================

// DecodeValue reads one tagged value from r, without info block or
// compression. Bytes after the value are left unread when r implements
// io.ByteReader.
func DecodeValue(r io.Reader, opts ...Option) (*lua.Value, error) {
	return NewCodec5(opts...).DecodeValue(r)
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

type valueDecoder struct {
	r         byteReader
	off       int64
	maxDepth  int
	maxString int64
}

func (d *valueDecoder) fail(off int64, reason string, err error) error {
	return &DecodeError{Section: "value", Offset: off, Reason: reason, Err: err}
}

func (d *valueDecoder) readByte(what string) (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, d.ioFail(what, err)
	}
	d.off++
	return b, nil
}

func (d *valueDecoder) readFull(p []byte, what string) error {
	n, err := io.ReadFull(d.r, p)
	d.off += int64(n)
	if err != nil {
		return d.ioFail(what, err)
	}
	return nil
}

func (d *valueDecoder) ioFail(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return d.fail(d.off, "reading "+what, ErrTruncated)
	}
	return d.fail(d.off, "reading "+what, err)
}

func (d *valueDecoder) readValue(depth int) (*lua.Value, error) {
	start := d.off
	tag, err := d.readByte("type tag")
	if err != nil {
		return nil, err
	}
	if tag == TagEnd {
		return nil, d.fail(start, "terminator where a value was expected", ErrUnexpectedEnd)
	}
	return d.readTagged(tag, start, depth)
}

func (d *valueDecoder) readTagged(tag byte, start int64, depth int) (*lua.Value, error) {
	switch tag {
	case TagTable:
		return d.readTable(start, depth+1)
	case TagArray:
		return d.readArray(start, depth+1)
	case TagTrue:
		return lua.Bool(true), nil
	case TagFalse:
		return lua.Bool(false), nil
	case TagDouble:
		f, err := d.readDouble()
		if err != nil {
			return nil, err
		}
		return lua.Double(f), nil
	case TagVector:
		v, err := d.readVec3()
		if err != nil {
			return nil, err
		}
		return lua.VectorOf(v), nil
	case TagAngle:
		v, err := d.readVec3()
		if err != nil {
			return nil, err
		}
		return lua.AngleOf(v), nil
	case TagLongString:
		var b [4]byte
		if err := d.readFull(b[:], "string length"); err != nil {
			return nil, err
		}
		return d.readString(int64(byteOrder.Uint32(b[:])), start)
	case TagReference:
		return nil, d.fail(start, "table references are not supported", ErrUnknownTag)
	default:
		return d.readString(int64(tag), start)
	}
}

func (d *valueDecoder) enter(start int64, depth int) error {
	if depth > d.maxDepth {
		return d.fail(start, fmt.Sprintf("depth %d", depth), ErrTooDeep)
	}
	return nil
}

func (d *valueDecoder) readTable(start int64, depth int) (*lua.Value, error) {
	if err := d.enter(start, depth); err != nil {
		return nil, err
	}
	t := &lua.Table{}
	for {
		keyStart := d.off
		tag, err := d.readByte("table key")
		if err != nil {
			return nil, err
		}
		if tag == TagEnd {
			return lua.TableOf(t), nil
		}
		key, err := d.readTagged(tag, keyStart, depth)
		if err != nil {
			return nil, err
		}
		if t.Has(key) {
			return nil, d.fail(keyStart, "key "+lua.EmitCompact(key), ErrDuplicateKey)
		}
		val, err := d.readValue(depth)
		if err != nil {
			return nil, err
		}
		t.Set(key, val)
	}
}

func (d *valueDecoder) readArray(start int64, depth int) (*lua.Value, error) {
	if err := d.enter(start, depth); err != nil {
		return nil, err
	}
	var elems []*lua.Value
	for {
		elemStart := d.off
		tag, err := d.readByte("array element")
		if err != nil {
			return nil, err
		}
		if tag == TagEnd {
			return lua.NewArray(elems...), nil
		}
		v, err := d.readTagged(tag, elemStart, depth)
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
}

func (d *valueDecoder) readDouble() (float64, error) {
	var b [8]byte
	if err := d.readFull(b[:], "double"); err != nil {
		return 0, err
	}
	return math.Float64frombits(byteOrder.Uint64(b[:])), nil
}

func (d *valueDecoder) readVec3() (lua.Vec3, error) {
	var v lua.Vec3
	for i := range v {
		f, err := d.readDouble()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

func (d *valueDecoder) readString(n int64, start int64) (*lua.Value, error) {
	if n > d.maxString {
		return nil, d.fail(start, fmt.Sprintf("string of %d bytes", n), ErrTooLarge)
	}
	// n comes from the stream; grow with what is actually read.
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, d.r, n)
	d.off += copied
	if err != nil {
		return nil, d.ioFail("string", err)
	}
	if !utf8.Valid(buf.Bytes()) {
		return nil, d.fail(start, "string", ErrInvalidUTF8)
	}
	return lua.String(buf.String()), nil
}
