package dupe

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/Neumenon/adv2/lua"
)

// Codec reads and writes one version of the duplication format.
type Codec interface {
	// Version is the byte written after the signature.
	Version() uint8

	// IsValidSignature reports whether sig is the file signature this codec
	// expects.
	IsValidSignature(sig []byte) bool

	// Decode reads everything after the version byte.
	Decode(r io.Reader) (*Document, error)

	// Encode writes a complete file, signature and version included.
	Encode(w io.Writer, doc *Document) error

	// EncodeValue writes the value encoding alone.
	EncodeValue(w io.Writer, v *lua.Value) error

	// DecodeValue reads the value encoding alone.
	DecodeValue(r io.Reader) (*lua.Value, error)
}

// CodecFactory builds a codec configured with the given options.
type CodecFactory func(Options) Codec

var (
	registryMu sync.RWMutex
	registry   = map[uint8]CodecFactory{}
)

// Register makes a codec available to Decode for version. A later call for
// the same version replaces the earlier factory.
func Register(version uint8, f CodecFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[version] = f
}

func init() {
	Register(Version5, func(o Options) Codec { return &Codec5{opts: o} })
}

// Lookup returns the codec for version. It fails with *UnsupportedCodecError
// when no codec implements that version.
func Lookup(version uint8, opts ...Option) (Codec, error) {
	registryMu.RLock()
	f, ok := registry[version]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnsupportedCodecError{Version: version}
	}
	return f(buildOptions(opts)), nil
}

// Versions lists the implemented codec versions in ascending order.
func Versions() []uint8 {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]uint8, 0, len(registry))
	for v := range registry {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ReadHeader reads the signature and version byte.
func ReadHeader(r io.Reader) (uint8, error) {
	var hdr [len(Signature) + 1]byte
	n, err := io.ReadFull(r, hdr[:])
	if n < len(Signature) || string(hdr[:len(Signature)]) != Signature {
		return 0, ErrInvalidHeader
	}
	if err != nil {
		return 0, fmt.Errorf("%w: missing version byte", ErrInvalidHeader)
	}
	return hdr[len(Signature)], nil
}

// Decode reads a complete duplication file.
func Decode(r io.Reader, opts ...Option) (*Document, error) {
	br := bufio.NewReader(r)
	version, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	codec, err := Lookup(version, opts...)
	if err != nil {
		return nil, err
	}
	return codec.Decode(br)
}

// DecodeBytes is Decode over an in-memory file.
func DecodeBytes(data []byte, opts ...Option) (*Document, error) {
	return Decode(bytes.NewReader(data), opts...)
}

// Encode writes doc with the newest codec.
func Encode(w io.Writer, doc *Document, opts ...Option) error {
	codec, err := Lookup(Version5, opts...)
	if err != nil {
		return err
	}
	return codec.Encode(w, doc)
}

// EncodeBytes is Encode into a new byte slice.
func EncodeBytes(doc *Document, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsUnsupported reports whether err means the file needs a codec this
// package does not have.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedCodec)
}
