package dupe

import (
	"errors"
	"fmt"
)

// Error classes. Use errors.Is to classify an error returned by this package.
var (
	// ErrInvalidHeader is returned when the signature or the line ending
	// after the version byte is missing or wrong.
	ErrInvalidHeader = errors.New("dupe: invalid header")

	// ErrUnsupportedCodec is matched by *UnsupportedCodecError.
	ErrUnsupportedCodec = errors.New("dupe: unsupported codec")

	// ErrMalformed is matched by every *DecodeError.
	ErrMalformed = errors.New("dupe: malformed document")

	// ErrUnencodable is matched by every *EncodeError.
	ErrUnencodable = errors.New("dupe: value cannot be encoded")
)

// Causes carried by DecodeError.Err.
var (
	ErrTruncated       = errors.New("unexpected end of data")
	ErrUnknownTag      = errors.New("unknown type tag")
	ErrUnexpectedEnd   = errors.New("unexpected container terminator")
	ErrInvalidUTF8     = errors.New("invalid UTF-8 in string")
	ErrTooLarge        = errors.New("size limit exceeded")
	ErrTooDeep         = errors.New("nesting limit exceeded")
	ErrCheckMismatch   = errors.New("info check value mismatch")
	ErrInvalidInfo     = errors.New("invalid info block")
	ErrCompressedBlock = errors.New("invalid compressed data block")
	ErrTrailingData    = errors.New("data after the root value")
	ErrDuplicateKey    = errors.New("duplicate table key")
)

// UnsupportedCodecError is returned when a file carries a version byte no
// registered codec implements.
type UnsupportedCodecError struct {
	Version uint8
}

func (e *UnsupportedCodecError) Error() string {
	return fmt.Sprintf("dupe: unsupported codec version %d", e.Version)
}

// Is makes errors.Is(err, ErrUnsupportedCodec) hold.
func (e *UnsupportedCodecError) Is(target error) bool {
	return target == ErrUnsupportedCodec
}

// DecodeError describes malformed content in the info or data block.
type DecodeError struct {
	Section string // "info", "data" or "value"
	Offset  int64  // byte offset within the section, -1 if unknown
	Reason  string
	Err     error
}

func (e *DecodeError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("dupe: decode %s at offset %d: %s", e.Section, e.Offset, msg)
	}
	return fmt.Sprintf("dupe: decode %s: %s", e.Section, msg)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformed) hold.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformed
}

// EncodeError describes a value or info field that has no encoding.
type EncodeError struct {
	Path   string // location inside the value tree, e.g. ["Entities"][1]
	Reason string
}

func (e *EncodeError) Error() string {
	if e.Path == "" {
		return "dupe: encode: " + e.Reason
	}
	return fmt.Sprintf("dupe: encode %s: %s", e.Path, e.Reason)
}

// Is makes errors.Is(err, ErrUnencodable) hold.
func (e *EncodeError) Is(target error) bool {
	return target == ErrUnencodable
}

// withPath prefixes the path of an *EncodeError.
func withPath(err error, elem string) error {
	var ee *EncodeError
	if errors.As(err, &ee) {
		ee.Path = elem + ee.Path
	}
	return err
}
