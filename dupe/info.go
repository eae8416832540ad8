package dupe

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// InfoField is one key/value pair of the info block.
type InfoField struct {
	Key   string
	Value string
}

// Info is the metadata block of a duplication file. Field order is kept so
// that a decoded file re-encodes with the same info block. The zero Info is
// empty and ready to use.
type Info struct {
	fields []InfoField
}

// NewInfo returns an Info holding the given fields. Later duplicates of a key
// replace earlier ones.
func NewInfo(fields ...InfoField) *Info {
	info := &Info{}
	for _, f := range fields {
		info.Set(f.Key, f.Value)
	}
	return info
}

func (i *Info) find(key string) int {
	for n, f := range i.fields {
		if f.Key == key {
			return n
		}
	}
	return -1
}

// Get returns the value stored under key.
func (i *Info) Get(key string) (string, bool) {
	if i == nil {
		return "", false
	}
	if n := i.find(key); n >= 0 {
		return i.fields[n].Value, true
	}
	return "", false
}

// Set stores value under key. An existing key keeps its position.
func (i *Info) Set(key, value string) {
	if n := i.find(key); n >= 0 {
		i.fields[n].Value = value
		return
	}
	i.fields = append(i.fields, InfoField{Key: key, Value: value})
}

// Delete removes key and reports whether it was present.
func (i *Info) Delete(key string) bool {
	n := i.find(key)
	if n < 0 {
		return false
	}
	i.fields = append(i.fields[:n], i.fields[n+1:]...)
	return true
}

// Len returns the number of fields.
func (i *Info) Len() int {
	if i == nil {
		return 0
	}
	return len(i.fields)
}

// Fields returns a copy of the fields in order.
func (i *Info) Fields() []InfoField {
	if i == nil {
		return nil
	}
	out := make([]InfoField, len(i.fields))
	copy(out, i.fields)
	return out
}

// Clone returns an independent copy.
func (i *Info) Clone() *Info {
	return &Info{fields: i.Fields()}
}

func (i *Info) getString(key string) string {
	v, _ := i.Get(key)
	return v
}

// PlayerName returns the "name" field, empty when absent.
func (i *Info) PlayerName() string { return i.getString(KeyName) }

// Date returns the "date" field, empty when absent.
func (i *Info) Date() string { return i.getString(KeyDate) }

// Time returns the "time" field, empty when absent.
func (i *Info) Time() string { return i.getString(KeyTime) }

// TimeZone returns the "timezone" field, empty when absent.
func (i *Info) TimeZone() string { return i.getString(KeyTimeZone) }

// Size returns the "size" field. ok is false when the field is absent or
// not an unsigned integer.
func (i *Info) Size() (size uint64, ok bool) {
	s, present := i.Get(KeySize)
	if !present {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (i *Info) SetPlayerName(s string) { i.Set(KeyName, s) }
func (i *Info) SetDate(s string)       { i.Set(KeyDate, s) }
func (i *Info) SetTime(s string)       { i.Set(KeyTime, s) }
func (i *Info) SetTimeZone(s string)   { i.Set(KeyTimeZone, s) }
func (i *Info) SetSize(n uint64)       { i.Set(KeySize, strconv.FormatUint(n, 10)) }

// ParseInfo parses the bytes of an info block, excluding the end marker.
//
// Keys and values alternate, separated by 0x01. A trailing separator after
// the last value is accepted. A "check" field, when present, must hold
// CheckValue. A "size" field is kept as text; use Info.Size to read it.
func ParseInfo(raw []byte) (*Info, error) {
	info := &Info{}
	if len(raw) == 0 {
		return info, nil
	}

	parts := bytes.Split(raw, []byte{InfoSeparator})
	if len(parts)%2 == 1 && len(parts[len(parts)-1]) == 0 {
		parts = parts[:len(parts)-1]
	}
	if len(parts)%2 == 1 {
		return nil, &DecodeError{
			Section: "info",
			Offset:  -1,
			Reason:  fmt.Sprintf("key %q has no value", parts[len(parts)-1]),
			Err:     ErrInvalidInfo,
		}
	}

	off := int64(0)
	for n := 0; n < len(parts); n += 2 {
		key, value := parts[n], parts[n+1]
		if !utf8.Valid(key) {
			return nil, &DecodeError{Section: "info", Offset: off, Reason: "key", Err: ErrInvalidUTF8}
		}
		valueOff := off + int64(len(key)) + 1
		if !utf8.Valid(value) {
			return nil, &DecodeError{Section: "info", Offset: valueOff, Reason: fmt.Sprintf("value of %q", key), Err: ErrInvalidUTF8}
		}
		if string(key) == KeyCheck && string(value) != CheckValue {
			return nil, &DecodeError{
				Section: "info",
				Offset:  valueOff,
				Reason:  fmt.Sprintf("got %q", value),
				Err:     ErrCheckMismatch,
			}
		}
		info.Set(string(key), string(value))
		off = valueOff + int64(len(value)) + 1
	}
	return info, nil
}

// appendInfo writes the info block including its end marker.
func appendInfo(buf *bytes.Buffer, info *Info) error {
	for _, f := range info.fields {
		if err := checkInfoText(f.Key, "key"); err != nil {
			return err
		}
		if err := checkInfoText(f.Value, fmt.Sprintf("value of %q", f.Key)); err != nil {
			return err
		}
		buf.WriteString(f.Key)
		buf.WriteByte(InfoSeparator)
		buf.WriteString(f.Value)
		buf.WriteByte(InfoSeparator)
	}
	buf.WriteByte(InfoEnd)
	return nil
}

func checkInfoText(s, what string) error {
	if bytes.ContainsAny([]byte(s), "\x01\x02") {
		return &EncodeError{Path: "info", Reason: what + " contains a reserved separator byte"}
	}
	if !utf8.ValidString(s) {
		return &EncodeError{Path: "info", Reason: what + " is not valid UTF-8"}
	}
	return nil
}
