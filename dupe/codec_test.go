package dupe

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/adv2/lua"
)

func sampleDocument() *Document {
	info := NewInfo(
		InfoField{KeyName, "tester"},
		InfoField{KeyDate, "2024-01-01"},
		InfoField{KeyTime, "00:00"},
		InfoField{KeyTimeZone, "UTC"},
		InfoField{KeySize, "2"},
	)
	value := lua.NewTable(
		lua.Field("a", lua.Double(1.0)),
		lua.Field("b", lua.Bool(true)),
	)
	return NewDocument(info, value)
}

func encodeDoc(t *testing.T, doc *Document, opts ...Option) []byte {
	t.Helper()
	data, err := EncodeBytes(doc, opts...)
	require.NoError(t, err)
	return data
}

func TestCodec_RoundTrip(t *testing.T) {
	doc := sampleDocument()
	data := encodeDoc(t, doc)

	got, err := DecodeBytes(data)
	require.NoError(t, err)

	assert.True(t, lua.Equal(doc.Value(), got.Value()))
	assert.Equal(t, "tester", got.Info().PlayerName())
	assert.Equal(t, "2024-01-01", got.Info().Date())
	assert.Equal(t, "00:00", got.Info().Time())
	assert.Equal(t, "UTC", got.Info().TimeZone())

	size, ok := got.Info().Size()
	require.True(t, ok)
	assert.Equal(t, uint64(2), size)

	check, ok := got.Info().Get(KeyCheck)
	require.True(t, ok)
	assert.Equal(t, CheckValue, check)
}

func TestCodec_HeaderLayout(t *testing.T) {
	data := encodeDoc(t, sampleDocument())

	prefix := "AD2F\x05\n" +
		"name\x01tester\x01date\x012024-01-01\x01time\x0100:00\x01timezone\x01UTC\x01size\x012\x01" +
		"check\x01\r\n\t\n\x01\x02\n"
	require.True(t, bytes.HasPrefix(data, []byte(prefix)), "got %q", data[:min(len(data), len(prefix))])

	// Classic LZMA header: properties, dictionary size, plain text size.
	lz := data[len(prefix):]
	require.GreaterOrEqual(t, len(lz), 13)
	assert.Equal(t, byte(0x5d), lz[0])
	plain := encodeValueBytes(t, sampleDocument().Value())
	assert.Equal(t, uint64(len(plain)), byteOrder.Uint64(lz[5:13]))
}

func TestCodec_ReencodeIsStable(t *testing.T) {
	first := encodeDoc(t, sampleDocument())
	doc, err := DecodeBytes(first)
	require.NoError(t, err)
	second := encodeDoc(t, doc)
	assert.Equal(t, first, second)
}

func TestCodec_RecomputedSize(t *testing.T) {
	data := encodeDoc(t, sampleDocument(), WithRecomputedSize())
	doc, err := DecodeBytes(data)
	require.NoError(t, err)

	size, ok := doc.Info().Size()
	require.True(t, ok)

	idx := bytes.Index(data, []byte{InfoEnd, LineEnding})
	require.Positive(t, idx)
	assert.Equal(t, uint64(len(data)-idx-2), size)
}

func TestCodec_LargeDocument(t *testing.T) {
	ents := &lua.Table{}
	for i := 1; i <= 500; i++ {
		ents.Set(lua.Double(float64(i)), lua.NewTable(
			lua.Field("Class", lua.String("prop_physics")),
			lua.Field("Model", lua.String(strings.Repeat("models/props_c17/", 20))),
			lua.Field("Pos", lua.Vector(float64(i), 0, 12.5)),
		))
	}
	doc := NewDocument(nil, lua.NewTable(lua.Entry{Key: lua.String("Entities"), Value: lua.TableOf(ents)}))

	got, err := DecodeBytes(encodeDoc(t, doc))
	require.NoError(t, err)
	assert.True(t, lua.Equal(doc.Value(), got.Value()))
}

func TestDecode_InvalidHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "AD"},
		{"wrong magic", "AD1F\x05\n"},
		{"lowercase", "ad2f\x05\n"},
		{"no version", "AD2F"},
		{"missing line ending", "AD2F\x05"},
		{"bad line ending", "AD2F\x05\r"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes([]byte(tt.input))
			assert.ErrorIs(t, err, ErrInvalidHeader)
		})
	}
}

func TestDecode_InvalidHeaderIgnoresPayload(t *testing.T) {
	data := encodeDoc(t, sampleDocument())
	data[0] = 'X'
	_, err := DecodeBytes(data)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	for _, version := range []byte{0, 1, 4, 6, 255} {
		data := encodeDoc(t, sampleDocument())
		data[4] = version

		_, err := DecodeBytes(data)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedCodec)
		assert.True(t, IsUnsupported(err))

		var uce *UnsupportedCodecError
		require.True(t, errors.As(err, &uce))
		assert.Equal(t, version, uce.Version)
	}
}

func TestDecode_TruncatedAtEveryOffset(t *testing.T) {
	data := encodeDoc(t, sampleDocument())
	dataStart := bytes.Index(data, []byte{InfoEnd, LineEnding}) + 2
	headerEnd := len(Signature) + 2

	for n := 0; n < len(data); n++ {
		doc, err := DecodeBytes(data[:n])
		assert.Error(t, err, "prefix of %d bytes", n)
		assert.Nil(t, doc)

		// From the info block through the LZMA header, a short input is
		// always reported as truncation.
		if n >= headerEnd && n < dataStart+13 {
			assert.True(t, IsTruncated(err), "prefix of %d bytes: %v", n, err)
		}
	}
	assert.False(t, IsTruncated(ErrInvalidHeader))
}

func TestDecode_InfoErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		cause error
	}{
		{"missing end marker", "AD2F\x05\nname\x01x\x01", ErrTruncated},
		{"odd fields", "AD2F\x05\nname\x01x\x01size\x02\n", ErrInvalidInfo},
		{"check mismatch", "AD2F\x05\ncheck\x01\n\n\x02\n", ErrCheckMismatch},
		{"missing line ending", "AD2F\x05\nname\x01x\x02", ErrTruncated},
		{"bad line ending", "AD2F\x05\nname\x01x\x02X", ErrInvalidInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestDecode_InfoLimit(t *testing.T) {
	input := "AD2F\x05\nname\x01" + strings.Repeat("x", 100) + "\x02\n"
	_, err := DecodeBytes([]byte(input), WithMaxInfo(32))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDecode_PayloadLimit(t *testing.T) {
	doc := NewDocument(nil, lua.String(strings.Repeat("a", 4096)))
	data := encodeDoc(t, doc)

	_, err := DecodeBytes(data, WithMaxPayload(1024))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = DecodeBytes(data, WithMaxPayload(8192))
	assert.NoError(t, err)
}

func TestDecode_CorruptData(t *testing.T) {
	data := encodeDoc(t, sampleDocument())
	idx := bytes.Index(data, []byte{InfoEnd, LineEnding}) + 2

	// Replace the compressed stream with garbage.
	bad := append([]byte{}, data[:idx+13]...)
	bad = append(bad, bytes.Repeat([]byte{0xff}, 32)...)
	_, err := DecodeBytes(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecode_SizeFieldLimit(t *testing.T) {
	doc := sampleDocument()
	doc.Info().SetSize(99999999999999)
	data := encodeDoc(t, doc)

	_, err := DecodeBytes(data, WithMaxPayload(1024))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.ErrorIs(t, err, ErrTooLarge)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "info", de.Section)

	doc.Info().SetSize(1024)
	_, err = DecodeBytes(encodeDoc(t, doc), WithMaxPayload(1024))
	assert.NoError(t, err)
}

// rawFile builds a version 5 file around an arbitrary plain text payload.
func rawFile(t *testing.T, plain []byte) []byte {
	t.Helper()
	data, err := compress(plain, DefaultDictCap)
	require.NoError(t, err)
	head := []byte("AD2F\x05\nname\x01x\x01\x02\n")
	return append(head, data...)
}

func TestDecode_TrailingPlainText(t *testing.T) {
	_, err := DecodeBytes(rawFile(t, []byte{TagTrue}))
	require.NoError(t, err)

	_, err = DecodeBytes(rawFile(t, []byte{TagTrue, 0x03, 'a', 'b', 'c'}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.ErrorIs(t, err, ErrTrailingData)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "value", de.Section)
	assert.Equal(t, int64(1), de.Offset)
}

func TestEncode_InfoReservedBytes(t *testing.T) {
	doc := sampleDocument()
	doc.Info().Set("note", "a\x01b")
	_, err := EncodeBytes(doc)
	assert.ErrorIs(t, err, ErrUnencodable)

	doc = sampleDocument()
	doc.Info().Set("bad\x02key", "v")
	_, err = EncodeBytes(doc)
	assert.ErrorIs(t, err, ErrUnencodable)
}

func TestEncode_NilDocument(t *testing.T) {
	_, err := EncodeBytes(nil)
	assert.ErrorIs(t, err, ErrUnencodable)
}

func TestEncode_DoesNotMutateInfo(t *testing.T) {
	doc := sampleDocument()
	_ = encodeDoc(t, doc, WithRecomputedSize())
	_, ok := doc.Info().Get(KeyCheck)
	assert.False(t, ok)
	size, _ := doc.Info().Size()
	assert.Equal(t, uint64(2), size)
}

func TestLookup(t *testing.T) {
	c, err := Lookup(Version5)
	require.NoError(t, err)
	assert.Equal(t, Version5, c.Version())
	assert.True(t, c.IsValidSignature([]byte("AD2F")))
	assert.False(t, c.IsValidSignature([]byte("AD2G")))

	_, err = Lookup(9)
	assert.ErrorIs(t, err, ErrUnsupportedCodec)

	assert.Equal(t, []uint8{Version5}, Versions())
}

func TestCodec5_ValueMethods(t *testing.T) {
	c := NewCodec5()
	var buf bytes.Buffer
	v := lua.NewArray(lua.String("x"), lua.Angle(1, 2, 3))
	require.NoError(t, c.EncodeValue(&buf, v))

	got, err := c.DecodeValue(&buf)
	require.NoError(t, err)
	assert.True(t, lua.Equal(v, got))
}

func TestDocument_SetInfo(t *testing.T) {
	doc := sampleDocument()
	doc.SetInfo(NewInfo(InfoField{KeyName, "other"}))

	got, err := DecodeBytes(encodeDoc(t, doc))
	require.NoError(t, err)
	assert.Equal(t, "other", got.Info().PlayerName())
	_, ok := got.Info().Size()
	assert.False(t, ok)

	doc.SetInfo(nil)
	require.NotNil(t, doc.Info())
	assert.Zero(t, doc.Info().Len())
}
