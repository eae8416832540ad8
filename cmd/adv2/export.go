package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"

	"github.com/Neumenon/adv2/dupe"
	"github.com/Neumenon/adv2/lua"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCBOR = "cbor"
)

// Export compressions.
const (
	CompressNone = "none"
	CompressZstd = "zstd"
	CompressLZ4  = "lz4"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// exportDoc is the portable form of a dupe.
type exportDoc struct {
	Version int           `json:"version" yaml:"version"`
	Info    []exportField `json:"info" yaml:"info"`
	Value   any           `json:"value" yaml:"value"`
}

type exportField struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("export: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("export: CBOR decoder initialization failed: " + err.Error())
	}
}

func toExportDoc(doc *dupe.Document) (*exportDoc, error) {
	tree, err := lua.ToJSONValue(doc.Value())
	if err != nil {
		return nil, err
	}
	out := &exportDoc{Version: int(dupe.Version5), Value: tree, Info: []exportField{}}
	for _, f := range doc.Info().Fields() {
		out.Info = append(out.Info, exportField{Key: f.Key, Value: f.Value})
	}
	return out, nil
}

func fromExportDoc(e *exportDoc) (*dupe.Document, error) {
	if e.Value == nil {
		return nil, fmt.Errorf("export has no value")
	}
	v, err := lua.FromJSONValue(e.Value)
	if err != nil {
		return nil, err
	}
	info := dupe.NewInfo()
	for _, f := range e.Info {
		info.Set(f.Key, f.Value)
	}
	return dupe.NewDocument(info, v), nil
}

// marshalExport encodes doc in format and compresses the result.
func marshalExport(doc *dupe.Document, format, compression string) ([]byte, error) {
	e, err := toExportDoc(doc)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(e, "", "  ")
		data = append(data, '\n')
	case FormatYAML:
		data, err = yaml.Marshal(e)
	case FormatCBOR:
		data, err = cborEnc.Marshal(e)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return compress(data, compression)
}

// unmarshalExport reverses marshalExport. Compression is detected from the
// frame magic.
func unmarshalExport(data []byte, format string) (*dupe.Document, error) {
	data, err := decompress(data)
	if err != nil {
		return nil, err
	}

	e := new(exportDoc)
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(e)
	case FormatYAML:
		err = yaml.Unmarshal(data, e)
	case FormatCBOR:
		err = cborDec.Unmarshal(data, e)
	default:
		return nil, fmt.Errorf("unknown import format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return fromExportDoc(e)
}

func compress(data []byte, compression string) ([]byte, error) {
	switch compression {
	case "", CompressNone:
		return data, nil
	case CompressZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case CompressLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
}

func decompress(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case bytes.HasPrefix(data, lz4Magic):
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return out, nil
	}
	return data, nil
}

// formatFromPath guesses an export format from a file name such as
// castle.yaml.zst.
func formatFromPath(path string) string {
	name := strings.ToLower(filepath.Base(path))
	for _, ext := range []string{".zst", ".lz4"} {
		name = strings.TrimSuffix(name, ext)
	}
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".cbor":
		return FormatCBOR
	}
	return FormatJSON
}

// compressionExt returns the file suffix for a compression.
func compressionExt(compression string) string {
	switch compression {
	case CompressZstd:
		return ".zst"
	case CompressLZ4:
		return ".lz4"
	}
	return ""
}
