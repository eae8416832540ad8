package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Neumenon/adv2/dupe"
)

// readDocument decodes the dupe at path with the configured limits.
func readDocument(path string) (*dupe.Document, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	doc, err := dupe.DecodeBytes(data, cfg.CodecOptions()...)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, data, nil
}

// encodeDocument encodes doc with the configured dictionary size.
func encodeDocument(doc *dupe.Document, opts ...dupe.Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := dupe.Encode(&buf, doc, append(cfg.CodecOptions(), opts...)...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFile writes data to path, creating parent directories.
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// chunkName returns "<stem>-<i><ext>" for the i-th chunk of input.
func chunkName(input string, i int) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".txt"
	}
	return fmt.Sprintf("%s-%d%s", stem, i, ext)
}
