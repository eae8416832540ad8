package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Neumenon/adv2/stream"
)

// ManifestFile is the name of the manifest written next to split chunks.
const ManifestFile = "manifest.yaml"

const manifestVersion = 1

// Manifest lists the chunks of a split so merge can find and verify them.
type Manifest struct {
	Version            int             `yaml:"version"`
	Source             string          `yaml:"source"`
	Mode               string          `yaml:"mode"`
	DroppedConstraints int             `yaml:"dropped_constraints,omitempty"`
	Chunks             []ManifestChunk `yaml:"chunks"`
}

type ManifestChunk struct {
	File     string `yaml:"file"`
	Size     int    `yaml:"size"`
	Entities int    `yaml:"entities,omitempty"`
	BLAKE3   string `yaml:"blake3"`
}

func newManifestChunk(file string, data []byte, entities int) ManifestChunk {
	return ManifestChunk{
		File:     file,
		Size:     len(data),
		Entities: entities,
		BLAKE3:   stream.DigestToHex(stream.Digest(data)),
	}
}

// Verify checks data against the recorded size and digest.
func (c ManifestChunk) Verify(data []byte) error {
	if len(data) != c.Size {
		return fmt.Errorf("%s: size %d, manifest says %d", c.File, len(data), c.Size)
	}
	want, ok := stream.HexToDigest(c.BLAKE3)
	if !ok {
		return fmt.Errorf("%s: invalid digest %q in manifest", c.File, c.BLAKE3)
	}
	if got := stream.Digest(data); got != want {
		return fmt.Errorf("%s: digest mismatch: got %s", c.File, stream.DigestToHex(got))
	}
	return nil
}

func writeManifest(path string, m *Manifest) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := new(Manifest)
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("manifest %s: unsupported version %d", path, m.Version)
	}
	if len(m.Chunks) == 0 {
		return nil, fmt.Errorf("manifest %s: no chunks", path)
	}
	return m, nil
}

// chunkPath resolves a manifest entry relative to the manifest's directory.
func chunkPath(manifestPath string, c ManifestChunk) string {
	if filepath.IsAbs(c.File) {
		return c.File
	}
	return filepath.Join(filepath.Dir(manifestPath), c.File)
}
