package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/adv2/dupe"
	"github.com/Neumenon/adv2/lua"
	"github.com/Neumenon/adv2/stream"
)

// ============================================================
// Helpers
// ============================================================

// resetFlags restores every flag to its default so runs do not leak into
// each other through the package level command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the command line and returns its standard output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(cmdMain)

	var out, errOut bytes.Buffer
	cmdMain.SetOut(&out)
	cmdMain.SetErr(&errOut)
	cmdMain.SetArgs(append(args, "--log-level", "error"))
	err := cmdMain.Execute()
	return out.String(), err
}

// sampleRoot has four entities. Each constraint welds two entities that
// land in the same chunk when split in two.
func sampleRoot() *lua.Value {
	ents := &lua.Table{}
	for i := 1; i <= 4; i++ {
		ents.Set(lua.Double(float64(i)), lua.NewTable(
			lua.Field("Class", lua.String("prop_physics")),
			lua.Field("Pos", lua.Vector(float64(i), 0, 0)),
			lua.Field("Angle", lua.Angle(0, 90, 0)),
		))
	}
	weld := func(a, b float64) *lua.Value {
		return lua.NewTable(
			lua.Field("Type", lua.String("Weld")),
			lua.Field("Entity", lua.NewTable(
				lua.Entry{Key: lua.Double(1), Value: lua.NewTable(lua.Field("Index", lua.Double(a)))},
				lua.Entry{Key: lua.Double(2), Value: lua.NewTable(lua.Field("Index", lua.Double(b)))},
			)),
		)
	}
	return lua.NewTable(
		lua.Field("Entities", lua.TableOf(ents)),
		lua.Field("Constraints", lua.NewTable(
			lua.Entry{Key: lua.Double(1), Value: weld(1, 2)},
			lua.Entry{Key: lua.Double(2), Value: weld(3, 4)},
		)),
		lua.Field("HeadEnt", lua.NewTable(
			lua.Field("Index", lua.Double(1)),
			lua.Field("Z", lua.Double(12.5)),
		)),
		lua.Field("Description", lua.String("castle")),
	)
}

func sampleInfo() *dupe.Info {
	info := dupe.NewInfo()
	info.SetPlayerName("tester")
	info.SetDate("2024-01-01")
	info.SetTime("00:00")
	info.SetTimeZone("UTC")
	return info
}

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	data, err := dupe.EncodeBytes(dupe.NewDocument(sampleInfo(), sampleRoot()), dupe.WithRecomputedSize())
	require.NoError(t, err)
	path := filepath.Join(dir, "castle.txt")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readDoc(t *testing.T, path string) *dupe.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := dupe.DecodeBytes(data)
	require.NoError(t, err)
	return doc
}

// ============================================================
// Info and print
// ============================================================

func TestInfo(t *testing.T) {
	path := writeSample(t, t.TempDir())

	out, err := run(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "tester")
	assert.Contains(t, out, "2024-01-01")
	assert.Contains(t, out, "Entities:     4")
	assert.Contains(t, out, "Constraints:  2")
	assert.NotContains(t, out, "check:")
}

func TestInfo_NotADupe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := run(t, "info", path)
	assert.ErrorIs(t, err, dupe.ErrInvalidHeader)
}

func TestPrint(t *testing.T) {
	path := writeSample(t, t.TempDir())

	out, err := run(t, "print", "--no-color", path)
	require.NoError(t, err)
	assert.Contains(t, out, `Description = "castle"`)
	assert.Contains(t, out, "vec(1 0 0)")
	assert.Contains(t, out, "ang(0 90 0)")

	out, err = run(t, "print", "--no-color", "--depth", "1", path)
	require.NoError(t, err)
	assert.Contains(t, out, "{... 4 entries}")

	out, err = run(t, "print", "--compact", "--path", "HeadEnt", path)
	require.NoError(t, err)
	assert.Equal(t, "{\"Index\"=1 \"Z\"=12.5}\n", out)

	_, err = run(t, "print", "--path", "Nope", path)
	assert.Error(t, err)
}

// ============================================================
// Split and merge
// ============================================================

func TestSplitMerge_Manifest(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir)
	outDir := filepath.Join(dir, "out")

	_, err := run(t, "split", path, "-n", "2", "--out-dir", outDir)
	require.NoError(t, err)

	m, err := readManifest(filepath.Join(outDir, ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, "castle.txt", m.Source)
	assert.Equal(t, "entities", m.Mode)
	assert.Zero(t, m.DroppedConstraints)
	require.Len(t, m.Chunks, 2)
	assert.Equal(t, "castle-0.txt", m.Chunks[0].File)
	assert.Equal(t, "castle-1.txt", m.Chunks[1].File)
	assert.Equal(t, 2, m.Chunks[0].Entities)

	chunk := readDoc(t, filepath.Join(outDir, "castle-1.txt"))
	assert.Equal(t, "tester", chunk.Info().PlayerName())
	head, _ := chunk.Value().Get("HeadEnt").Get("Index").AsDouble()
	assert.Equal(t, 3.0, head)

	merged := filepath.Join(dir, "merged.txt")
	_, err = run(t, "merge", filepath.Join(outDir, ManifestFile), "-o", merged)
	require.NoError(t, err)

	doc := readDoc(t, merged)
	assert.True(t, lua.Equal(sampleRoot(), doc.Value()), "merged: %s", doc.Value())
	assert.Equal(t, "tester", doc.Info().PlayerName())
}

func TestSplit_TableMode(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir)

	_, err := run(t, "split", path, "-n", "4", "--mode", "table", "--workers", "2")
	require.NoError(t, err)

	m, err := readManifest(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, "table", m.Mode)
	require.Len(t, m.Chunks, 4)

	merged := filepath.Join(dir, "merged.txt")
	_, err = run(t, "merge", filepath.Join(dir, ManifestFile), "-o", merged)
	require.NoError(t, err)
	assert.True(t, lua.Equal(sampleRoot(), readDoc(t, merged).Value()))
}

func TestMerge_DigestMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir)

	_, err := run(t, "split", path, "-n", "2")
	require.NoError(t, err)

	chunk := filepath.Join(dir, "castle-0.txt")
	data, err := os.ReadFile(chunk)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(chunk, data, 0o644))

	_, err = run(t, "merge", filepath.Join(dir, ManifestFile), "-o", filepath.Join(dir, "merged.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest mismatch")
}

func TestSplitMerge_Bundle(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir)
	bundle := filepath.Join(dir, "castle.bundle")

	_, err := run(t, "split", path, "-n", "2", "--bundle", bundle)
	require.NoError(t, err)

	f, err := os.Open(bundle)
	require.NoError(t, err)
	chunks, err := stream.NewReader(f).ReadAll()
	f.Close()
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "castle-0.txt", chunks[0].Name)
	assert.NotNil(t, chunks[0].Digest)

	out, err := run(t, "bundle", "list", bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "Chunk 2 of 2")
	assert.Contains(t, out, "player=tester")
	assert.Contains(t, out, "2 chunks read, 0 bad")

	extractDir := filepath.Join(dir, "x")
	_, err = run(t, "bundle", "extract", bundle, "-o", extractDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(extractDir, "castle-1.txt"))

	merged := filepath.Join(dir, "merged.txt")
	_, err = run(t, "merge", bundle, "-o", merged)
	require.NoError(t, err)
	assert.True(t, lua.Equal(sampleRoot(), readDoc(t, merged).Value()))
}

func TestBundleList_CorruptChunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bundle")

	var buf bytes.Buffer
	crc := uint32(0)
	require.NoError(t, stream.NewWriter(&buf).WriteChunk(&stream.Chunk{Seq: 0, Of: 1, Payload: []byte("x"), CRC: &crc}))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	out, err := run(t, "bundle", "list", path)
	assert.Error(t, err)
	assert.Contains(t, out, "0 chunks read, 1 bad")
}

// ============================================================
// Export and import
// ============================================================

func TestExportImport(t *testing.T) {
	tests := []struct {
		format, compress string
	}{
		{FormatJSON, CompressNone},
		{FormatJSON, CompressZstd},
		{FormatYAML, CompressNone},
		{FormatYAML, CompressLZ4},
		{FormatCBOR, CompressNone},
		{FormatCBOR, CompressZstd},
	}
	for _, tc := range tests {
		t.Run(tc.format+"_"+tc.compress, func(t *testing.T) {
			dir := t.TempDir()
			path := writeSample(t, dir)

			_, err := run(t, "export", path, "--format", tc.format, "--compress", tc.compress)
			require.NoError(t, err)

			exported := filepath.Join(dir, "castle."+tc.format+compressionExt(tc.compress))
			require.FileExists(t, exported)

			imported := filepath.Join(dir, "imported.txt")
			_, err = run(t, "import", exported, "-o", imported)
			require.NoError(t, err)

			doc := readDoc(t, imported)
			assert.True(t, lua.Equal(sampleRoot(), doc.Value()), "imported: %s", doc.Value())
			assert.Equal(t, sampleInfo().PlayerName(), doc.Info().PlayerName())
			assert.Equal(t, "UTC", doc.Info().TimeZone())
		})
	}
}

func TestExport_Stdout(t *testing.T) {
	path := writeSample(t, t.TempDir())

	out, err := run(t, "export", path, "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": 5`)
	assert.Contains(t, out, `"$lua": "vector"`)
	assert.Contains(t, out, `"key": "name"`)
}

func TestExport_UnknownFormat(t *testing.T) {
	path := writeSample(t, t.TempDir())
	_, err := run(t, "export", path, "--format", "xml")
	assert.Error(t, err)

	_, err = run(t, "export", path, "--compress", "gzip")
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, formatFromPath("a/castle.yaml.zst"))
	assert.Equal(t, FormatYAML, formatFromPath("castle.YML"))
	assert.Equal(t, FormatCBOR, formatFromPath("castle.cbor.lz4"))
	assert.Equal(t, FormatJSON, formatFromPath("castle.json"))
	assert.Equal(t, FormatJSON, formatFromPath("castle"))
}

// ============================================================
// Stats and version
// ============================================================

func TestStats(t *testing.T) {
	path := writeSample(t, t.TempDir())

	out, err := run(t, "stats", path)
	require.NoError(t, err)
	assert.Contains(t, out, "| castle.txt | 4 |")
	assert.Contains(t, out, "cbor+zstd")
	assert.Contains(t, out, "Files:        1")

	out, err = run(t, "stats", "--csv", path)
	require.NoError(t, err)
	assert.Contains(t, out, "name,entities,raw_bytes,ad2f_bytes,json_bytes")
	assert.Contains(t, out, "castle.txt,4,")

	_, err = run(t, "stats", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestStats_CSVQuotesNames(t *testing.T) {
	results := []FileStats{{
		Name:     `a,"b".txt`,
		Entities: 2,
		Raw:      10,
		File:     20,
		Sizes:    make([]int, len(statsColumns)),
	}}

	var buf bytes.Buffer
	require.NoError(t, writeStatsCSV(&buf, results))
	assert.Contains(t, buf.String(), `"a,""b"".txt",2,10,20,`)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[1], len(rows[0]))
	assert.Equal(t, `a,"b".txt`, rows[1][0])
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "adv2 "+toolVersion)
	assert.Contains(t, out, "[5]")
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir)
	cfgPath := filepath.Join(dir, "adv2.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("split:\n  chunks: 4\n  out_dir: "+filepath.Join(dir, "cfg-out")+"\n"), 0o600))

	_, err := run(t, "split", path, "--config", cfgPath)
	require.NoError(t, err)

	m, err := readManifest(filepath.Join(dir, "cfg-out", ManifestFile))
	require.NoError(t, err)
	assert.Len(t, m.Chunks, 4)
}
