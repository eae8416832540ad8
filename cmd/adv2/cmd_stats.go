package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Neumenon/adv2/dupe"
	"github.com/Neumenon/adv2/split"
)

var cmdStats = &cobra.Command{
	Use:   "stats <file>...",
	Short: "Compare the size of dupes across encodings",
	Long: `Stats decodes each dupe and reports the size of its raw value payload,
its LZMA file and every export format, as a markdown table.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStats,
}

var flagStats struct {
	CSV bool
}

func init() {
	cmdMain.AddCommand(cmdStats)
	cmdStats.Flags().BoolVar(&flagStats.CSV, "csv", false, "Print CSV instead of markdown")
}

// statsColumns are the encodings measured for every file, in table order.
var statsColumns = []struct {
	Name, Format, Compress string
}{
	{"json", FormatJSON, CompressNone},
	{"json+zstd", FormatJSON, CompressZstd},
	{"yaml", FormatYAML, CompressNone},
	{"cbor", FormatCBOR, CompressNone},
	{"cbor+zstd", FormatCBOR, CompressZstd},
	{"cbor+lz4", FormatCBOR, CompressLZ4},
}

// FileStats holds the measured sizes of one dupe.
type FileStats struct {
	Name     string
	Entities int
	Raw      int // uncompressed value payload
	File     int // AD2F file as read
	Sizes    []int
}

func runStats(cmd *cobra.Command, args []string) error {
	var results []FileStats
	for _, path := range args {
		doc, raw, err := readDocument(path)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("Skip")
			continue
		}
		st, err := measure(filepath.Base(path), doc, len(raw))
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("Skip")
			continue
		}
		results = append(results, *st)
	}
	if len(results) == 0 {
		return fmt.Errorf("no readable files")
	}

	out := cmd.OutOrStdout()
	if flagStats.CSV {
		return writeStatsCSV(out, results)
	}
	writeStatsMarkdown(out, results)
	return nil
}

func measure(name string, doc *dupe.Document, fileSize int) (*FileStats, error) {
	var payload bytes.Buffer
	if err := dupe.EncodeValue(&payload, doc.Value()); err != nil {
		return nil, err
	}
	st := &FileStats{Name: name, Raw: payload.Len(), File: fileSize}
	if ents := doc.Value().Get(split.FieldEntities); ents != nil {
		st.Entities = ents.Len()
	}
	for _, c := range statsColumns {
		data, err := marshalExport(doc, c.Format, c.Compress)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
		st.Sizes = append(st.Sizes, len(data))
	}
	return st, nil
}

func pct(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

func writeStatsCSV(w io.Writer, results []FileStats) error {
	cw := csv.NewWriter(w)
	header := []string{"name", "entities", "raw_bytes", "ad2f_bytes"}
	for _, c := range statsColumns {
		header = append(header, c.Name+"_bytes")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{r.Name, strconv.Itoa(r.Entities), strconv.Itoa(r.Raw), strconv.Itoa(r.File)}
		for _, s := range r.Sizes {
			row = append(row, strconv.Itoa(s))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeStatsMarkdown(w io.Writer, results []FileStats) {
	fmt.Fprint(w, "| File | Entities | Raw | AD2F |")
	for _, c := range statsColumns {
		fmt.Fprintf(w, " %s |", c.Name)
	}
	fmt.Fprint(w, "\n|------|----------|-----|------|")
	for range statsColumns {
		fmt.Fprint(w, "------|")
	}
	fmt.Fprintln(w)

	totals := FileStats{Sizes: make([]int, len(statsColumns))}
	for _, r := range results {
		fmt.Fprintf(w, "| %s | %d | %s | %s (%.1f%%) |", truncateName(r.Name, 25), r.Entities,
			humanize.IBytes(uint64(r.Raw)), humanize.IBytes(uint64(r.File)), pct(r.File, r.Raw))
		for i, s := range r.Sizes {
			fmt.Fprintf(w, " %s (%.1f%%) |", humanize.IBytes(uint64(s)), pct(s, r.Raw))
			totals.Sizes[i] += s
		}
		fmt.Fprintln(w)
		totals.Raw += r.Raw
		totals.File += r.File
	}

	// Smallest export overall, ties broken by column order.
	best := make([]int, len(statsColumns))
	for i := range best {
		best[i] = i
	}
	sort.SliceStable(best, func(i, j int) bool { return totals.Sizes[best[i]] < totals.Sizes[best[j]] })

	fmt.Fprintf(w, "\n=== SUMMARY ===\n")
	fmt.Fprintf(w, "Files:        %d\n", len(results))
	fmt.Fprintf(w, "Raw total:    %s\n", humanize.IBytes(uint64(totals.Raw)))
	fmt.Fprintf(w, "AD2F total:   %s (%.1f%%)\n", humanize.IBytes(uint64(totals.File)), pct(totals.File, totals.Raw))
	fmt.Fprintf(w, "Best export:  %s, %s (%.1f%%)\n", statsColumns[best[0]].Name,
		humanize.IBytes(uint64(totals.Sizes[best[0]])), pct(totals.Sizes[best[0]], totals.Raw))
}

func truncateName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
