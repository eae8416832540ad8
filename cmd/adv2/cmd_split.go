package main

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Neumenon/adv2/dupe"
	"github.com/Neumenon/adv2/internal/config"
	"github.com/Neumenon/adv2/lua"
	"github.com/Neumenon/adv2/split"
	"github.com/Neumenon/adv2/stream"
)

var cmdSplit = &cobra.Command{
	Use:   "split <file>",
	Short: "Split a dupe into smaller dupes",
	Long: `Split divides a dupe into chunk files named <name>-<i><ext> and writes
a manifest.yaml listing them with their BLAKE3 digests. With --bundle the
chunks are written as one framed bundle instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

var flagSplit struct {
	Bundle string
}

func init() {
	cmdMain.AddCommand(cmdSplit)
	flags := cmdSplit.Flags()
	flags.IntP("chunks", "n", 2, "Number of chunks")
	flags.StringP("out-dir", "o", "", "Output directory (default: next to the input)")
	flags.String("mode", config.ModeEntities, "Split the Entities table (entities) or the root table (table)")
	flags.Int("workers", 0, "Chunks encoded concurrently (0 = one per chunk)")
	flags.StringVar(&flagSplit.Bundle, "bundle", "", "Write a single chunk bundle to this path")

	bindFlag(config.KeySplitChunks, flags.Lookup("chunks"))
	bindFlag(config.KeySplitOutDir, flags.Lookup("out-dir"))
	bindFlag(config.KeySplitMode, flags.Lookup("mode"))
	bindFlag(config.KeySplitWorkers, flags.Lookup("workers"))
}

// splitResult is the output of splitDocument.
type splitResult struct {
	Names    []string
	Payloads [][]byte
	Entities []int
	Dropped  int
}

func runSplit(cmd *cobra.Command, args []string) error {
	input := args[0]
	doc, raw, err := readDocument(input)
	if err != nil {
		return err
	}

	res, err := splitDocument(cmd, input, doc)
	if err != nil {
		return err
	}
	if res.Dropped > 0 {
		logger.Warn().Int("constraints", res.Dropped).Msg("Dropped constraints spanning chunks")
	}

	if flagSplit.Bundle != "" {
		var buf bytes.Buffer
		if err := stream.NewWriter(&buf, stream.WithDigest()).WriteBundle(res.Payloads, res.Names); err != nil {
			return err
		}
		if err := writeFile(flagSplit.Bundle, buf.Bytes()); err != nil {
			return err
		}
		logger.Info().Str("bundle", flagSplit.Bundle).Int("chunks", len(res.Payloads)).
			Str("size", humanize.IBytes(uint64(buf.Len()))).Msg("Wrote bundle")
		return nil
	}

	outDir := cfg.Split.OutDir
	if outDir == "" {
		outDir = filepath.Dir(input)
	}

	m := &Manifest{
		Version:            manifestVersion,
		Source:             filepath.Base(input),
		Mode:               cfg.Split.Mode,
		DroppedConstraints: res.Dropped,
	}
	for i, name := range res.Names {
		if err := writeFile(filepath.Join(outDir, name), res.Payloads[i]); err != nil {
			return err
		}
		m.Chunks = append(m.Chunks, newManifestChunk(name, res.Payloads[i], res.Entities[i]))
		logger.Info().Str("file", name).Str("size", humanize.IBytes(uint64(len(res.Payloads[i])))).
			Int("entities", res.Entities[i]).Msg("Wrote chunk")
	}
	if err := writeManifest(filepath.Join(outDir, ManifestFile), m); err != nil {
		return err
	}

	logger.Info().Str("input", input).Str("size", humanize.IBytes(uint64(len(raw)))).
		Int("chunks", len(res.Names)).Str("out", outDir).Msg("Split complete")
	return nil
}

// splitDocument splits doc according to the configuration and encodes every
// chunk concurrently.
func splitDocument(cmd *cobra.Command, input string, doc *dupe.Document) (*splitResult, error) {
	var (
		values  []*lua.Value
		dropped int
	)
	switch cfg.Split.Mode {
	case config.ModeEntities:
		es, err := split.SplitEntities(doc.Value(), cfg.Split.Chunks)
		if err != nil {
			return nil, err
		}
		values, dropped = es.Chunks, es.DroppedConstraints
	default:
		vs, err := split.SplitTables(doc.Value(), cfg.Split.Chunks)
		if err != nil {
			return nil, err
		}
		values = vs
	}

	res := &splitResult{
		Names:    make([]string, len(values)),
		Payloads: make([][]byte, len(values)),
		Entities: make([]int, len(values)),
		Dropped:  dropped,
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	workers := cfg.Split.Workers
	if workers == 0 {
		workers = len(values)
	}
	g.SetLimit(workers)

	for i, v := range values {
		i, v := i, v
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunk := dupe.NewDocument(doc.Info().Clone(), v)
			data, err := encodeDocument(chunk, dupe.WithRecomputedSize())
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			res.Names[i] = chunkName(input, i)
			res.Payloads[i] = data
			if ents := v.Get(split.FieldEntities); ents != nil && cfg.Split.Mode == config.ModeEntities {
				res.Entities[i] = ents.Len()
			}
			logger.Debug().Int("chunk", i).Int("bytes", len(data)).Msg("Encoded chunk")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
