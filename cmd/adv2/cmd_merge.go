package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Neumenon/adv2/dupe"
	"github.com/Neumenon/adv2/internal/config"
	"github.com/Neumenon/adv2/lua"
	"github.com/Neumenon/adv2/split"
	"github.com/Neumenon/adv2/stream"
)

var cmdMerge = &cobra.Command{
	Use:   "merge <manifest.yaml|bundle>",
	Short: "Reassemble split dupes into one",
	Long: `Merge reads the chunks listed in a split manifest (verifying their
BLAKE3 digests) or the chunks of a bundle, and merges them into one dupe.
The info block of the first chunk is kept with its size field recomputed.`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

var flagMerge struct {
	Output string
	Mode   string
}

func init() {
	cmdMain.AddCommand(cmdMerge)
	cmdMerge.Flags().StringVarP(&flagMerge.Output, "output", "o", "", "Output file")
	cmdMerge.Flags().StringVar(&flagMerge.Mode, "mode", "", "Merge mode for bundles (entities, table; default from config)")
	_ = cmdMerge.MarkFlagRequired("output")
}

var bundlePrefix = []byte("@chunk{")

func runMerge(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var (
		payloads [][]byte
		mode     string
	)
	if bytes.HasPrefix(data, bundlePrefix) {
		chunks, err := stream.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		for _, c := range chunks {
			payloads = append(payloads, c.Payload)
		}
		mode = flagMerge.Mode
		if mode == "" {
			mode = cfg.Split.Mode
		}
	} else {
		m, err := readManifest(args[0])
		if err != nil {
			return err
		}
		for _, c := range m.Chunks {
			raw, err := os.ReadFile(chunkPath(args[0], c))
			if err != nil {
				return err
			}
			if err := c.Verify(raw); err != nil {
				return err
			}
			payloads = append(payloads, raw)
		}
		mode = m.Mode
	}

	doc, err := mergePayloads(cmd, payloads, mode)
	if err != nil {
		return err
	}
	out, err := encodeDocument(doc, dupe.WithRecomputedSize())
	if err != nil {
		return err
	}
	if err := writeFile(flagMerge.Output, out); err != nil {
		return err
	}
	logger.Info().Str("output", flagMerge.Output).Int("chunks", len(payloads)).
		Str("size", humanize.IBytes(uint64(len(out)))).Msg("Merge complete")
	return nil
}

// mergePayloads decodes every chunk concurrently and merges the values.
func mergePayloads(cmd *cobra.Command, payloads [][]byte, mode string) (*dupe.Document, error) {
	if len(payloads) == 0 {
		return nil, fmt.Errorf("nothing to merge")
	}
	docs := make([]*dupe.Document, len(payloads))
	g, _ := errgroup.WithContext(cmd.Context())
	if cfg.Split.Workers > 0 {
		g.SetLimit(cfg.Split.Workers)
	}
	for i, p := range payloads {
		i, p := i, p
		g.Go(func() error {
			doc, err := dupe.DecodeBytes(p, cfg.CodecOptions()...)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	values := make([]*lua.Value, len(docs))
	for i, d := range docs {
		values[i] = d.Value()
	}

	var (
		merged *lua.Value
		err    error
	)
	switch mode {
	case config.ModeEntities:
		merged, err = split.MergeEntities(values...)
	case config.ModeTable:
		merged, err = split.Merge(values...)
	default:
		return nil, fmt.Errorf("unknown merge mode %q", mode)
	}
	if err != nil {
		return nil, err
	}
	return dupe.NewDocument(docs[0].Info().Clone(), merged), nil
}
