package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Neumenon/adv2/dupe"
	"github.com/Neumenon/adv2/stream"
)

var cmdBundle = &cobra.Command{
	Use:   "bundle",
	Short: "Inspect and unpack chunk bundles",
}

var cmdBundleList = &cobra.Command{
	Use:   "list <bundle>",
	Short: "List the chunks of a bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runBundleList,
}

var cmdBundleExtract = &cobra.Command{
	Use:   "extract <bundle>",
	Short: "Write every chunk of a bundle to its own file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBundleExtract,
}

var flagBundle struct {
	OutDir string
}

func init() {
	cmdMain.AddCommand(cmdBundle)
	cmdBundle.AddCommand(cmdBundleList, cmdBundleExtract)
	cmdBundleExtract.Flags().StringVarP(&flagBundle.OutDir, "out-dir", "o", ".", "Output directory")
}

// runBundleList prints every chunk it can read. Bad chunks are reported and
// skipped so a damaged bundle can still be inspected.
func runBundleList(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	reader := stream.NewReader(f)
	n, bad := 0, 0
	for {
		c, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *stream.ParseError
			bad++
			fmt.Fprintf(cmd.ErrOrStderr(), "chunk %d: error: %v\n", n, err)
			if errors.As(err, &perr) {
				// Framing is lost; nothing after this point can be trusted.
				break
			}
			continue
		}
		n++
		printChunk(out, c)
	}

	fmt.Fprintf(out, "\n--- %d chunks read, %d bad ---\n", n, bad)
	if bad > 0 {
		return fmt.Errorf("%s: %d bad chunks", args[0], bad)
	}
	return nil
}

func printChunk(w io.Writer, c *stream.Chunk) {
	fmt.Fprintf(w, "--- Chunk %d of %d ---\n", c.Seq+1, c.Of)
	if c.Name != "" {
		fmt.Fprintf(w, "  name=%s\n", c.Name)
	}
	fmt.Fprintf(w, "  len=%d (%s)\n", len(c.Payload), humanize.IBytes(uint64(len(c.Payload))))
	if c.CRC != nil {
		fmt.Fprintf(w, "  crc=%08x\n", *c.CRC)
	}
	if c.Digest != nil {
		fmt.Fprintf(w, "  blake3=%s\n", stream.DigestToHex(*c.Digest))
	}
	if c.IsFinal() {
		fmt.Fprintf(w, "  final=true\n")
	}

	doc, err := dupe.DecodeBytes(c.Payload, cfg.CodecOptions()...)
	if err != nil {
		fmt.Fprintf(w, "  payload: %v\n", err)
		return
	}
	if name := doc.Info().PlayerName(); name != "" {
		fmt.Fprintf(w, "  player=%s\n", name)
	}
	fmt.Fprintf(w, "  root=%s (%d entries)\n", doc.Value().Kind(), doc.Value().Len())
}

func runBundleExtract(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	chunks, err := stream.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	for _, c := range chunks {
		name := c.Name
		if name == "" {
			name = chunkName(args[0], int(c.Seq))
		}
		path := filepath.Join(flagBundle.OutDir, filepath.Base(name))
		if err := writeFile(path, c.Payload); err != nil {
			return err
		}
		logger.Info().Str("file", path).Uint64("seq", c.Seq).Msg("Extracted chunk")
	}
	return nil
}
