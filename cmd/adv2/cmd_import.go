package main

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Neumenon/adv2/dupe"
)

var cmdImport = &cobra.Command{
	Use:   "import <file>",
	Short: "Build a dupe from an export",
	Long: `Import reads a file written by export. The format is taken from --format
or guessed from the file name; zstd and lz4 compression is detected.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var flagImport struct {
	Format string
	Output string
}

func init() {
	cmdMain.AddCommand(cmdImport)
	cmdImport.Flags().StringVarP(&flagImport.Format, "format", "f", "", "Input format (json, yaml, cbor)")
	cmdImport.Flags().StringVarP(&flagImport.Output, "output", "o", "", "Output dupe file")
	_ = cmdImport.MarkFlagRequired("output")
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	format := flagImport.Format
	if format == "" {
		format = formatFromPath(args[0])
	}

	doc, err := unmarshalExport(data, format)
	if err != nil {
		return err
	}
	out, err := encodeDocument(doc, dupe.WithRecomputedSize())
	if err != nil {
		return err
	}
	if err := writeFile(flagImport.Output, out); err != nil {
		return err
	}
	logger.Info().Str("output", flagImport.Output).Str("format", format).
		Str("size", humanize.IBytes(uint64(len(out)))).Msg("Imported")
	return nil
}
