package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cmdExport = &cobra.Command{
	Use:   "export <file>",
	Short: "Export a dupe as JSON, YAML or CBOR",
	Long: `Export writes the info block and value tree of a dupe in a portable
format. Vectors, angles, non-finite doubles and tables with non-string keys
use "$lua" marker objects so import can restore them.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var flagExport struct {
	Format   string
	Compress string
	Output   string
}

func init() {
	cmdMain.AddCommand(cmdExport)
	cmdExport.Flags().StringVarP(&flagExport.Format, "format", "f", FormatJSON, "Output format (json, yaml, cbor)")
	cmdExport.Flags().StringVar(&flagExport.Compress, "compress", CompressNone, "Compress the output (none, zstd, lz4)")
	cmdExport.Flags().StringVarP(&flagExport.Output, "output", "o", "", "Output file (default: <file>.<format>, - for stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	doc, _, err := readDocument(args[0])
	if err != nil {
		return err
	}
	data, err := marshalExport(doc, flagExport.Format, flagExport.Compress)
	if err != nil {
		return err
	}

	out := flagExport.Output
	if out == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if out == "" {
		stem := strings.TrimSuffix(args[0], filepath.Ext(args[0]))
		out = fmt.Sprintf("%s.%s%s", stem, flagExport.Format, compressionExt(flagExport.Compress))
	}
	if err := writeFile(out, data); err != nil {
		return err
	}
	logger.Info().Str("output", out).Str("format", flagExport.Format).Str("compress", flagExport.Compress).
		Str("size", humanize.IBytes(uint64(len(data)))).Msg("Exported")
	return nil
}
