package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Neumenon/adv2/dupe"
	"github.com/Neumenon/adv2/lua"
	"github.com/Neumenon/adv2/split"
)

var cmdInfo = &cobra.Command{
	Use:   "info <file>",
	Short: "Show the info block and a summary of a dupe",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	cmdMain.AddCommand(cmdInfo)
}

func runInfo(cmd *cobra.Command, args []string) error {
	doc, raw, err := readDocument(args[0])
	if err != nil {
		return err
	}
	printInfo(cmd.OutOrStdout(), doc, len(raw))
	return nil
}

func printInfo(w io.Writer, doc *dupe.Document, fileSize int) {
	info := doc.Info()
	fmt.Fprintf(w, "File size:    %s\n", humanize.IBytes(uint64(fileSize)))
	for _, f := range info.Fields() {
		if f.Key == dupe.KeyCheck {
			continue
		}
		fmt.Fprintf(w, "%-13s %s\n", f.Key+":", f.Value)
	}
	if size, ok := info.Size(); ok {
		fmt.Fprintf(w, "Declared:     %s\n", humanize.IBytes(size))
	}

	root := doc.Value()
	fmt.Fprintf(w, "Root:         %s (%d entries)\n", root.Kind(), root.Len())
	if ents := root.Get(split.FieldEntities); ents != nil {
		fmt.Fprintf(w, "Entities:     %s\n", humanize.Comma(int64(ents.Len())))
	}
	if cons := root.Get(split.FieldConstraints); cons != nil && (cons.IsTable() || cons.IsArray()) {
		fmt.Fprintf(w, "Constraints:  %s\n", humanize.Comma(int64(cons.Len())))
	}
	if head := root.Get(split.FieldHeadEnt); head != nil {
		if idx := head.Get("Index"); idx != nil {
			fmt.Fprintf(w, "Head entity:  %s\n", lua.EmitCompact(idx))
		}
	}
}
