package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Neumenon/adv2/lua"
)

var cmdPrint = &cobra.Command{
	Use:   "print <file>",
	Short: "Print the value tree of a dupe",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrint,
}

var flagPrint struct {
	Depth   int
	NoColor bool
	Compact bool
	Path    string
}

func init() {
	cmdMain.AddCommand(cmdPrint)
	cmdPrint.Flags().IntVarP(&flagPrint.Depth, "depth", "d", 0, "Truncate containers nested deeper than this (0 = unlimited)")
	cmdPrint.Flags().BoolVar(&flagPrint.NoColor, "no-color", false, "Disable colored output")
	cmdPrint.Flags().BoolVar(&flagPrint.Compact, "compact", false, "Print on a single line")
	cmdPrint.Flags().StringVarP(&flagPrint.Path, "path", "p", "", "Dot separated path of string keys to print, e.g. Entities.HeadEnt")
}

func runPrint(cmd *cobra.Command, args []string) error {
	doc, _, err := readDocument(args[0])
	if err != nil {
		return err
	}

	root := doc.Value()
	if flagPrint.Path != "" {
		for _, key := range strings.Split(flagPrint.Path, ".") {
			next := root.Get(key)
			if next == nil {
				return fmt.Errorf("path %q: no field %q", flagPrint.Path, key)
			}
			root = next
		}
	}

	out := cmd.OutOrStdout()
	if flagPrint.Compact {
		fmt.Fprintln(out, lua.EmitWithOptions(root, lua.EmitOptions{MaxDepth: flagPrint.Depth}))
		return nil
	}

	p := newTreePrinter(out, flagPrint.Depth, flagPrint.NoColor)
	p.print(root, 0)
	fmt.Fprintln(out)
	return nil
}

// treePrinter writes an indented, colored rendering of a value.
type treePrinter struct {
	w        io.Writer
	maxDepth int

	key     *color.Color
	str     *color.Color
	num     *color.Color
	boolean *color.Color
	vec     *color.Color
	punct   *color.Color
}

func newTreePrinter(w io.Writer, maxDepth int, noColor bool) *treePrinter {
	p := &treePrinter{
		w:        w,
		maxDepth: maxDepth,
		key:      color.New(color.FgCyan),
		str:      color.New(color.FgGreen),
		num:      color.New(color.FgYellow),
		boolean:  color.New(color.FgMagenta),
		vec:      color.New(color.FgBlue),
		punct:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.key, p.str, p.num, p.boolean, p.vec, p.punct} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return p
}

func (p *treePrinter) print(v *lua.Value, depth int) {
	switch v.Kind() {
	case lua.KindString:
		s, _ := v.AsString()
		p.str.Fprint(p.w, strconv.Quote(s))
	case lua.KindDouble:
		f, _ := v.AsDouble()
		p.num.Fprint(p.w, lua.FormatDouble(f))
	case lua.KindBool:
		b, _ := v.AsBool()
		p.boolean.Fprint(p.w, strconv.FormatBool(b))
	case lua.KindVector, lua.KindAngle:
		p.vec.Fprint(p.w, lua.EmitCompact(v))
	case lua.KindArray:
		p.printArray(v, depth)
	case lua.KindTable:
		p.printTable(v, depth)
	default:
		fmt.Fprint(p.w, "<invalid>")
	}
}

func (p *treePrinter) printArray(v *lua.Value, depth int) {
	elems, _ := v.AsArray()
	if len(elems) == 0 {
		p.punct.Fprint(p.w, "[]")
		return
	}
	if p.truncated(depth) {
		p.punct.Fprintf(p.w, "[... %d elements]", len(elems))
		return
	}
	p.punct.Fprint(p.w, "[")
	for _, elem := range elems {
		p.newline(depth + 1)
		p.print(elem, depth+1)
	}
	p.newline(depth)
	p.punct.Fprint(p.w, "]")
}

func (p *treePrinter) printTable(v *lua.Value, depth int) {
	t, _ := v.AsTable()
	if t.Len() == 0 {
		p.punct.Fprint(p.w, "{}")
		return
	}
	if p.truncated(depth) {
		p.punct.Fprintf(p.w, "{... %d entries}", t.Len())
		return
	}
	p.punct.Fprint(p.w, "{")
	t.Range(func(k, val *lua.Value) bool {
		p.newline(depth + 1)
		if s, ok := k.AsString(); ok {
			p.key.Fprint(p.w, s)
		} else {
			p.punct.Fprint(p.w, "[")
			p.print(k, depth+1)
			p.punct.Fprint(p.w, "]")
		}
		p.punct.Fprint(p.w, " = ")
		p.print(val, depth+1)
		return true
	})
	p.newline(depth)
	p.punct.Fprint(p.w, "}")
}

func (p *treePrinter) truncated(depth int) bool {
	return p.maxDepth > 0 && depth >= p.maxDepth
}

func (p *treePrinter) newline(depth int) {
	fmt.Fprint(p.w, "\n", strings.Repeat("  ", depth))
}
