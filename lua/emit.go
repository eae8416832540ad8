package lua

import (
	"strconv"
	"strings"
)

// EmitOptions controls text output.
type EmitOptions struct {
	// Indent is the per-level indentation. Empty means single-line output.
	Indent string

	// MaxDepth truncates nested containers deeper than this (0 = unlimited).
	MaxDepth int
}

// DefaultEmitOptions returns options for indented, untruncated output.
func DefaultEmitOptions() EmitOptions {
	return EmitOptions{Indent: "  "}
}

// Emit returns the indented text form of v.
func Emit(v *Value) string {
	return EmitWithOptions(v, DefaultEmitOptions())
}

// EmitCompact returns the single-line text form of v.
func EmitCompact(v *Value) string {
	return EmitWithOptions(v, EmitOptions{})
}

// EmitWithOptions returns the text form of v.
//
// Format:
//
//	{"Entities"={[1]={...}} "HeadEnt"={...}}
//	[1 2 "three"]
//	vec(1 2 3) ang(0 90 0) true
func EmitWithOptions(v *Value, opts EmitOptions) string {
	e := &emitter{opts: opts}
	e.emit(v, 0)
	return e.buf.String()
}

type emitter struct {
	opts EmitOptions
	buf  strings.Builder
}

func (e *emitter) emit(v *Value, depth int) {
	switch v.Kind() {
	case KindBool:
		e.buf.WriteString(strconv.FormatBool(v.boolVal))
	case KindDouble:
		e.buf.WriteString(FormatDouble(v.numVal))
	case KindString:
		e.buf.WriteString(strconv.Quote(v.strVal))
	case KindVector:
		e.emitVec3("vec", v.vecVal)
	case KindAngle:
		e.emitVec3("ang", v.vecVal)
	case KindArray:
		e.emitArray(v, depth)
	case KindTable:
		e.emitTable(v, depth)
	default:
		e.buf.WriteString("<invalid>")
	}
}

// FormatDouble formats f in shortest round-trip form.
func FormatDouble(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (e *emitter) emitVec3(name string, v Vec3) {
	e.buf.WriteString(name)
	e.buf.WriteByte('(')
	for i, f := range v {
		if i > 0 {
			e.buf.WriteByte(' ')
		}
		e.buf.WriteString(FormatDouble(f))
	}
	e.buf.WriteByte(')')
}

func (e *emitter) emitArray(v *Value, depth int) {
	if len(v.arrVal) == 0 {
		e.buf.WriteString("[]")
		return
	}
	if e.truncated(depth) {
		e.buf.WriteString("[...]")
		return
	}
	e.buf.WriteByte('[')
	for i, elem := range v.arrVal {
		e.separate(i, depth+1)
		e.emit(elem, depth+1)
	}
	e.close(depth)
	e.buf.WriteByte(']')
}

func (e *emitter) emitTable(v *Value, depth int) {
	if v.tblVal.Len() == 0 {
		e.buf.WriteString("{}")
		return
	}
	if e.truncated(depth) {
		e.buf.WriteString("{...}")
		return
	}
	e.buf.WriteByte('{')
	i := 0
	v.tblVal.Range(func(k, val *Value) bool {
		e.separate(i, depth+1)
		if k.kind == KindString {
			e.buf.WriteString(strconv.Quote(k.strVal))
		} else {
			e.buf.WriteByte('[')
			e.emit(k, depth+1)
			e.buf.WriteByte(']')
		}
		e.buf.WriteByte('=')
		e.emit(val, depth+1)
		i++
		return true
	})
	e.close(depth)
	e.buf.WriteByte('}')
}

func (e *emitter) truncated(depth int) bool {
	return e.opts.MaxDepth > 0 && depth >= e.opts.MaxDepth
}

func (e *emitter) separate(i, depth int) {
	if e.opts.Indent == "" {
		if i > 0 {
			e.buf.WriteByte(' ')
		}
		return
	}
	e.buf.WriteByte('\n')
	e.writeIndent(depth)
}

func (e *emitter) close(depth int) {
	if e.opts.Indent != "" {
		e.buf.WriteByte('\n')
		e.writeIndent(depth)
	}
}

func (e *emitter) writeIndent(depth int) {
	for i := 0; i < depth; i++ {
		e.buf.WriteString(e.opts.Indent)
	}
}
