package dupe

import "github.com/Neumenon/adv2/lua"

// Document is a decoded duplication file: its info block and its value tree.
type Document struct {
	info  *Info
	value *lua.Value
}

// NewDocument creates a document. A nil info is replaced by an empty one.
func NewDocument(info *Info, value *lua.Value) *Document {
	if info == nil {
		info = &Info{}
	}
	return &Document{info: info, value: value}
}

// Info returns the info block. Changes to it are reflected in the document.
func (d *Document) Info() *Info { return d.info }

// Value returns the root value.
func (d *Document) Value() *lua.Value { return d.value }

// SetInfo replaces the info block.
func (d *Document) SetInfo(info *Info) {
	if info == nil {
		info = &Info{}
	}
	d.info = info
}

// SetValue replaces the root value.
func (d *Document) SetValue(v *lua.Value) { d.value = v }
