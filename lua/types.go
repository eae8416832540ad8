package lua

import (
	"fmt"
)

// Kind identifies the active variant of a Value.
type Kind uint8

const (
	KindInvalid Kind = iota // zero Value, never produced by the codec
	KindTable
	KindArray
	KindString
	KindDouble
	KindVector
	KindAngle
	KindBool
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindDouble:
		return "double"
	case KindVector:
		return "vector"
	case KindAngle:
		return "angle"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(k))
	}
}

// Vec3 is the payload shared by vectors (x, y, z) and angles (pitch, yaw, roll).
type Vec3 [3]float64

// Value is a single node of a duplication tree.
type Value struct {
	kind Kind

	// Only the field matching kind is meaningful.
	boolVal bool
	numVal  float64
	strVal  string
	vecVal  Vec3
	arrVal  []*Value
	tblVal  *Table
}

// ============================================================
// Constructors
// ============================================================

// NewTable creates a table value from entries. Later duplicates of a key
// replace earlier ones.
func NewTable(entries ...Entry) *Value {
	t := &Table{}
	for _, e := range entries {
		t.Set(e.Key, e.Value)
	}
	return &Value{kind: KindTable, tblVal: t}
}

// TableOf wraps an existing table. The value takes ownership of t.
func TableOf(t *Table) *Value {
	if t == nil {
		t = &Table{}
	}
	return &Value{kind: KindTable, tblVal: t}
}

// NewArray creates an array value.
func NewArray(values ...*Value) *Value {
	return &Value{kind: KindArray, arrVal: values}
}

// String creates a string value.
func String(s string) *Value {
	return &Value{kind: KindString, strVal: s}
}

// Double creates a double value.
func Double(f float64) *Value {
	return &Value{kind: KindDouble, numVal: f}
}

// Vector creates a vector value.
func Vector(x, y, z float64) *Value {
	return &Value{kind: KindVector, vecVal: Vec3{x, y, z}}
}

// VectorOf creates a vector value from a Vec3.
func VectorOf(v Vec3) *Value {
	return &Value{kind: KindVector, vecVal: v}
}

// Angle creates an angle value.
func Angle(pitch, yaw, roll float64) *Value {
	return &Value{kind: KindAngle, vecVal: Vec3{pitch, yaw, roll}}
}

// AngleOf creates an angle value from a Vec3.
func AngleOf(a Vec3) *Value {
	return &Value{kind: KindAngle, vecVal: a}
}

// Bool creates a boolean value.
func Bool(b bool) *Value {
	return &Value{kind: KindBool, boolVal: b}
}

// Field creates a table entry with a string key.
func Field(key string, value *Value) Entry {
	return Entry{Key: String(key), Value: value}
}

// ============================================================
// Predicates
// ============================================================

// Kind returns the active variant. A nil value reports KindInvalid.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindInvalid
	}
	return v.kind
}

func (v *Value) IsTable() bool  { return v.Kind() == KindTable }
func (v *Value) IsArray() bool  { return v.Kind() == KindArray }
func (v *Value) IsString() bool { return v.Kind() == KindString }
func (v *Value) IsDouble() bool { return v.Kind() == KindDouble }
func (v *Value) IsVector() bool { return v.Kind() == KindVector }
func (v *Value) IsAngle() bool  { return v.Kind() == KindAngle }
func (v *Value) IsBool() bool   { return v.Kind() == KindBool }

// ============================================================
// Accessors
// ============================================================

// AsTable returns the table payload.
func (v *Value) AsTable() (*Table, bool) {
	if v.Kind() != KindTable {
		return nil, false
	}
	if v.tblVal == nil {
		v.tblVal = &Table{}
	}
	return v.tblVal, true
}

// AsArray returns the array elements. The slice aliases the value's storage,
// so elements may be replaced in place; use Append to grow it.
func (v *Value) AsArray() ([]*Value, bool) {
	if v.Kind() != KindArray {
		return nil, false
	}
	return v.arrVal, true
}

// AsString returns the string payload.
func (v *Value) AsString() (string, bool) {
	if v.Kind() != KindString {
		return "", false
	}
	return v.strVal, true
}

// AsDouble returns the double payload.
func (v *Value) AsDouble() (float64, bool) {
	if v.Kind() != KindDouble {
		return 0, false
	}
	return v.numVal, true
}

// AsVector returns the vector payload.
func (v *Value) AsVector() (Vec3, bool) {
	if v.Kind() != KindVector {
		return Vec3{}, false
	}
	return v.vecVal, true
}

// AsAngle returns the angle payload.
func (v *Value) AsAngle() (Vec3, bool) {
	if v.Kind() != KindAngle {
		return Vec3{}, false
	}
	return v.vecVal, true
}

// AsBool returns the boolean payload.
func (v *Value) AsBool() (bool, bool) {
	if v.Kind() != KindBool {
		return false, false
	}
	return v.boolVal, true
}

// ============================================================
// Mutable accessors
// ============================================================

// AsArrayRef returns a pointer to the array storage.
func (v *Value) AsArrayRef() (*[]*Value, bool) {
	if v.Kind() != KindArray {
		return nil, false
	}
	return &v.arrVal, true
}

// AsStringRef returns a pointer to the string payload.
func (v *Value) AsStringRef() (*string, bool) {
	if v.Kind() != KindString {
		return nil, false
	}
	return &v.strVal, true
}

// AsDoubleRef returns a pointer to the double payload.
func (v *Value) AsDoubleRef() (*float64, bool) {
	if v.Kind() != KindDouble {
		return nil, false
	}
	return &v.numVal, true
}

// AsVectorRef returns a pointer to the vector payload.
func (v *Value) AsVectorRef() (*Vec3, bool) {
	if v.Kind() != KindVector {
		return nil, false
	}
	return &v.vecVal, true
}

// AsAngleRef returns a pointer to the angle payload.
func (v *Value) AsAngleRef() (*Vec3, bool) {
	if v.Kind() != KindAngle {
		return nil, false
	}
	return &v.vecVal, true
}

// AsBoolRef returns a pointer to the boolean payload.
func (v *Value) AsBoolRef() (*bool, bool) {
	if v.Kind() != KindBool {
		return nil, false
	}
	return &v.boolVal, true
}

// ============================================================
// Convenience
// ============================================================

// Len returns the number of entries of a table, elements of an array or
// bytes of a string. Other kinds report 0.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindTable:
		return v.tblVal.Len()
	case KindArray:
		return len(v.arrVal)
	case KindString:
		return len(v.strVal)
	default:
		return 0
	}
}

// Get looks up a string key on a table value. It returns nil when v is not
// a table or the key is absent.
func (v *Value) Get(key string) *Value {
	t, ok := v.AsTable()
	if !ok {
		return nil
	}
	return t.Get(String(key))
}

// Index returns the i-th element of an array value.
func (v *Value) Index(i int) (*Value, bool) {
	if v.Kind() != KindArray || i < 0 || i >= len(v.arrVal) {
		return nil, false
	}
	return v.arrVal[i], true
}

// Append adds elements to an array value.
func (v *Value) Append(values ...*Value) {
	if v.Kind() != KindArray {
		panic("lua: cannot append to " + v.Kind().String())
	}
	v.arrVal = append(v.arrVal, values...)
}

// Set stores a string-keyed entry on a table value.
func (v *Value) Set(key string, val *Value) {
	t, ok := v.AsTable()
	if !ok {
		panic("lua: cannot set field on " + v.Kind().String())
	}
	t.Set(String(key), val)
}

// String returns the compact text form of v.
func (v *Value) String() string {
	return EmitCompact(v)
}
