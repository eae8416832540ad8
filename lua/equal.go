package lua

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// ============================================================
// Structural Equality
// ============================================================

// Equal reports whether a and b hold the same kind and contents. Tables are
// compared without regard to order; NaN doubles equal each other.
func Equal(a, b *Value) bool {
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch a.kind {
	case KindBool:
		return a.boolVal == b.boolVal
	case KindDouble:
		return floatEqual(a.numVal, b.numVal)
	case KindString:
		return a.strVal == b.strVal
	case KindVector, KindAngle:
		for i := range a.vecVal {
			if !floatEqual(a.vecVal[i], b.vecVal[i]) {
				return false
			}
		}
		return true
	case KindArray:
		if len(a.arrVal) != len(b.arrVal) {
			return false
		}
		for i := range a.arrVal {
			if !Equal(a.arrVal[i], b.arrVal[i]) {
				return false
			}
		}
		return true
	case KindTable:
		if a.tblVal.Len() != b.tblVal.Len() {
			return false
		}
		equal := true
		a.tblVal.Range(func(k, v *Value) bool {
			other, ok := b.tblVal.Lookup(k)
			equal = ok && Equal(v, other)
			return equal
		})
		return equal
	default:
		return true
	}
}

func floatEqual(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

// ============================================================
// Hashing
// ============================================================

// Hash returns a structural hash of v consistent with Equal.
func Hash(v *Value) uint64 {
	h := fnv.New64a()
	var buf [8]byte

	writeU64 := func(x uint64) {
		binary.LittleEndian.PutUint64(buf[:], x)
		h.Write(buf[:])
	}

	h.Write([]byte{byte(v.Kind())})
	switch v.Kind() {
	case KindBool:
		if v.boolVal {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case KindDouble:
		writeU64(floatBits(v.numVal))
	case KindString:
		h.Write([]byte(v.strVal))
	case KindVector, KindAngle:
		for _, f := range v.vecVal {
			writeU64(floatBits(f))
		}
	case KindArray:
		writeU64(uint64(len(v.arrVal)))
		for _, e := range v.arrVal {
			writeU64(Hash(e))
		}
	case KindTable:
		// Summing entry hashes makes the result independent of order.
		var sum uint64
		v.tblVal.Range(func(k, val *Value) bool {
			sum += mix(Hash(k), Hash(val))
			return true
		})
		writeU64(uint64(v.tblVal.Len()))
		writeU64(sum)
	}
	return h.Sum64()
}

// floatBits maps floats that compare equal to the same bit pattern.
func floatBits(f float64) uint64 {
	switch {
	case f == 0:
		return 0
	case math.IsNaN(f):
		return 0x7ff8000000000001
	default:
		return math.Float64bits(f)
	}
}

func mix(k, v uint64) uint64 {
	x := k ^ (v*0x9e3779b97f4a7c15 + 0x632be59bd9b4e019)
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// ============================================================
// Copying
// ============================================================

// Clone returns a deep copy of v.
func Clone(v *Value) *Value {
	if v == nil {
		return nil
	}
	out := *v
	switch v.kind {
	case KindArray:
		out.arrVal = make([]*Value, len(v.arrVal))
		for i, e := range v.arrVal {
			out.arrVal[i] = Clone(e)
		}
	case KindTable:
		out.tblVal = CloneTable(v.tblVal)
	}
	return &out
}

// CloneTable returns a deep copy of t.
func CloneTable(t *Table) *Table {
	out := NewTableWithCapacity(t.Len())
	t.Range(func(k, v *Value) bool {
		out.Set(Clone(k), Clone(v))
		return true
	})
	return out
}
