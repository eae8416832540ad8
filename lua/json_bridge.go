package lua

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// ============================================================
// JSON Bridge
// ============================================================
//
// Values map onto a generic tree of any (map[string]any, []any, string,
// float64, bool) that encoding/json, YAML and CBOR encoders accept.
//
// Kinds JSON cannot express use a marker object:
//
//	{"$lua":"vector","v":[x,y,z]}
//	{"$lua":"angle","v":[p,y,r]}
//	{"$lua":"double","v":"NaN"}            non-finite doubles
//	{"$lua":"table","entries":[[k,v],...]} tables with non-string keys
//
// A table whose keys are all strings (and none is "$lua") becomes a plain
// object.

// MarkerKey is the object key that flags an extended value.
const MarkerKey = "$lua"

// ToJSON encodes v as JSON.
func ToJSON(v *Value) ([]byte, error) {
	tree, err := ToJSONValue(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// FromJSON decodes JSON produced by ToJSON (or any JSON without nulls).
func FromJSON(data []byte) (*Value, error) {
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	return FromJSONValue(tree)
}

// ToJSONValue converts v to a generic tree.
func ToJSONValue(v *Value) (any, error) {
	switch v.Kind() {
	case KindBool:
		return v.boolVal, nil
	case KindString:
		return v.strVal, nil
	case KindDouble:
		return doubleToJSON(v.numVal), nil
	case KindVector, KindAngle:
		return map[string]any{
			MarkerKey: v.kind.String(),
			"v":       []any{doubleToJSON(v.vecVal[0]), doubleToJSON(v.vecVal[1]), doubleToJSON(v.vecVal[2])},
		}, nil
	case KindArray:
		items := make([]any, 0, len(v.arrVal))
		for i, elem := range v.arrVal {
			item, err := ToJSONValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return items, nil
	case KindTable:
		return tableToJSON(v.tblVal)
	default:
		return nil, fmt.Errorf("lua: cannot convert %s value", v.Kind())
	}
}

func doubleToJSON(f float64) any {
	switch {
	case math.IsNaN(f):
		return map[string]any{MarkerKey: "double", "v": "NaN"}
	case math.IsInf(f, 1):
		return map[string]any{MarkerKey: "double", "v": "+Inf"}
	case math.IsInf(f, -1):
		return map[string]any{MarkerKey: "double", "v": "-Inf"}
	default:
		return f
	}
}

func tableToJSON(t *Table) (any, error) {
	plain := true
	t.Range(func(k, _ *Value) bool {
		s, ok := k.AsString()
		plain = ok && s != MarkerKey
		return plain
	})

	if plain {
		obj := make(map[string]any, t.Len())
		var err error
		t.Range(func(k, v *Value) bool {
			var item any
			if item, err = ToJSONValue(v); err != nil {
				err = fmt.Errorf("table[%q]: %w", k.strVal, err)
				return false
			}
			obj[k.strVal] = item
			return true
		})
		return obj, err
	}

	entries := make([]any, 0, t.Len())
	var err error
	t.Range(func(k, v *Value) bool {
		var jk, jv any
		if jk, err = ToJSONValue(k); err != nil {
			err = fmt.Errorf("table key %s: %w", EmitCompact(k), err)
			return false
		}
		if jv, err = ToJSONValue(v); err != nil {
			err = fmt.Errorf("table[%s]: %w", EmitCompact(k), err)
			return false
		}
		entries = append(entries, []any{jk, jv})
		return true
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{MarkerKey: "table", "entries": entries}, nil
}

// FromJSONValue converts a generic tree back into a Value.
func FromJSONValue(tree any) (*Value, error) {
	switch val := tree.(type) {
	case nil:
		return nil, fmt.Errorf("lua: null has no value representation")
	case bool:
		return Bool(val), nil
	case float64:
		return Double(val), nil
	case int:
		return Double(float64(val)), nil
	case int64:
		return Double(float64(val)), nil
	case uint64:
		return Double(float64(val)), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("lua: invalid number %q: %w", val, err)
		}
		return Double(f), nil
	case string:
		return String(val), nil
	case []any:
		items := make([]*Value, 0, len(val))
		for i, elem := range val {
			item, err := FromJSONValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return NewArray(items...), nil
	case map[string]any:
		if marker, ok := val[MarkerKey]; ok {
			return fromMarker(marker, val)
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		// Sort for determinism
		sort.Strings(keys)

		t := NewTableWithCapacity(len(keys))
		for _, k := range keys {
			item, err := FromJSONValue(val[k])
			if err != nil {
				return nil, fmt.Errorf("table[%q]: %w", k, err)
			}
			t.Set(String(k), item)
		}
		return TableOf(t), nil
	default:
		return nil, fmt.Errorf("lua: unsupported JSON type %T", tree)
	}
}

func fromMarker(marker any, obj map[string]any) (*Value, error) {
	switch marker {
	case "vector", "angle":
		raw, ok := obj["v"].([]any)
		if !ok || len(raw) != 3 {
			return nil, fmt.Errorf("lua: %s needs three components", marker)
		}
		var vec Vec3
		for i, c := range raw {
			f, err := jsonToDouble(c)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", marker, i, err)
			}
			vec[i] = f
		}
		if marker == "vector" {
			return VectorOf(vec), nil
		}
		return AngleOf(vec), nil

	case "double":
		f, err := jsonToDouble(obj)
		if err != nil {
			return nil, err
		}
		return Double(f), nil

	case "table":
		raw, ok := obj["entries"].([]any)
		if !ok {
			return nil, fmt.Errorf("lua: table marker without entries")
		}
		t := NewTableWithCapacity(len(raw))
		for i, e := range raw {
			pair, ok := e.([]any)
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("lua: table entry %d is not a [key, value] pair", i)
			}
			k, err := FromJSONValue(pair[0])
			if err != nil {
				return nil, fmt.Errorf("table entry %d key: %w", i, err)
			}
			v, err := FromJSONValue(pair[1])
			if err != nil {
				return nil, fmt.Errorf("table entry %d value: %w", i, err)
			}
			t.Set(k, v)
		}
		return TableOf(t), nil

	default:
		return nil, fmt.Errorf("lua: unknown marker %v", marker)
	}
}

func jsonToDouble(x any) (float64, error) {
	switch val := x.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case map[string]any:
		if val[MarkerKey] != "double" {
			return 0, fmt.Errorf("lua: expected double marker")
		}
		switch val["v"] {
		case "NaN":
			return math.NaN(), nil
		case "+Inf":
			return math.Inf(1), nil
		case "-Inf":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("lua: invalid double marker value %v", val["v"])
	default:
		return 0, fmt.Errorf("lua: expected number, got %T", x)
	}
}
