package split

import "github.com/Neumenon/adv2/lua"

// Merge is the inverse of SplitTables: it returns the union of the given
// tables. A key found in several inputs must carry equal values there, or
// Merge fails with *KeyConflictError. Key order follows first appearance.
func Merge(values ...*lua.Value) (*lua.Value, error) {
	t, err := mergeTables("", values)
	if err != nil {
		return nil, err
	}
	return lua.TableOf(t), nil
}

func mergeTables(field string, values []*lua.Value) (*lua.Table, error) {
	total := 0
	for _, v := range values {
		t, ok := v.AsTable()
		if !ok {
			return nil, &NotTableError{Field: field, Kind: v.Kind()}
		}
		total += t.Len()
	}

	out := lua.NewTableWithCapacity(total)
	for _, v := range values {
		t, _ := v.AsTable()
		for _, e := range t.Entries() {
			if have, ok := out.Lookup(e.Key); ok {
				if !lua.Equal(have, e.Value) {
					return nil, &KeyConflictError{Field: field, Key: lua.Clone(e.Key)}
				}
				continue
			}
			out.Set(lua.Clone(e.Key), lua.Clone(e.Value))
		}
	}
	return out, nil
}
