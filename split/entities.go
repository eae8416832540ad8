package split

import (
	"errors"

	"github.com/Neumenon/adv2/lua"
)

// Root fields of a duplication value.
const (
	FieldEntities    = "Entities"
	FieldConstraints = "Constraints"
	FieldHeadEnt     = "HeadEnt"

	fieldIndex  = "Index"
	fieldEntity = "Entity"
)

// ErrNoEntities is returned when a root value has no Entities field.
var ErrNoEntities = errors.New("split: root has no Entities table")

// EntitySplit is the result of SplitEntities.
type EntitySplit struct {
	Chunks []*lua.Value

	// DroppedConstraints counts constraints that tie entities placed in
	// different chunks. They appear in no chunk.
	DroppedConstraints int
}

// SplitEntities divides a duplication root by its Entities table.
//
// Every chunk is a copy of root whose Entities holds its share of the
// entities, as SplitMap assigns them. HeadEnt.Index is reset to the first
// entity key of the chunk. A constraint is kept in a chunk when every
// Entity[*].Index it names belongs to that chunk; the rest are dropped.
// At most n chunks are produced and none of them is empty, unless root has
// no entities at all, in which case the single chunk is a clone of root.
func SplitEntities(root *lua.Value, n int) (*EntitySplit, error) {
	rootTbl, ok := root.AsTable()
	if !ok {
		return nil, &NotTableError{Kind: root.Kind()}
	}
	entsVal := rootTbl.GetString(FieldEntities)
	if entsVal == nil {
		return nil, ErrNoEntities
	}
	ents, ok := entsVal.AsTable()
	if !ok {
		return nil, &NotTableError{Field: FieldEntities, Kind: entsVal.Kind()}
	}
	if n < 1 {
		return nil, ErrInvalidChunkCount
	}
	if ents.Len() == 0 {
		return &EntitySplit{Chunks: []*lua.Value{lua.Clone(root)}}, nil
	}
	if n > ents.Len() {
		n = ents.Len()
	}

	parts, err := SplitMap(ents, n)
	if err != nil {
		return nil, err
	}

	var keptAny []bool
	if c := rootTbl.GetString(FieldConstraints); c.IsTable() || c.IsArray() {
		keptAny = make([]bool, c.Len())
	}

	out := &EntitySplit{Chunks: make([]*lua.Value, 0, len(parts))}
	for _, part := range parts {
		chunk := lua.NewTableWithCapacity(rootTbl.Len())
		for _, e := range rootTbl.Entries() {
			name, _ := e.Key.AsString()
			switch name {
			case FieldEntities:
				chunk.Set(lua.Clone(e.Key), lua.TableOf(part))
			case FieldConstraints:
				chunk.Set(lua.Clone(e.Key), filterConstraints(e.Value, part, keptAny))
			case FieldHeadEnt:
				chunk.Set(lua.Clone(e.Key), resetHead(e.Value, part))
			default:
				chunk.Set(lua.Clone(e.Key), lua.Clone(e.Value))
			}
		}
		out.Chunks = append(out.Chunks, lua.TableOf(chunk))
	}
	for _, k := range keptAny {
		if !k {
			out.DroppedConstraints++
		}
	}
	return out, nil
}

// resetHead points a HeadEnt table at the first entity of part.
func resetHead(head *lua.Value, part *lua.Table) *lua.Value {
	head = lua.Clone(head)
	t, ok := head.AsTable()
	if !ok || part.Len() == 0 {
		return head
	}
	t.Set(lua.String(fieldIndex), lua.Clone(part.Keys()[0]))
	return head
}

// filterConstraints keeps the constraints whose entity references all
// resolve in ents and marks their positions in keptAny. Constraints may be
// stored as a table or an array.
func filterConstraints(v *lua.Value, ents *lua.Table, keptAny []bool) *lua.Value {
	if arr, ok := v.AsArray(); ok {
		var kept []*lua.Value
		for i, c := range arr {
			if refsResolve(c, ents) {
				kept = append(kept, lua.Clone(c))
				keptAny[i] = true
			}
		}
		return lua.NewArray(kept...)
	}
	t, ok := v.AsTable()
	if !ok {
		return lua.Clone(v)
	}
	out := lua.NewTableWithCapacity(t.Len())
	for i, e := range t.Entries() {
		if refsResolve(e.Value, ents) {
			out.Set(lua.Clone(e.Key), lua.Clone(e.Value))
			keptAny[i] = true
		}
	}
	return lua.TableOf(out)
}

// ConstraintRefs returns the entity keys a constraint names through its
// Entity[*].Index fields.
func ConstraintRefs(constraint *lua.Value) []*lua.Value {
	ref := constraint.Get(fieldEntity)
	var refs []*lua.Value
	collect := func(e *lua.Value) {
		if idx := e.Get(fieldIndex); idx != nil {
			refs = append(refs, idx)
		}
	}
	if arr, ok := ref.AsArray(); ok {
		for _, e := range arr {
			collect(e)
		}
		return refs
	}
	if t, ok := ref.AsTable(); ok {
		t.Range(func(_, e *lua.Value) bool {
			collect(e)
			return true
		})
	}
	return refs
}

func refsResolve(constraint *lua.Value, ents *lua.Table) bool {
	for _, idx := range ConstraintRefs(constraint) {
		if !ents.Has(idx) {
			return false
		}
	}
	return true
}

// MergeEntities reassembles chunks produced by SplitEntities. Entities and
// constraints are united, HeadEnt is taken from the first chunk and every
// other root field must agree across chunks.
func MergeEntities(chunks ...*lua.Value) (*lua.Value, error) {
	if len(chunks) == 0 {
		return lua.NewTable(), nil
	}

	var (
		rest        []*lua.Value
		entities    []*lua.Value
		constraints []*lua.Value
	)
	for _, c := range chunks {
		t, ok := c.AsTable()
		if !ok {
			return nil, &NotTableError{Kind: c.Kind()}
		}
		other := lua.NewTableWithCapacity(t.Len())
		for _, e := range t.Entries() {
			name, _ := e.Key.AsString()
			switch name {
			case FieldEntities:
				entities = append(entities, e.Value)
			case FieldConstraints:
				constraints = append(constraints, e.Value)
			case FieldHeadEnt:
			default:
				other.Set(e.Key, e.Value)
			}
		}
		rest = append(rest, lua.TableOf(other))
	}

	merged, err := mergeTables("", rest)
	if err != nil {
		return nil, err
	}

	first, _ := chunks[0].AsTable()
	out := lua.NewTableWithCapacity(first.Len())
	for _, e := range first.Entries() {
		name, _ := e.Key.AsString()
		switch name {
		case FieldEntities:
			ents, err := mergeTables(FieldEntities, entities)
			if err != nil {
				return nil, err
			}
			out.Set(lua.Clone(e.Key), lua.TableOf(ents))
		case FieldConstraints:
			c, err := mergeConstraints(constraints)
			if err != nil {
				return nil, err
			}
			out.Set(lua.Clone(e.Key), c)
		case FieldHeadEnt:
			out.Set(lua.Clone(e.Key), lua.Clone(e.Value))
		default:
			out.Set(lua.Clone(e.Key), merged.Get(e.Key))
		}
	}
	// Fields missing from the first chunk.
	for _, e := range merged.Entries() {
		if !out.Has(e.Key) {
			out.Set(e.Key, e.Value)
		}
	}
	return lua.TableOf(out), nil
}

func mergeConstraints(parts []*lua.Value) (*lua.Value, error) {
	if len(parts) > 0 && parts[0].IsArray() {
		var all []*lua.Value
		for _, p := range parts {
			arr, ok := p.AsArray()
			if !ok {
				return nil, &NotTableError{Field: FieldConstraints, Kind: p.Kind()}
			}
		next:
			for _, c := range arr {
				for _, have := range all {
					if lua.Equal(have, c) {
						continue next
					}
				}
				all = append(all, lua.Clone(c))
			}
		}
		return lua.NewArray(all...), nil
	}
	t, err := mergeTables(FieldConstraints, parts)
	if err != nil {
		return nil, err
	}
	return lua.TableOf(t), nil
}
