// Package split partitions large duplication tables into balanced chunks
// and merges them back.
package split

import (
	"errors"
	"fmt"

	"github.com/Neumenon/adv2/lua"
)

var (
	// ErrInvalidChunkCount is returned for a chunk count below one.
	ErrInvalidChunkCount = errors.New("split: chunk count must be at least 1")

	// ErrNotTable is matched by *NotTableError.
	ErrNotTable = errors.New("split: value is not a table")

	// ErrKeyConflict is matched by *KeyConflictError.
	ErrKeyConflict = errors.New("split: conflicting values for key")
)

// NotTableError reports a value that had to be a table.
type NotTableError struct {
	Field string // empty for the root value
	Kind  lua.Kind
}

func (e *NotTableError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("split: root is %s, not a table", e.Kind)
	}
	return fmt.Sprintf("split: field %q is %s, not a table", e.Field, e.Kind)
}

func (e *NotTableError) Is(target error) bool { return target == ErrNotTable }

// KeyConflictError reports a key present in several merge inputs with
// different values.
type KeyConflictError struct {
	Field string
	Key   *lua.Value
}

func (e *KeyConflictError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("split: key %s has conflicting values", lua.EmitCompact(e.Key))
	}
	return fmt.Sprintf("split: key %s of %q has conflicting values", lua.EmitCompact(e.Key), e.Field)
}

func (e *KeyConflictError) Is(target error) bool { return target == ErrKeyConflict }

// ChunkSizes returns how many of k entries go to each of n chunks: the
// first k mod n chunks receive one entry more than the rest.
func ChunkSizes(k, n int) ([]int, error) {
	if n < 1 {
		return nil, ErrInvalidChunkCount
	}
	sizes := make([]int, n)
	base, rem := k/n, k%n
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes, nil
}

// SplitMap divides t into n tables. Entries are cloned and assigned
// contiguously in t's iteration order; chunk sizes follow ChunkSizes, so
// every entry lands in exactly one chunk and sizes differ by at most one.
// When n exceeds t.Len() the trailing chunks are empty.
func SplitMap(t *lua.Table, n int) ([]*lua.Table, error) {
	sizes, err := ChunkSizes(t.Len(), n)
	if err != nil {
		return nil, err
	}

	entries := t.Entries()
	chunks := make([]*lua.Table, n)
	pos := 0
	for i, size := range sizes {
		chunk := lua.NewTableWithCapacity(size)
		for _, e := range entries[pos : pos+size] {
			chunk.Set(lua.Clone(e.Key), lua.Clone(e.Value))
		}
		chunks[i] = chunk
		pos += size
	}
	return chunks, nil
}

// SplitTables is SplitMap for a value that must hold a table.
func SplitTables(v *lua.Value, n int) ([]*lua.Value, error) {
	t, ok := v.AsTable()
	if !ok {
		return nil, &NotTableError{Kind: v.Kind()}
	}
	tables, err := SplitMap(t, n)
	if err != nil {
		return nil, err
	}
	out := make([]*lua.Value, len(tables))
	for i, c := range tables {
		out[i] = lua.TableOf(c)
	}
	return out, nil
}
