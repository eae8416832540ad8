package lua

// Entry is a key/value pair of a Table.
type Entry struct {
	Key   *Value
	Value *Value
}

// Table is an insertion-ordered map from Value to Value. Keys are unique
// under Equal. The zero Table is empty and ready to use.
type Table struct {
	entries []Entry
	index   map[uint64][]int // Hash(key) -> positions in entries
}

// NewTableWithCapacity returns an empty table with room for n entries.
func NewTableWithCapacity(n int) *Table {
	return &Table{
		entries: make([]Entry, 0, n),
		index:   make(map[uint64][]int, n),
	}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// find returns the position of key, or -1.
func (t *Table) find(key *Value, h uint64) int {
	if t == nil {
		return -1
	}
	for _, pos := range t.index[h] {
		if Equal(t.entries[pos].Key, key) {
			return pos
		}
	}
	return -1
}

// Lookup returns the value stored under key.
func (t *Table) Lookup(key *Value) (*Value, bool) {
	if key == nil {
		return nil, false
	}
	pos := t.find(key, Hash(key))
	if pos < 0 {
		return nil, false
	}
	return t.entries[pos].Value, true
}

// Get returns the value stored under key, or nil.
func (t *Table) Get(key *Value) *Value {
	v, _ := t.Lookup(key)
	return v
}

// GetString returns the value stored under a string key, or nil.
func (t *Table) GetString(key string) *Value {
	return t.Get(String(key))
}

// Has reports whether key is present.
func (t *Table) Has(key *Value) bool {
	_, ok := t.Lookup(key)
	return ok
}

// Set stores val under key. Replacing an existing key keeps its position.
// A nil val deletes the key, mirroring Lua assignment of nil.
func (t *Table) Set(key, val *Value) {
	if key == nil || key.kind == KindInvalid {
		panic("lua: invalid table key")
	}
	if val == nil {
		t.Delete(key)
		return
	}
	h := Hash(key)
	if pos := t.find(key, h); pos >= 0 {
		t.entries[pos].Value = val
		return
	}
	if t.index == nil {
		t.index = make(map[uint64][]int)
	}
	t.index[h] = append(t.index[h], len(t.entries))
	t.entries = append(t.entries, Entry{Key: key, Value: val})
}

// Delete removes key and reports whether it was present.
func (t *Table) Delete(key *Value) bool {
	if key == nil {
		return false
	}
	pos := t.find(key, Hash(key))
	if pos < 0 {
		return false
	}
	t.entries = append(t.entries[:pos], t.entries[pos+1:]...)
	t.reindex()
	return true
}

func (t *Table) reindex() {
	t.index = make(map[uint64][]int, len(t.entries))
	for i, e := range t.entries {
		h := Hash(e.Key)
		t.index[h] = append(t.index[h], i)
	}
}

// Entries returns a copy of the entries in iteration order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Keys returns the keys in iteration order.
func (t *Table) Keys() []*Value {
	if t == nil {
		return nil
	}
	keys := make([]*Value, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.Key
	}
	return keys
}

// Range calls fn for each entry in iteration order until fn returns false.
// fn must not add or remove keys.
func (t *Table) Range(fn func(key, val *Value) bool) {
	if t == nil {
		return
	}
	for _, e := range t.entries {
		if !fn(e.Key, e.Value) {
			return
		}
	}
}
