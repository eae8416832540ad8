package split

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/adv2/lua"
)

// ============================================================
// Helpers
// ============================================================

func numberedTable(k int) *lua.Table {
	t := &lua.Table{}
	for i := 1; i <= k; i++ {
		t.Set(lua.Double(float64(i)), lua.String(fmt.Sprintf("v%d", i)))
	}
	return t
}

func sizesOf(chunks []*lua.Table) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = c.Len()
	}
	return out
}

// ============================================================
// SplitMap
// ============================================================

func TestSplitMap_Sizes(t *testing.T) {
	tests := []struct {
		k, n int
		want []int
	}{
		{10, 3, []int{4, 3, 3}},
		{9, 3, []int{3, 3, 3}},
		{11, 4, []int{3, 3, 3, 2}},
		{5, 1, []int{5}},
		{2, 4, []int{1, 1, 0, 0}},
		{0, 3, []int{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.k, tt.n), func(t *testing.T) {
			chunks, err := SplitMap(numberedTable(tt.k), tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sizesOf(chunks))
		})
	}
}

func TestSplitMap_PartitionsEntries(t *testing.T) {
	src := numberedTable(17)
	chunks, err := SplitMap(src, 5)
	require.NoError(t, err)

	seen := &lua.Table{}
	for _, c := range chunks {
		for _, e := range c.Entries() {
			require.False(t, seen.Has(e.Key), "key %s in two chunks", e.Key)
			seen.Set(e.Key, e.Value)
			assert.True(t, lua.Equal(src.Get(e.Key), e.Value))
		}
	}
	assert.Equal(t, src.Len(), seen.Len())
}

func TestSplitMap_ContiguousOrder(t *testing.T) {
	chunks, err := SplitMap(numberedTable(5), 2)
	require.NoError(t, err)

	keys := func(tb *lua.Table) []float64 {
		var out []float64
		for _, k := range tb.Keys() {
			f, _ := k.AsDouble()
			out = append(out, f)
		}
		return out
	}
	assert.Equal(t, []float64{1, 2, 3}, keys(chunks[0]))
	assert.Equal(t, []float64{4, 5}, keys(chunks[1]))
}

func TestSplitMap_ClonesEntries(t *testing.T) {
	src := &lua.Table{}
	inner := lua.NewTable(lua.Field("x", lua.Double(1)))
	src.Set(lua.String("a"), inner)

	chunks, err := SplitMap(src, 1)
	require.NoError(t, err)
	chunks[0].GetString("a").Set("x", lua.Double(2))

	assert.True(t, lua.Equal(lua.Double(1), inner.Get("x")))
}

func TestSplitMap_InvalidCount(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := SplitMap(numberedTable(3), n)
		assert.ErrorIs(t, err, ErrInvalidChunkCount)
	}
}

func TestSplitMap_NilTable(t *testing.T) {
	chunks, err := SplitMap(nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, sizesOf(chunks))
}

// ============================================================
// SplitTables / Merge
// ============================================================

func TestSplitTables_NotTable(t *testing.T) {
	tests := []struct {
		name string
		root *lua.Value
		kind lua.Kind
	}{
		{"array", lua.NewArray(lua.Bool(true)), lua.KindArray},
		{"double", lua.Double(1.5), lua.KindDouble},
		{"string", lua.String("entities"), lua.KindString},
		{"bool", lua.Bool(false), lua.KindBool},
		{"vector", lua.Vector(1, 2, 3), lua.KindVector},
		{"angle", lua.Angle(0, 90, 0), lua.KindAngle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, err := SplitTables(tt.root, 2)
			require.Error(t, err)
			assert.Nil(t, parts)
			assert.ErrorIs(t, err, ErrNotTable)

			var nte *NotTableError
			require.ErrorAs(t, err, &nte)
			assert.Equal(t, tt.kind, nte.Kind)
		})
	}
}

func TestSplitTables_Empty(t *testing.T) {
	parts, err := SplitTables(lua.NewTable(), 3)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	for i, p := range parts {
		assert.True(t, p.IsTable(), "part %d", i)
		assert.Equal(t, 0, p.Len(), "part %d", i)
	}
}

func TestSplitTables_MergeRoundTrip(t *testing.T) {
	src := lua.TableOf(numberedTable(23))
	for n := 1; n <= 30; n += 7 {
		parts, err := SplitTables(src, n)
		require.NoError(t, err)
		require.Len(t, parts, n)

		merged, err := Merge(parts...)
		require.NoError(t, err)
		assert.True(t, lua.Equal(src, merged), "n=%d", n)
	}
}

func TestMerge_EqualDuplicatesCollapse(t *testing.T) {
	a := lua.NewTable(lua.Field("k", lua.Double(1)), lua.Field("a", lua.Bool(true)))
	b := lua.NewTable(lua.Field("k", lua.Double(1)), lua.Field("b", lua.Bool(false)))

	merged, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Len())
}

func TestMerge_Conflict(t *testing.T) {
	a := lua.NewTable(lua.Field("k", lua.Double(1)))
	b := lua.NewTable(lua.Field("k", lua.Double(2)))

	_, err := Merge(a, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyConflict)

	var kce *KeyConflictError
	require.ErrorAs(t, err, &kce)
	assert.True(t, lua.Equal(lua.String("k"), kce.Key))
}

func TestMerge_Empty(t *testing.T) {
	merged, err := Merge()
	require.NoError(t, err)
	assert.True(t, merged.IsTable())
	assert.Equal(t, 0, merged.Len())
}

func TestChunkSizes(t *testing.T) {
	sizes, err := ChunkSizes(7, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 2}, sizes)

	_, err = ChunkSizes(7, 0)
	assert.ErrorIs(t, err, ErrInvalidChunkCount)
}
