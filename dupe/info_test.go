package dupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []InfoField
	}{
		{"empty", "", []InfoField{}},
		{"single", "name\x01test", []InfoField{{"name", "test"}}},
		{"trailing separator", "name\x01test\x01", []InfoField{{"name", "test"}}},
		{"empty value", "name\x01\x01size\x015", []InfoField{{"name", ""}, {"size", "5"}}},
		{"unknown keys kept in order", "zz\x011\x01aa\x012", []InfoField{{"zz", "1"}, {"aa", "2"}}},
		{"duplicate key", "name\x01a\x01name\x01b", []InfoField{{"name", "b"}}},
		{"check", "check\x01\r\n\t\n", []InfoField{{"check", CheckValue}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseInfo([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Fields())
		})
	}
}

func TestParseInfo_Errors(t *testing.T) {
	_, err := ParseInfo([]byte("name\x01a\x01size"))
	assert.ErrorIs(t, err, ErrInvalidInfo)

	_, err = ParseInfo([]byte("check\x01wrong"))
	assert.ErrorIs(t, err, ErrCheckMismatch)

	_, err = ParseInfo([]byte("name\x01\xff"))
	assert.ErrorIs(t, err, ErrInvalidUTF8)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestInfo_Accessors(t *testing.T) {
	info := &Info{}
	info.SetPlayerName("Garry")
	info.SetDate("2024-05-01")
	info.SetTime("12:30")
	info.SetTimeZone("-0500")
	info.SetSize(1234)

	assert.Equal(t, "Garry", info.PlayerName())
	assert.Equal(t, "2024-05-01", info.Date())
	assert.Equal(t, "12:30", info.Time())
	assert.Equal(t, "-0500", info.TimeZone())
	size, ok := info.Size()
	assert.True(t, ok)
	assert.Equal(t, uint64(1234), size)
	assert.Equal(t, 5, info.Len())

	info.Set(KeySize, "lots")
	_, ok = info.Size()
	assert.False(t, ok)

	assert.True(t, info.Delete(KeySize))
	assert.False(t, info.Delete(KeySize))
	_, ok = info.Size()
	assert.False(t, ok)
}

func TestInfo_SetKeepsPosition(t *testing.T) {
	info := NewInfo(InfoField{"a", "1"}, InfoField{"b", "2"})
	info.Set("a", "3")
	assert.Equal(t, []InfoField{{"a", "3"}, {"b", "2"}}, info.Fields())
}

func TestInfo_Clone(t *testing.T) {
	info := NewInfo(InfoField{"a", "1"})
	c := info.Clone()
	c.Set("a", "2")
	v, _ := info.Get("a")
	assert.Equal(t, "1", v)
}

func TestInfo_NilSafe(t *testing.T) {
	var info *Info
	assert.Equal(t, 0, info.Len())
	assert.Nil(t, info.Fields())
	_, ok := info.Get(KeyName)
	assert.False(t, ok)
	assert.Equal(t, "", info.PlayerName())
}
