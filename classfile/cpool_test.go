package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pack200go/unpack200/cpool"
)

func TestBuilder_Utf8DedupByContent(t *testing.T) {
	seg := &cpool.Pool{Utf8: []string{"foo", "bar", "foo"}}
	b := NewBuilder(seg)

	h1, err := b.Utf8FromSegment(1)
	require.NoError(t, err)
	h3, err := b.Utf8FromSegment(3)
	require.NoError(t, err)
	assert.Equal(t, h1, h3)
	assert.Equal(t, uint16(1), b.Resolve(h1))
}

func TestBuilder_LongWidensTwoSlots(t *testing.T) {
	seg := &cpool.Pool{
		Utf8: []string{"x"},
		Long: []int64{42},
	}
	b := NewBuilder(seg)

	utf8H, err := b.Utf8FromSegment(1)
	require.NoError(t, err)
	longH, err := b.Long(1)
	require.NoError(t, err)
	nextUtf8H := b.Utf8("y")

	assert.Equal(t, uint16(1), b.Resolve(utf8H))
	assert.Equal(t, uint16(2), b.Resolve(longH))
	assert.Equal(t, uint16(4), b.Resolve(nextUtf8H)) // long consumed slots 2 and 3
	assert.Equal(t, uint16(5), b.Count())
}

func TestBuilder_ClassInternsItsNameOnce(t *testing.T) {
	seg := &cpool.Pool{
		Utf8:  []string{"com/example/Foo"},
		Class: []int32{1},
	}
	b := NewBuilder(seg)

	h1, err := b.Class(1)
	require.NoError(t, err)
	h2, err := b.Class(1)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, b.Entries(), 2) // the Utf8 name plus the Class entry
}

func TestBuilder_OutOfRangeIndexErrors(t *testing.T) {
	seg := &cpool.Pool{Utf8: []string{"only"}}
	b := NewBuilder(seg)
	_, err := b.Utf8FromSegment(2)
	require.Error(t, err)
}
