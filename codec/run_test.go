package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pack200go/unpack200/streamio"
)

func TestRun_SplitsBetweenHalves(t *testing.T) {
	a := New(1, 256, SignUnsigned, false)
	b := New(1, 256, SignZigzag, false)
	run := NewRun(2, a, b)

	// a decodes the first 2 raw bytes at face value; b decodes the next
	// 2 through zig-zag.
	r := streamio.New(bytes.NewReader([]byte{10, 20, 1, 2}))
	out, err := run.DecodeMany(4, r)
	require.NoError(t, err)
	assert.Equal(t, []int32{10, 20, -1, 1}, out)
}

func TestRun_DecodeOneAdvancesAcrossHalves(t *testing.T) {
	a := New(1, 256, SignUnsigned, false)
	b := New(1, 256, SignUnsigned, false)
	run := NewRun(1, a, b)
	r := streamio.New(bytes.NewReader([]byte{5, 6, 7}))

	for _, want := range []int32{5, 6, 7} {
		v, err := run.DecodeOne(r)
		require.NoError(t, err)
		assert.EqualValues(t, want, v)
	}
}
