package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pack200go/unpack200/streamio"
)

func decodeAll(t *testing.T, c Codec, data []byte, n int) []int32 {
	t.Helper()
	r := streamio.New(bytes.NewReader(data))
	out, err := c.DecodeMany(n, r)
	require.NoError(t, err)

	return out
}

func TestBHSD_UnsignedSingleByte(t *testing.T) {
	c := New(1, 256, SignUnsigned, false)
	out := decodeAll(t, c, []byte{0x00, 0x05, 0x0A}, 3)
	assert.Equal(t, []int32{0, 5, 10}, out)
}

func TestBHSD_SignedZigzag(t *testing.T) {
	c := New(1, 256, SignBias2, false)
	in := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	out := decodeAll(t, c, in, len(in))
	assert.Equal(t, []int32{0, 1, 2, -1, 3, 4, 5, -2, 6, 7, 8, -3}, out)
}

func TestBHSD_Delta1Byte(t *testing.T) {
	c := New(1, 256, SignUnsigned, true)
	c.Reset(0)
	out := decodeAll(t, c, []byte{1, 1, 1, 1}, 4)
	assert.Equal(t, []int32{1, 2, 3, 4}, out)
}

func TestBHSD_DeltaWithoutSeedFails(t *testing.T) {
	c := New(1, 256, SignUnsigned, true)
	r := streamio.New(bytes.NewReader([]byte{1}))
	_, err := c.DecodeOne(r)
	require.Error(t, err)
}

func TestBHSD_CardinalityAndBounds(t *testing.T) {
	c := New(1, 256, SignUnsigned, false)
	assert.EqualValues(t, 256, c.Cardinality())
	assert.Equal(t, int64(0), c.Smallest())
	assert.Equal(t, int64(255), c.Largest())
}

func TestBHSD_String(t *testing.T) {
	assert.Equal(t, "(5,64)", New(5, 64, SignUnsigned, false).String())
	assert.Equal(t, "(5,64,1)", New(5, 64, SignZigzag, false).String())
	assert.Equal(t, "(5,64,1,1)", New(5, 64, SignZigzag, true).String())
}

func TestBHSD_NewPanicsOnInvalidParams(t *testing.T) {
	assert.Panics(t, func() { New(1, 128, SignUnsigned, false) })
	assert.Panics(t, func() { New(5, 256, SignUnsigned, false) })
	assert.Panics(t, func() { New(6, 128, SignUnsigned, false) })
}

func TestBHSD_UnsignedContinuation(t *testing.T) {
	c := New(2, 64, SignUnsigned, false)

	out := decodeAll(t, c, []byte{192, 1}, 1)
	assert.Equal(t, []int32{256}, out)

	out = decodeAll(t, c, []byte{255, 191}, 1)
	assert.Equal(t, []int32{12479}, out)

	c3 := New(3, 64, SignUnsigned, false)
	out = decodeAll(t, c3, []byte{192, 192, 0}, 1)
	assert.Equal(t, []int32{12480}, out)
}

func TestBHSD_Canonical26_DecodeMany(t *testing.T) {
	c, ok := LookupCanonical(26)
	require.True(t, ok)
	out := decodeAll(t, c, []byte{0x00, 0x05, 0x0A, 0xC0, 0x01, 0x40}, 5)
	assert.Equal(t, []int32{0, 5, 10, 256, 64}, out)
}

func TestBHSD_EncodeOne_MatchesLiteralVectors(t *testing.T) {
	c := New(2, 64, SignUnsigned, false)
	raw, err := c.EncodeOne(256)
	require.NoError(t, err)
	assert.Equal(t, []byte{192, 1}, raw)

	raw, err = c.EncodeOne(12479)
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 191}, raw)

	c3 := New(3, 64, SignUnsigned, false)
	raw, err = c3.EncodeOne(12480)
	require.NoError(t, err)
	assert.Equal(t, []byte{192, 192, 0}, raw)
}

func TestBHSD_Invertibility(t *testing.T) {
	// Covers every canonical codec, sampling a handful of values across
	// the codec's range rather than the full space.
	for i := 1; i <= canonicalCount; i++ {
		c, ok := LookupCanonical(i)
		require.True(t, ok)

		samples := []int64{c.smallest, c.largest}
		if mid := c.smallest + (c.largest-c.smallest)/2; mid != c.smallest && mid != c.largest {
			samples = append(samples, mid)
		}

		for _, v := range samples {
			raw, err := c.EncodeOne(v)
			require.NoError(t, err, "codec %s value %d", c, v)

			r := streamio.New(bytes.NewReader(raw))
			if c.IsDelta() {
				c.Reset(0)
			}
			back, err := c.DecodeOne(r)
			require.NoError(t, err, "codec %s value %d", c, v)
			assert.Equal(t, v, back, "codec %s value %d round-trip", c, v)
		}
	}
}

func TestBHSD_DeltaWraps(t *testing.T) {
	c := New(1, 256, SignUnsigned, true)
	c.Reset(250)
	r := streamio.New(bytes.NewReader([]byte{10}))
	v, err := c.DecodeOne(r)
	require.NoError(t, err)
	// 250+10=260, wraps modulo 256 back into [0,255].
	assert.Equal(t, int64(4), v)
}
