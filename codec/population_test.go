package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pack200go/unpack200/streamio"
)

func TestPopulation_Scenario5(t *testing.T) {
	byte1 := New(1, 256, SignUnsigned, false)
	pop := NewPopulation(byte1, byte1, byte1, 255)

	in := []byte{4, 5, 6, 4, 2, 1, 3, 0, 7}
	r := streamio.New(bytes.NewReader(in))
	out, err := pop.DecodeMany(4, r)
	require.NoError(t, err)
	assert.Equal(t, []int32{5, 4, 6, 7}, out)
}

func TestPopulation_DecodeOneFails(t *testing.T) {
	byte1 := New(1, 256, SignUnsigned, false)
	pop := NewPopulation(byte1, byte1, byte1, 255)
	r := streamio.New(bytes.NewReader([]byte{1}))
	_, err := pop.DecodeOne(r)
	require.Error(t, err)
}
