package attr

import (
	"bytes"
	"testing"

	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/streamio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSequence_IntegralPair(t *testing.T) {
	elems, err := Parse("BH")
	require.NoError(t, err)

	r := streamio.New(bytes.NewReader([]byte{5, 9}))
	def := codec.New(1, 256, codec.SignUnsigned, false)
	ctx := NewContext(codec.NewRegistry(def), elems)

	vals, err := ctx.DecodeSequence(elems, r, def)
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Equal(t, int64(5), vals[0].Int)
	assert.Equal(t, int64(9), vals[1].Int)
}

func TestDecodeSequence_Replication(t *testing.T) {
	elems, err := Parse("NB[H]")
	require.NoError(t, err)

	// count=3, followed by 3 replicated H values.
	r := streamio.New(bytes.NewReader([]byte{3, 10, 20, 30}))
	def := codec.New(1, 256, codec.SignUnsigned, false)
	ctx := NewContext(codec.NewRegistry(def), elems)

	vals, err := ctx.DecodeSequence(elems, r, def)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	rep := vals[0]
	assert.Equal(t, int64(3), rep.Int)
	require.Len(t, rep.Children, 3)
	assert.Equal(t, []int64{10, 20, 30}, []int64{
		rep.Children[0].Children[0].Int,
		rep.Children[1].Children[0].Int,
		rep.Children[2].Children[0].Int,
	})
}

func TestDecodeSequence_UnionPicksMatchingCase(t *testing.T) {
	elems, err := Parse("TB(0)[RCH](1,2)[RUH]()[]")
	require.NoError(t, err)

	// tag=1 selects the (1,2) case, which reads one RU.
	r := streamio.New(bytes.NewReader([]byte{1, 42}))
	def := codec.New(1, 256, codec.SignUnsigned, false)
	ctx := NewContext(codec.NewRegistry(def), elems)

	vals, err := ctx.DecodeSequence(elems, r, def)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, int64(1), vals[0].Int)
	require.Len(t, vals[0].Children, 1)
	assert.Equal(t, int64(42), vals[0].Children[0].Int)
}

func TestDecodeSequence_CallResolvesCallable(t *testing.T) {
	elems, err := Parse("[RC](0)")
	require.NoError(t, err)

	r := streamio.New(bytes.NewReader([]byte{7}))
	def := codec.New(1, 256, codec.SignUnsigned, false)
	ctx := NewContext(codec.NewRegistry(def), elems)

	vals, err := ctx.DecodeSequence(elems, r, def)
	require.NoError(t, err)
	require.Len(t, vals, 2)
	// the Callable itself decodes to nothing inline...
	assert.Equal(t, Value{}, vals[0])
	// ...the Call resolves it and decodes its body.
	require.Len(t, vals[1].Children, 1)
	assert.Equal(t, int64(7), vals[1].Children[0].Int)
}

func TestDecodeSequence_UnknownCallErrors(t *testing.T) {
	elems, err := Parse("(0)")
	require.NoError(t, err)

	r := streamio.New(bytes.NewReader(nil))
	def := codec.New(1, 256, codec.SignUnsigned, false)
	ctx := NewContext(codec.NewRegistry(def), elems)

	_, err = ctx.DecodeSequence(elems, r, def)
	require.Error(t, err)
}
