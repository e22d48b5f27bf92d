package segment

import (
	"bytes"
	"testing"

	"github.com/pack200go/unpack200/classbands"
	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/cpool"
	"github.com/pack200go/unpack200/streamio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassNameOf(t *testing.T) {
	cp := &cpool.Pool{
		Utf8:  []string{"java/lang/Object"},
		Class: []int32{1},
	}

	name, err := classNameOf(cp, 1)
	require.NoError(t, err)
	assert.Equal(t, "java/lang/Object", name)
}

func TestClassNameOf_OutOfRangeErrors(t *testing.T) {
	cp := &cpool.Pool{}
	_, err := classNameOf(cp, 1)
	assert.Error(t, err)
}

func TestDecodeBytecode_SkipsMethodsWithoutCode(t *testing.T) {
	r := streamio.New(bytes.NewReader([]byte{0x00})) // a single nop for the one method with Code
	def := codec.New(1, 256, codec.SignUnsigned, false)
	reg := codec.NewRegistry(def)

	withCode := &classbands.Method{Code: &classbands.Code{CodeLen: 1}}
	withoutCode := &classbands.Method{}
	result := &classbands.Result{
		Classes: []*classbands.Class{
			{Methods: []classbands.Method{*withCode, *withoutCode}},
		},
	}

	bcByMethod, err := decodeBytecode(r, reg, result)
	require.NoError(t, err)
	assert.Len(t, bcByMethod, 1)

	for _, instrs := range bcByMethod {
		require.Len(t, instrs, 1)
		assert.Equal(t, byte(0x00), instrs[0].Opcode)
	}
}
