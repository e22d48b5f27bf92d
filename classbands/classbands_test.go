package classbands

import (
	"bytes"
	"testing"

	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/cpool"
	"github.com/pack200go/unpack200/streamio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defCodec() *codec.BHSD {
	return codec.New(1, 256, codec.SignUnsigned, false)
}

func TestReadFlagWord(t *testing.T) {
	assert.Equal(t, uint32(AccPublic), readFlagWord(int32(AccPublic), 0, false))
	assert.Equal(t, uint32(AccPublic)|(uint32(AccEnum)<<16), readFlagWord(int32(AccPublic), int32(AccEnum), true))
}

func TestMarkerBitFor_DedicatedBitsForMarkerAttrs(t *testing.T) {
	assert.Equal(t, attrFlagDeprecated, markerBitFor("Deprecated"))
	assert.Equal(t, attrFlagSynthetic, markerBitFor("Synthetic"))
	assert.NotEqual(t, markerBitFor("Deprecated"), markerBitFor("Synthetic"))
}

func TestRead_SingleEmptyClass(t *testing.T) {
	buf := []byte{
		3, // class_this
		2, // class_super
		0, // class_interface_count
		0, // class_field_count
		0, // class_method_count
		byte(AccPublic), // class_flags_lo
		0,                // attr_overflow_count
	}
	r := streamio.New(bytes.NewReader(buf))
	def := defCodec()
	reg := codec.NewRegistry(def)

	result, err := Read(r, &cpool.Pool{}, reg, 1, Options{})
	require.NoError(t, err)
	require.Len(t, result.Classes, 1)

	c := result.Classes[0]
	assert.Equal(t, int32(3), c.ThisIndex)
	assert.Equal(t, int32(2), c.SuperIndex)
	assert.Equal(t, uint32(AccPublic), c.Flags)
	assert.Empty(t, c.Fields)
	assert.Empty(t, c.Methods)
	assert.Empty(t, c.Attrs)
}

func TestReadCode_ExplicitLongForm(t *testing.T) {
	buf := []byte{
		0,    // header byte 0 selects the long form
		5,    // code_length
		2, 3, // max_stack, max_locals
		0, // handler_count
		0, // attr_overflow_count
	}
	r := streamio.New(bytes.NewReader(buf))
	def := defCodec()
	reg := codec.NewRegistry(def)
	ls, err := newLayoutSet(codeAttrDefs)
	require.NoError(t, err)

	c, err := readCode(r, reg, ls)
	require.NoError(t, err)
	assert.Equal(t, int32(5), c.CodeLen)
	assert.Equal(t, int32(2), c.MaxStack)
	assert.Equal(t, int32(3), c.MaxLocals)
	assert.Empty(t, c.Exceptions)
}

func TestReadCode_PackedCannedHeader(t *testing.T) {
	// handlerCount=1, maxStack=2, maxLocals=3:
	// rest = maxStack + maxLocals*8 = 26; combined = handlerCount*64 + rest = 90; hdr = 91.
	buf := []byte{
		91,         // packed header
		5,          // code_length
		0, 2, 4, 0, // one exception handler: start,end,handler,catch
		0, // attr_overflow_count
	}
	r := streamio.New(bytes.NewReader(buf))
	def := defCodec()
	reg := codec.NewRegistry(def)
	ls, err := newLayoutSet(codeAttrDefs)
	require.NoError(t, err)

	c, err := readCode(r, reg, ls)
	require.NoError(t, err)
	assert.Equal(t, int32(2), c.MaxStack)
	assert.Equal(t, int32(3), c.MaxLocals)
	require.Len(t, c.Exceptions, 1)
	assert.Equal(t, ExceptionHandler{StartPC: 0, EndPC: 2, HandlerPC: 4, CatchType: 0}, c.Exceptions[0])
}
