package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/streamio"
)

func TestClassify_KnownOpcodeShapes(t *testing.T) {
	assert.Equal(t, KindNone, classify(0x00))   // nop
	assert.Equal(t, KindImm1, classify(0x10))   // bipush
	assert.Equal(t, KindImm2, classify(0x11))   // sipush
	assert.Equal(t, KindLocal1, classify(0x15)) // iload
	assert.Equal(t, KindBranch2, classify(0xA7)) // goto
	assert.Equal(t, KindCPRefField, classify(0xB2)) // getstatic
	assert.Equal(t, KindCPRefMethod, classify(0xB6)) // invokevirtual
	assert.Equal(t, KindWidePrefix, classify(0xC4))
	assert.Equal(t, KindBranch4, classify(0xC8)) // goto_w
}

func TestDecode_SimpleReturnSequence(t *testing.T) {
	def := codec.New(5, 64, codec.SignUnsigned, false)
	bands := NewBands(def)

	// nop; return -> two single-byte instructions, codeLen=2
	buf := []byte{0x00, 0xB1}
	r := streamio.New(bytes.NewReader(buf))
	instrs, err := Decode(r, bands, 2)
	require.NoError(t, err)
	require.Len(t, instrs, 2)
	assert.Equal(t, int32(0), instrs[0].Offset)
	assert.Equal(t, byte(0x00), instrs[0].Opcode)
	assert.Equal(t, int32(1), instrs[1].Offset)
	assert.Equal(t, byte(0xB1), instrs[1].Opcode)
}

func TestDecode_BranchFixupTargetsLaterInstruction(t *testing.T) {
	def := codec.New(5, 64, codec.SignUnsigned, false)
	bands := NewBands(def)

	// goto (branch to the instruction 2 ahead, i.e. +2 delta, landing on
	// return); nop; return. goto is 3 JVM bytes, nop 1, return 1: 5 total.
	buf := []byte{0xA7, 2, 0x00, 0xB1}
	r := streamio.New(bytes.NewReader(buf))
	instrs, err := Decode(r, bands, 5)
	require.NoError(t, err)
	require.Len(t, instrs, 3)
	assert.Equal(t, instrs[2].Offset, instrs[0].BranchTarget)
}
