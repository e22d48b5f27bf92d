package classfile

import (
	"testing"

	"github.com/pack200go/unpack200/bytecode"
	"github.com/pack200go/unpack200/cpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitInstructions_Goto(t *testing.T) {
	b := NewBuilder(&cpool.Pool{})
	instrs := []bytecode.Instruction{
		{Opcode: 0xA7, Offset: 0, BranchTarget: 5}, // goto +5
	}

	out, err := EmitInstructions(b, instrs)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA7, 0, 5}, out)
}

func TestEmitInstructions_LdcInt(t *testing.T) {
	seg := &cpool.Pool{Int: []int32{42}}
	b := NewBuilder(seg)
	instrs := []bytecode.Instruction{
		{Opcode: 0x12, LdcKind: bytecode.LdcInt, LdcRef: 1},
	}

	out, err := EmitInstructions(b, instrs)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 1}, out)
}

func TestEmitInstructions_GetstaticRemapsFieldRef(t *testing.T) {
	seg := &cpool.Pool{
		Utf8:  []string{"Foo", "bar", "I"},
		Class: []int32{1},
		Descr: []cpool.Descr{{NameIndex: 2, TypeIndex: 3}},
		Field: []cpool.MemberRef{{ClassIndex: 1, DescrIndex: 1}},
	}
	b := NewBuilder(seg)
	instrs := []bytecode.Instruction{
		{Opcode: 0xB2, FieldRef: 1}, // getstatic
	}

	out, err := EmitInstructions(b, instrs)
	require.NoError(t, err)
	// Utf8("Foo")=1, Class=2, Utf8("bar")=3, Utf8("I")=4, NameAndType=5, Fieldref=6.
	assert.Equal(t, []byte{0xB2, 0, 6}, out)
	assert.Equal(t, uint16(7), b.Count())
}

func TestEmitInstructions_BipushAndReturn(t *testing.T) {
	b := NewBuilder(&cpool.Pool{})
	instrs := []bytecode.Instruction{
		{Opcode: 0x10, Imm: 7},  // bipush 7
		{Opcode: 0xB1, Offset: 2}, // return
	}

	out, err := EmitInstructions(b, instrs)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 7, 0xB1}, out)
}
