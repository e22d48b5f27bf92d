package classfile

import (
	"bytes"
	"fmt"

	"github.com/pack200go/unpack200/bytecode"
	"github.com/pack200go/unpack200/errs"
)

// EmitInstructions serializes a decoded instruction stream into the raw
// bytes a class file's Code attribute carries, remapping every
// constant-pool-reference operand from its segment-wide index to this
// class's local constant pool index along the way.
func EmitInstructions(b *Builder, instrs []bytecode.Instruction) ([]byte, error) {
	var out bytes.Buffer
	for _, in := range instrs {
		out.WriteByte(in.Opcode)
		if err := emitOperand(b, &out, in); err != nil {
			return nil, fmt.Errorf("instruction at offset %d: %w", in.Offset, err)
		}
	}

	return out.Bytes(), nil
}

func emitOperand(b *Builder, out *bytes.Buffer, in bytecode.Instruction) error {
	op := in.Opcode
	switch {
	case op == 0x10 || op == 0xBC: // bipush, newarray
		out.WriteByte(byte(in.Imm))

	case op == 0x11: // sipush
		writeU16(out, uint16(int16(in.Imm)))

	case op == 0x12: // ldc
		h, err := ldcHandle(b, in)
		if err != nil {
			return err
		}
		out.WriteByte(byte(b.Resolve(h)))

	case op == 0x13 || op == 0x14: // ldc_w, ldc2_w
		h, err := ldcHandle(b, in)
		if err != nil {
			return err
		}
		writeU16(out, b.Resolve(h))

	case op >= 0x15 && op <= 0x19, op >= 0x36 && op <= 0x3A, op == 0xA9: // *load, *store, ret
		out.WriteByte(byte(in.Local))

	case op >= 0x99 && op <= 0xA8, op == 0xC6 || op == 0xC7: // if*, goto, jsr, ifnull/ifnonnull
		writeU16(out, uint16(int16(relOffset(in))))

	case op == 0xC8 || op == 0xC9: // goto_w, jsr_w
		writeU32(out, uint32(relOffset(in)))

	case op == 0xB2 || op == 0xB3 || op == 0xB4 || op == 0xB5: // field refs
		h, err := b.Field(in.FieldRef)
		if err != nil {
			return err
		}
		writeU16(out, b.Resolve(h))

	case op == 0xB6 || op == 0xB7 || op == 0xB8: // method refs
		h, err := b.Method(in.MethodRef)
		if err != nil {
			return err
		}
		writeU16(out, b.Resolve(h))

	case op == 0xB9: // invokeinterface
		h, err := b.IMethod(in.IMethodRef)
		if err != nil {
			return err
		}
		writeU16(out, b.Resolve(h))
		out.WriteByte(byte(in.IMethodArgs))
		out.WriteByte(0)

	case op == 0xBB, op == 0xBD, op == 0xC0, op == 0xC1: // new, anewarray, checkcast, instanceof
		h, err := b.Class(in.ClassRef)
		if err != nil {
			return err
		}
		writeU16(out, b.Resolve(h))

	case op == 0xC5: // multianewarray
		h, err := b.Class(in.ClassRef)
		if err != nil {
			return err
		}
		writeU16(out, b.Resolve(h))
		out.WriteByte(in.Dims)

	case op == 0xC4: // wide
		out.WriteByte(in.WideOpcode)
		writeU16(out, uint16(in.Local))
		if in.WideOpcode == 0x84 {
			writeU16(out, uint16(int16(in.Imm)))
		}

	case op == 0xAA: // tableswitch
		return emitTableSwitch(out, in)

	case op == 0xAB: // lookupswitch
		return emitLookupSwitch(out, in)
	}

	return nil
}

// relOffset returns a branch's byte delta from its own instruction
// offset, the form the class-file format actually stores (Pack200's
// decoded BranchTarget/SwitchOffsets/SwitchDefault fields are already
// absolute within-method offsets; the delta is just arithmetic here).
func relOffset(in bytecode.Instruction) int32 { return in.BranchTarget - in.Offset }

func ldcHandle(b *Builder, in bytecode.Instruction) (Handle, error) {
	switch in.LdcKind {
	case bytecode.LdcInt:
		return b.Integer(in.LdcRef)
	case bytecode.LdcFloat:
		return b.Float(in.LdcRef)
	case bytecode.LdcString:
		return b.String(in.LdcRef)
	case bytecode.LdcClass:
		return b.Class(in.LdcRef)
	case bytecode.LdcLong:
		return b.Long(in.LdcRef)
	case bytecode.LdcDouble:
		return b.Double(in.LdcRef)
	default:
		return 0, fmt.Errorf("%w: unknown ldc kind %d", errs.ErrBadLayout, in.LdcKind)
	}
}

func emitTableSwitch(out *bytes.Buffer, in bytecode.Instruction) error {
	pad := (4 - int((in.Offset+1)%4)) % 4
	for i := 0; i < pad; i++ {
		out.WriteByte(0)
	}
	writeU32(out, uint32(in.SwitchDefault-in.Offset))
	high := in.SwitchLow + int32(len(in.SwitchOffsets)) - 1
	writeU32(out, uint32(in.SwitchLow))
	writeU32(out, uint32(high))
	for _, off := range in.SwitchOffsets {
		writeU32(out, uint32(off-in.Offset))
	}

	return nil
}

func emitLookupSwitch(out *bytes.Buffer, in bytecode.Instruction) error {
	pad := (4 - int((in.Offset+1)%4)) % 4
	for i := 0; i < pad; i++ {
		out.WriteByte(0)
	}
	writeU32(out, uint32(in.SwitchDefault-in.Offset))
	writeU32(out, uint32(len(in.SwitchOffsets)))
	for i, off := range in.SwitchOffsets {
		writeU32(out, uint32(in.SwitchMatches[i]))
		writeU32(out, uint32(off-in.Offset))
	}

	return nil
}
