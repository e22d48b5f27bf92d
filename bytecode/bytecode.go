package bytecode

import (
	"fmt"

	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/errs"
	"github.com/pack200go/unpack200/streamio"
)

// Bands is the set of typed operand bands bytecode instructions pull
// from. Every method in a class shares these bands: an instruction's
// operand is the next unread value in the band matching its Kind, not a
// value keyed to that specific method, so decoding order across the
// whole class must match encoding order exactly.
type Bands struct {
	Codes      codec.Codec // bc_codes: one opcode byte per instruction
	Local      codec.Codec // bc_local: local-variable slot indices
	Imm1       codec.Codec // bc_byte: bipush / newarray atype / iinc const
	Imm2       codec.Codec // bc_short: sipush
	Label      codec.Codec // bc_label: branch targets, as an instruction-count delta
	ClassRef   codec.Codec // bc_classref
	FieldRef   codec.Codec // bc_fieldref
	MethodRef  codec.Codec // bc_methodref
	IMethodRef codec.Codec // bc_imethodref
	IMethodArgs codec.Codec // bc_imethod_args: invokeinterface's nargs byte
	LdcRef     codec.Codec // bc_ldcref: index into the pool LdcKind names
	LdcKind    codec.Codec // bc_ldckind: which pool LdcRef indexes (0=Int,1=Float,2=String,3=Class,4=Long,5=Double)
	Dims       codec.Codec // bc_dims: multianewarray dimension count
	CaseCount  codec.Codec // bc_case_count: lookupswitch/tableswitch case count
	SwitchLow  codec.Codec // bc_switch_low: tableswitch low bound
	CaseValue  codec.Codec // bc_case_value: lookupswitch match values
	WideCode   codec.Codec // bc_widecode: the real opcode a wide prefix widens
}

// NewBands constructs a Bands using def for every stream. Real Pack200
// archives may specify a non-default codec per band; callers that parsed
// per-band codec specifiers should build Bands field-by-field instead.
func NewBands(def codec.Codec) *Bands {
	return &Bands{
		Codes: def, Local: def, Imm1: def, Imm2: def, Label: def,
		ClassRef: def, FieldRef: def, MethodRef: def, IMethodRef: def,
		IMethodArgs: def, LdcRef: def, LdcKind: def, Dims: def,
		CaseCount: def, SwitchLow: def, CaseValue: def, WideCode: def,
	}
}

// LdcKind tags which constant-pool array an ldc-family instruction's
// operand indexes into.
type LdcKind byte

const (
	LdcInt LdcKind = iota
	LdcFloat
	LdcString
	LdcClass
	LdcLong
	LdcDouble
)

// Instruction is one decoded JVM instruction, with reference operands
// left as (kind, index-into-source-pool) pairs for the class-file
// assembler to remap once it has built the class's local constant pool.
type Instruction struct {
	Offset int32 // byte offset from the start of the method body
	Opcode byte

	Local int32 // KindLocal1, KindIinc, wide-local forms
	Imm   int32 // KindImm1 / KindImm2 / iinc const

	BranchTarget int32 // resolved byte offset from method start, post-fixup

	ClassRef   int32
	FieldRef   int32
	MethodRef  int32
	IMethodRef int32
	IMethodArgs int32

	LdcKind LdcKind
	LdcRef  int32

	Dims byte // multianewarray

	SwitchDefault int32 // byte offset from method start, post-fixup
	SwitchLow     int32 // tableswitch only
	SwitchOffsets []int32 // byte offsets, post-fixup; len == high-low+1 for tableswitch
	SwitchMatches []int32 // lookupswitch only, parallel to SwitchOffsets

	WideOpcode byte
}

// branchDelta, switchDefaultIdx and switchIdxOffsets hold raw instruction-index deltas
// until Decode's fixup pass converts them into byte offsets.
type pending struct {
	branchDelta      int32
	switchDefaultIdx int32
	switchIdxOffsets []int32
}

// Decode reads one method's instruction stream from bands, stopping once
// codeLen bytes of JVM bytecode have been accounted for.
func Decode(r *streamio.Reader, bands *Bands, codeLen int32) ([]Instruction, error) {
	var instrs []Instruction
	var pendings []pending

	var offset int32
	for offset < codeLen {
		opByte, err := bands.Codes.DecodeOne(r)
		if err != nil {
			return nil, fmt.Errorf("bc_codes: %w", err)
		}
		op := byte(opByte)
		kind := classify(op)

		instr := Instruction{Offset: offset, Opcode: op}
		pend := pending{}
		instrLen := kind.fixedLen()

		switch kind {
		case KindLocal1:
			v, err := bands.Local.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_local: %w", err)
			}
			instr.Local = int32(v)

		case KindImm1:
			v, err := bands.Imm1.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_byte: %w", err)
			}
			instr.Imm = int32(v)

		case KindImm2:
			v, err := bands.Imm2.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_short: %w", err)
			}
			instr.Imm = int32(v)

		case KindBranch2, KindBranch4:
			v, err := bands.Label.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_label: %w", err)
			}
			pend.branchDelta = int32(v)

		case KindCPRefClass:
			v, err := bands.ClassRef.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_classref: %w", err)
			}
			instr.ClassRef = int32(v)

		case KindCPRefField:
			v, err := bands.FieldRef.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_fieldref: %w", err)
			}
			instr.FieldRef = int32(v)

		case KindCPRefMethod:
			v, err := bands.MethodRef.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_methodref: %w", err)
			}
			instr.MethodRef = int32(v)

		case KindCPRefIMethod:
			v, err := bands.IMethodRef.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_imethodref: %w", err)
			}
			instr.IMethodRef = int32(v)
			nargs, err := bands.IMethodArgs.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_imethod_args: %w", err)
			}
			instr.IMethodArgs = int32(nargs)

		case KindCPRefLdc, KindCPRefLdcWide, KindCPRefLdc2:
			kindVal, err := bands.LdcKind.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_ldckind: %w", err)
			}
			ref, err := bands.LdcRef.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_ldcref: %w", err)
			}
			instr.LdcKind = LdcKind(kindVal)
			instr.LdcRef = int32(ref)

		case KindMultiANewArray:
			v, err := bands.ClassRef.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_classref: %w", err)
			}
			d, err := bands.Dims.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_dims: %w", err)
			}
			instr.ClassRef = int32(v)
			instr.Dims = byte(d)

		case KindWidePrefix:
			wideOp, err := bands.WideCode.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_widecode: %w", err)
			}
			instr.WideOpcode = byte(wideOp)
			local, err := bands.Local.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_local (wide): %w", err)
			}
			instr.Local = int32(local)
			instrLen = 4 // wide opcode + real opcode + 2-byte local
			if instr.WideOpcode == 0x84 { // iinc
				imm, err := bands.Imm2.DecodeOne(r)
				if err != nil {
					return nil, fmt.Errorf("bc_short (wide iinc): %w", err)
				}
				instr.Imm = int32(imm)
				instrLen = 6
			}

		case KindTableSwitch, KindLookupSwitch:
			pad := (4 - int((offset+1)%4)) % 4
			defaultDelta, err := bands.Label.DecodeOne(r)
			if err != nil {
				return nil, fmt.Errorf("bc_label (switch default): %w", err)
			}
			pend.switchDefaultIdx = int32(defaultDelta)

			if kind == KindTableSwitch {
				low, err := bands.SwitchLow.DecodeOne(r)
				if err != nil {
					return nil, fmt.Errorf("bc_switch_low: %w", err)
				}
				count, err := bands.CaseCount.DecodeOne(r)
				if err != nil {
					return nil, fmt.Errorf("bc_case_count: %w", err)
				}
				instr.SwitchLow = int32(low)
				n := int32(count)
				if n < 0 || n > 1<<20 {
					return nil, fmt.Errorf("%w: tableswitch case count %d", errs.ErrArrayTooLarge, n)
				}
				deltas := make([]int32, n)
				for i := range deltas {
					v, err := bands.Label.DecodeOne(r)
					if err != nil {
						return nil, fmt.Errorf("bc_label (case %d): %w", i, err)
					}
					deltas[i] = int32(v)
				}
				pend.switchIdxOffsets = deltas
				instrLen = 1 + pad + 4 + 4 + 4 + int(n)*4
			} else {
				count, err := bands.CaseCount.DecodeOne(r)
				if err != nil {
					return nil, fmt.Errorf("bc_case_count: %w", err)
				}
				n := int32(count)
				matches := make([]int32, n)
				deltas := make([]int32, n)
				for i := int32(0); i < n; i++ {
					m, err := bands.CaseValue.DecodeOne(r)
					if err != nil {
						return nil, fmt.Errorf("bc_case_value (%d): %w", i, err)
					}
					v, err := bands.Label.DecodeOne(r)
					if err != nil {
						return nil, fmt.Errorf("bc_label (case %d): %w", i, err)
					}
					matches[i] = int32(m)
					deltas[i] = int32(v)
				}
				instr.SwitchMatches = matches
				pend.switchIdxOffsets = deltas
				instrLen = 1 + pad + 4 + 4 + int(n)*8
			}
		}

		instrs = append(instrs, instr)
		pendings = append(pendings, pend)
		offset += int32(instrLen)
	}
	if offset != codeLen {
		return nil, fmt.Errorf("%w: bytecode length mismatch (got %d, want %d)", errs.ErrBandCountMismatch, offset, codeLen)
	}

	return fixupBranches(instrs, pendings), nil
}

// fixupBranches converts every branch/switch target from an
// instruction-count delta into an absolute within-method byte offset,
// now that every instruction's byte Offset is known.
func fixupBranches(instrs []Instruction, pendings []pending) []Instruction {
	for i := range instrs {
		p := pendings[i]
		kind := classify(instrs[i].Opcode)
		switch kind {
		case KindBranch2, KindBranch4:
			target := clampIndex(i+int(p.branchDelta), len(instrs))
			instrs[i].BranchTarget = instrs[target].Offset

		case KindTableSwitch, KindLookupSwitch:
			dtarget := clampIndex(i+int(p.switchDefaultIdx), len(instrs))
			instrs[i].SwitchDefault = instrs[dtarget].Offset
			offsets := make([]int32, len(p.switchIdxOffsets))
			for j, d := range p.switchIdxOffsets {
				t := clampIndex(i+int(d), len(instrs))
				offsets[j] = instrs[t].Offset
			}
			instrs[i].SwitchOffsets = offsets
		}
	}

	return instrs
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}

	return i
}
