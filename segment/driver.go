package segment

import (
	"fmt"

	"github.com/pack200go/unpack200/bytecode"
	"github.com/pack200go/unpack200/classbands"
	"github.com/pack200go/unpack200/classfile"
	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/cpool"
	"github.com/pack200go/unpack200/filebands"
	"github.com/pack200go/unpack200/internal/options"
	"github.com/pack200go/unpack200/streamio"
)

// Segment is one fully decoded segment: its class files, ready to hand to
// a Sink, and any non-class resource members that rode along in the same
// archive.
type Segment struct {
	Header  *Header
	Classes []ClassFile
	Files   []*filebands.File // non-class members; class members are in Classes
}

// ClassFile pairs a decoded class with its rendered bytes.
type ClassFile struct {
	Name  string
	Bytes []byte
}

// Read drives one segment end to end: header, constant pool, class
// bands, bytecode, file bands, and class-file assembly.
func Read(r *streamio.Reader, opt options.Options) (*Segment, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	reg := codec.NewRegistry(h.DefaultCodec)

	counts := cpool.Counts{
		Utf8: h.CPUtf8Count, Int: h.CPIntCount, Float: h.CPFloatCount,
		Long: h.CPLongCount, Double: h.CPDoubleCount, String: h.CPStringCount,
		Class: h.CPClassCount, Signature: h.CPSignatureCount, Descr: h.CPDescrCount,
		Field: h.CPFieldCount, Method: h.CPMethodCount, Imethod: h.CPImethodCount,
	}
	cp, err := cpool.Read(r, counts, h.DefaultCodec)
	if err != nil {
		return nil, fmt.Errorf("cpool: %w", err)
	}
	if err := cp.ResolveSignatures(r, h.DefaultCodec); err != nil {
		return nil, fmt.Errorf("cpool signatures: %w", err)
	}

	cbOpt := classbands.Options{
		HaveClassFlagsHi: h.Has(HaveClassFlagsHi),
		HaveFieldFlagsHi: h.Has(HaveFieldFlagsHi),
		HaveCodeFlagsHi:  h.Has(HaveCodeFlagsHi),
		HaveAllCodeFlags: h.Has(HaveAllCodeFlags),
	}
	classResult, err := classbands.Read(r, cp, reg, int(h.ClassCount), cbOpt)
	if err != nil {
		return nil, fmt.Errorf("classbands: %w", err)
	}

	bcByMethod, err := decodeBytecode(r, reg, classResult)
	if err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}

	fbOpt := filebands.Options{
		HaveFileHeaders: h.Has(HaveFileHeaders),
		HaveFileModtime: h.Has(HaveFileModtime),
		HaveFileOptions: h.Has(HaveFileOptions),
		HaveFileSizeHi:  h.Has(HaveFileSizeHi),
		DeflateHint:     h.Has(DeflateHint),
		ArchiveCount:    h.ArchiveCount,
	}
	files, err := filebands.Read(r, cp, reg, fbOpt)
	if err != nil {
		return nil, fmt.Errorf("filebands: %w", err)
	}

	classNames := make(map[string]bool, len(classResult.Classes))
	for _, c := range classResult.Classes {
		name, err := classNameOf(cp, c.ThisIndex)
		if err != nil {
			return nil, err
		}
		classNames[name+".class"] = true
	}
	for _, f := range files {
		if classNames[f.Name] {
			f.IsClass = true
		}
	}
	if err := filebands.ReadFileBits(r, files); err != nil {
		return nil, fmt.Errorf("file_bits: %w", err)
	}

	fileOpt := classfile.Options{MinorVersion: h.ArchiveMinor, MajorVersion: h.ArchiveMajor}

	seg := &Segment{Header: h}
	for _, c := range classResult.Classes {
		name, err := classNameOf(cp, c.ThisIndex)
		if err != nil {
			return nil, err
		}
		bytes, err := classfile.Assemble(cp, c, bcByMethod, fileOpt)
		if err != nil {
			return nil, fmt.Errorf("assemble %s: %w", name, err)
		}
		if opt.DeflateOverride != nil {
			_ = *opt.DeflateOverride // deflate is a sink-level transport concern; recorded for the caller's Sink to honor
		}
		seg.Classes = append(seg.Classes, ClassFile{Name: name + ".class", Bytes: bytes})
	}
	for _, f := range files {
		if !f.IsClass {
			seg.Files = append(seg.Files, f)
		}
	}

	return seg, nil
}

func classNameOf(cp *cpool.Pool, classIdx int32) (string, error) {
	if classIdx < 1 || int(classIdx) > len(cp.Class) {
		return "", fmt.Errorf("class index %d out of range", classIdx)
	}
	utf8Idx := cp.Class[classIdx-1]
	if utf8Idx < 1 || int(utf8Idx) > len(cp.Utf8) {
		return "", fmt.Errorf("class name utf8 index %d out of range", utf8Idx)
	}

	return cp.Utf8[utf8Idx-1], nil
}

// decodeBytecode walks every method with a Code attribute, in the same
// class/method order classbands.Read produced them, and decodes its
// instruction stream from the shared operand bands.
func decodeBytecode(r *streamio.Reader, reg *codec.Registry, result *classbands.Result) (map[*classbands.Method][]bytecode.Instruction, error) {
	bands := bytecode.NewBands(reg.Default)
	out := make(map[*classbands.Method][]bytecode.Instruction)

	for _, c := range result.Classes {
		for i := range c.Methods {
			m := &c.Methods[i]
			if m.Code == nil {
				continue
			}
			instrs, err := bytecode.Decode(r, bands, m.Code.CodeLen)
			if err != nil {
				return nil, err
			}
			// Exception-table PCs arrive as instruction indices; an index
			// past the last instruction means the end of the code.
			pcOf := func(idx int32) int32 {
				if idx >= 0 && int(idx) < len(instrs) {
					return instrs[idx].Offset
				}

				return m.Code.CodeLen
			}
			for j := range m.Code.Exceptions {
				e := &m.Code.Exceptions[j]
				e.StartPC, e.EndPC, e.HandlerPC = pcOf(e.StartPC), pcOf(e.EndPC), pcOf(e.HandlerPC)
			}
			out[m] = instrs
		}
	}

	return out, nil
}
