// Package classbands decodes the per-class structural bands of a Pack200
// segment: the this/super/interfaces quintuple, field and method
// descriptors, access flags, the predefined-attribute band group, and the
// packed Code attribute header. It stops short of decoding bytecode
// bodies themselves; that is the bytecode package's job, run afterward in
// the same per-method order this package establishes.
package classbands

import (
	"fmt"

	"github.com/pack200go/unpack200/attr"
	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/cpool"
	"github.com/pack200go/unpack200/errs"
	"github.com/pack200go/unpack200/streamio"
)

// Options carries the header bits that change how class bands are shaped,
// collected here instead of importing the segment package to avoid a
// package cycle (segment drives classbands, not the reverse).
type Options struct {
	HaveClassFlagsHi bool
	HaveFieldFlagsHi bool
	HaveCodeFlagsHi  bool
	HaveAllCodeFlags bool // every non-abstract, non-native method carries a Code attribute
}

// AttrValue is one decoded predefined-attribute instance: its name and the
// band values its layout produced. A nil Body means a marker attribute
// (Synthetic, Deprecated) that carries no data beyond its own presence.
type AttrValue struct {
	Name string
	Body []attr.Value
}

// ExceptionHandler is one entry of a Code attribute's exception table. PCs
// are recorded as the packed bytecode-instruction indices Pack200 bands
// carry; the segment driver converts them to absolute byte offsets once
// the method body has been decoded.
type ExceptionHandler struct {
	StartPC, EndPC, HandlerPC int32
	CatchType                 int32 // 1-based cp.Class index, 0 means "any"
}

// Code is a method's Code attribute, structurally decoded but with its
// instruction bytes left for the bytecode package to fill in.
type Code struct {
	MaxStack   int32
	MaxLocals  int32
	CodeLen    int32
	Exceptions []ExceptionHandler
	Attrs      []AttrValue

	Bytecode []byte // not set by classbands.Read; the segment driver keeps decoded instructions in its own per-method map
}

// Field is one field_info's structural content.
type Field struct {
	Flags      uint32
	DescrIndex int32 // 1-based into cpool.Pool.Descr
	Attrs      []AttrValue
}

// Method is one method_info's structural content.
type Method struct {
	Flags      uint32
	DescrIndex int32
	Code       *Code // nil when abstract or native
	Attrs      []AttrValue
}

// Class is one class_info's structural content.
type Class struct {
	ThisIndex  int32 // 1-based into cpool.Pool.Class
	SuperIndex int32 // 0 means no superclass (java/lang/Object itself)
	Interfaces []int32
	Flags      uint32
	Fields     []Field
	Methods    []Method
	Attrs      []AttrValue
}

// Result is every class in a segment, in file order.
type Result struct {
	Classes []*Class
}

// Read decodes n classes' structural bands from r.
func Read(r *streamio.Reader, cp *cpool.Pool, reg *codec.Registry, n int, opt Options) (*Result, error) {
	classLS, err := newLayoutSet(classAttrDefs)
	if err != nil {
		return nil, err
	}
	fieldLS, err := newLayoutSet(fieldAttrDefs)
	if err != nil {
		return nil, err
	}
	methodLS, err := newLayoutSet(methodAttrDefs)
	if err != nil {
		return nil, err
	}
	codeLS, err := newLayoutSet(codeAttrDefs)
	if err != nil {
		return nil, err
	}

	thisIdx, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("class_this: %w", err)
	}
	superIdx, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("class_super: %w", err)
	}
	ifaceCounts, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("class_interface_count: %w", err)
	}

	classes := make([]*Class, n)
	for i := 0; i < n; i++ {
		classes[i] = &Class{ThisIndex: thisIdx[i], SuperIndex: superIdx[i]}
	}
	for i, cnt := range ifaceCounts {
		if cnt < 0 {
			return nil, fmt.Errorf("%w: negative interface count", errs.ErrBadLayout)
		}
		ifaces, err := reg.Default.DecodeMany(int(cnt), r)
		if err != nil {
			return nil, fmt.Errorf("class_interface[%d]: %w", i, err)
		}
		classes[i].Interfaces = ifaces
	}

	fieldCounts, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("class_field_count: %w", err)
	}
	methodCounts, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("class_method_count: %w", err)
	}

	for i := range classes {
		fields, err := readFields(r, cp, reg, int(fieldCounts[i]), opt, fieldLS)
		if err != nil {
			return nil, fmt.Errorf("class[%d] fields: %w", i, err)
		}
		classes[i].Fields = fields

		methods, err := readMethods(r, cp, reg, int(methodCounts[i]), opt, methodLS, codeLS)
		if err != nil {
			return nil, fmt.Errorf("class[%d] methods: %w", i, err)
		}
		classes[i].Methods = methods
	}

	classFlags, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("class_flags_lo: %w", err)
	}
	var classFlagsHi []int32
	if opt.HaveClassFlagsHi {
		classFlagsHi, err = reg.Default.DecodeMany(n, r)
		if err != nil {
			return nil, fmt.Errorf("class_flags_hi: %w", err)
		}
	}
	for i := range classes {
		hi := int32(0)
		if classFlagsHi != nil {
			hi = classFlagsHi[i]
		}
		classes[i].Flags = readFlagWord(classFlags[i], hi, opt.HaveClassFlagsHi)
	}

	attrs, err := decodeAttrGroup(r, reg, n, classFlags, classFlagsHi, opt.HaveClassFlagsHi, classLS)
	if err != nil {
		return nil, fmt.Errorf("class_attrs: %w", err)
	}
	for i := range classes {
		classes[i].Attrs = attrs[i]
	}

	return &Result{Classes: classes}, nil
}

func readFields(r *streamio.Reader, cp *cpool.Pool, reg *codec.Registry, n int, opt Options, ls *layoutSet) ([]Field, error) {
	descrs, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("field_descr: %w", err)
	}
	flagsLo, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("field_flags_lo: %w", err)
	}
	var flagsHi []int32
	if opt.HaveFieldFlagsHi {
		flagsHi, err = reg.Default.DecodeMany(n, r)
		if err != nil {
			return nil, fmt.Errorf("field_flags_hi: %w", err)
		}
	}

	attrs, err := decodeAttrGroup(r, reg, n, flagsLo, flagsHi, opt.HaveFieldFlagsHi, ls)
	if err != nil {
		return nil, fmt.Errorf("field_attrs: %w", err)
	}

	out := make([]Field, n)
	for i := range out {
		hi := int32(0)
		if flagsHi != nil {
			hi = flagsHi[i]
		}
		out[i] = Field{
			DescrIndex: descrs[i],
			Flags:      readFlagWord(flagsLo[i], hi, opt.HaveFieldFlagsHi),
			Attrs:      attrs[i],
		}
	}

	return out, nil
}

func readMethods(r *streamio.Reader, cp *cpool.Pool, reg *codec.Registry, n int, opt Options, ls, codeLS *layoutSet) ([]Method, error) {
	descrs, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("method_descr: %w", err)
	}
	flagsLo, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("method_flags_lo: %w", err)
	}
	var flagsHi []int32
	if opt.HaveCodeFlagsHi {
		flagsHi, err = reg.Default.DecodeMany(n, r)
		if err != nil {
			return nil, fmt.Errorf("method_flags_hi: %w", err)
		}
	}

	out := make([]Method, n)
	for i := range out {
		hi := int32(0)
		if flagsHi != nil {
			hi = flagsHi[i]
		}
		flags := readFlagWord(flagsLo[i], hi, opt.HaveCodeFlagsHi)
		out[i] = Method{DescrIndex: descrs[i], Flags: flags}

		needsCode := opt.HaveAllCodeFlags || (flags&AccAbstract == 0 && flags&AccNative == 0)
		if needsCode {
			code, err := readCode(r, reg, codeLS)
			if err != nil {
				return nil, fmt.Errorf("method[%d] code: %w", i, err)
			}
			out[i].Code = code
		}
	}

	attrs, err := decodeAttrGroup(r, reg, n, flagsLo, flagsHi, opt.HaveCodeFlagsHi, ls)
	if err != nil {
		return nil, fmt.Errorf("method_attrs: %w", err)
	}
	for i := range out {
		out[i].Attrs = attrs[i]
	}

	return out, nil
}

// readCode decodes one Code attribute's packed header. A header byte of 0
// selects the explicit long form; any other value selects one of 255
// canned (max_stack, max_locals, handler_count) triples, trading table
// size for the common case of small, handler-free methods needing no
// band entries beyond the header byte itself.
func readCode(r *streamio.Reader, reg *codec.Registry, codeLS *layoutSet) (*Code, error) {
	hdr, err := reg.Default.DecodeOne(r)
	if err != nil {
		return nil, fmt.Errorf("code_header: %w", err)
	}

	codeLen, err := reg.Default.DecodeOne(r)
	if err != nil {
		return nil, fmt.Errorf("code_length: %w", err)
	}

	c := &Code{CodeLen: int32(codeLen)}

	var handlerCount int32
	if hdr == 0 {
		maxStack, err := reg.Default.DecodeOne(r)
		if err != nil {
			return nil, fmt.Errorf("code_max_stack: %w", err)
		}
		maxLocals, err := reg.Default.DecodeOne(r)
		if err != nil {
			return nil, fmt.Errorf("code_max_locals: %w", err)
		}
		hc, err := reg.Default.DecodeOne(r)
		if err != nil {
			return nil, fmt.Errorf("code_handler_count: %w", err)
		}
		c.MaxStack, c.MaxLocals, handlerCount = int32(maxStack), int32(maxLocals), int32(hc)
	} else {
		combined := int32(hdr - 1)
		handlerCount = combined / 64
		rest := combined % 64
		c.MaxStack = rest % 8
		c.MaxLocals = rest / 8
	}

	for i := int32(0); i < handlerCount; i++ {
		start, err := reg.Default.DecodeOne(r)
		if err != nil {
			return nil, fmt.Errorf("handler[%d] start_pc: %w", i, err)
		}
		end, err := reg.Default.DecodeOne(r)
		if err != nil {
			return nil, fmt.Errorf("handler[%d] end_pc: %w", i, err)
		}
		handler, err := reg.Default.DecodeOne(r)
		if err != nil {
			return nil, fmt.Errorf("handler[%d] handler_pc: %w", i, err)
		}
		catch, err := reg.Default.DecodeOne(r)
		if err != nil {
			return nil, fmt.Errorf("handler[%d] catch_type: %w", i, err)
		}
		c.Exceptions = append(c.Exceptions, ExceptionHandler{
			StartPC: int32(start), EndPC: int32(end), HandlerPC: int32(handler), CatchType: int32(catch),
		})
	}

	attrs, err := decodeAttrGroup(r, reg, 1, []int32{0}, nil, false, codeLS)
	if err != nil {
		return nil, fmt.Errorf("code_attrs: %w", err)
	}
	c.Attrs = attrs[0]

	return c, nil
}

// decodeAttrGroup decodes the predefined-attribute band group shared by
// the class, field, method and code contexts: each AttrDef with a
// non-empty layout gets its own band-sequence read for every entity that
// has the attribute present, in AttrDef declaration order, followed by an
// overflow count/name-index band pair for attributes outside the
// predefined table.
//
// This engine uses the same flag word the caller already decoded, at bit
// 16 and up (attrFlagDeprecated / attrFlagSynthetic plus any
// predefined-table bits from markerBitFor),
// to decide per-entity presence rather than a second independent
// presence band, mirroring how Pack200 folds small marker attributes
// into the flag word to avoid a degenerate one-bit-per-entity band.
func decodeAttrGroup(r *streamio.Reader, reg *codec.Registry, n int, flagsLo []int32, flagsHi []int32, haveHi bool, ls *layoutSet) ([][]AttrValue, error) {
	out := make([][]AttrValue, n)

	for _, def := range ls.defs {
		present := make([]int, 0, n)
		for i := 0; i < n; i++ {
			hi := int32(0)
			if flagsHi != nil {
				hi = flagsHi[i]
			}
			word := readFlagWord(flagsLo[i], hi, haveHi)
			if markerBitFor(def.Name)&word != 0 {
				present = append(present, i)
			}
		}
		if len(present) == 0 {
			continue
		}

		if def.Layout == "" {
			for _, i := range present {
				out[i] = append(out[i], AttrValue{Name: def.Name})
			}

			continue
		}

		elems := ls.trees[def.Name]
		ctx := attr.NewContext(reg, elems)
		for _, i := range present {
			body, err := ctx.DecodeSequence(elems, r, reg.Default)
			if err != nil {
				return nil, fmt.Errorf("attr %s: %w", def.Name, err)
			}
			out[i] = append(out[i], AttrValue{Name: def.Name, Body: body})
		}
	}

	overflowCounts, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("attr_overflow_count: %w", err)
	}
	for i, cnt := range overflowCounts {
		if cnt == 0 {
			continue
		}
		names, err := reg.Default.DecodeMany(int(cnt), r)
		if err != nil {
			return nil, fmt.Errorf("attr_overflow_name[%d]: %w", i, err)
		}
		for _, nameIdx := range names {
			out[i] = append(out[i], AttrValue{Name: fmt.Sprintf("#%d", nameIdx)})
		}
	}

	return out, nil
}

// markerBitFor assigns each predefined attribute its own flag-word bit.
// Deprecated and Synthetic reuse the dedicated bits 17 and 16 every
// context shares; any other predefined attribute claims one of bits 18 to
// 25, chosen by nameSeed per attribute name rather than per context.
func markerBitFor(name string) uint32 {
	switch name {
	case "Deprecated":
		return attrFlagDeprecated
	case "Synthetic":
		return attrFlagSynthetic
	default:
		return 1 << (18 + nameSeed(name)%8)
	}
}

// nameSeed derives a small, stable per-name offset so distinct predefined
// attribute names land on distinct bits within markerBitFor's range: the
// name's position among the distinct non-marker names of the four context
// tables, in declaration order.
func nameSeed(name string) uint32 {
	seen := make(map[string]bool)
	for _, defs := range [][]AttrDef{classAttrDefs, fieldAttrDefs, methodAttrDefs, codeAttrDefs} {
		for _, d := range defs {
			if d.Layout == "" || seen[d.Name] {
				continue
			}
			if d.Name == name {
				return uint32(len(seen))
			}
			seen[d.Name] = true
		}
	}

	return uint32(len(seen))
}
