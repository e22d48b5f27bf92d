package classbands

import "github.com/pack200go/unpack200/attr"

// AttrDef names one predefined attribute and the layout string that
// describes its band-encoded body. Pack200 ships a fixed table of
// well-known attributes per context (class/field/method/code) so their
// bodies can ride dedicated columnar bands instead of a generic blob;
// anything not in this table falls back to the overflow path in
// decodeAttrGroup.
type AttrDef struct {
	Name   string
	Layout string
}

// Reference bank letters used by AttrDef.Layout, read by attr.Parse:
// C=Class, S=Signature, D=Descr, F=Field, M=Method, I=Imethod, U=Utf8,
// Q=any single-slot constant (Int/Float/String/Class).
var (
	classAttrDefs = []AttrDef{
		{"SourceFile", "RUH"},
		{"Signature", "RUH"},
		{"Deprecated", ""},
		{"Synthetic", ""},
		{"EnclosingMethod", "RCHRDNH"},
		{"InnerClasses", "NH[RCHRCNHRUNHFH]"},
	}

	fieldAttrDefs = []AttrDef{
		{"ConstantValue", "RQH"},
		{"Signature", "RUH"},
		{"Deprecated", ""},
		{"Synthetic", ""},
	}

	methodAttrDefs = []AttrDef{
		{"Exceptions", "NH[RCH]"},
		{"Signature", "RUH"},
		{"Deprecated", ""},
		{"Synthetic", ""},
		// Code is handled by the dedicated readCode path, not the
		// generic attribute band engine, because its body embeds a
		// nested bytecode stream and its own attribute list.
	}

	codeAttrDefs = []AttrDef{
		{"LineNumberTable", "NH[PHH]"},
		{"LocalVariableTable", "NH[PHOHRUHRUHH]"},
	}
)

// layoutSet caches the attr.Parse result per AttrDef so repeated
// lookups (one per class in a segment) don't re-parse the layout string.
type layoutSet struct {
	defs  []AttrDef
	trees map[string][]*attr.LayoutElement
}

func newLayoutSet(defs []AttrDef) (*layoutSet, error) {
	ls := &layoutSet{defs: defs, trees: make(map[string][]*attr.LayoutElement, len(defs))}
	for _, d := range defs {
		if d.Layout == "" {
			continue // marker attribute, no body to parse
		}
		elems, err := attr.Parse(d.Layout)
		if err != nil {
			return nil, err
		}
		ls.trees[d.Name] = elems
	}

	return ls, nil
}

func (ls *layoutSet) find(name string) (AttrDef, bool) {
	for _, d := range ls.defs {
		if d.Name == name {
			return d, true
		}
	}

	return AttrDef{}, false
}
