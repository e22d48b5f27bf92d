// Package classfile assembles decoded segment bands into standard
// CAFEBABE .class file bytes: it builds each class's own local constant
// pool (pruning and reordering the segment-wide pools down to what one
// class actually references) and writes the fixed class-file structure
// around it.
package classfile

import (
	"fmt"

	"github.com/pack200go/unpack200/cpool"
	"github.com/pack200go/unpack200/errs"
)

// cpTag mirrors the JVM class-file constant_pool tag values (JVMS §4.4).
type cpTag byte

const (
	tagUTF8               cpTag = 1
	tagInteger            cpTag = 3
	tagFloat              cpTag = 4
	tagLong               cpTag = 5
	tagDouble             cpTag = 6
	tagClass              cpTag = 7
	tagString             cpTag = 8
	tagFieldref           cpTag = 9
	tagMethodref          cpTag = 10
	tagInterfaceMethodref cpTag = 11
	tagNameAndType        cpTag = 12
)

// Handle is an opaque reference to an interned entry. It is NOT a final
// constant_pool index: Long and Double entries widen to two slots, so
// final indices are only known once every entry that precedes one in
// emission order has been interned. Call Builder.Resolve to convert.
type Handle uint16

// entry is one to-be-emitted constant pool slot, keyed so duplicate
// requests for the same logical constant collapse onto one handle.
type entry struct {
	tag  cpTag
	data entryData
}

type entryData struct {
	utf8     string
	i32      int32
	i64      int64
	f32      uint32
	f64      uint64
	nameIdx  Handle
	typeIdx  Handle
	classIdx Handle
	ntIdx    Handle
}

// Builder accumulates the constant pool one class actually needs,
// resolving references lazily against the segment-wide pools and
// interning each distinct logical constant exactly once, in first-use
// order. The lookup methods (Class, Field, ...) are idempotent: calling
// Class(5) twice returns the same Handle both times.
type Builder struct {
	segment *cpool.Pool

	entries []entry
	byKey   map[string]Handle

	utf8ByIndex    map[int32]Handle
	intByIndex     map[int32]Handle
	floatByIndex   map[int32]Handle
	longByIndex    map[int32]Handle
	doubleByIndex  map[int32]Handle
	stringByIndex  map[int32]Handle
	classByIndex   map[int32]Handle
	descrByIndex   map[int32]Handle
	fieldByIndex   map[int32]Handle
	methodByIndex  map[int32]Handle
	imethodByIndex map[int32]Handle
}

// NewBuilder creates an empty per-class constant pool builder over seg.
func NewBuilder(seg *cpool.Pool) *Builder {
	return &Builder{
		segment:        seg,
		byKey:          make(map[string]Handle),
		utf8ByIndex:    make(map[int32]Handle),
		intByIndex:     make(map[int32]Handle),
		floatByIndex:   make(map[int32]Handle),
		longByIndex:    make(map[int32]Handle),
		doubleByIndex:  make(map[int32]Handle),
		stringByIndex:  make(map[int32]Handle),
		classByIndex:   make(map[int32]Handle),
		descrByIndex:   make(map[int32]Handle),
		fieldByIndex:   make(map[int32]Handle),
		methodByIndex:  make(map[int32]Handle),
		imethodByIndex: make(map[int32]Handle),
	}
}

func (b *Builder) intern(tag cpTag, key string, data entryData) Handle {
	full := fmt.Sprintf("%d:%s", tag, key)
	if h, ok := b.byKey[full]; ok {
		return h
	}
	h := Handle(len(b.entries))
	b.entries = append(b.entries, entry{tag: tag, data: data})
	b.byKey[full] = h

	return h
}

// Utf8 interns a literal UTF-8 string not sourced from the segment pool
// (e.g. synthesized attribute names like "SourceFile").
func (b *Builder) Utf8(s string) Handle {
	return b.intern(tagUTF8, s, entryData{utf8: s})
}

// Utf8FromSegment resolves a 1-based segment Utf8 index, deduping by the
// string's own content so two differently-indexed segment entries that
// happen to hold equal text still collapse onto one Handle.
func (b *Builder) Utf8FromSegment(segIdx int32) (Handle, error) {
	if h, ok := b.utf8ByIndex[segIdx]; ok {
		return h, nil
	}
	if segIdx < 1 || int(segIdx) > len(b.segment.Utf8) {
		return 0, fmt.Errorf("%w: utf8 index %d", errs.ErrBadLayout, segIdx)
	}
	h := b.Utf8(b.segment.Utf8[segIdx-1])
	b.utf8ByIndex[segIdx] = h

	return h, nil
}

// Class resolves a 1-based segment cpool.Pool.Class index.
func (b *Builder) Class(segIdx int32) (Handle, error) {
	if h, ok := b.classByIndex[segIdx]; ok {
		return h, nil
	}
	if segIdx < 1 || int(segIdx) > len(b.segment.Class) {
		return 0, fmt.Errorf("%w: class index %d", errs.ErrBadLayout, segIdx)
	}
	nameIdx, err := b.Utf8FromSegment(b.segment.Class[segIdx-1])
	if err != nil {
		return 0, err
	}
	h := b.intern(tagClass, fmt.Sprintf("c%d", segIdx), entryData{nameIdx: nameIdx})
	b.classByIndex[segIdx] = h

	return h, nil
}

func (b *Builder) NameAndType(segIdx int32) (Handle, error) {
	if h, ok := b.descrByIndex[segIdx]; ok {
		return h, nil
	}
	if segIdx < 1 || int(segIdx) > len(b.segment.Descr) {
		return 0, fmt.Errorf("%w: descr index %d", errs.ErrBadLayout, segIdx)
	}
	d := b.segment.Descr[segIdx-1]
	nameIdx, err := b.Utf8FromSegment(d.NameIndex)
	if err != nil {
		return 0, err
	}
	typeIdx, err := b.Utf8FromSegment(d.TypeIndex)
	if err != nil {
		return 0, err
	}
	h := b.intern(tagNameAndType, fmt.Sprintf("nt%d", segIdx), entryData{nameIdx: nameIdx, typeIdx: typeIdx})
	b.descrByIndex[segIdx] = h

	return h, nil
}

func (b *Builder) memberRef(tag cpTag, cache map[int32]Handle, segIdx int32, members []cpool.MemberRef) (Handle, error) {
	if h, ok := cache[segIdx]; ok {
		return h, nil
	}
	if segIdx < 1 || int(segIdx) > len(members) {
		return 0, fmt.Errorf("%w: member ref index %d", errs.ErrBadLayout, segIdx)
	}
	m := members[segIdx-1]
	classIdx, err := b.Class(m.ClassIndex)
	if err != nil {
		return 0, err
	}
	ntIdx, err := b.NameAndType(m.DescrIndex)
	if err != nil {
		return 0, err
	}
	h := b.intern(tag, fmt.Sprintf("m%d:%d", tag, segIdx), entryData{classIdx: classIdx, ntIdx: ntIdx})
	cache[segIdx] = h

	return h, nil
}

func (b *Builder) Field(segIdx int32) (Handle, error) {
	return b.memberRef(tagFieldref, b.fieldByIndex, segIdx, b.segment.Field)
}

func (b *Builder) Method(segIdx int32) (Handle, error) {
	return b.memberRef(tagMethodref, b.methodByIndex, segIdx, b.segment.Method)
}

func (b *Builder) IMethod(segIdx int32) (Handle, error) {
	return b.memberRef(tagInterfaceMethodref, b.imethodByIndex, segIdx, b.segment.Imethod)
}

func (b *Builder) Integer(segIdx int32) (Handle, error) {
	if h, ok := b.intByIndex[segIdx]; ok {
		return h, nil
	}
	if segIdx < 1 || int(segIdx) > len(b.segment.Int) {
		return 0, fmt.Errorf("%w: int index %d", errs.ErrBadLayout, segIdx)
	}
	v := b.segment.Int[segIdx-1]
	h := b.intern(tagInteger, fmt.Sprintf("i%d", v), entryData{i32: v})
	b.intByIndex[segIdx] = h

	return h, nil
}

func (b *Builder) Float(segIdx int32) (Handle, error) {
	if h, ok := b.floatByIndex[segIdx]; ok {
		return h, nil
	}
	if segIdx < 1 || int(segIdx) > len(b.segment.Float) {
		return 0, fmt.Errorf("%w: float index %d", errs.ErrBadLayout, segIdx)
	}
	bits := f32bits(b.segment.Float[segIdx-1])
	h := b.intern(tagFloat, fmt.Sprintf("f%d", bits), entryData{f32: bits})
	b.floatByIndex[segIdx] = h

	return h, nil
}

func (b *Builder) Long(segIdx int32) (Handle, error) {
	if h, ok := b.longByIndex[segIdx]; ok {
		return h, nil
	}
	if segIdx < 1 || int(segIdx) > len(b.segment.Long) {
		return 0, fmt.Errorf("%w: long index %d", errs.ErrBadLayout, segIdx)
	}
	v := b.segment.Long[segIdx-1]
	h := b.intern(tagLong, fmt.Sprintf("l%d", v), entryData{i64: v})
	b.longByIndex[segIdx] = h

	return h, nil
}

func (b *Builder) Double(segIdx int32) (Handle, error) {
	if h, ok := b.doubleByIndex[segIdx]; ok {
		return h, nil
	}
	if segIdx < 1 || int(segIdx) > len(b.segment.Double) {
		return 0, fmt.Errorf("%w: double index %d", errs.ErrBadLayout, segIdx)
	}
	bits := f64bits(b.segment.Double[segIdx-1])
	h := b.intern(tagDouble, fmt.Sprintf("d%d", bits), entryData{f64: bits})
	b.doubleByIndex[segIdx] = h

	return h, nil
}

func (b *Builder) String(segIdx int32) (Handle, error) {
	if h, ok := b.stringByIndex[segIdx]; ok {
		return h, nil
	}
	if segIdx < 1 || int(segIdx) > len(b.segment.String) {
		return 0, fmt.Errorf("%w: string index %d", errs.ErrBadLayout, segIdx)
	}
	nameIdx, err := b.Utf8FromSegment(b.segment.String[segIdx-1])
	if err != nil {
		return 0, err
	}
	h := b.intern(tagString, fmt.Sprintf("s%d", nameIdx), entryData{nameIdx: nameIdx})
	b.stringByIndex[segIdx] = h

	return h, nil
}

// slotIndex gives every handle its final 1-based constant_pool index,
// accounting for Long/Double's two-slot width (JVMS §4.4.5).
func (b *Builder) slotIndex() []uint16 {
	idx := make([]uint16, len(b.entries))
	next := uint16(1)
	for i, e := range b.entries {
		idx[i] = next
		if e.tag == tagLong || e.tag == tagDouble {
			next += 2
		} else {
			next++
		}
	}

	return idx
}

// Resolve converts a Handle into its final constant_pool index. Widening
// from a Long/Double only shifts entries interned after it, so Resolve is
// safe to call incrementally; Count, by contrast, isn't final until the
// whole class has been walked and interning has stopped.
func (b *Builder) Resolve(h Handle) uint16 {
	return b.slotIndex()[h]
}

// Count returns the value to store in a class file's constant_pool_count
// field: one more than the number of constant_pool slots in use, per the
// JVM's 1-based, slot-0-reserved numbering.
func (b *Builder) Count() uint16 {
	idx := b.slotIndex()
	if len(idx) == 0 {
		return 1
	}
	last := b.entries[len(b.entries)-1]
	width := uint16(1)
	if last.tag == tagLong || last.tag == tagDouble {
		width = 2
	}

	return idx[len(idx)-1] + width
}

// Entries exposes the interned entries in emission order, for the writer.
func (b *Builder) Entries() []entry { return b.entries }
