// Package cpool decodes the constant-pool bands of a Pack200 segment:
// UTF-8, numeric, String, Class, Signature, Descriptor, and member-ref
// pools, in the fixed order the format requires.
package cpool

import (
	"fmt"
	"math"

	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/errs"
	"github.com/pack200go/unpack200/internal/hash"
	"github.com/pack200go/unpack200/streamio"
)

// MemberRef is a (class, name-and-type) pair shared by Field, Method and
// InterfaceMethod bands.
type MemberRef struct {
	ClassIndex int32 // 1-based index into Pool.Class
	DescrIndex int32 // 1-based index into Pool.Descr
}

// Descr is a (name, type) pair; Pack200 calls this "Descr" rather than
// the class-file's "NameAndType" but they are the same shape.
type Descr struct {
	NameIndex int32 // 1-based index into Pool.Utf8
	TypeIndex int32 // 1-based index into Pool.Utf8
}

// Signature is a UTF-8 "form" string with `L…;` placeholder slots spliced
// from a run of class references.
type Signature struct {
	FormIndex   int32   // 1-based index into Pool.Utf8
	ClassRefs   []int32 // 1-based indices into Pool.Class, one per placeholder
}

// Pool holds every constant-pool band, decoded in the fixed order the
// format mandates. Indices recorded in String/Class/Descr/member
// bands are 1-based into the array named; callers resolving them should
// subtract one.
type Pool struct {
	Utf8      []string
	Int       []int32
	Float     []float32
	Long      []int64
	Double    []float64
	String    []int32 // index into Utf8
	Class     []int32 // index into Utf8
	Signature []Signature
	Descr     []Descr
	Field     []MemberRef
	Method    []MemberRef
	Imethod   []MemberRef
}

// Counts mirrors the twelve cp band sizes a segment header carries.
type Counts struct {
	Utf8, Int, Float, Long, Double, String, Class, Signature, Descr, Field, Method, Imethod int32
}

// Read decodes every cp band in order using def as the bands' codec.
// Pack200 lets most cp bands ride the segment's default codec; only the
// UTF-8 prefix band uses a dedicated codec.
func Read(r *streamio.Reader, c Counts, def codec.Codec) (*Pool, error) {
	p := &Pool{}

	utf8s, err := readUtf8Band(r, int(c.Utf8), def)
	if err != nil {
		return nil, fmt.Errorf("cp_Utf8: %w", err)
	}
	p.Utf8 = utf8s

	if p.Int, err = readI32Band(r, int(c.Int), def); err != nil {
		return nil, fmt.Errorf("cp_Int: %w", err)
	}
	floatBits, err := readI32Band(r, int(c.Float), def)
	if err != nil {
		return nil, fmt.Errorf("cp_Float: %w", err)
	}
	p.Float = make([]float32, len(floatBits))
	for i, b := range floatBits {
		p.Float[i] = math.Float32frombits(uint32(b))
	}

	if p.Long, err = readI64HiLoBand(r, int(c.Long), def); err != nil {
		return nil, fmt.Errorf("cp_Long: %w", err)
	}
	doubleBits, err := readI64HiLoBand(r, int(c.Double), def)
	if err != nil {
		return nil, fmt.Errorf("cp_Double: %w", err)
	}
	p.Double = make([]float64, len(doubleBits))
	for i, b := range doubleBits {
		p.Double[i] = math.Float64frombits(uint64(b))
	}

	if p.String, err = readIndexBand(r, int(c.String), def); err != nil {
		return nil, fmt.Errorf("cp_String: %w", err)
	}
	if p.Class, err = readIndexBand(r, int(c.Class), def); err != nil {
		return nil, fmt.Errorf("cp_Class: %w", err)
	}
	if p.Signature, err = readSignatureBand(r, int(c.Signature), def); err != nil {
		return nil, fmt.Errorf("cp_Signature: %w", err)
	}
	if p.Descr, err = readDescrBand(r, int(c.Descr), def); err != nil {
		return nil, fmt.Errorf("cp_Descr: %w", err)
	}
	if p.Field, err = readMemberRefBand(r, int(c.Field), def); err != nil {
		return nil, fmt.Errorf("cp_Field: %w", err)
	}
	if p.Method, err = readMemberRefBand(r, int(c.Method), def); err != nil {
		return nil, fmt.Errorf("cp_Method: %w", err)
	}
	if p.Imethod, err = readMemberRefBand(r, int(c.Imethod), def); err != nil {
		return nil, fmt.Errorf("cp_Imethod: %w", err)
	}

	return p, nil
}

func readI32Band(r *streamio.Reader, n int, c codec.Codec) ([]int32, error) {
	return c.DecodeMany(n, r)
}

// readI64HiLoBand reads n 64-bit values as hi/lo int32 pairs, the way
// Pack200 splits Long and Double across two parallel bands.
func readI64HiLoBand(r *streamio.Reader, n int, c codec.Codec) ([]int64, error) {
	hi, err := c.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("hi band: %w", err)
	}
	lo, err := c.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("lo band: %w", err)
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(uint64(uint32(hi[i]))<<32 | uint64(uint32(lo[i])))
	}

	return out, nil
}

func readIndexBand(r *streamio.Reader, n int, c codec.Codec) ([]int32, error) {
	return c.DecodeMany(n, r)
}

func readSignatureBand(r *streamio.Reader, n int, c codec.Codec) ([]Signature, error) {
	forms, err := c.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("form: %w", err)
	}
	out := make([]Signature, n)
	for i, form := range forms {
		out[i].FormIndex = form
		// the number of `L…;` placeholders is only known once the
		// referenced UTF-8 form string is resolved; ClassRefs is
		// filled in by ResolveSignatures once Pool.Utf8 is available.
	}

	return out, nil
}

// ResolveSignatures reads each signature's class-reference run now that
// Pool.Utf8 is populated: the count of `L` placeholders in the UTF-8 form
// string determines how many class indices follow it in the band.
func (p *Pool) ResolveSignatures(r *streamio.Reader, c codec.Codec) error {
	for i := range p.Signature {
		sig := &p.Signature[i]
		idx := int(sig.FormIndex)
		if idx < 1 || idx > len(p.Utf8) {
			return fmt.Errorf("%w: signature form index %d", errs.ErrBadLayout, sig.FormIndex)
		}
		form := p.Utf8[idx-1]
		nRefs := countPlaceholders(form)
		refs, err := c.DecodeMany(nRefs, r)
		if err != nil {
			return fmt.Errorf("signature classes: %w", err)
		}
		sig.ClassRefs = refs
	}

	return nil
}

// countPlaceholders counts the `L` characters that open a reference type
// descriptor segment in a signature form string.
func countPlaceholders(form string) int {
	n := 0
	for i := 0; i < len(form); i++ {
		if form[i] == 'L' {
			n++
		}
	}

	return n
}

func readDescrBand(r *streamio.Reader, n int, c codec.Codec) ([]Descr, error) {
	names, err := c.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	types, err := c.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("type: %w", err)
	}
	out := make([]Descr, n)
	for i := range out {
		out[i] = Descr{NameIndex: names[i], TypeIndex: types[i]}
	}

	return out, nil
}

func readMemberRefBand(r *streamio.Reader, n int, c codec.Codec) ([]MemberRef, error) {
	classes, err := c.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("class: %w", err)
	}
	descrs, err := c.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("descr: %w", err)
	}
	out := make([]MemberRef, n)
	for i := range out {
		out[i] = MemberRef{ClassIndex: classes[i], DescrIndex: descrs[i]}
	}

	return out, nil
}

// readUtf8Band implements the two-band UTF-8 encoding: a prefix-reuse-
// count band (delta coded) and a suffix-bytes band, each
// UTF-8 reconstructed as previous[:prefix] + decode_mutf8(suffix).
func readUtf8Band(r *streamio.Reader, n int, def codec.Codec) ([]string, error) {
	prefixCodec := codec.New(1, 256, codec.SignUnsigned, true)
	prefixCodec.Reset(0)

	prefixes := make([]int64, n)
	for i := 0; i < n; i++ {
		v, err := prefixCodec.DecodeOne(r)
		if err != nil {
			return nil, fmt.Errorf("prefix[%d]: %w", i, err)
		}
		prefixes[i] = v
	}

	lengths, err := def.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("suffix length: %w", err)
	}

	out := make([]string, n)
	var prev []byte
	for i := 0; i < n; i++ {
		suffixLen := int(lengths[i])
		if suffixLen < 0 {
			return nil, fmt.Errorf("%w: negative utf8 suffix length", errs.ErrBadLayout)
		}
		suffix, err := r.ReadN(suffixLen)
		if err != nil {
			return nil, fmt.Errorf("suffix[%d]: %w", i, err)
		}

		prefixLen := int(prefixes[i])
		if prefixLen < 0 || prefixLen > len(prev) {
			return nil, fmt.Errorf("%w: utf8 prefix reuse %d exceeds previous length %d", errs.ErrBadLayout, prefixLen, len(prev))
		}

		full := make([]byte, 0, prefixLen+len(suffix))
		full = append(full, prev[:prefixLen]...)
		full = append(full, suffix...)

		out[i] = decodeModifiedUTF8(full)
		prev = full
	}

	return out, nil
}

// decodeModifiedUTF8 decodes the JVM's modified UTF-8: like UTF-8 except
// NUL is encoded as the two-byte sequence C0 80, and code points above
// U+FFFF are encoded as a CESU-8 surrogate pair of three-byte sequences
// rather than a single four-byte sequence.
func decodeModifiedUTF8(b []byte) string {
	var out []rune
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			out = append(out, rune(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			r := rune(c&0x1F)<<6 | rune(b[i+1]&0x3F)
			out = append(out, r)
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			r := rune(c&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
			out = append(out, r)
			i += 3
		default:
			out = append(out, rune(c))
			i++
		}
	}

	return decodeSurrogatePairs(out)
}

// decodeSurrogatePairs merges adjacent CESU-8-decoded high/low surrogate
// runes back into a single supplementary-plane rune.
func decodeSurrogatePairs(runes []rune) string {
	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r >= 0xD800 && r <= 0xDBFF && i+1 < len(runes) {
			low := runes[i+1]
			if low >= 0xDC00 && low <= 0xDFFF {
				combined := ((r - 0xD800) << 10) + (low - 0xDC00) + 0x10000
				out = append(out, combined)
				i++

				continue
			}
		}
		out = append(out, r)
	}

	return string(out)
}

// Key produces a content hash of a UTF-8 string. The class constant pool
// builder does not use it: classfile.Builder dedups entries by a string
// key built from their content.
func Key(s string) uint64 { return hash.String(s) }
