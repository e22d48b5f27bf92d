// Registry encoding/decoding for the codec specifier scheme. Specifiers
// are read and written explicitly through a *Registry value rather than
// through package-level state.
package codec

import (
	"fmt"

	"github.com/pack200go/unpack200/errs"
	"github.com/pack200go/unpack200/streamio"
)

const (
	specifierDefault   = 0
	canonicalLo        = 1
	canonicalHi        = canonicalCount
	specifierArbitrary = 116
	runLo              = 117
	runHi              = 140
	populationLo       = 141
	populationHi       = 188
)

// runKChoices enumerates the k values a Run specifier can select, the
// powers of 16 from 16^0 through 16^5. The Run range (117..140) holds 24
// specifiers, split 4 ways by runSpecifierLayout's sub-codec mode, so the
// k ladder needs exactly 6 entries to cover it without gaps.
var runKChoices = []int{1, 16, 256, 4096, 65536, 1048576}

// populationLValues enumerates the L values a Population specifier can
// select. The Population range (141..188) holds 48 specifiers, split 4
// ways by populationSpecifierLayout's sub-codec mode, so the L ladder
// needs exactly 12 entries to cover it without gaps.
var populationLValues = []int{1, 2, 3, 4, 5, 8, 16, 32, 64, 128, 192, 255}

// Registry maps codec specifiers to codec instances and back. A Registry
// is cheap to construct; the segment driver makes one per segment (its
// default codec can change between segments).
type Registry struct {
	Default Codec
}

// NewRegistry constructs a Registry with the given default codec, used
// whenever a specifier byte of 0 is read.
func NewRegistry(def Codec) *Registry {
	return &Registry{Default: def}
}

// Lookup reads a specifier (1 or more bytes, depending on the leading
// byte) from r and returns the codec it names.
func (reg *Registry) Lookup(r *streamio.Reader) (Codec, error) {
	spec, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch {
	case spec == specifierDefault:
		if reg.Default == nil {
			return nil, fmt.Errorf("%w: specifier 0 with no default codec set", errs.ErrBadCodecSpecifier)
		}

		return reg.Default, nil

	case int(spec) >= canonicalLo && int(spec) <= canonicalHi:
		c, ok := LookupCanonical(int(spec))
		if !ok {
			return nil, fmt.Errorf("%w: canonical index %d", errs.ErrBadCodecSpecifier, spec)
		}

		return c, nil

	case spec == specifierArbitrary:
		return reg.lookupArbitraryBHSD(r)

	case int(spec) >= runLo && int(spec) <= runHi:
		return reg.lookupRun(int(spec)-runLo, r)

	case int(spec) >= populationLo && int(spec) <= populationHi:
		return reg.lookupPopulation(int(spec)-populationLo, r)

	default:
		return nil, fmt.Errorf("%w: %d", errs.ErrBadCodecSpecifier, spec)
	}
}

// lookupArbitraryBHSD decodes specifier 116's two trailing bytes: (dsb,
// h-1) where dsb = d*32 + s*8 + (b-1).
func (reg *Registry) lookupArbitraryBHSD(r *streamio.Reader) (Codec, error) {
	raw, err := r.ReadN(2)
	if err != nil {
		return nil, err
	}
	dsb, hm1 := raw[0], raw[1]

	b := int(dsb&0x07) + 1
	s := Sign((dsb >> 3) & 0x03)
	d := dsb&0x20 != 0
	h := int(hm1) + 1

	if s > SignBias2 {
		return nil, fmt.Errorf("%w: arbitrary BHSD sign bits %d", errs.ErrBadCodecSpecifier, s)
	}
	if (b == 1 && h != 256) || (b == 5 && h == 256) {
		return nil, fmt.Errorf("%w: arbitrary BHSD b=%d h=%d", errs.ErrBadCodecSpecifier, b, h)
	}

	return New(b, h, s, d), nil
}

// runSpecifierLayout splits a 0-based Run offset (0..23) into a k-choice
// index and an A/B source mode. Mode 0 is "both default"; 1 is "A
// inline, B default"; 2 is "A default, B inline"; 3 is "both inline",
// each inline sub-codec read as a nested single-byte canonical specifier.
func runSpecifierLayout(off int) (kIdx, mode int) {
	return off / 4, off % 4
}

func (reg *Registry) lookupRun(off int, r *streamio.Reader) (Codec, error) {
	kIdx, mode := runSpecifierLayout(off)
	if kIdx >= len(runKChoices) {
		return nil, fmt.Errorf("%w: run specifier offset %d", errs.ErrBadCodecSpecifier, off)
	}
	k := runKChoices[kIdx]

	a, err := reg.runSubCodec(mode&0x1 != 0, r)
	if err != nil {
		return nil, err
	}
	b, err := reg.runSubCodec(mode&0x2 != 0, r)
	if err != nil {
		return nil, err
	}

	return NewRun(k, a, b), nil
}

func (reg *Registry) runSubCodec(inline bool, r *streamio.Reader) (Codec, error) {
	if !inline {
		if reg.Default == nil {
			return nil, fmt.Errorf("%w: run sub-codec defaulted with no default set", errs.ErrBadCodecSpecifier)
		}

		return reg.Default, nil
	}

	idx, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	c, ok := LookupCanonical(int(idx))
	if !ok {
		return nil, fmt.Errorf("%w: run inline sub-codec %d", errs.ErrBadCodecSpecifier, idx)
	}

	return c, nil
}

// populationSpecifierLayout mirrors runSpecifierLayout for Population's
// (L, sub-codec mode) pair.
func populationSpecifierLayout(off int) (lIdx, mode int) {
	return off / 4, off % 4
}

func (reg *Registry) lookupPopulation(off int, r *streamio.Reader) (Codec, error) {
	lIdx, mode := populationSpecifierLayout(off)
	if lIdx >= len(populationLValues) {
		return nil, fmt.Errorf("%w: population specifier offset %d", errs.ErrBadCodecSpecifier, off)
	}
	l := populationLValues[lIdx]

	favoured, err := reg.runSubCodec(mode == 1 || mode == 3, r)
	if err != nil {
		return nil, err
	}
	unfavoured, err := reg.runSubCodec(mode == 2 || mode == 3, r)
	if err != nil {
		return nil, err
	}
	// the token codec always defaults; it is bounded by L rather than
	// independently specified.
	token := reg.Default
	if token == nil {
		return nil, fmt.Errorf("%w: population token codec needs a default", errs.ErrBadCodecSpecifier)
	}

	return NewPopulation(favoured, token, unfavoured, l), nil
}

// SpecifierFor returns the byte sequence that, fed back into Lookup,
// reconstructs an extensionally equal codec. It is the exact inverse of
// Lookup.
func (reg *Registry) SpecifierFor(c Codec) ([]byte, error) {
	switch v := c.(type) {
	case *BHSD:
		return reg.specifierForBHSD(v)
	case *Run:
		return reg.specifierForRun(v)
	case *Population:
		return reg.specifierForPopulation(v)
	default:
		return nil, fmt.Errorf("%w: cannot encode specifier for %T", errs.ErrUnsupported, c)
	}
}

func (reg *Registry) specifierForBHSD(c *BHSD) ([]byte, error) {
	if reg.Default != nil && sameBHSD(reg.Default, c) {
		return []byte{specifierDefault}, nil
	}
	if idx, ok := canonicalIndexOf(c); ok {
		return []byte{byte(idx)}, nil
	}
	if c.b < 1 || c.b > 5 || c.h < 1 || c.h > 256 {
		return nil, fmt.Errorf("%w: BHSD out of encodable range", errs.ErrBadCodecSpecifier)
	}
	dsb := byte(0)
	if c.d {
		dsb |= 0x20
	}
	dsb |= byte(c.s) << 3
	dsb |= byte(c.b - 1)

	return []byte{specifierArbitrary, dsb, byte(c.h - 1)}, nil
}

func sameBHSD(c Codec, v *BHSD) bool {
	b, ok := c.(*BHSD)

	return ok && b.b == v.b && b.h == v.h && b.s == v.s && b.d == v.d
}

func kIndexOf(k int) (int, bool) {
	for i, v := range runKChoices {
		if v == k {
			return i, true
		}
	}

	return 0, false
}

func (reg *Registry) specifierForRun(c *Run) ([]byte, error) {
	kIdx, ok := kIndexOf(c.k)
	if !ok {
		return nil, fmt.Errorf("%w: run k=%d not encodable", errs.ErrBadCodecSpecifier, c.k)
	}

	out := []byte{0} // placeholder for the leading specifier byte
	mode := 0
	aBytes, aInline := reg.encodeSubCodec(c.a)
	if aInline {
		mode |= 0x1
		out = append(out, aBytes...)
	}
	bBytes, bInline := reg.encodeSubCodec(c.b)
	if bInline {
		mode |= 0x2
		out = append(out, bBytes...)
	}
	out[0] = byte(runLo + kIdx*4 + mode)

	return out, nil
}

func (reg *Registry) specifierForPopulation(c *Population) ([]byte, error) {
	lIdx := -1
	for i, v := range populationLValues {
		if v == c.l {
			lIdx = i

			break
		}
	}
	if lIdx < 0 {
		return nil, fmt.Errorf("%w: population L=%d not encodable", errs.ErrBadCodecSpecifier, c.l)
	}

	out := []byte{0}
	mode := 0
	favBytes, favInline := reg.encodeSubCodec(c.favoured)
	if favInline {
		mode |= 0x1
		out = append(out, favBytes...)
	}
	unfBytes, unfInline := reg.encodeSubCodec(c.unfavoured)
	if unfInline {
		mode |= 0x2
		out = append(out, unfBytes...)
	}
	out[0] = byte(populationLo + lIdx*4 + mode)

	return out, nil
}

// encodeSubCodec reports whether c must be written inline (it differs
// from the registry's default) and, if so, its single-byte canonical
// specifier.
func (reg *Registry) encodeSubCodec(c Codec) ([]byte, bool) {
	b, ok := c.(*BHSD)
	if !ok {
		return nil, false
	}
	if reg.Default != nil && sameBHSD(reg.Default, b) {
		return nil, false
	}
	idx, ok := canonicalIndexOf(b)
	if !ok {
		return nil, false
	}

	return []byte{byte(idx)}, true
}
