package codec

import (
	"fmt"

	"github.com/pack200go/unpack200/errs"
	"github.com/pack200go/unpack200/streamio"
)

// Sign selects the signedness interpretation of a BHSD codec.
type Sign uint8

const (
	// SignUnsigned yields the raw accumulator directly.
	SignUnsigned Sign = 0
	// SignZigzag applies low-bit zig-zag: odd -> -(n+1)/2, even -> n/2.
	SignZigzag Sign = 1
	// SignBias2 applies 2-bit zig-zag: every fourth slot is negative.
	SignBias2 Sign = 2
)

// BHSD is the byte-size/high/sign/delta integer codec at the base of
// every band encoding. It owns its own running "last" value when D is
// set; a zero-value BHSD{} is never valid, use New.
type BHSD struct {
	b int
	h int
	s Sign
	d bool

	last    int64
	hasLast bool

	cardinality uint64
	smallest    int64
	largest     int64
}

var _ ResettableCodec = (*BHSD)(nil)

// New constructs a BHSD codec. It panics on parameter combinations the
// format forbids outright (b=1 requires h=256; b=5 requires h!=256); the
// registry validates specifier-derived parameters before calling New, so
// this only ever fires on a programmer error in a hand-built codec.
func New(b, h int, s Sign, d bool) *BHSD {
	if b < 1 || b > 5 {
		panic(fmt.Sprintf("codec: b=%d out of range 1..5", b))
	}
	if h < 1 || h > 256 {
		panic(fmt.Sprintf("codec: h=%d out of range 1..256", h))
	}
	if b == 1 && h != 256 {
		panic("codec: b=1 requires h=256")
	}
	if b == 5 && h == 256 {
		panic("codec: b=5 requires h!=256")
	}

	c := &BHSD{b: b, h: h, s: s, d: d}
	c.cardinality = cardinalityOf(b, h)
	c.smallest, c.largest = boundsOf(c.cardinality, s)
	c.hasLast = !d // last is never consulted in non-delta mode

	return c
}

func cardinalityOf(b, h int) uint64 {
	var card uint64
	hp := uint64(1) // h^k
	for k := 0; k < b; k++ {
		card += hp * uint64(256-h)
		hp *= uint64(h)
	}
	card += hp // h^b

	return card
}

func boundsOf(cardinality uint64, s Sign) (smallest, largest int64) {
	l := int64(cardinality) //nolint:gosec // cardinality fits an int64 for every canonical codec
	switch s {
	case SignZigzag:
		smallest = -(l / 2)
		largest = l/2 - 1
		if l%2 != 0 {
			largest++
		}

		return smallest, largest
	case SignBias2:
		smallest = -(l / 4)
		largest = l - 1 + smallest

		return smallest, largest
	case SignUnsigned:
		fallthrough
	default:
		return 0, l - 1
	}
}

// B, H, S, D expose the codec's parameters.
func (c *BHSD) B() int      { return c.b }
func (c *BHSD) H() int      { return c.h }
func (c *BHSD) S() Sign     { return c.s }
func (c *BHSD) IsDelta() bool { return c.d }

// Cardinality implements Codec.
func (c *BHSD) Cardinality() uint64 { return c.cardinality }

// Smallest implements Codec.
func (c *BHSD) Smallest() int64 { return c.smallest }

// Largest implements Codec.
func (c *BHSD) Largest() int64 { return c.largest }

// Encodes implements Codec.
func (c *BHSD) Encodes(v int64) bool { return v >= c.smallest && v <= c.largest }

// Reset implements ResettableCodec.
func (c *BHSD) Reset(seed int64) {
	c.last = seed
	c.hasLast = true
}

// String renders the codec's canonical form, e.g. "(5,128)" for an
// unsigned codec, "(3,128,1)" once sign is set, or "(3,128,1,1)" once
// delta is set too, matching the registry's to_string contract.
func (c *BHSD) String() string {
	switch {
	case c.s == SignUnsigned && !c.d:
		return fmt.Sprintf("(%d,%d)", c.b, c.h)
	case !c.d:
		return fmt.Sprintf("(%d,%d,%d)", c.b, c.h, c.s)
	default:
		return fmt.Sprintf("(%d,%d,%d,1)", c.b, c.h, c.s)
	}
}

// DecodeOne implements Codec. It reads between 1 and b bytes: every byte
// read, continuation or terminal, contributes v_k·h^k. A byte terminates
// the sequence when v_k < 256-h (or unconditionally at byte b-1);
// otherwise it's a continuation byte and decoding carries on to v_(k+1).
func (c *BHSD) DecodeOne(r *streamio.Reader) (int64, error) {
	n, err := c.decodeRaw(r)
	if err != nil {
		return 0, err
	}

	v := applySign(n, c.s)
	if c.d {
		if !c.hasLast {
			return 0, errs.ErrDecodeWithoutLast
		}
		v = wrapDelta(c.last+v, c.cardinality, c.smallest, c.largest)
		c.last = v
	}

	return v, nil
}

func (c *BHSD) decodeRaw(r *streamio.Reader) (int64, error) {
	l := int64(256 - c.h)
	var acc int64
	hp := int64(1)
	for k := 0; k < c.b; k++ {
		vk, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		acc += int64(vk) * hp
		if int64(vk) < l || k == c.b-1 {
			return acc, nil
		}

		hp *= int64(c.h)
	}

	return acc, nil
}

func applySign(n int64, s Sign) int64 {
	switch s {
	case SignZigzag:
		if n%2 != 0 {
			return -((n + 1) / 2)
		}

		return n / 2
	case SignBias2:
		if n%4 == 3 {
			return -((n-3)/4 + 1)
		}

		return n - n/4
	case SignUnsigned:
		fallthrough
	default:
		return n
	}
}

func unapplySign(v int64, s Sign) int64 {
	switch s {
	case SignZigzag:
		if v < 0 {
			return -2*v - 1
		}

		return 2 * v
	case SignBias2:
		if v < 0 {
			return -4*v - 1
		}
		q, r := v/3, v%3

		return 4*q + r
	case SignUnsigned:
		fallthrough
	default:
		return v
	}
}

// wrapDelta wraps an out-of-range delta accumulation modulo the codec's
// cardinality back into [smallest, largest].
func wrapDelta(v int64, cardinality uint64, smallest, largest int64) int64 {
	card := int64(cardinality) //nolint:gosec
	if v < smallest {
		v += card * (((smallest - v) + card - 1) / card)
	} else if v > largest {
		v -= card * (((v - largest) + card - 1) / card)
	}

	return v
}

const (
	minInt32 = -(1 << 31)
	maxInt32 = (1 << 31) - 1
)

// DecodeMany implements Codec in terms of DecodeOne; callers on hot bands
// still benefit from it over a manual loop since it pre-allocates the
// result slice once.
func (c *BHSD) DecodeMany(n int, r *streamio.Reader) ([]int32, error) {
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		v, err := c.DecodeOne(r)
		if err != nil {
			return nil, err
		}
		if v < minInt32 || v > maxInt32 {
			return nil, fmt.Errorf("%w: value %d at index %d", errs.ErrCodecOutOfRange, v, i)
		}
		out[i] = int32(v)
	}

	return out, nil
}

// EncodeOne encodes v into its byte representation under this codec's
// (b,h,s) parameters, ignoring delta state; it exists to exercise BHSD
// invertibility in tests, the pipeline itself only ever decodes.
func (c *BHSD) EncodeOne(v int64) ([]byte, error) {
	if !c.Encodes(v) {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", errs.ErrCodecOutOfRange, v, c.smallest, c.largest)
	}

	n := unapplySign(v, c.s)
	l := int64(256 - c.h)
	out := make([]byte, 0, c.b)
	remaining := n
	for k := 0; k < c.b; k++ {
		if k == c.b-1 {
			if remaining < 0 || remaining > 255 {
				return nil, fmt.Errorf("%w: final byte %d out of range", errs.ErrCodecOutOfRange, remaining)
			}
			out = append(out, byte(remaining))

			return out, nil
		}

		if remaining < l {
			out = append(out, byte(remaining))

			return out, nil
		}

		digit := (remaining - l) % int64(c.h)
		v0 := l + digit
		out = append(out, byte(v0))
		remaining = (remaining - v0) / int64(c.h)
	}

	return out, nil
}
