package codec

import (
	"fmt"

	"github.com/pack200go/unpack200/errs"
	"github.com/pack200go/unpack200/streamio"
)

// Run is the composite RunCodec(k, A, B): it
// decodes the first k integers with A and every integer after that with
// B. Each half keeps its own delta state, so A and B must not be shared
// with any other band.
type Run struct {
	k    int
	a, b Codec

	decoded int
}

var _ Codec = (*Run)(nil)

// NewRun constructs a Run codec. k must be positive; a and b must be
// non-nil.
func NewRun(k int, a, b Codec) *Run {
	if k <= 0 {
		panic("codec: Run k must be positive")
	}

	return &Run{k: k, a: a, b: b}
}

// K, A, B expose the codec's parameters.
func (c *Run) K() int  { return c.k }
func (c *Run) A() Codec { return c.a }
func (c *Run) B() Codec { return c.b }

func (c *Run) current() Codec {
	if c.decoded < c.k {
		return c.a
	}

	return c.b
}

// DecodeOne implements Codec.
func (c *Run) DecodeOne(r *streamio.Reader) (int64, error) {
	v, err := c.current().DecodeOne(r)
	if err != nil {
		return 0, err
	}
	c.decoded++

	return v, nil
}

// DecodeMany implements Codec.
func (c *Run) DecodeMany(n int, r *streamio.Reader) ([]int32, error) {
	out := make([]int32, 0, n)
	for len(out) < n {
		v, err := c.DecodeOne(r)
		if err != nil {
			return nil, err
		}
		if v < minInt32 || v > maxInt32 {
			return nil, fmt.Errorf("%w: value %d at index %d", errs.ErrCodecOutOfRange, v, len(out))
		}
		out = append(out, int32(v))
	}

	return out, nil
}

// Encodes implements Codec: true if either half could have produced v.
func (c *Run) Encodes(v int64) bool { return c.a.Encodes(v) || c.b.Encodes(v) }

// Smallest implements Codec.
func (c *Run) Smallest() int64 {
	if c.a.Smallest() < c.b.Smallest() {
		return c.a.Smallest()
	}

	return c.b.Smallest()
}

// Largest implements Codec.
func (c *Run) Largest() int64 {
	if c.a.Largest() > c.b.Largest() {
		return c.a.Largest()
	}

	return c.b.Largest()
}

// Cardinality implements Codec. There's no single authoritative
// definition of a Run codec's cardinality in the source material; this
// module defines it as the sum of each half's cardinality, matching
// "every value either half can produce is reachable".
func (c *Run) Cardinality() uint64 { return c.a.Cardinality() + c.b.Cardinality() }

// String renders the codec as "(k,A,B)" using each half's own String.
func (c *Run) String() string {
	return fmt.Sprintf("(%d,%s,%s)", c.k, c.a.String(), c.b.String())
}
