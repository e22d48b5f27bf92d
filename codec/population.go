package codec

import (
	"fmt"

	"github.com/pack200go/unpack200/errs"
	"github.com/pack200go/unpack200/streamio"
)

// Population is the composite PopulationCodec(favoured, token, unfavoured).
// Unlike BHSD and Run it cannot decode one value at a
// time: it must read a favoured-value table and a full token band before
// any individual value is known, so DecodeOne always fails with
// errs.ErrPopulationNoCount. Use DecodeMany.
type Population struct {
	favoured, token, unfavoured Codec
	l                           int
}

var _ Codec = (*Population)(nil)

// NewPopulation constructs a Population codec. l bounds the favoured
// table size (L ∈ 1..=255).
func NewPopulation(favoured, token, unfavoured Codec, l int) *Population {
	if l < 1 || l > 255 {
		panic("codec: Population L out of range 1..255")
	}

	return &Population{favoured: favoured, token: token, unfavoured: unfavoured, l: l}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}

	return v
}

// readFavouredTable reads values with the favoured codec until one
// repeats either the smallest-magnitude value seen so far or the
// immediately preceding value; that repeated value is consumed but not
// added to the table.
func (c *Population) readFavouredTable(r *streamio.Reader) ([]int64, error) {
	var table []int64
	var smallest int64
	have := false

	for {
		v, err := c.favoured.DecodeOne(r)
		if err != nil {
			return nil, err
		}
		if have {
			prev := table[len(table)-1]
			if v == smallest || v == prev {
				return table, nil
			}
		}

		table = append(table, v)
		if !have || absInt64(v) < absInt64(smallest) {
			smallest = v
		}
		have = true

		if len(table) > c.l {
			return nil, fmt.Errorf("%w: favoured table exceeds L=%d", errs.ErrUnsupported, c.l)
		}
	}
}

// DecodeOne implements Codec. Population cannot produce a single value in
// isolation, so this always fails.
func (c *Population) DecodeOne(_ *streamio.Reader) (int64, error) {
	return 0, errs.ErrPopulationNoCount
}

// DecodeMany implements Codec: reads the favoured table once, then n
// tokens, then one unfavoured value per zero token, folding everything
// into the n result values.
func (c *Population) DecodeMany(n int, r *streamio.Reader) ([]int32, error) {
	table, err := c.readFavouredTable(r)
	if err != nil {
		return nil, err
	}

	tokens, err := c.token.DecodeMany(n, r)
	if err != nil {
		return nil, err
	}

	out := make([]int32, n)
	for i, tok := range tokens {
		if tok == 0 {
			v, err := c.unfavoured.DecodeOne(r)
			if err != nil {
				return nil, err
			}
			if v < minInt32 || v > maxInt32 {
				return nil, fmt.Errorf("%w: value %d at index %d", errs.ErrCodecOutOfRange, v, i)
			}
			out[i] = int32(v)

			continue
		}
		if int(tok) < 1 || int(tok) > len(table) {
			return nil, fmt.Errorf("%w: token %d outside favoured table of size %d", errs.ErrCodecOutOfRange, tok, len(table))
		}
		out[i] = int32(table[tok-1])
	}

	return out, nil
}

// Encodes implements Codec.
func (c *Population) Encodes(v int64) bool {
	return c.favoured.Encodes(v) || c.unfavoured.Encodes(v)
}

// Smallest implements Codec.
func (c *Population) Smallest() int64 {
	if c.favoured.Smallest() < c.unfavoured.Smallest() {
		return c.favoured.Smallest()
	}

	return c.unfavoured.Smallest()
}

// Largest implements Codec.
func (c *Population) Largest() int64 {
	if c.favoured.Largest() > c.unfavoured.Largest() {
		return c.favoured.Largest()
	}

	return c.unfavoured.Largest()
}

// Cardinality implements Codec, defined as the union of the values
// either the favoured or unfavoured codec can produce.
func (c *Population) Cardinality() uint64 {
	return c.favoured.Cardinality() + c.unfavoured.Cardinality()
}

// String renders the codec as "(favoured,token,unfavoured)".
func (c *Population) String() string {
	return fmt.Sprintf("(%s,%s,%s)", c.favoured.String(), c.token.String(), c.unfavoured.String())
}
