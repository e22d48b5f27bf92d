// Package codec implements the Pack200 band codecs: BHSD (byte-size, high,
// sign, delta) integer codecs and the composite Run/Population codecs built
// on top of them.
//
// Codecs are positional and, for delta-mode codecs, stateful: each instance
// owns a mutable "last" value rather than being a pure function. A Codec
// must not be shared between two concurrently-decoding bands.
package codec

import "github.com/pack200go/unpack200/streamio"

// Codec decodes one or many integers from a band. Implementations are
// BHSD, Run, and Population.
type Codec interface {
	// DecodeOne reads the next integer from r, folding it into this
	// codec's running delta state if the codec is in delta mode.
	DecodeOne(r *streamio.Reader) (int64, error)

	// DecodeMany reads n integers from r. It must give results identical
	// to n sequential DecodeOne calls; this is the only performance
	// critical path.
	DecodeMany(n int, r *streamio.Reader) ([]int32, error)

	// Encodes reports whether v is representable by this codec, i.e.
	// Smallest() <= v <= Largest().
	Encodes(v int64) bool

	// Smallest and Largest bound this codec's representable range.
	Smallest() int64
	Largest() int64

	// Cardinality is the number of distinct integers this codec can
	// represent: Σ_{k=0..b-1} h^k·(256-h) + h^b for BHSD, or the
	// composite's own definition for Run/Population.
	Cardinality() uint64

	// String renders the codec the way the canonical registry table does
	// (e.g. "(5,128)"), for diagnostics and the canonical-table test.
	String() string
}

// ResettableCodec is implemented by codecs that carry delta state and need
// an explicit seed before their first DecodeOne/DecodeMany call.
type ResettableCodec interface {
	Codec
	// Reset seeds the codec's running delta value. A delta codec created
	// by New has no seed: its first decode fails with
	// errs.ErrDecodeWithoutLast until Reset is called (Reset(0) to start
	// from zero, or the carry value when continuing a band).
	Reset(seed int64)
}
