// Package segment implements the top-level Pack200 segment state machine:
// the fixed-prefix header and the driver that sequences cp,
// attribute-definition, class, bytecode, and file bands.
package segment

import (
	"fmt"

	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/errs"
	"github.com/pack200go/unpack200/streamio"
)

// Magic is the fixed 4-byte segment prefix.
const Magic = 0xCAFED00D

// Options bitfield flags.
const (
	HaveSpecialFormats uint16 = 1 << 0
	HaveCPNumbers      uint16 = 1 << 1
	HaveAllCodeFlags   uint16 = 1 << 2
	HaveFileHeaders    uint16 = 1 << 4
	DeflateHint        uint16 = 1 << 5
	HaveFileModtime    uint16 = 1 << 6
	HaveFileOptions    uint16 = 1 << 7
	HaveFileSizeHi     uint16 = 1 << 8
	HaveClassFlagsHi   uint16 = 1 << 9
	HaveFieldFlagsHi   uint16 = 1 << 10
	HaveCodeFlagsHi    uint16 = 1 << 11

	// knownOptionsMask covers every bit this header format assigns meaning
	// to; any other bit set is a BadOptions error.
	knownOptionsMask = HaveSpecialFormats | HaveCPNumbers | HaveAllCodeFlags |
		HaveFileHeaders | DeflateHint | HaveFileModtime | HaveFileOptions |
		HaveFileSizeHi | HaveClassFlagsHi | HaveFieldFlagsHi | HaveCodeFlagsHi
)

// Header is the fixed prefix of a segment, decoded before any band.
type Header struct {
	ArchiveMinor uint16
	ArchiveMajor uint16
	Options      uint16

	ArchiveCount    int32 // number of files in this archive, if HaveFileHeaders
	DefaultCodec    *codec.BHSD
	CPUtf8Count     int32
	CPIntCount      int32
	CPFloatCount    int32
	CPLongCount     int32
	CPDoubleCount   int32
	CPStringCount   int32
	CPClassCount    int32
	CPSignatureCount int32
	CPDescrCount    int32
	CPFieldCount    int32
	CPMethodCount   int32
	CPImethodCount  int32
	ClassCount      int32
}

// Has reports whether a given option bit is set.
func (h *Header) Has(bit uint16) bool { return h.Options&bit != 0 }

// ReadHeader reads and validates the fixed-prefix header. It does not
// read the count bands gated by options bits that belong to bands parsed
// elsewhere; it reads the counts needed to size the cp bands (§4.4),
// since those are unconditional.
func ReadHeader(r *streamio.Reader) (*Header, error) {
	magic, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: got %#08x", errs.ErrBadMagic, magic)
	}

	minor, err := readU16(r)
	if err != nil {
		return nil, err
	}
	major, err := readU16(r)
	if err != nil {
		return nil, err
	}
	options, err := readU16(r)
	if err != nil {
		return nil, err
	}
	if options&^uint16(knownOptionsMask) != 0 {
		return nil, fmt.Errorf("%w: reserved bits set in %#04x", errs.ErrBadOptions, options)
	}

	h := &Header{ArchiveMinor: minor, ArchiveMajor: major, Options: options}
	h.DefaultCodec = codec.New(5, 64, codec.SignUnsigned, false)
	defReg := codec.NewRegistry(h.DefaultCodec)

	if h.Has(HaveFileHeaders) {
		n, err := decodeCount(defReg, r)
		if err != nil {
			return nil, err
		}
		h.ArchiveCount = n
	}

	counts := []*int32{
		&h.CPUtf8Count, &h.CPIntCount, &h.CPFloatCount, &h.CPLongCount,
		&h.CPDoubleCount, &h.CPStringCount, &h.CPClassCount,
		&h.CPSignatureCount, &h.CPDescrCount, &h.CPFieldCount,
		&h.CPMethodCount, &h.CPImethodCount,
	}
	for _, c := range counts {
		n, err := decodeCount(defReg, r)
		if err != nil {
			return nil, err
		}
		*c = n
	}

	n, err := decodeCount(defReg, r)
	if err != nil {
		return nil, err
	}
	h.ClassCount = n

	return h, nil
}

func decodeCount(reg *codec.Registry, r *streamio.Reader) (int32, error) {
	v, err := reg.Default.DecodeOne(r)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > int64(^uint32(0)>>1) {
		return 0, fmt.Errorf("%w: count %d out of range", errs.ErrBadOptions, v)
	}

	return int32(v), nil
}

func readU16(r *streamio.Reader) (uint16, error) {
	b, err := r.ReadN(2)
	if err != nil {
		return 0, err
	}

	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func readU32(r *streamio.Reader) (uint32, error) {
	b, err := r.ReadN(4)
	if err != nil {
		return 0, err
	}

	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}
