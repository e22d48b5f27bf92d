// Package filebands decodes a segment's file bands: the name, modification
// time, per-file option bits, and size of every archive member, class
// files included. It also defines the Sink that members are stored
// through; the caller hands each decoded member to it.
package filebands

import (
	"fmt"

	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/cpool"
	"github.com/pack200go/unpack200/errs"
	"github.com/pack200go/unpack200/streamio"
)

// Per-file option bits (mirrors the segment-level HaveFile* gates: these
// bits only appear per file when the corresponding archive-wide option
// bit is set and HaveFileOptions is also set).
const (
	FileDeflateHint uint16 = 1 << 0
	FileUnknown     uint16 = 1 << 1 // bit reserved for a non-class, non-resource member
)

// Options mirrors the header flags that shape the file-band layout.
type Options struct {
	HaveFileHeaders bool
	HaveFileModtime bool
	HaveFileOptions bool
	HaveFileSizeHi  bool
	DeflateHint     bool
	ArchiveCount    int32
}

// File is one archive member's metadata plus its content bytes. Content
// is attached by ReadFileBits after Read decodes the structural fields,
// copied verbatim from the segment's file_bits band; class files keep a
// nil Content, their assembled bytes travel in segment.Segment.Classes.
type File struct {
	Name     string
	Modtime  int64 // Unix seconds; 0 means "use archive default" (not modelled further here)
	Options  uint16
	Size     int64
	IsClass  bool
	Content  []byte
}

// Sink receives each unpacked archive member in order. Implementations
// typically write to a directory or to a zip/jar writer.
type Sink interface {
	PutEntry(name string, content []byte, modtime int64, deflateHint bool) error
}

// Read decodes the structural file bands (everything but content bytes)
// for opt.ArchiveCount files.
func Read(r *streamio.Reader, cp *cpool.Pool, reg *codec.Registry, opt Options) ([]*File, error) {
	n := int(opt.ArchiveCount)
	if n == 0 {
		return nil, nil
	}

	nameIdx, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("file_name: %w", err)
	}

	var modtimes []int32
	if opt.HaveFileModtime {
		modtimes, err = reg.Default.DecodeMany(n, r)
		if err != nil {
			return nil, fmt.Errorf("file_modtime: %w", err)
		}
	}

	var fileOptions []int32
	if opt.HaveFileOptions {
		fileOptions, err = reg.Default.DecodeMany(n, r)
		if err != nil {
			return nil, fmt.Errorf("file_options: %w", err)
		}
	}

	sizeLo, err := reg.Default.DecodeMany(n, r)
	if err != nil {
		return nil, fmt.Errorf("file_size_lo: %w", err)
	}
	var sizeHi []int32
	if opt.HaveFileSizeHi {
		sizeHi, err = reg.Default.DecodeMany(n, r)
		if err != nil {
			return nil, fmt.Errorf("file_size_hi: %w", err)
		}
	}

	files := make([]*File, n)
	for i := 0; i < n; i++ {
		idx := nameIdx[i]
		if idx < 1 || int(idx) > len(cp.Utf8) {
			return nil, fmt.Errorf("%w: file name index %d", errs.ErrBadLayout, idx)
		}
		f := &File{Name: cp.Utf8[idx-1]}

		if modtimes != nil {
			f.Modtime = int64(modtimes[i])
		}
		if fileOptions != nil {
			f.Options = uint16(fileOptions[i])
			if opt.DeflateHint {
				f.Options |= FileDeflateHint
			}
		}

		size := int64(uint32(sizeLo[i]))
		if sizeHi != nil {
			size |= int64(uint32(sizeHi[i])) << 32
		}
		f.Size = size

		files[i] = f
	}

	return files, nil
}

// ReadFileBits copies n raw (non-class) files' content bytes from the
// trailing file_bits band, in the same order Read produced their
// metadata for non-class members.
func ReadFileBits(r *streamio.Reader, files []*File) error {
	for _, f := range files {
		if f.IsClass {
			continue
		}
		content, err := r.ReadN(int(f.Size))
		if err != nil {
			return fmt.Errorf("file_bits %q: %w", f.Name, err)
		}
		f.Content = content
	}

	return nil
}
