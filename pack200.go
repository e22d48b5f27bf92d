// Package unpack200 decompresses Pack200-encoded JAR archives back into
// standard class files. It exposes a streaming Unpack for single
// segments and UnpackAll for the multi-segment archives large JARs get
// split into.
package unpack200

import (
	"errors"
	"fmt"
	"io"

	"github.com/pack200go/unpack200/filebands"
	"github.com/pack200go/unpack200/internal/options"
	"github.com/pack200go/unpack200/segment"
	"github.com/pack200go/unpack200/streamio"
)

// Option configures an Unpack/UnpackAll call.
type Option = options.Option

// WithMaxMemoryKiB records a memory bound in the options. The band
// readers do not consult it, so it does not limit how large a decoded
// array may grow.
func WithMaxMemoryKiB(kib uint64) Option {
	return func(o *options.Options) { o.MaxMemoryKiB = kib }
}

// WithDeflateOverride forces every emitted entry's compression method
// regardless of the segment's own DEFLATE_HINT bit.
func WithDeflateOverride(deflate bool) Option {
	return func(o *options.Options) { o.DeflateOverride = &deflate }
}

// WithLogSink stores w as the options' LogSink. Nothing in this module
// writes diagnostic output to it.
func WithLogSink(w io.Writer) Option {
	return func(o *options.Options) { o.LogSink = w }
}

// Unpack decodes exactly one segment from r and delivers its class files
// and resource members to sink.
func Unpack(r io.Reader, sink filebands.Sink, opts ...Option) error {
	o := options.Apply(opts)
	sr := streamio.New(r)

	seg, err := segment.Read(sr, o)
	if err != nil {
		return fmt.Errorf("unpack200: %w", err)
	}

	return deliverSegment(seg, sink, o)
}

// UnpackAll decodes every segment r contains, back to back, until EOF.
// Large archives Pack200 split across multiple segments decode
// transparently this way: each segment's files land in sink in order.
func UnpackAll(r io.Reader, sink filebands.Sink, opts ...Option) error {
	o := options.Apply(opts)
	sr := streamio.New(r)

	for {
		seg, err := segment.Read(sr, o)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("unpack200: segment at offset %d: %w", sr.Pos(), err)
		}
		if err := deliverSegment(seg, sink, o); err != nil {
			return err
		}
	}
}

func deliverSegment(seg *segment.Segment, sink filebands.Sink, o options.Options) error {
	deflate := seg.Header.Has(segment.DeflateHint)
	if o.DeflateOverride != nil {
		deflate = *o.DeflateOverride
	}

	for _, c := range seg.Classes {
		if err := sink.PutEntry(c.Name, c.Bytes, 0, deflate); err != nil {
			return fmt.Errorf("unpack200: put %q: %w", c.Name, err)
		}
	}
	for _, f := range seg.Files {
		if err := sink.PutEntry(f.Name, f.Content, f.Modtime, deflate); err != nil {
			return fmt.Errorf("unpack200: put %q: %w", f.Name, err)
		}
	}

	return nil
}
