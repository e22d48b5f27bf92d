// Package options holds the mutable configuration shared by the segment
// driver and its bands, built up via the functional-option pattern.
package options

import "io"

// Options is the resolved configuration for a single Unpack call.
type Options struct {
	// MaxMemoryKiB is the memory bound MaxArrayLen derives element counts
	// from. Zero means unbounded. No band reader consults it, so it does
	// not limit any allocation.
	MaxMemoryKiB uint64

	// DeflateOverride, when non-nil, overrides the segment's
	// DEFLATE_HINT option bit for every file/class entry handed to the
	// sink.
	DeflateOverride *bool

	// LogSink is the writer set by WithLogSink. No component of this
	// module writes to it, so setting it produces no output.
	LogSink io.Writer

	// DisableDedupCache is not read anywhere: the class constant pool
	// builder always dedups its entries, and no layout cache exists.
	DisableDedupCache bool
}

// Option mutates an Options value.
type Option func(*Options)

// Apply runs every option against a fresh Options value.
func Apply(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// MaxArrayLen returns the largest count of elemSize-byte elements that
// fits in MaxMemoryKiB. Zero means unbounded. Nothing in this module
// calls it.
func (o Options) MaxArrayLen(elemSize int) int {
	if o.MaxMemoryKiB == 0 || elemSize <= 0 {
		return 0
	}

	return int(o.MaxMemoryKiB*1024) / elemSize
}
