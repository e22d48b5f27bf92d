// Package errs collects the sentinel errors surfaced by the unpack200
// pipeline. Every data error a segment can surface (bad magic, bad
// options, truncated input, ...) has a stable sentinel here so callers can
// use errors.Is regardless of how deep in the call stack the error
// originated.
package errs

import "errors"

// Data errors: malformed input. These abort the current segment; the
// caller may skip to the next one in a multi-segment archive.
var (
	ErrBadMagic          = errors.New("pack200: bad segment magic")
	ErrBadOptions        = errors.New("pack200: bad header options bitfield")
	ErrBadCodecSpecifier = errors.New("pack200: bad codec specifier")
	ErrTruncatedInput    = errors.New("pack200: truncated input")
	ErrBadLayout         = errors.New("pack200: bad attribute layout")
	ErrInvalidFlag       = errors.New("pack200: invalid flag bit")
	ErrPoolOverflow      = errors.New("pack200: constant pool overflow")
	ErrUnsupported       = errors.New("pack200: unsupported construct")
)

// Narrower sentinels used internally; all of them are data errors. They
// are returned as they are (at most wrapped with context by fmt.Errorf),
// not wrapped into the categories above.
var (
	ErrInvalidHeaderSize    = errors.New("pack200: invalid header size")
	ErrInvalidHeaderFlags   = errors.New("pack200: invalid header flags")
	ErrEmptyReplicationBody = errors.New("pack200: empty replication body in layout")
	ErrUnknownCallable      = errors.New("pack200: layout call to unknown callable")
	ErrCodecOutOfRange      = errors.New("pack200: decoded value outside codec range")
	ErrDeltaWithoutSeed     = errors.New("pack200: delta codec decoded without a seed")
	ErrPopulationNoCount    = errors.New("pack200: population codec decode called without a count")
	ErrArrayTooLarge        = errors.New("pack200: array size exceeds configured memory bound")
	ErrBandCountMismatch    = errors.New("pack200: band count does not match expected cardinality")
)

// Programmer errors: API misuse, never expected in correct use of the
// package. These are not wrapped with context; the caller made a mistake
// that no amount of input validation would have caught.
var (
	ErrAlreadyResolved   = errors.New("pack200: constant pool entry resolved twice")
	ErrNotResolved       = errors.New("pack200: emit attempted before resolve")
	ErrDecodeWithoutLast = errors.New("pack200: delta codec called without an explicit last value")
)
