// Package streamio provides the buffered, position-tracking byte reader
// that backs every codec and band reader in this module.
//
// Pack200 bands are sequences of whole bytes (unlike a bit-packed format),
// so the reader only ever needs read_byte/read_fully, not bit-level access.
// It still follows the same "thin wrapper, no seeking, position tracked for
// error context" shape as the RIFF chunk reader in deepteams-webp's
// internal/container package.
package streamio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pack200go/unpack200/errs"
)

// Reader is a non-seeking, position-tracking byte reader over a buffered
// input stream. It is the sole I/O boundary for the codec and band layers;
// every other component reads through it.
type Reader struct {
	br  *bufio.Reader
	pos int64
}

// New wraps r in a Reader with a reasonably sized internal buffer.
func New(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 32*1024)}
}

// Pos returns the number of bytes consumed so far, for error context.
func (r *Reader) Pos() int64 { return r.pos }

// ReadByte reads a single byte, returning errs.ErrTruncatedInput (wrapped
// with the stream position) on EOF.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.br.ReadByte()
	if err != nil {
		return 0, r.truncated(err)
	}
	r.pos++

	return b, nil
}

// ReadFull reads exactly len(buf) bytes into buf.
func (r *Reader) ReadFull(buf []byte) error {
	n, err := io.ReadFull(r.br, buf)
	r.pos += int64(n)
	if err != nil {
		return r.truncated(err)
	}

	return nil
}

// ReadN reads and returns exactly n bytes.
func (r *Reader) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := r.ReadFull(buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// Peek returns the next n bytes without advancing the reader.
func (r *Reader) Peek(n int) ([]byte, error) {
	b, err := r.br.Peek(n)
	if err != nil {
		return nil, r.truncated(err)
	}

	return b, nil
}

func (r *Reader) truncated(cause error) error {
	return fmt.Errorf("%w: at byte offset %d: %w", errs.ErrTruncatedInput, r.pos, cause)
}
