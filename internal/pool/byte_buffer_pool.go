// Package pool provides pooled byte buffers sized for class-file output.
//
// Classes in a typical segment are small (a few hundred bytes to a few
// KiB). The class-file assembler does not draw from this pool:
// classfile.Assemble allocates its own bytes.Buffer per class.
package pool

import "sync"

// ClassBufferDefaultSize is the default capacity of a pooled class-file
// output buffer. Most class files are well under this size.
const (
	ClassBufferDefaultSize  = 4 * 1024
	ClassBufferMaxThreshold = 256 * 1024
)

// ByteBuffer is a growable byte slice wrapper, reused across class-file
// emissions via a sync.Pool.
type ByteBuffer struct {
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the given starting capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, defaultSize)}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte { return bb.B }

// Len returns the number of bytes written so far.
func (bb *ByteBuffer) Len() int { return len(bb.B) }

// Reset truncates the buffer to zero length, retaining its capacity.
func (bb *ByteBuffer) Reset() { bb.B = bb.B[:0] }

// WriteByte appends a single byte, growing the buffer if necessary.
func (bb *ByteBuffer) WriteByte(v byte) error {
	bb.B = append(bb.B, v)
	return nil
}

// Write appends data to the buffer, growing it if necessary.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// ByteBufferPool pools ByteBuffer instances of a given default size,
// discarding buffers that have grown past maxThreshold to avoid retaining
// unusually large class-file buffers indefinitely.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool of buffers with the given default size.
func NewByteBufferPool(defaultSize, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any { return NewByteBuffer(defaultSize) },
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (p *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := p.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse. Buffers whose capacity
// exceeds maxThreshold are discarded instead of retained.
func (p *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}
	if p.maxThreshold > 0 && cap(bb.B) > p.maxThreshold {
		return
	}
	bb.Reset()
	p.pool.Put(bb)
}

var classBufferPool = NewByteBufferPool(ClassBufferDefaultSize, ClassBufferMaxThreshold)

// GetClassBuffer retrieves a ByteBuffer from the default class-file pool.
func GetClassBuffer() *ByteBuffer { return classBufferPool.Get() }

// PutClassBuffer returns a ByteBuffer to the default class-file pool.
func PutClassBuffer(bb *ByteBuffer) { classBufferPool.Put(bb) }
