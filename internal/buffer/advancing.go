// Package buffer provides the fixed-capacity sample FIFO that connects the
// stages of the pitch-lowering pipeline.
package buffer

import (
	"errors"

	"github.com/tphakala/go-songfinder/internal/simdops"
)

var (
	// ErrOverflow is returned when an extension would exceed the buffer capacity.
	ErrOverflow = errors.New("advancing buffer overflow")

	// ErrUnderflow is returned when more elements are discarded than are held.
	ErrUnderflow = errors.New("advancing buffer underflow")
)

// AdvancingBuffer is a single-producer, single-consumer FIFO over a fixed
// block of storage. Elements are appended at the end and discarded from the
// front. Unconsumed elements are always contiguous, so stages can read them
// as one slice; when an extension would run past the physical end of the
// storage, the unconsumed elements are first moved to the front.
//
// The buffer never grows and never allocates after construction. It is not
// safe for concurrent use.
type AdvancingBuffer[F simdops.Float] struct {
	data []F

	// Logical index of data[0], i.e. the number of elements shifted out
	// of storage by compaction so far.
	bufferStart int

	dataStart int
	dataEnd   int
}

// New creates an empty buffer that can hold capacity elements.
func New[F simdops.Float](capacity int) *AdvancingBuffer[F] {
	if capacity < 0 {
		capacity = 0
	}
	return &AdvancingBuffer[F]{data: make([]F, capacity)}
}

// Capacity returns the maximum number of elements the buffer can hold.
func (b *AdvancingBuffer[F]) Capacity() int {
	return len(b.data)
}

// Size returns the number of unconsumed elements.
func (b *AdvancingBuffer[F]) Size() int {
	return b.dataEnd - b.dataStart
}

// Data returns the unconsumed elements, oldest first. The slice aliases the
// buffer storage and is only valid until the next Extend, Append or Discard.
func (b *AdvancingBuffer[F]) Data() []F {
	return b.data[b.dataStart:b.dataEnd]
}

// StartIndex returns the logical index of the oldest unconsumed element.
func (b *AdvancingBuffer[F]) StartIndex() int {
	return b.bufferStart + b.dataStart
}

// EndIndex returns the logical index one past the newest element.
func (b *AdvancingBuffer[F]) EndIndex() int {
	return b.bufferStart + b.dataEnd
}

// Extend reserves n slots at the end of the buffer and returns them for the
// caller to fill. Reserved slots count toward Size immediately. Their
// contents are whatever was left in storage, so callers must overwrite them.
func (b *AdvancingBuffer[F]) Extend(n int) ([]F, error) {
	if n < 0 {
		return nil, ErrUnderflow
	}
	size := b.Size()
	if size+n > len(b.data) {
		return nil, ErrOverflow
	}

	if b.dataEnd+n > len(b.data) {
		// Move unconsumed data to the front of storage.
		copy(b.data, b.data[b.dataStart:b.dataEnd])
		b.bufferStart += b.dataStart
		b.dataStart = 0
		b.dataEnd = size
	}

	start := b.dataEnd
	b.dataEnd += n
	return b.data[start:b.dataEnd], nil
}

// Append copies values to the end of the buffer.
func (b *AdvancingBuffer[F]) Append(values []F) error {
	dst, err := b.Extend(len(values))
	if err != nil {
		return err
	}
	copy(dst, values)
	return nil
}

// AppendZeros appends n zero elements.
func (b *AdvancingBuffer[F]) AppendZeros(n int) error {
	dst, err := b.Extend(n)
	if err != nil {
		return err
	}
	clear(dst)
	return nil
}

// Discard removes the n oldest elements.
func (b *AdvancingBuffer[F]) Discard(n int) error {
	if n < 0 || n > b.Size() {
		return ErrUnderflow
	}
	b.dataStart += n
	return nil
}

// Reset empties the buffer and rewinds the logical indices.
func (b *AdvancingBuffer[F]) Reset() {
	b.bufferStart = 0
	b.dataStart = 0
	b.dataEnd = 0
}
