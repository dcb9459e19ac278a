// Package pool provides sync.Pool wrappers for reducing GC pressure.
package pool

import (
	"strconv"
	"sync"
)

// PathBuilder builds dotted error-location paths without intermediate
// allocations. Instances are reused via sync.Pool.
type PathBuilder struct {
	buf []byte
}

var pathBuilderPool = sync.Pool{
	New: func() any {
		return &PathBuilder{
			buf: make([]byte, 0, 128),
		}
	},
}

// AcquirePathBuilder gets a PathBuilder from the pool. Call Release
// when done.
func AcquirePathBuilder() *PathBuilder {
	pb := pathBuilderPool.Get().(*PathBuilder)
	pb.Reset()
	return pb
}

// Release returns the PathBuilder to the pool. Oversized buffers are
// dropped instead.
func (b *PathBuilder) Release() {
	if b == nil {
		return
	}
	if cap(b.buf) <= 4096 {
		pathBuilderPool.Put(b)
	}
}

// Reset clears the buffer without deallocating.
func (b *PathBuilder) Reset() {
	b.buf = b.buf[:0]
}

// Len returns the current length of the path.
func (b *PathBuilder) Len() int {
	return len(b.buf)
}

// WriteString appends a string segment verbatim.
func (b *PathBuilder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a single byte.
func (b *PathBuilder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// Append appends segments joined by '.'.
func (b *PathBuilder) Append(parts ...string) {
	for i, part := range parts {
		if i > 0 && len(b.buf) > 0 {
			b.buf = append(b.buf, '.')
		}
		b.buf = append(b.buf, part...)
	}
}

// AppendWithDot appends a segment with a leading dot when the buffer
// is not empty.
func (b *PathBuilder) AppendWithDot(part string) {
	if len(b.buf) > 0 {
		b.buf = append(b.buf, '.')
	}
	b.buf = append(b.buf, part...)
}

// AppendIndex appends an array index in brackets.
func (b *PathBuilder) AppendIndex(index int) {
	b.buf = append(b.buf, '[')
	b.buf = strconv.AppendInt(b.buf, int64(index), 10)
	b.buf = append(b.buf, ']')
}

// String returns the built path.
func (b *PathBuilder) String() string {
	return string(b.buf)
}

// BuildPath builds a path using a callback; the builder returns to the
// pool afterwards.
func BuildPath(fn func(*PathBuilder)) string {
	pb := AcquirePathBuilder()
	defer pb.Release()
	fn(pb)
	return pb.String()
}

// JoinPath joins segments with dots.
func JoinPath(segments ...string) string {
	if len(segments) == 0 {
		return ""
	}
	if len(segments) == 1 {
		return segments[0]
	}
	return BuildPath(func(b *PathBuilder) {
		b.Append(segments...)
	})
}
