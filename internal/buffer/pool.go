// Package buffer provides the two low-level buffer facilities the
// acquisition orchestrator needs: 64-byte-aligned flush-batch allocation and
// a size-bucketed pool for transient chunked transport reads.
package buffer

import "sync"

// Buffer size thresholds for the transient read pool. The largest bucket
// comfortably covers one definite-length block chunk at the driver's BYTE
// coding limit (250,000 points/bytes); WORD coding halves the point count
// but doubles the byte width, landing in the same bucket.
const (
	size64k  = 64 * 1024
	size128k = 128 * 1024
	size256k = 256 * 1024
	size512k = 512 * 1024
)

var chunkPool = struct {
	pool64k  sync.Pool
	pool128k sync.Pool
	pool256k sync.Pool
	pool512k sync.Pool
}{
	pool64k:  sync.Pool{New: func() any { b := make([]byte, size64k); return &b }},
	pool128k: sync.Pool{New: func() any { b := make([]byte, size128k); return &b }},
	pool256k: sync.Pool{New: func() any { b := make([]byte, size256k); return &b }},
	pool512k: sync.Pool{New: func() any { b := make([]byte, size512k); return &b }},
}

// GetChunk returns a pooled buffer of at least the requested size, for a
// single definite-length block read. Callers must call PutChunk when done.
func GetChunk(size int) []byte {
	switch {
	case size <= size64k:
		return (*chunkPool.pool64k.Get().(*[]byte))[:size]
	case size <= size128k:
		return (*chunkPool.pool128k.Get().(*[]byte))[:size]
	case size <= size256k:
		return (*chunkPool.pool256k.Get().(*[]byte))[:size]
	case size <= size512k:
		return (*chunkPool.pool512k.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

// PutChunk returns a buffer obtained from GetChunk to its pool. Buffers with
// non-standard capacity (the default case above) are simply dropped.
func PutChunk(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case size64k:
		chunkPool.pool64k.Put(&buf)
	case size128k:
		chunkPool.pool128k.Put(&buf)
	case size256k:
		chunkPool.pool256k.Put(&buf)
	case size512k:
		chunkPool.pool512k.Put(&buf)
	}
}
