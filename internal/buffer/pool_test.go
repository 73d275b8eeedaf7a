package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetChunkSizing(t *testing.T) {
	for _, size := range []int{1, size64k, size64k + 1, size256k, size512k, size512k + 1} {
		buf := GetChunk(size)
		require.Equal(t, size, len(buf))
		PutChunk(buf)
	}
}

func TestGetChunkReuse(t *testing.T) {
	buf := GetChunk(size128k)
	buf[0] = 0x42
	PutChunk(buf)

	buf2 := GetChunk(size128k)
	require.Equal(t, size128k, len(buf2))
}
