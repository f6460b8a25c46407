package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTierSelection(t *testing.T) {
	t.Run("BlockSizedRequest", func(t *testing.T) {
		buf := Get(4096)
		defer Put(buf)

		assert.Equal(t, 4096, len(buf))
		assert.Equal(t, DefaultSmallSize, cap(buf))
	})

	t.Run("MidLadderChunk", func(t *testing.T) {
		buf := Get(32 * 1024)
		defer Put(buf)

		assert.Equal(t, 32*1024, len(buf))
		assert.Equal(t, DefaultMediumSize, cap(buf))
	})

	t.Run("FullChunk", func(t *testing.T) {
		buf := Get(1 << 20)
		defer Put(buf)

		assert.Equal(t, 1<<20, len(buf))
		assert.Equal(t, DefaultLargeSize, cap(buf))
	})

	t.Run("ShortTailChunk", func(t *testing.T) {
		// A tail fetch near EOF asks for less than a full block.
		buf := Get(100)
		defer Put(buf)

		assert.Equal(t, 100, len(buf))
		assert.Equal(t, DefaultSmallSize, cap(buf))
	})

	t.Run("TierBoundaries", func(t *testing.T) {
		small := Get(DefaultSmallSize)
		assert.Equal(t, DefaultSmallSize, cap(small))
		Put(small)

		medium := Get(DefaultSmallSize + 1)
		assert.Equal(t, DefaultMediumSize, cap(medium))
		Put(medium)

		large := Get(DefaultMediumSize + 1)
		assert.Equal(t, DefaultLargeSize, cap(large))
		Put(large)
	})

	t.Run("OversizedAllocatesDirectly", func(t *testing.T) {
		buf := Get(DefaultLargeSize + 1)
		defer Put(buf)

		assert.Equal(t, DefaultLargeSize+1, len(buf))
		assert.Equal(t, len(buf), cap(buf))
	})

	t.Run("ZeroSize", func(t *testing.T) {
		buf := Get(0)
		defer Put(buf)

		assert.NotNil(t, buf)
		assert.Equal(t, 0, len(buf))
	})
}

func TestPut(t *testing.T) {
	t.Run("ReturnedBufferIsReused", func(t *testing.T) {
		buf1 := Get(4096)
		Put(buf1)

		buf2 := Get(4096)
		Put(buf2)

		assert.Equal(t, cap(buf1), cap(buf2))
	})

	t.Run("NilIsIgnored", func(t *testing.T) {
		require.NotPanics(t, func() {
			Put(nil)
		})
	})

	t.Run("ForeignBufferIsIgnored", func(t *testing.T) {
		buf := make([]byte, 100)

		require.NotPanics(t, func() {
			Put(buf)
		})
	})

	t.Run("TrimmedSubsliceIsDropped", func(t *testing.T) {
		// A first-part trim shifts the slice origin; the capacity no longer
		// matches a tier, so the pool must not retain it.
		buf := Get(1 << 20)
		trimmed := buf[512:]

		require.NotPanics(t, func() {
			Put(trimmed)
		})
	})

	t.Run("OversizedIsNotPooled", func(t *testing.T) {
		buf := Get(2 << 20)
		Put(buf)

		buf2 := Get(2 << 20)
		defer Put(buf2)

		assert.Equal(t, len(buf2), cap(buf2))
	})
}

func TestCustomPool(t *testing.T) {
	t.Run("CustomTiers", func(t *testing.T) {
		pool := NewPool(&Config{
			SmallSize:  1024,
			MediumSize: 8192,
			LargeSize:  65536,
		})

		small := pool.Get(500)
		assert.Equal(t, 1024, cap(small))
		pool.Put(small)

		medium := pool.Get(2000)
		assert.Equal(t, 8192, cap(medium))
		pool.Put(medium)

		large := pool.Get(10000)
		assert.Equal(t, 65536, cap(large))
		pool.Put(large)
	})

	t.Run("NilConfigSelectsDefaults", func(t *testing.T) {
		pool := NewPool(nil)

		buf := pool.Get(100)
		assert.Equal(t, DefaultSmallSize, cap(buf))
		pool.Put(buf)
	})

	t.Run("ZeroFieldsKeepDefaults", func(t *testing.T) {
		pool := NewPool(&Config{MediumSize: 16 * 1024})

		small := pool.Get(100)
		assert.Equal(t, DefaultSmallSize, cap(small))
		pool.Put(small)

		medium := pool.Get(8 * 1024)
		assert.Equal(t, 16*1024, cap(medium))
		pool.Put(medium)
	})
}

func TestConcurrentStreams(t *testing.T) {
	// Mimics concurrent streams drawing chunk buffers at different sizes.
	const goroutines = 10
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()

			for j := 0; j < iterations; j++ {
				size := ((id*100 + j) % 256) * 4096
				buf := Get(size)

				if len(buf) > 0 {
					buf[0] = byte(id)
				}

				Put(buf)
			}
		}(i)
	}

	wg.Wait()
}

func BenchmarkGet(b *testing.B) {
	b.Run("Block", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf := Get(4096)
			Put(buf)
		}
	})

	b.Run("FullChunk", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf := Get(1 << 20)
			Put(buf)
		}
	})
}

func BenchmarkGetParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := Get(1 << 20)
			Put(buf)
		}
	})
}
