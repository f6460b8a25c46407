// Package bufpool pools the chunk buffers used on the streaming path.
//
// Every block fetch materialises a buffer of up to the configured chunk size
// and drops it as soon as the bytes are written to the client, so a busy
// gateway churns through short-lived megabyte slices at request rate. The
// pool hands those buffers out in three size tiers and takes them back once
// a stream has drained them.
//
// The tiers follow the chunk ladder: 4 KiB is the block alignment granule
// and the smallest legal fetch limit, 1 MiB is the largest, and 64 KiB
// catches the sizes in between. Requests above the large tier are allocated
// directly and never pooled, so an oversized one-off cannot pin memory.
package bufpool

import (
	"sync"
)

// Tier sizes of the default pool.
const (
	// DefaultSmallSize is one alignment block (4 KiB).
	DefaultSmallSize = 4 << 10

	// DefaultMediumSize covers mid-ladder chunk sizes (64 KiB).
	DefaultMediumSize = 64 << 10

	// DefaultLargeSize is the largest fetchable chunk (1 MiB).
	DefaultLargeSize = 1 << 20
)

// Pool is a tiered buffer pool. The zero value is not usable; create one
// with NewPool or use the package-level Get and Put.
type Pool struct {
	small      sync.Pool
	medium     sync.Pool
	large      sync.Pool
	smallSize  int
	mediumSize int
	largeSize  int
}

// Config sets the tier sizes of a custom pool. Zero fields keep the
// defaults.
type Config struct {
	SmallSize  int
	MediumSize int
	LargeSize  int
}

// DefaultConfig returns the default tier sizes.
func DefaultConfig() Config {
	return Config{
		SmallSize:  DefaultSmallSize,
		MediumSize: DefaultMediumSize,
		LargeSize:  DefaultLargeSize,
	}
}

// NewPool creates a pool with the given tier sizes. A nil config selects the
// defaults.
func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}

	if cfg.SmallSize <= 0 {
		cfg.SmallSize = DefaultSmallSize
	}
	if cfg.MediumSize <= 0 {
		cfg.MediumSize = DefaultMediumSize
	}
	if cfg.LargeSize <= 0 {
		cfg.LargeSize = DefaultLargeSize
	}

	p := &Pool{
		smallSize:  cfg.SmallSize,
		mediumSize: cfg.MediumSize,
		largeSize:  cfg.LargeSize,
	}

	p.small = sync.Pool{
		New: func() any {
			buf := make([]byte, p.smallSize)
			return &buf
		},
	}
	p.medium = sync.Pool{
		New: func() any {
			buf := make([]byte, p.mediumSize)
			return &buf
		},
	}
	p.large = sync.Pool{
		New: func() any {
			buf := make([]byte, p.largeSize)
			return &buf
		},
	}

	return p
}

// Get returns a byte slice of exactly the requested length, backed by a
// pooled buffer from the smallest tier that fits. Pass the slice to Put when
// done with it; sizes above the large tier are allocated directly and Put
// will not retain them.
func (p *Pool) Get(size int) []byte {
	var bufPtr *[]byte

	switch {
	case size <= p.smallSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= p.mediumSize:
		bufPtr = p.medium.Get().(*[]byte)
	case size <= p.largeSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}

	buf := *bufPtr
	return buf[:size]
}

// Put returns a buffer obtained from Get to its tier. The buffer must not be
// used afterwards. Buffers whose capacity matches no tier, including
// oversized direct allocations and subslices that no longer start at the
// buffer's origin, are left for the garbage collector.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	switch cap(buf) {
	case p.smallSize:
		fullBuf := buf[:cap(buf)]
		p.small.Put(&fullBuf)
	case p.mediumSize:
		fullBuf := buf[:cap(buf)]
		p.medium.Put(&fullBuf)
	case p.largeSize:
		fullBuf := buf[:cap(buf)]
		p.large.Put(&fullBuf)
	}
}

// globalPool serves the package-level Get and Put. One pool is enough for
// the process; every stream draws from the same tiers.
var globalPool = NewPool(nil)

// Get returns a byte slice of the requested length from the shared pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a buffer from Get to the shared pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}
