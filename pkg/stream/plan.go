package stream

import (
	"errors"
	"fmt"
)

// Alignment constraints imposed by the backend's block API: GetFile offsets
// and limits must be multiples of BlockAlign, and one call may fetch at most
// MaxChunkSize bytes.
const (
	BlockAlign       = 4096
	MaxChunkSize     = 1 << 20
	DefaultChunkSize = 1 << 20
)

// ErrRangeUnsatisfiable reports a byte range that lies outside the file.
// The HTTP layer answers it with 416 and the file size.
var ErrRangeUnsatisfiable = errors.New("range not satisfiable")

// Plan is the block-aligned fetch schedule for one byte range of one file.
// The backend serves only aligned blocks, so the plan covers
// [AlignedOffset, AlignedOffset+PartCount*ChunkSize) and cuts the first and
// last block down to the requested window. Plans are immutable.
type Plan struct {
	AlignedOffset int64
	FirstCut      int64
	LastCut       int64
	PartCount     int64
	ChunkSize     int64
	Length        int64
}

// ComputePlan builds the plan for bytes [start, end], both inclusive, of a
// file of the given size, fetching DefaultChunkSize blocks.
func ComputePlan(size, start, end int64) (Plan, error) {
	return ComputePlanWithChunk(size, start, end, DefaultChunkSize)
}

// ComputePlanWithChunk is ComputePlan with an explicit block size. A zero or
// negative chunk selects the default; anything unaligned or oversized is
// rejected before the range is even looked at.
func ComputePlanWithChunk(size, start, end, chunk int64) (Plan, error) {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	if chunk%BlockAlign != 0 || chunk > MaxChunkSize {
		return Plan{}, fmt.Errorf("chunk size %d: not a multiple of %d up to %d", chunk, BlockAlign, MaxChunkSize)
	}
	if start < 0 || start >= size || end >= size || end < start {
		return Plan{}, fmt.Errorf("%w: bytes %d-%d of %d", ErrRangeUnsatisfiable, start, end, size)
	}

	aligned := start - start%chunk
	return Plan{
		AlignedOffset: aligned,
		FirstCut:      start - aligned,
		LastCut:       end%chunk + 1,
		PartCount:     (end+chunk)/chunk - aligned/chunk,
		ChunkSize:     chunk,
		Length:        end - start + 1,
	}, nil
}

// Offset returns the backend offset of one zero-based part.
func (p Plan) Offset(part int) int64 {
	return p.AlignedOffset + int64(part)*p.ChunkSize
}

// Trim cuts a fetched block down to the bytes the plan serves: the first
// part drops everything before FirstCut, the last part everything from
// LastCut on, middle parts pass through untouched. Cuts clamp to the block
// length so a short final block cannot take the slice out of bounds.
func (p Plan) Trim(part int, block []byte) []byte {
	first, last := int64(0), int64(len(block))
	if part == 0 {
		first = min(p.FirstCut, last)
	}
	if int64(part) == p.PartCount-1 {
		last = min(p.LastCut, last)
	}
	if first >= last {
		return nil
	}
	return block[first:last]
}
