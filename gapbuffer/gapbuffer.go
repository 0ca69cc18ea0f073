// Package gapbuffer implements the dense mutable line sequence used
// by the revision materializer: an array of line handles with a
// movable empty region so that localized insert/delete stays O(1)
// amortized instead of O(n) per edit.
package gapbuffer

import "fmt"

// Line is an opaque handle to one line of text. In practice it is a
// slice into a memory-mapped patch region, but the buffer never reads
// the bytes itself.
type Line []byte

// BoundsError reports an edit outside the buffer's logical length.
type BoundsError struct {
	Op       string
	Position int
	Length   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("gapbuffer: %s at %d exceeds logical length %d", e.Op, e.Position, e.Length)
}

// Buffer is a gap buffer over Line handles.
type Buffer struct {
	lines    []Line
	gapStart int
	gapSize  int
}

// New returns an empty buffer with room for at least capHint lines
// before the first grow.
func New(capHint int) *Buffer {
	if capHint < 8 {
		capHint = 8
	}
	return &Buffer{
		lines:   make([]Line, capHint),
		gapSize: capHint,
	}
}

// Clone returns a deep-enough copy suitable for a branch fork: the
// line slice is byte-copied (handles are shared, the array backing
// them is not), matching generate.c's enter_branch byte-copy of the
// parent frame's line array.
func (b *Buffer) Clone() *Buffer {
	nb := &Buffer{
		lines:    make([]Line, len(b.lines)),
		gapStart: b.gapStart,
		gapSize:  b.gapSize,
	}
	copy(nb.lines, b.lines)
	return nb
}

// Len returns the logical number of live lines.
func (b *Buffer) Len() int {
	return len(b.lines) - b.gapSize
}

func (b *Buffer) moveGapTo(n int) {
	if n == b.gapStart {
		return
	}
	if n < b.gapStart {
		// shift the block [n, gapStart) up past the gap
		copy(b.lines[n+b.gapSize:b.gapStart+b.gapSize], b.lines[n:b.gapStart])
		for i := n; i < n+b.gapSize; i++ {
			b.lines[i] = nil
		}
	} else {
		// shift the block [gapStart+gapSize, n+gapSize) down into the gap
		oldGapEnd := b.gapStart + b.gapSize
		newGapEnd := n + b.gapSize
		copy(b.lines[b.gapStart:n], b.lines[oldGapEnd:newGapEnd])
		for i := n; i < newGapEnd; i++ {
			b.lines[i] = nil
		}
	}
	b.gapStart = n
}

func (b *Buffer) grow(minExtra int) {
	newCap := len(b.lines) * 2
	if newCap == 0 {
		newCap = 8
	}
	for newCap-len(b.lines)+b.gapSize < minExtra {
		newCap *= 2
	}
	nl := make([]Line, newCap)
	copy(nl, b.lines[:b.gapStart])
	tail := b.lines[b.gapStart+b.gapSize:]
	copy(nl[len(nl)-len(tail):], tail)
	b.gapSize = newCap - (len(b.lines) - b.gapSize)
	b.lines = nl
}

// Insert places line at 0-origin logical position n. It fails if n
// exceeds the logical length.
func (b *Buffer) Insert(n int, line Line) error {
	if n < 0 || n > b.Len() {
		return &BoundsError{Op: "insert", Position: n, Length: b.Len()}
	}
	if b.gapSize == 0 {
		b.grow(1)
	}
	b.moveGapTo(n)
	b.lines[b.gapStart] = line
	b.gapStart++
	b.gapSize--
	return nil
}

// Delete removes k consecutive lines starting at logical position n.
// It fails if n+k exceeds the logical length or n is negative.
func (b *Buffer) Delete(n, k int) error {
	if n < 0 || k < 0 || n+k > b.Len() {
		return &BoundsError{Op: "delete", Position: n + k, Length: b.Len()}
	}
	if k == 0 {
		return nil
	}
	b.moveGapTo(n)
	for i := 0; i < k; i++ {
		b.lines[b.gapStart+b.gapSize+i] = nil
	}
	b.gapSize += k
	return nil
}

// Snapshot invokes emit(line) for every live line in order.
func (b *Buffer) Snapshot(emit func(Line)) {
	for i := 0; i < b.gapStart; i++ {
		emit(b.lines[i])
	}
	for i := b.gapStart + b.gapSize; i < len(b.lines); i++ {
		emit(b.lines[i])
	}
}
