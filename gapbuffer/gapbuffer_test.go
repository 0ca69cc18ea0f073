package gapbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect(b *Buffer) []string {
	var out []string
	b.Snapshot(func(l Line) { out = append(out, string(l)) })
	return out
}

func TestInsertAppendRoundTrip(t *testing.T) {
	b := New(4)
	for _, s := range []string{"A", "B", "C"} {
		assert.NoError(t, b.Insert(b.Len(), Line(s)))
	}
	assert.Equal(t, []string{"A", "B", "C"}, collect(b))
}

func TestInsertAtMiddleShiftsTail(t *testing.T) {
	b := New(4)
	b.Insert(0, Line("A"))
	b.Insert(1, Line("C"))
	b.Insert(1, Line("B"))
	assert.Equal(t, []string{"A", "B", "C"}, collect(b))
}

func TestDeleteRange(t *testing.T) {
	b := New(4)
	for _, s := range []string{"A", "B", "C", "D"} {
		b.Insert(b.Len(), Line(s))
	}
	assert.NoError(t, b.Delete(1, 2))
	assert.Equal(t, []string{"A", "D"}, collect(b))
}

func TestInsertBoundsError(t *testing.T) {
	b := New(4)
	b.Insert(0, Line("A"))
	err := b.Insert(5, Line("X"))
	assert.Error(t, err)
	var be *BoundsError
	assert.ErrorAs(t, err, &be)
}

func TestDeleteBoundsError(t *testing.T) {
	b := New(4)
	b.Insert(0, Line("A"))
	assert.Error(t, b.Delete(0, 5))
}

func TestGrowBeyondInitialCapacity(t *testing.T) {
	b := New(2)
	for i := 0; i < 50; i++ {
		b.Insert(b.Len(), Line("x"))
	}
	assert.Equal(t, 50, b.Len())
}

func TestCloneIsIndependent(t *testing.T) {
	b := New(4)
	b.Insert(0, Line("A"))
	c := b.Clone()
	c.Insert(1, Line("B"))
	assert.Equal(t, []string{"A"}, collect(b))
	assert.Equal(t, []string{"A", "B"}, collect(c))
}

// Property test 6 from SPEC_FULL.md §8: ENTER (bulk insert) followed
// by zero edits, then snapshot, reproduces the patch body verbatim.
func TestEnterThenSnapshotRoundTrips(t *testing.T) {
	body := []string{"line one", "line two", "line three"}
	b := New(4)
	for _, l := range body {
		assert.NoError(t, b.Insert(b.Len(), Line(l)))
	}
	assert.Equal(t, body, collect(b))
}
