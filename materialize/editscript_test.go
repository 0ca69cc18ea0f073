package materialize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/gapbuffer"
)

func snapshotStrings(buf *gapbuffer.Buffer) []string {
	var out []string
	buf.Snapshot(func(l gapbuffer.Line) { out = append(out, string(l)) })
	return out
}

func seededBuffer(lines ...string) *gapbuffer.Buffer {
	buf := gapbuffer.New(len(lines))
	for i, l := range lines {
		buf.Insert(i, gapbuffer.Line(l+"\n"))
	}
	return buf
}

func TestApplyEditDeleteThenInsert(t *testing.T) {
	buf := seededBuffer("A", "B", "C")
	err := applyEdit(buf, []byte("d2 1\na2 1\nX\n"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"A\n", "X\n", "C\n"}, snapshotStrings(buf))
}

// A "d" command whose line precedes an earlier "a" command's watermark
// is rejected, even though dafter alone would have allowed it: the
// source's parse_next_delta_command cross-checks a "d" against both
// adprev and dafter.
func TestApplyEditRejectsDeleteBehindPriorInsertWatermark(t *testing.T) {
	buf := seededBuffer("A", "B", "C", "D")
	err := applyEdit(buf, []byte("a3 1\nX\nd1 1\n"))
	assert.Error(t, err)
	var corrupt *CorruptDeltaError
	assert.ErrorAs(t, err, &corrupt)
}

// A "d" command updates adprev, not just dafter, so a later "a" at a
// smaller line than that delete is rejected too.
func TestApplyEditDeleteAdvancesInsertWatermark(t *testing.T) {
	buf := seededBuffer("A", "B", "C", "D")
	err := applyEdit(buf, []byte("d3 1\na1 1\nX\n"))
	assert.Error(t, err)
	var corrupt *CorruptDeltaError
	assert.ErrorAs(t, err, &corrupt)
}
