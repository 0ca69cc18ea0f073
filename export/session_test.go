package export

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/materialize"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/rcsmaster"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

const oneFileTrunk = `head	1.2;
access;
symbols;
locks; strict;


1.2
date	2020.01.02.00.00.00;	author alice;	state Exp;
branches;
next	1.1;

1.1
date	2020.01.01.00.00.00;	author alice;	state Exp;
branches;
next	;


desc
@@


1.2
log
@second
@
text
@A
B
@


1.1
log
@first
@
text
@d2 1
@
`

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	if opts.BranchPrefix == "" {
		opts.BranchPrefix = "refs/heads/"
	}
	s, err := NewSession(opts, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Concrete scenario 1 from SPEC_FULL.md §8, carried all the way
// through the export orchestrator: two trunk revisions of one file
// become two commits on "master", each holding exactly one blob.
func TestSessionEmitsTrunkRevisionsAsTwoCommits(t *testing.T) {
	path := writeFixture(t, "foo.c,v", oneFileTrunk)
	m, err := rcsmaster.LoadMaster(path)
	assert.NoError(t, err)

	s := newTestSession(t, Options{})
	mz := materialize.New(nil)

	var out bytes.Buffer
	assert.NoError(t, s.Run([]*rcsmaster.Master{m}, mz, &out))

	stream := out.String()
	assert.Equal(t, 2, strings.Count(stream, "blob"))
	assert.Equal(t, 2, strings.Count(stream, "commit refs/heads/master"))
	assert.Contains(t, stream, "author alice")
	assert.True(t, strings.HasSuffix(strings.TrimRight(stream, "\n"), "done"))
}

// Concrete scenario 2 from SPEC_FULL.md §8: a revision in the "dead"
// state (CVS's Attic marker) produces a D operation instead of an M,
// and does not resurrect the file in later commits.
func TestSessionDeadRevisionProducesDeleteOperation(t *testing.T) {
	const withAttic = `head	1.2;
access;
symbols;
locks; strict;


1.2
date	2020.01.02.00.00.00;	author alice;	state dead;
branches;
next	1.1;

1.1
date	2020.01.01.00.00.00;	author alice;	state Exp;
branches;
next	;


desc
@@


1.2
log
@removed
@
text
@@


1.1
log
@first
@
text
@a0 1
A
@
`
	path := writeFixture(t, "gone.c,v", withAttic)
	m, err := rcsmaster.LoadMaster(path)
	assert.NoError(t, err)

	s := newTestSession(t, Options{})
	mz := materialize.New(nil)

	var out bytes.Buffer
	assert.NoError(t, s.Run([]*rcsmaster.Master{m}, mz, &out))

	stream := out.String()
	assert.Equal(t, 1, strings.Count(stream, "blob"))
	assert.Contains(t, stream, "D ")
}

// Marks must be strictly increasing in the order they appear in the
// stream (SPEC_FULL.md §8 Testable Property #1): each commit's own
// mark must be numerically greater than every blob mark emitted
// before it, since blobs it introduces are written before its own
// "commit" line. Concrete Scenario 1 gives literal marks :1.."6"
// interleaved per revision; here we just check the relative ordering
// directly against the marks as they actually occur in the stream,
// independent of exact formatting.
func TestSessionMarksAreStrictlyIncreasingInStreamOrder(t *testing.T) {
	path := writeFixture(t, "foo.c,v", oneFileTrunk)
	m, err := rcsmaster.LoadMaster(path)
	assert.NoError(t, err)

	s := newTestSession(t, Options{})
	mz := materialize.New(nil)

	var out bytes.Buffer
	assert.NoError(t, s.Run([]*rcsmaster.Master{m}, mz, &out))

	re := regexp.MustCompile(`(?m)^mark :(\d+)$`)
	matches := re.FindAllStringSubmatch(out.String(), -1)
	assert.True(t, len(matches) >= 4, "expected at least 4 mark lines, got %d", len(matches))

	prev := 0
	for _, mm := range matches {
		n, err := strconv.Atoi(mm[1])
		assert.NoError(t, err)
		assert.Greater(t, n, prev, "marks must be strictly increasing in stream order")
		prev = n
	}
}

func TestSessionForceDatesRuns(t *testing.T) {
	path := writeFixture(t, "foo.c,v", oneFileTrunk)
	m, err := rcsmaster.LoadMaster(path)
	assert.NoError(t, err)

	s := newTestSession(t, Options{ForceDates: true, CommitTimeWindow: time.Second})
	mz := materialize.New(nil)

	var out bytes.Buffer
	assert.NoError(t, s.Run([]*rcsmaster.Master{m}, mz, &out))
	assert.Contains(t, out.String(), "commit refs/heads/master")
}
