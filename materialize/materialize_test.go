package materialize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/keyword"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/model"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/rcsmaster"
)

const trunkThreeRevisions = `head	1.3;
access;
symbols;
locks; strict;


1.3
date	2020.01.03.00.00.00;	author alice;	state Exp;
branches;
next	1.2;

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


1.3
log
@r3
@
text
@B
@


1.2
log
@r2
@
text
@a0 1
A
@


1.1
log
@r1
@
text
@d2 1
@
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

// Concrete scenario 1 from SPEC_FULL.md §8: trunk 1.1/1.2/1.3 with
// contents A\n, A\nB\n, B\n.
func TestMaterializeTrunkThreeRevisions(t *testing.T) {
	path := writeFixture(t, "foo.c,v", trunkThreeRevisions)
	m, err := rcsmaster.LoadMaster(path)
	assert.NoError(t, err)
	m.CanonPath = "foo"

	for n := m.Head; n != nil; n = n.To {
		n.FR = &model.FileRecord{Path: "foo", Revision: n.Number}
	}

	got := map[string]string{}
	mz := New(nil)
	err = mz.Materialize(m, func(node *rcsmaster.RevisionNode, fr *model.FileRecord, data []byte) error {
		got[node.Number] = string(data)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "B\n", got["1.3"])
	assert.Equal(t, "A\nB\n", got["1.2"])
	assert.Equal(t, "A\n", got["1.1"])
}

// Property test 7 from SPEC_FULL.md §8: KO mode round-trips verbatim.
func TestMaterializeKOModeRoundTrips(t *testing.T) {
	path := writeFixture(t, "bin.c,v", trunkThreeRevisions)
	m, err := rcsmaster.LoadMaster(path)
	assert.NoError(t, err)
	m.Expand = keyword.KO
	m.CanonPath = "bin"
	m.Head.FR = &model.FileRecord{Path: "bin", Revision: m.Head.Number}

	var out string
	mz := New(nil)
	err = mz.Materialize(m, func(node *rcsmaster.RevisionNode, fr *model.FileRecord, data []byte) error {
		out = string(data)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "B\n", out)
}

const branchForkFixture = `head	1.1;
access;
symbols;
locks; strict;


1.1
date	2020.01.01.00.00.00;	author alice;	state Exp;
branches	1.1.2.1;
next	;

1.1.2.1
date	2020.01.05.00.00.00;	author alice;	state Exp;
branches;
next	;


desc
@@


1.1
log
@root
@
text
@A
@


1.1.2.1
log
@branch tip
@
text
@a1 1
C
@
`

// Concrete scenario 5 from SPEC_FULL.md §8: a branch forks from the
// parent's materialized state rather than from scratch.
func TestMaterializeBranchForksFromParentState(t *testing.T) {
	path := writeFixture(t, "forked.c,v", branchForkFixture)
	m, err := rcsmaster.LoadMaster(path)
	assert.NoError(t, err)
	m.CanonPath = "forked"
	m.Head.FR = &model.FileRecord{Path: "forked", Revision: "1.1"}
	m.Head.Down.FR = &model.FileRecord{Path: "forked", Revision: "1.1.2.1"}

	got := map[string]string{}
	mz := New(nil)
	err = mz.Materialize(m, func(node *rcsmaster.RevisionNode, fr *model.FileRecord, data []byte) error {
		got[node.Number] = string(data)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "A\n", got["1.1"])
	assert.Equal(t, "A\nC\n", got["1.1.2.1"])
}

func TestMaterializeOnlyEmitsNodesWithFileRecord(t *testing.T) {
	path := writeFixture(t, "foo.c,v", trunkThreeRevisions)
	m, err := rcsmaster.LoadMaster(path)
	assert.NoError(t, err)
	m.CanonPath = "foo"
	m.Head.To.FR = &model.FileRecord{Path: "foo", Revision: "1.2"} // only 1.2

	count := 0
	mz := New(nil)
	err = mz.Materialize(m, func(node *rcsmaster.RevisionNode, fr *model.FileRecord, data []byte) error {
		count++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
