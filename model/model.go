// Package model holds the shared data types that flow between the
// delta-graph loader, the revision materializer, the directory packer
// and the export orchestrator: file records, commits, packed
// directories, branch heads, tags and the mark table.
package model

import "time"

// FileRecord identifies one versioned file within a master. Two
// FileRecords may share the same Path (they represent different
// revisions of the same file across different commits); identity is by
// pointer, not by Path value.
type FileRecord struct {
	Path     string // canonicalized, post name-canonicalization
	Mode     uint32 // only the executable bit is meaningful
	Revision string // dotted-decimal revision number, e.g. "1.3" or "1.1.2.4"
	Serial   int    // assigned when the blob is produced; 0 means unassigned
}

// Executable reports whether the file's execute bit is set.
func (f *FileRecord) Executable() bool {
	return f.Mode&0111 != 0
}

// GitMode returns the fast-import mode string for an M operation.
func (f *FileRecord) GitMode() string {
	if f.Executable() {
		return "100755"
	}
	return "100644"
}

// Identity is an author's resolved name, email and optional timezone,
// produced by the author-map collaborator.
type Identity struct {
	Name     string
	Email    string
	Location *time.Location // nil means UTC
}

// Commit is one whole-tree snapshot: a set of packed directories
// reachable from Files, an author, a log message, a timestamp and at
// most one parent (history is linear per branch).
type Commit struct {
	Author   Identity
	Log      string
	Date     time.Time
	Parent   *Commit
	Files    []*FileRecord // flat list of every FileRecord live in this commit
	Dirs     []*PackedDir  // directory-packed view of Files, built by dirpack
	Serial   int           // commit serial, assigned at emission
	Branch   *BranchHead
	RevPairs []RevPair // path + dotted revision, for the optional cvs-revision property
}

// RevPair is one (path, revision) contribution to a commit, used for
// the optional reposurgeon metadata property.
type RevPair struct {
	Path     string
	Revision string
}

// PackedDir is a deduplicated, space-shared snapshot of the
// FileRecords living directly under one directory-prefix run. Two
// PackedDirs built from identical FileRecord pointer sequences MUST be
// the same object; dirpack enforces this via hash-consing.
type PackedDir struct {
	Files []*FileRecord
}

// BranchHead is a named line of development.
type BranchHead struct {
	Name string
	Tip  *Commit
	Tail bool // true: fully covered by another branch's tail suffix, excluded from emission
}

// Tag names a single commit.
type Tag struct {
	Name   string
	Commit *Commit
}

// RevisionList is the external-interface input assembly described in
// SPEC_FULL.md §6: every branch head plus every tag discovered by the
// loader collaborator, ready for the export orchestrator to consume.
type RevisionList struct {
	Heads []*BranchHead
	Tags  []*Tag
}

// MarkTable is the dense array of fast-import marks, indexed by
// serial number. It is allocated once per export.Session and is never
// a package-level global.
type MarkTable struct {
	marks   []int32
	emitted []bool
	next    int32
}

// NewMarkTable allocates a mark table sized for up to n serials.
func NewMarkTable(n int) *MarkTable {
	return &MarkTable{
		marks:   make([]int32, n+1),
		emitted: make([]bool, n+1),
	}
}

func (t *MarkTable) grow(serial int) {
	if serial < len(t.marks) {
		return
	}
	nm := make([]int32, serial+1)
	ne := make([]bool, serial+1)
	copy(nm, t.marks)
	copy(ne, t.emitted)
	t.marks, t.emitted = nm, ne
}

// Assign returns the mark for serial, allocating a new one on first
// use. Marks are strictly increasing in allocation order.
func (t *MarkTable) Assign(serial int) int32 {
	t.grow(serial)
	if t.marks[serial] == 0 {
		t.next++
		t.marks[serial] = t.next
	}
	return t.marks[serial]
}

// MarkOf returns the mark previously assigned to serial, or 0 if none.
func (t *MarkTable) MarkOf(serial int) int32 {
	if serial >= len(t.marks) {
		return 0
	}
	return t.marks[serial]
}

// Emitted reports whether serial's blob has already been written to
// the stream.
func (t *MarkTable) Emitted(serial int) bool {
	return serial < len(t.emitted) && t.emitted[serial]
}

// SetEmitted marks serial's blob as written.
func (t *MarkTable) SetEmitted(serial int) {
	t.grow(serial)
	t.emitted[serial] = true
}
