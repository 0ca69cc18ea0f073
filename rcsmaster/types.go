// Package rcsmaster is the loader collaborator named in SPEC_FULL.md
// §1/§6: it tokenizes an RCS-style master file ("foo.c,v") and builds
// the in-memory delta graph the revision materializer walks. It is
// explicitly outside the CORE's invariants (spec.md §1) and is free to
// use stdlib and ordinary Go idiom without the CORE's single-threaded
// constraint.
package rcsmaster

import (
	"time"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/keyword"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/model"
)

// VersionMeta is one revision's administrative metadata: author,
// commit date, RCS state and log message.
type VersionMeta struct {
	Number string
	Author string
	Date   time.Time
	State  string
	Log    string
}

// PatchText locates one revision's delta/snapshot body within the
// bytes of its master file: the CORE's LRU cache maps the master path
// once and slices out [Offset:Offset+Length).
type PatchText struct {
	MasterPath string
	Offset     int64
	Length     int64
}

// RevisionNode is one vertex of a master's delta graph (RN in
// spec.md §3): trunk spine via To, first branch via Down, sibling
// branch point via Sib.
type RevisionNode struct {
	Number string
	Meta   *VersionMeta
	Patch  PatchText

	Down *RevisionNode // first branch rooted at this node
	To   *RevisionNode // next revision along the current line
	Sib  *RevisionNode // next branch rooted at the same trunk node

	FR *model.FileRecord // set by the caller before materialization; only nodes with FR set are emitted

	pendingNext     string   // admin "next" field, resolved into To by linkGraph
	pendingBranches []string // admin "branches" field, resolved into Down/Sib by linkGraph
}

// Master is one parsed RCS file: header fields plus the delta graph
// head (the trunk tip, which carries the complete snapshot text).
type Master struct {
	Path        string
	CanonPath   string // post name-canonicalization, set by the export layer
	Executable  bool
	Expand      keyword.Mode
	Head        *RevisionNode
	Symbols     map[string]string // tag/branch name -> revision number
	Description string

	byNumber map[string]*RevisionNode
}

// Nodes returns every revision node in the master's delta graph, in no
// particular order. Callers that want every revision materialized
// (rather than a caller-chosen subset) assign each one's FR before
// calling Materializer.Materialize.
func (m *Master) Nodes() []*RevisionNode {
	nodes := make([]*RevisionNode, 0, len(m.byNumber))
	for _, rn := range m.byNumber {
		nodes = append(nodes, rn)
	}
	return nodes
}
