package export

import (
	"sort"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/model"
)

// opKind distinguishes a fast-import M from a D.
type opKind int

const (
	opModify opKind = iota
	opDelete
)

type fileOp struct {
	kind opKind
	path string
	fr   *model.FileRecord // nil for D
}

// linkParent builds the per-commit side table mapping a child
// FileRecord to its parent-commit counterpart by path identity
// (spec.md §4.5.2, resolved per SPEC_FULL.md §3/§9 as a plain
// map[string]*FileRecord instead of a mutable scratch pointer field).
func linkParent(parent *model.Commit) map[string]*model.FileRecord {
	byPath := make(map[string]*model.FileRecord, len(parentFiles(parent)))
	for _, f := range parentFiles(parent) {
		byPath[f.Path] = f
	}
	return byPath
}

func parentFiles(c *model.Commit) []*model.FileRecord {
	if c == nil {
		return nil
	}
	return c.Files
}

// computeOps implements spec.md §4.5.3: for each child file, emit M
// if absent from the parent or if its serial changed; for each parent
// file absent from the child, emit D. The result is sorted using the
// canonical ordering (lexicographic with a trailing '/' sentinel so
// directory contents sort before a sibling that later replaces the
// directory).
func computeOps(child *model.Commit) []fileOp {
	parentByPath := linkParent(child.Parent)
	seen := make(map[string]bool, len(child.Files))

	var ops []fileOp
	for _, f := range child.Files {
		seen[f.Path] = true
		if pf, ok := parentByPath[f.Path]; !ok || pf.Serial != f.Serial {
			ops = append(ops, fileOp{kind: opModify, path: f.Path, fr: f})
		}
	}
	for _, pf := range parentFiles(child.Parent) {
		if !seen[pf.Path] {
			ops = append(ops, fileOp{kind: opDelete, path: pf.Path})
		}
	}

	sort.SliceStable(ops, func(i, j int) bool {
		return pathLess(ops[i].path, ops[j].path)
	})
	return ops
}

// pathLess implements spec.md §4.5.3's canonical ordering: plain
// lexicographic comparison, except that when one path is a strict
// prefix of the other and the longer path continues with '/', the
// longer (nested) path sorts first. That is the trailing-'/' sentinel
// rule's effect: a directory's contents must sort before the sibling
// file that later replaces the directory.
func pathLess(a, b string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	if len(a) == len(b) {
		return false
	}
	longer := a
	if len(b) > len(a) {
		longer = b
	}
	if longer[n] == '/' {
		return len(a) > len(b)
	}
	return len(a) < len(b)
}
