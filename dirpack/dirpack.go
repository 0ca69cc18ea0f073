// Package dirpack implements the directory packer (C4): space-efficient
// deduplication of per-commit file-set snapshots via hash-consing on
// the exact pointer sequence of a sorted directory-prefix run.
package dirpack

import (
	"hash/fnv"
	"sort"
	"strings"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/model"
)

// Packer owns the hash-cons table. It lives for the whole export run
// (SPEC_FULL.md §9: no process-global arena), created once per
// export.Session.
type Packer struct {
	buckets map[uint64][]*model.PackedDir
}

// New returns an empty Packer.
func New() *Packer {
	return &Packer{buckets: map[uint64][]*model.PackedDir{}}
}

// Pack sorts files lexicographically, groups them into maximal runs
// sharing a directory prefix, and returns one PackedDir per run, each
// hash-consed against every PackedDir built so far so that two commits
// with identical file-pointer sequences for a directory share the same
// object (spec.md §3 PD invariant).
func (p *Packer) Pack(files []*model.FileRecord) []*model.PackedDir {
	if len(files) == 0 {
		return nil
	}
	sorted := make([]*model.FileRecord, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var dirs []*model.PackedDir
	start := 0
	var prefix string
	havePrefix := false
	for i := 0; i <= len(sorted); i++ {
		samePrefix := false
		if i < len(sorted) {
			samePrefix = havePrefix && strings.HasPrefix(sorted[i].Path, prefix)
		}
		if i == len(sorted) || !samePrefix {
			if i > start {
				dirs = append(dirs, p.pack(sorted[start:i]))
			}
			if i < len(sorted) {
				start = i
				prefix = dirPrefix(sorted[i].Path)
				havePrefix = true
			}
		}
	}
	return dirs
}

func dirPrefix(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[:idx+1]
	}
	return ""
}

func hashPointers(files []*model.FileRecord) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, f := range files {
		addr := pointerBits(f)
		for i := 0; i < 8; i++ {
			buf[i] = byte(addr >> (8 * i))
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}

func samePointerSequence(a, b []*model.FileRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (p *Packer) pack(files []*model.FileRecord) *model.PackedDir {
	h := hashPointers(files)
	for _, cand := range p.buckets[h] {
		if samePointerSequence(cand.Files, files) {
			return cand
		}
	}
	cp := make([]*model.FileRecord, len(files))
	copy(cp, files)
	pd := &model.PackedDir{Files: cp}
	p.buckets[h] = append(p.buckets[h], pd)
	return pd
}
