package export

import (
	"sort"
	"strings"
	"time"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/materialize"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/model"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/rcsmaster"
)

// revisionEvent is one materialized revision: the collector's unit of
// fusion before changesets are assembled into commits.
type revisionEvent struct {
	master *rcsmaster.Master
	node   *rcsmaster.RevisionNode
	fr     *model.FileRecord
	branch string
}

// collector fuses the independent per-file revision streams produced by
// materializing every master into synthetic multi-file commits. A CVS
// master records no linkage between the revisions a developer checked
// in together; cvs-fast-export's own changeset-assembly pass recovers
// this by clustering contemporaneous, same-author, same-log-message
// revisions. That pass was not present in the retrieved reference
// sources (which covered blob export, delta materialization and
// directory packing, not the collector), so the clustering rule below
// — same branch, same author, same log text, and within a configurable
// time window of the previous revision in the cluster — is this
// package's own, deliberately simple, stand-in for it.
type collector struct {
	blobs  *blobCache
	mz     *materialize.Materializer
	window time.Duration
	strip  int

	nextSerial int
	events     []revisionEvent
}

func newCollector(mz *materialize.Materializer, blobs *blobCache, strip int, window time.Duration) *collector {
	return &collector{mz: mz, blobs: blobs, strip: strip, window: window}
}

// ingest materializes every revision of m and records one revisionEvent
// per emitted FileRecord. It must be called once per loaded master
// before Collect.
func (c *collector) ingest(m *rcsmaster.Master) error {
	m.CanonPath = canonicalizePath(m.Path, c.strip)

	// Every revision is a distinct historical checkin, so every node
	// gets a FileRecord; Materialize only emits nodes whose FR is set.
	for _, rn := range m.Nodes() {
		rn.FR = &model.FileRecord{}
	}

	return c.mz.Materialize(m, func(node *rcsmaster.RevisionNode, fr *model.FileRecord, data []byte) error {
		fr.Path = m.CanonPath
		if m.Executable {
			fr.Mode = 0755
		} else {
			fr.Mode = 0644
		}
		fr.Revision = node.Number
		// A "dead" state marks the revision that records a CVS
		// deletion (Attic move); it carries no content worth a blob.
		if node.Meta.State != "dead" {
			c.nextSerial++
			fr.Serial = c.nextSerial
			if err := c.blobs.Write(fr.Serial, data); err != nil {
				return err
			}
		}
		c.events = append(c.events, revisionEvent{
			master: m,
			node:   node,
			fr:     fr,
			branch: resolveBranchName(m, branchKey(node.Number)),
		})
		return nil
	})
}

// BlobCount returns how many distinct blob serials were assigned
// across every ingested master, i.e. the highest blob serial; every
// serial above it is free for the caller's own (disjoint) commit-mark
// numbering.
func (c *collector) BlobCount() int {
	return c.nextSerial
}

// Collect fuses every ingested event into commits, chains each
// branch's commits by Parent, forks new branches off the nearest
// earlier commit on any branch, and attaches tags resolved from each
// master's symbol table.
func (c *collector) Collect() *model.RevisionList {
	sort.SliceStable(c.events, func(i, j int) bool {
		return c.events[i].node.Meta.Date.Before(c.events[j].node.Meta.Date)
	})

	byBranch := make(map[string][]revisionEvent)
	var branchOrder []string
	for _, ev := range c.events {
		if _, ok := byBranch[ev.branch]; !ok {
			branchOrder = append(branchOrder, ev.branch)
		}
		byBranch[ev.branch] = append(byBranch[ev.branch], ev)
	}

	heads := make(map[string]*model.BranchHead, len(branchOrder))
	var allCommits []*model.Commit
	var tagJobs []tagJob

	for _, name := range branchOrder {
		head := &model.BranchHead{Name: name}
		heads[name] = head
		var tip *model.Commit
		for _, cluster := range clusterEvents(byBranch[name], c.window) {
			commit := &model.Commit{
				Author: model.Identity{Name: cluster[0].node.Meta.Author},
				Log:    cluster[0].node.Meta.Log,
				Date:   cluster[len(cluster)-1].node.Meta.Date,
				Branch: head,
			}
			removed := make(map[string]bool)
			for _, ev := range cluster {
				if ev.node.Meta.State == "dead" {
					removed[ev.fr.Path] = true
					continue
				}
				commit.Files = append(commit.Files, ev.fr)
				commit.RevPairs = append(commit.RevPairs, model.RevPair{Path: ev.fr.Path, Revision: ev.fr.Revision})
				tagJobs = append(tagJobs, tagJob{master: ev.master, revision: ev.node.Number, commit: commit})
			}
			if tip != nil {
				commit.Parent = tip
			} else {
				commit.Parent = nearestAncestor(allCommits, commit.Date)
			}
			commit.Files = inheritUnchangedFiles(commit, removed)
			tip = commit
			allCommits = append(allCommits, commit)
		}
		head.Tip = tip
	}

	list := &model.RevisionList{}
	for _, name := range branchOrder {
		list.Heads = append(list.Heads, heads[name])
	}
	list.Tags = resolveTags(tagJobs)
	return list
}

// inheritUnchangedFiles adds every file live in the parent commit that
// this commit does not itself touch or delete, so Commit.Files always
// holds the whole-tree snapshot dirpack and the op-list computation
// expect.
func inheritUnchangedFiles(c *model.Commit, removed map[string]bool) []*model.FileRecord {
	if c.Parent == nil {
		return c.Files
	}
	touched := make(map[string]bool, len(c.Files))
	for _, f := range c.Files {
		touched[f.Path] = true
	}
	out := append([]*model.FileRecord(nil), c.Files...)
	for _, pf := range c.Parent.Files {
		if touched[pf.Path] || removed[pf.Path] {
			continue
		}
		out = append(out, pf)
	}
	return out
}

// clusterEvents groups one branch's date-sorted events into commits:
// consecutive events with the same author and log message, each
// within window of the previous event in the run, fuse into one
// commit. A zero window fuses only events with identical timestamps.
func clusterEvents(events []revisionEvent, window time.Duration) [][]revisionEvent {
	var clusters [][]revisionEvent
	for _, ev := range events {
		if n := len(clusters); n > 0 {
			last := clusters[n-1]
			prev := last[len(last)-1]
			sameChange := prev.node.Meta.Author == ev.node.Meta.Author &&
				prev.node.Meta.Log == ev.node.Meta.Log &&
				!ev.node.Meta.Date.Before(prev.node.Meta.Date) &&
				ev.node.Meta.Date.Sub(prev.node.Meta.Date) <= window
			if sameChange {
				clusters[n-1] = append(last, ev)
				continue
			}
		}
		clusters = append(clusters, []revisionEvent{ev})
	}
	return clusters
}

// nearestAncestor returns the commit, across every branch collected so
// far, with the latest Date not after t — the approximate fork point
// for a branch's first commit.
func nearestAncestor(commits []*model.Commit, t time.Time) *model.Commit {
	var best *model.Commit
	for _, c := range commits {
		if c.Date.After(t) {
			continue
		}
		if best == nil || c.Date.After(best.Date) {
			best = c
		}
	}
	return best
}

type tagJob struct {
	master   *rcsmaster.Master
	revision string
	commit   *model.Commit
}

// resolveTags turns each master's non-branch symbols into model.Tags
// pointing at the commit that carries the matching revision.
func resolveTags(jobs []tagJob) []*model.Tag {
	byMasterRev := make(map[*rcsmaster.Master]map[string]*model.Commit, len(jobs))
	for _, j := range jobs {
		m := byMasterRev[j.master]
		if m == nil {
			m = make(map[string]*model.Commit)
			byMasterRev[j.master] = m
		}
		m[j.revision] = j.commit
	}

	var tags []*model.Tag
	for master, revCommits := range byMasterRev {
		for name, value := range master.Symbols {
			if isBranchSymbolValue(value) {
				continue
			}
			if commit, ok := revCommits[value]; ok {
				tags = append(tags, &model.Tag{Name: name, Commit: commit})
			}
		}
	}
	return tags
}

// branchKey returns the RCS branch identity of a dotted revision
// number: "" for the trunk, otherwise all but the last dotted
// component (e.g. "1.1.2.4" names branch "1.1.2").
func branchKey(revision string) string {
	parts := strings.Split(revision, ".")
	if len(parts) <= 2 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], ".")
}

// resolveBranchName looks up key's symbolic tag name via RCS's magic
// branch number convention (see magicBranchNumber). Trunk is always
// "master". A key with no matching symbol gets a stable synthetic name
// instead of being dropped.
func resolveBranchName(m *rcsmaster.Master, key string) string {
	if key == "" {
		return "master"
	}
	for name, value := range m.Symbols {
		if magicBranchNumber(value) == key {
			return name
		}
	}
	return "branch-" + strings.ReplaceAll(key, ".", "-")
}

// isBranchSymbolValue reports whether an admin-header symbol value
// denotes a branch rather than one specific revision.
func isBranchSymbolValue(value string) bool {
	parts := strings.Split(value, ".")
	if len(parts)%2 == 1 && len(parts) >= 3 {
		return true
	}
	return len(parts) >= 4 && parts[len(parts)-2] == "0"
}

// magicBranchNumber converts a symbol's recorded value into the branch
// number it denotes. RCS inserts a literal ".0" before a branch tag's
// final component when recording it (so symbol value "1.1.0.2" names
// branch number "1.1.2"); older branch tags are stored directly as the
// branch number itself (odd component count). Anything else — an
// ordinary revision tag — is returned unchanged, which simply will not
// equal any branchKey.
func magicBranchNumber(value string) string {
	parts := strings.Split(value, ".")
	if len(parts)%2 == 1 {
		return value
	}
	if len(parts) >= 4 && parts[len(parts)-2] == "0" {
		out := append(append([]string{}, parts[:len(parts)-2]...), parts[len(parts)-1])
		return strings.Join(out, ".")
	}
	return value
}
