package export

import (
	"sort"
	"time"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/model"
)

// orderCommits implements spec.md §4.5.5. Branch order concatenates
// each non-tail branch's own commits, oldest-to-newest, in head order.
// Canonical order lays out the same per-branch spans and then sorts
// the whole array by date, provided doing so cannot break a
// back-reference: every commit's parent must already date earlier. If
// that consistency check fails the history is non-sortable; warn once
// and fall back to branch order rather than emit an invalid stream.
func orderCommits(list *model.RevisionList, branchOrder bool, warn func(string)) []*model.Commit {
	var flat []*model.Commit
	for _, h := range list.Heads {
		if h.Tail {
			continue
		}
		flat = append(flat, branchSpan(h)...)
	}

	if branchOrder {
		return flat
	}

	if !consistentDates(flat) {
		if warn != nil {
			warn("commit history is not date-consistent; falling back to branch order")
		}
		return flat
	}

	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].Date.Before(flat[j].Date)
	})
	return flat
}

// branchSpan walks h's commits newest-to-oldest via Parent, stopping
// before the first ancestor that belongs to a different branch (the
// fork point), and returns the remainder oldest-to-newest.
func branchSpan(h *model.BranchHead) []*model.Commit {
	var rev []*model.Commit
	for c := h.Tip; c != nil; c = c.Parent {
		if c.Branch != h {
			break
		}
		rev = append(rev, c)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// consistentDates reports whether every commit's parent date precedes
// its own — the precondition for a plain chronological sort to also
// be a valid topological order.
func consistentDates(commits []*model.Commit) bool {
	for _, c := range commits {
		if c.Parent != nil && c.Parent.Date.After(c.Date) {
			return false
		}
	}
	return true
}

// reported implements spec.md §4.5.6: commits at or before cutoff are
// traversed (their marks still get assigned, by the caller, so later
// references resolve) but not written to the stream. A zero cutoff
// disables filtering and every commit is reported.
func reported(c *model.Commit, cutoff time.Time) bool {
	return cutoff.IsZero() || c.Date.After(cutoff)
}

// needsSync reports whether c is the first reported commit on its
// branch and its own parent was not reported — the condition under
// which spec.md §4.5.6 requires a "from <prefix><branch>^0" sync line
// instead of a mark reference.
func needsSync(c *model.Commit, cutoff time.Time) bool {
	return reported(c, cutoff) && c.Parent != nil && !reported(c.Parent, cutoff)
}

// effectiveDate implements spec.md §4.5.7: under force_dates, a
// commit's emitted date is a fabricated monotonic value derived from
// its position in emission order rather than its recorded date.
func effectiveDate(emissionIndex int, forceDates bool, window time.Duration, recorded time.Time) time.Time {
	if !forceDates {
		return recorded
	}
	return time.Unix(0, 0).UTC().Add(time.Duration(emissionIndex) * 2 * window)
}
