package export

import (
	"fmt"
	"io"
	"os"
	"time"

	libfastimport "github.com/rcowham/go-libgitfastimport"
	"github.com/sirupsen/logrus"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/dirpack"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/materialize"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/model"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/rcsmaster"
)

// Options is the run configuration named in spec.md §6: everything an
// export.Session needs besides the loaded masters themselves.
type Options struct {
	Strip            int
	FromTime         time.Time // zero disables incremental export
	ForceDates       bool
	BranchOrder      bool
	Reposurgeon      bool
	RevisionMapPath  string
	CommitTimeWindow time.Duration
	BranchPrefix     string
	ResolveAuthor    func(cvsUsername string) model.Identity
}

// Session is the export orchestrator (C5): it owns the blob cache, the
// mark table and the directory packer for one run, and is never a
// package-level global (spec.md §9's "global mutable state" note).
type Session struct {
	Opts   Options
	Logger *logrus.Logger

	blobs  *blobCache
	marks  *model.MarkTable
	packer *dirpack.Packer
	warned bool
}

// NewSession allocates a fresh temp-file blob cache and mark table.
func NewSession(opts Options, logger *logrus.Logger) (*Session, error) {
	blobs, err := newBlobCache()
	if err != nil {
		return nil, err
	}
	if opts.BranchPrefix == "" {
		opts.BranchPrefix = "refs/heads/"
	}
	if opts.CommitTimeWindow == 0 {
		opts.CommitTimeWindow = 3 * time.Second
	}
	return &Session{
		Opts:   opts,
		Logger: logger,
		blobs:  blobs,
		marks:  model.NewMarkTable(1024),
		packer: dirpack.New(),
	}, nil
}

// Close releases the blob cache's temp directory.
func (s *Session) Close() error {
	return s.blobs.Close()
}

// Run materializes every master, fuses the results into commits,
// orders them, and writes the complete fast-import stream to out.
func (s *Session) Run(masters []*rcsmaster.Master, mz *materialize.Materializer, out io.Writer) error {
	coll := newCollector(mz, s.blobs, s.Opts.Strip, s.Opts.CommitTimeWindow)
	for _, m := range masters {
		if err := coll.ingest(m); err != nil {
			return fmt.Errorf("export: materializing %s: %w", m.Path, err)
		}
	}
	list := coll.Collect()
	s.resolveAuthors(list)

	if s.Opts.BranchOrder && !s.Opts.FromTime.IsZero() {
		s.warnOnce("branch order with a from-time cutoff emits no branch sync lines; the stream is not safely appendable")
	}
	ordered := orderCommits(list, s.Opts.BranchOrder, s.warnOnce)
	for _, c := range ordered {
		c.Dirs = s.packer.Pack(c.Files)
	}

	backend := libfastimport.NewBackend(out, nil, nil)
	w := newWriter(backend, s.blobs, s.marks, s.Opts)

	blobCount := coll.BlobCount()
	commitMarks := make(map[*model.Commit]int32, len(ordered))

	var revMap *os.File
	if s.Opts.RevisionMapPath != "" {
		f, err := os.Create(s.Opts.RevisionMapPath)
		if err != nil {
			return fmt.Errorf("export: creating revision map: %w", err)
		}
		defer f.Close()
		revMap = f
	}

	for i, c := range ordered {
		commitSerial := blobCount + 1 + i
		c.Serial = commitSerial

		if !reported(c, s.Opts.FromTime) {
			// Still traversed so parent links stay resolvable and
			// marks stay strictly increasing relative to commits that
			// reference it, but nothing is written to the stream for
			// it: incremental export (spec.md §4.5.6) reserves the
			// mark without emitting the commit.
			commitMarks[c] = s.marks.Assign(commitSerial)
			continue
		}

		date := effectiveDate(i, s.Opts.ForceDates, s.Opts.CommitTimeWindow, c.Date)

		var from string
		switch {
		case s.Opts.BranchOrder:
			// Branch order has no canonical incremental story
			// (spec.md §4.5.5); it always references the parent's
			// mark directly, never a sync line, even if that parent
			// was itself not reported.
			if c.Parent != nil {
				from = fmt.Sprintf(":%d", commitMarks[c.Parent])
			}
		case needsSync(c, s.Opts.FromTime):
			from = fmt.Sprintf("%s%s^0", s.Opts.BranchPrefix, c.Branch.Name)
		case c.Parent != nil:
			from = fmt.Sprintf(":%d", commitMarks[c.Parent])
		}

		mark, err := w.writeCommit(c, commitSerial, from, date)
		if err != nil {
			return err
		}
		commitMarks[c] = mark

		if revMap != nil {
			for _, rp := range c.RevPairs {
				fmt.Fprintf(revMap, "%s %s %d\n", rp.Path, rp.Revision, commitMarks[c])
			}
		}

		for _, tag := range list.Tags {
			if tag.Commit == c {
				w.writeTag(tag.Name, commitMarks[c])
			}
		}
	}

	for _, h := range list.Heads {
		if h.Tail || h.Tip == nil {
			continue
		}
		w.writeBranchReset(h.Name, commitMarks[h.Tip])
	}

	backend.Do(libfastimport.CmdDone{})
	return nil
}

func (s *Session) warnOnce(msg string) {
	if s.warned {
		return
	}
	s.warned = true
	if s.Logger != nil {
		s.Logger.Warn(msg)
	}
}

// resolveAuthors rewrites each commit's raw CVS username into a full
// identity via the configured author map, once per branch's own
// commits (a commit inherited from a parent branch is resolved while
// walking that parent branch).
func (s *Session) resolveAuthors(list *model.RevisionList) {
	if s.Opts.ResolveAuthor == nil {
		return
	}
	for _, h := range list.Heads {
		for c := h.Tip; c != nil && c.Branch == h; c = c.Parent {
			c.Author = s.Opts.ResolveAuthor(c.Author.Name)
		}
	}
}
