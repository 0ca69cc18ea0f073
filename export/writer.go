package export

import (
	"fmt"
	"strings"
	"time"

	libfastimport "github.com/rcowham/go-libgitfastimport"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/model"
)

// writer serializes ordered commits to a fast-import stream, using the
// same go-libgitfastimport Backend the teacher's own gitfilter uses
// for stream emission (NewBackend(out, nil, nil) / backend.Do(cmd)).
type writer struct {
	backend *libfastimport.Backend
	blobs   *blobCache
	marks   *model.MarkTable
	opts    Options
}

func newWriter(backend *libfastimport.Backend, blobs *blobCache, marks *model.MarkTable, opts Options) *writer {
	return &writer{backend: backend, blobs: blobs, marks: marks, opts: opts}
}

// writeBlob streams one file's content the first time it is
// referenced, assigning it a mark, per spec.md §4.5.1/§4.5.3.
// Re-requesting an already-emitted serial just returns its mark.
func (w *writer) writeBlob(fr *model.FileRecord) (int32, error) {
	if w.marks.Emitted(fr.Serial) {
		return w.marks.MarkOf(fr.Serial), nil
	}
	data, err := w.blobs.Read(fr.Serial)
	if err != nil {
		return 0, err
	}
	mark := w.marks.Assign(fr.Serial)
	w.backend.Do(libfastimport.CmdBlob{Mark: int(mark), Data: string(data)})
	w.marks.SetEmitted(fr.Serial)
	w.blobs.Remove(fr.Serial)
	return mark, nil
}

// writeCommit emits one commit's M/D operations and header. from is
// either a ":<mark>" mark reference, a "<ref>^0" sync reference (see
// ordering.go's needsSync), or empty for a commit without a parent.
//
// commitSerial is this commit's reserved slot in the shared mark
// space (disjoint from every blob's serial); the commit's own mark is
// assigned from it here, lazily, after its referenced blobs have had
// a chance to claim theirs. This keeps marks strictly increasing in
// the order they actually appear in the stream (SPEC_FULL.md §8
// Testable Property #1): a commit that introduces new blob content
// always emits "blob"/"mark" for that content before its own "commit"/
// "mark" line, so the blob's mark is the smaller of the two.
func (w *writer) writeCommit(c *model.Commit, commitSerial int, from string, date time.Time) (int32, error) {
	ops := computeOps(c)

	type pendingFileOp struct {
		cmd interface{}
	}
	var fileOps []pendingFileOp
	for _, op := range ops {
		switch op.kind {
		case opModify:
			mark, err := w.writeBlob(op.fr)
			if err != nil {
				return 0, err
			}
			fileOps = append(fileOps, pendingFileOp{cmd: libfastimport.FileModify{
				Path:    libfastimport.Path(op.path),
				Mode:    libfastimport.Mode(op.fr.GitMode()),
				DataRef: fmt.Sprintf(":%d", mark),
			}})
		case opDelete:
			fileOps = append(fileOps, pendingFileOp{cmd: libfastimport.FileDelete{Path: libfastimport.Path(op.path)}})
		}
	}

	commitMark := w.marks.Assign(commitSerial)
	commit := libfastimport.CmdCommit{
		Ref:       w.opts.BranchPrefix + c.Branch.Name,
		Mark:      int(commitMark),
		Author:    contributor(c.Author, date),
		Committer: contributor(c.Author, date),
		Msg:       ensureTrailingNewline(c.Log),
		From:      from,
	}
	w.backend.Do(commit)
	for _, fc := range fileOps {
		w.backend.Do(fc.cmd)
	}
	w.backend.Do(libfastimport.CmdCommitEnd{})

	if w.opts.Reposurgeon {
		w.writeRevisionProperty(c)
	}
	return commitMark, nil
}

// writeRevisionProperty emits spec.md §4.5.9's optional per-commit
// metadata: a "property cvs-revision" line carrying the (path,
// revision) pairs contributing to this commit.
func (w *writer) writeRevisionProperty(c *model.Commit) {
	var b strings.Builder
	for i, rp := range c.RevPairs {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s %s", rp.Path, rp.Revision)
	}
	payload := b.String()
	w.backend.Do(libfastimport.CmdProperty{Name: "cvs-revision", Value: payload})
}

// writeTag emits spec.md §4.5.8's per-tag reset.
func (w *writer) writeTag(name string, mark int32) {
	w.backend.Do(libfastimport.CmdReset{
		RefName: "refs/tags/" + name,
		From:    fmt.Sprintf(":%d", mark),
	})
}

// writeBranchReset emits spec.md §4.5.8's per-branch-head reset.
func (w *writer) writeBranchReset(name string, mark int32) {
	w.backend.Do(libfastimport.CmdReset{
		RefName: w.opts.BranchPrefix + name,
		From:    fmt.Sprintf(":%d", mark),
	})
}

// contributor builds an author/committer identity line from an author
// map entry, falling back to UTC when no timezone is on record.
func contributor(id model.Identity, date time.Time) libfastimport.Contributor {
	loc := id.Location
	if loc == nil {
		loc = time.UTC
	}
	return libfastimport.Contributor{
		Name:  id.Name,
		Email: id.Email,
		When:  date.In(loc),
	}
}

func ensureTrailingNewline(s string) string {
	if s == "" || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}
