// Package materialize implements the revision materializer (C3): an
// explicit-stack traversal of a master's delta graph that drives a
// gap buffer through each revision's edit script and hands the full
// text of every emitted revision to a caller-supplied hook.
package materialize

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/gapbuffer"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/keyword"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/model"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/rcsmaster"
)

// MaxStackDepth bounds the explicit traversal stack. Mirrors the
// source's CVS_MAX_DEPTH/2 guard against pathological branch nesting;
// masters that need more are almost certainly corrupt.
const MaxStackDepth = 1000

// DepthExceededError is returned when the traversal stack would grow
// past MaxStackDepth.
type DepthExceededError struct{}

func (DepthExceededError) Error() string {
	return fmt.Sprintf("materialize: branch nesting exceeds MaxStackDepth (%d)", MaxStackDepth)
}

// EmitFunc receives one revision's fully materialized text. It is
// called only for nodes whose FR field is non-nil, i.e. revisions the
// caller has already decided belong to a commit.
type EmitFunc func(node *rcsmaster.RevisionNode, fr *model.FileRecord, data []byte) error

// Materializer walks one master's delta graph at a time. It owns the
// mmap LRU cache; nothing about it is global.
type Materializer struct {
	Logger *logrus.Logger
	cache  *patchCache
}

// New returns a Materializer with its own patch cache.
func New(logger *logrus.Logger) *Materializer {
	return &Materializer{Logger: logger, cache: newPatchCache()}
}

type frame struct {
	node       *rcsmaster.RevisionNode
	buf        *gapbuffer.Buffer
	nextBranch *rcsmaster.RevisionNode
	parentBuf  *gapbuffer.Buffer
}

// Materialize walks m's delta graph from its head and calls emit for
// every revision node with an assigned FileRecord.
func (mz *Materializer) Materialize(m *rcsmaster.Master, emit EmitFunc) error {
	if m.Head == nil {
		return nil
	}
	defer mz.cache.UnloadAll()

	root := &frame{node: m.Head, buf: gapbuffer.New(64)}
	stack := []*frame{root}
	first := true

	for len(stack) > 0 {
		if len(stack) > MaxStackDepth {
			return DepthExceededError{}
		}
		top := stack[len(stack)-1]

		if top.node == nil {
			stack = stack[:len(stack)-1]
			if top.nextBranch != nil {
				stack = append(stack, &frame{
					node:       top.nextBranch,
					buf:        top.parentBuf.Clone(),
					nextBranch: top.nextBranch.Sib,
					parentBuf:  top.parentBuf,
				})
			}
			continue
		}

		raw, err := mz.cache.Load(top.node.Patch.MasterPath)
		if err != nil {
			return err
		}
		patchBytes := raw[top.node.Patch.Offset : top.node.Patch.Offset+top.node.Patch.Length]

		if first {
			if err := applyEnter(top.buf, patchBytes); err != nil {
				return err
			}
			first = false
		} else {
			if err := applyEdit(top.buf, patchBytes); err != nil {
				return err
			}
		}

		if top.node.FR != nil {
			data := mz.render(m, top.node, top.buf)
			if err := emit(top.node, top.node.FR, data); err != nil {
				return err
			}
		}

		if top.node.Down != nil {
			stack = append(stack, &frame{
				node:       top.node.Down,
				buf:        top.buf.Clone(),
				nextBranch: top.node.Down.Sib,
				parentBuf:  top.buf,
			})
			top.node = top.node.To
			continue
		}
		top.node = top.node.To
	}
	return nil
}

// render produces the final bytes for one revision from the frame's
// current buffer state: a verbatim snapshot for KO/KB modes, or a
// keyword-expanded, line-by-line rewrite otherwise. A $Log$ marker is
// rewritten in place; no log lines are spliced after it.
func (mz *Materializer) render(m *rcsmaster.Master, node *rcsmaster.RevisionNode, buf *gapbuffer.Buffer) []byte {
	var out bytes.Buffer

	if m.Expand.Verbatim() {
		buf.Snapshot(func(l gapbuffer.Line) { out.Write(l) })
		return out.Bytes()
	}

	exp := &keyword.Expander{Mode: m.Expand, Meta: keyword.Meta{
		Author:   node.Meta.Author,
		Date:     node.Meta.Date,
		RCSfile:  baseName(m.Path),
		Revision: node.Number,
		Source:   m.CanonPath,
		State:    node.Meta.State,
	}}
	buf.Snapshot(func(l gapbuffer.Line) { out.Write(exp.Expand(l)) })
	return out.Bytes()
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
