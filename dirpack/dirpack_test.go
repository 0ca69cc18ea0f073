package dirpack

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/model"
)

func TestPackGroupsByDirectoryPrefix(t *testing.T) {
	a := &model.FileRecord{Path: "src/a.c"}
	b := &model.FileRecord{Path: "src/b.c"}
	c := &model.FileRecord{Path: "docs/readme.md"}

	p := New()
	dirs := p.Pack([]*model.FileRecord{a, b, c})
	assert.Len(t, dirs, 2)
	assert.Equal(t, []*model.FileRecord{c}, dirs[0].Files)
	assert.Equal(t, []*model.FileRecord{a, b}, dirs[1].Files)
}

// Property test 5 from SPEC_FULL.md §8: identical FR pointer
// sequences share the same PackedDir object.
func TestPackSharesStructureAcrossCalls(t *testing.T) {
	a := &model.FileRecord{Path: "src/a.c"}
	b := &model.FileRecord{Path: "src/b.c"}

	p := New()
	first := p.Pack([]*model.FileRecord{a, b})
	second := p.Pack([]*model.FileRecord{a, b})
	assert.Same(t, first[0], second[0])
}

func TestPackDistinguishesDifferentSequences(t *testing.T) {
	a := &model.FileRecord{Path: "src/a.c"}
	b := &model.FileRecord{Path: "src/b.c"}
	cDifferentContentSamePath := &model.FileRecord{Path: "src/b.c"}

	p := New()
	first := p.Pack([]*model.FileRecord{a, b})
	second := p.Pack([]*model.FileRecord{a, cDifferentContentSamePath})
	assert.NotSame(t, first[0], second[0])
}

func TestPackEmptyReturnsNil(t *testing.T) {
	p := New()
	assert.Nil(t, p.Pack(nil))
}

func TestPackSingleRootFile(t *testing.T) {
	a := &model.FileRecord{Path: "README"}
	p := New()
	dirs := p.Pack([]*model.FileRecord{a})
	assert.Len(t, dirs, 1)
	assert.Equal(t, []*model.FileRecord{a}, dirs[0].Files)
}
