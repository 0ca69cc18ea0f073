package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizePathStripsPrefixAndSuffix(t *testing.T) {
	got := canonicalizePath("/repo/src/foo.c,v", len("/repo/"))
	assert.Equal(t, "src/foo.c", got)
}

func TestCanonicalizePathDropsAtticAndRCSComponents(t *testing.T) {
	assert.Equal(t, "src/foo.c", canonicalizePath("/repo/src/Attic/foo.c,v", len("/repo/")))
	assert.Equal(t, "src/foo.c", canonicalizePath("/repo/src/RCS/foo.c,v", len("/repo/")))
}

func TestCanonicalizePathRenamesCvsignore(t *testing.T) {
	got := canonicalizePath("/repo/.cvsignore,v", len("/repo/"))
	assert.Equal(t, ".gitignore", got)
}

// Property test 4 (SPEC_FULL.md §8): canonicalizeComponents is
// idempotent, independent of strip.
func TestCanonicalizeComponentsIsIdempotent(t *testing.T) {
	inputs := []string{
		"src/foo.c",
		"src/Attic/foo.c,v",
		"RCS/bar.c,v",
		".cvsignore",
		"plain",
	}
	for _, in := range inputs {
		once := canonicalizeComponents(in)
		twice := canonicalizeComponents(once)
		assert.Equal(t, once, twice, "not idempotent for %q", in)
	}
}

// canonicalizePath itself is not idempotent when strip > 0: applying
// the same byte-count strip a second time to an already-stripped path
// is not a supported operation. This pins down that strip is an
// ingestion-only, one-shot transform rather than a regression.
func TestCanonicalizePathNotReentrantWithNonZeroStrip(t *testing.T) {
	once := canonicalizePath("/repo/src/foo.c,v", len("/repo/"))
	assert.Equal(t, "src/foo.c", once)
	twice := canonicalizePath(once, len("/repo/"))
	assert.NotEqual(t, once, twice)
}
