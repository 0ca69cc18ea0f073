package keyword

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sampleMeta() Meta {
	return Meta{
		Author:   "alice",
		Date:     time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC),
		RCSfile:  "a.c,v",
		Revision: "1.2",
		Source:   "src/a.c",
		State:    "Exp",
	}
}

// Concrete scenario 6 from SPEC_FULL.md §8.
func TestExpandIdKKV(t *testing.T) {
	e := &Expander{Mode: KKV, Meta: sampleMeta()}
	out := e.Expand([]byte("$Id$\n"))
	assert.Equal(t, "$Id: a.c,v 1.2 2020/03/04 05:06:07 alice Exp $\n", string(out))
}

func TestExpandIdKOIsUnchanged(t *testing.T) {
	e := &Expander{Mode: KO, Meta: sampleMeta()}
	out := e.Expand([]byte("$Id$\n"))
	assert.Equal(t, "$Id$\n", string(out))
}

func TestExpandKK(t *testing.T) {
	e := &Expander{Mode: KK, Meta: sampleMeta()}
	out := e.Expand([]byte("$Revision: 1.1 $\n"))
	assert.Equal(t, "$Revision$\n", string(out))
}

func TestExpandKV(t *testing.T) {
	e := &Expander{Mode: KV, Meta: sampleMeta()}
	out := e.Expand([]byte("$Author$\n"))
	assert.Equal(t, "alice\n", string(out))
}

func TestUnterminatedTokenPassesThroughVerbatim(t *testing.T) {
	e := &Expander{Mode: KKV, Meta: sampleMeta()}
	line := []byte("$Author no closing delimiter\n")
	out := e.Expand(line)
	assert.Equal(t, string(line), string(out))
}

// An unterminated "$Key:" form (colon present, no closing '$' before
// the newline) must also pass through verbatim rather than being
// expanded — spec.md §4.2's boundary rule applies to both the bare
// "$Key " and the "$Key:value" shapes.
func TestUnterminatedColonTokenPassesThroughVerbatim(t *testing.T) {
	e := &Expander{Mode: KKV, Meta: sampleMeta()}
	line := []byte("$Author: no closing delimiter here\n")
	out := e.Expand(line)
	assert.Equal(t, string(line), string(out))
}

func TestNonKeywordDollarIsUntouched(t *testing.T) {
	e := &Expander{Mode: KKV, Meta: sampleMeta()}
	out := e.Expand([]byte("price is $5 today\n"))
	assert.Equal(t, "price is $5 today\n", string(out))
}

func TestSpliceLogConvertsCCommentLeader(t *testing.T) {
	e := &Expander{Mode: KKV, Meta: sampleMeta()}
	lines := e.SpliceLog([]byte("/* $Log$ */"), []string{"fixed the thing"})
	assert.Equal(t, []string{
		" * Revision 1.2  2020/03/04 05:06:07  alice",
		" * fixed the thing",
	}, lines)
}

func TestSpliceLogSuppressesRecursiveCheckinBody(t *testing.T) {
	e := &Expander{Mode: KKV, Meta: sampleMeta()}
	lines := e.SpliceLog([]byte("# $Log$"), []string{"checked in with -k by bob"})
	assert.Nil(t, lines)
}

func TestSpliceLogReusesLeaderAcrossCalls(t *testing.T) {
	e := &Expander{Mode: KKV, Meta: sampleMeta()}
	e.SpliceLog([]byte("   /* $Log$ */"), nil)
	lines := e.SpliceLog([]byte("completely different trigger"), []string{"x"})
	assert.Equal(t, "    * x", lines[1])
}
