// Package keyword implements RCS keyword substitution: the
// line-by-line rewrite of $Keyword$ / $Keyword:value$ tokens into
// revision metadata, in the handful of expansion modes RCS/CVS
// support.
package keyword

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/sirupsen/logrus"
)

// Mode selects how a recognized keyword token is rewritten.
type Mode int

const (
	// KKV is the default: "$Key: value $".
	KKV Mode = iota
	// KKVL is KKV plus locker information; locker tracking is not
	// implemented (spec.md §1 Non-goals), so KKVL behaves as KKV.
	KKVL
	// KK strips the value, leaving "$Key$".
	KK
	// KV strips the delimiters, leaving only "value".
	KV
	// KO is a verbatim snapshot; C3 bypasses expansion entirely for it.
	KO
	// KB is like KO but also skips line-ending normalization.
	KB
)

// ParseMode maps an RCS "expand" directive string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kv":
		return KV, nil
	case "", "kkv":
		return KKV, nil
	case "kkvl":
		return KKVL, nil
	case "kk":
		return KK, nil
	case "ko":
		return KO, nil
	case "kb":
		return KB, nil
	default:
		return KKV, fmt.Errorf("keyword: unrecognized expansion mode %q", s)
	}
}

// Verbatim reports whether C3 should bypass expansion for this mode
// and stream the raw patch text instead.
func (m Mode) Verbatim() bool { return m == KO || m == KB }

// Meta carries the per-revision values keywords expand to. It is
// deliberately independent of the delta-graph types so this package
// has no dependency on the loader collaborator.
type Meta struct {
	Author   string
	Date     time.Time // interpreted as already being in the desired display zone
	Header   string    // optional precomputed $Header$ value; when empty, value() builds "path revision date author state"
	Name     string    // symbolic tag name active at this revision, if any
	RCSfile  string    // base filename, e.g. "a.c,v"
	Revision string    // dotted revision number
	Source   string    // full path as recorded in the master
	State    string    // "Exp", "Stab", "Dead", ...
}

// dateString formats t the way RCS does: "YYYY/MM/DD HH:MM:SS".
func dateString(t time.Time) string {
	return t.Format("2006/01/02 15:04:05")
}

var keywords = []string{
	"Author", "Date", "Header", "Id", "Locker", "Log",
	"Name", "RCSfile", "Revision", "Source", "State",
}

func isKeyword(name string) bool {
	for _, k := range keywords {
		if k == name {
			return true
		}
	}
	return false
}

const ckikLog = "checked in with -k by " // recursion-guard prefix from generate.c's ciklog

// LogHeader formats the header line emitted before spliced $Log$ body
// lines: "Revision <n>  <date>  <author>".
func (m Meta) LogHeader() string {
	return fmt.Sprintf("Revision %s  %s  %s", m.Revision, dateString(m.Date), m.Author)
}

func (m Meta) value(name string) (string, bool) {
	switch name {
	case "Author":
		return m.Author, true
	case "Date":
		return dateString(m.Date), true
	case "Header":
		if m.Header != "" {
			return m.Header, true
		}
		return fmt.Sprintf("%s %s %s %s %s", m.Source, m.Revision, dateString(m.Date), m.Author, m.State), true
	case "Id":
		return fmt.Sprintf("%s %s %s %s %s", m.RCSfile, m.Revision, dateString(m.Date), m.Author, m.State), true
	case "Locker":
		return "", true // locker preservation is explicitly unimplemented
	case "Name":
		return m.Name, true
	case "RCSfile":
		return m.RCSfile, true
	case "Revision":
		return m.Revision, true
	case "Source":
		return m.Source, true
	case "State":
		return m.State, true
	}
	return "", false
}

// Expander rewrites $Keyword$ tokens on each line handed to Expand.
type Expander struct {
	Mode Mode
	Meta Meta

	// logLeader, once discovered from a $Log$ line, is reused for
	// every subsequently spliced log line in the same file.
	logLeader string
}

// SniffBinary warns via logger if data looks binary but mode claims a
// text expansion mode. It never errors: §7 treats encoding issues as
// pass-through.
func SniffBinary(logger *logrus.Logger, path string, data []byte, mode Mode) {
	if mode.Verbatim() {
		return
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return
	}
	if logger != nil {
		logger.Warnf("keyword: %s looks like %s but expansion mode is not KO/KB", path, kind.MIME.Value)
	}
}

// Expand rewrites keyword tokens in line according to e.Mode and
// returns the rewritten line only. For a $Log$ trigger it rewrites the
// marker itself; the log lines that go after it are built separately
// by SpliceLog.
func (e *Expander) Expand(line []byte) []byte {
	if e.Mode.Verbatim() {
		return line
	}
	var out bytes.Buffer
	i := 0
	for i < len(line) {
		if line[i] != '$' {
			out.WriteByte(line[i])
			i++
			continue
		}
		name, rest, ok := trymatch(line[i+1:])
		if !ok {
			out.WriteByte(line[i])
			i++
			continue
		}
		if name == "Log" {
			// $Log$ consumes through its closing '$' rather than
			// pushing it back; Expand emits no log body lines.
			closeIdx := bytes.IndexByte(rest, '$')
			if closeIdx < 0 {
				out.WriteByte(line[i])
				i++
				continue
			}
			i += 1 + len("Log") + closeIdx + 1
			e.writeKeyword(&out, "Log", "")
			continue
		}
		consumed, terminated := scanTokenTail(rest)
		if !terminated {
			// No closing '$' before newline/EOF: per spec.md §4.2, an
			// unterminated "$Key:" is not a keyword at all, so emit
			// its leading '$' verbatim and let the loop re-scan the
			// rest as plain text.
			out.WriteByte(line[i])
			i++
			continue
		}
		val, _ := e.Meta.value(name)
		i += 1 + len(name) + consumed
		e.writeKeyword(&out, name, val)
	}
	return out.Bytes()
}

func (e *Expander) writeKeyword(out *bytes.Buffer, name, val string) {
	switch e.Mode {
	case KK:
		fmt.Fprintf(out, "$%s$", name)
	case KV:
		out.WriteString(val)
	default: // KKV, KKVL
		if val == "" {
			fmt.Fprintf(out, "$%s$", name)
		} else {
			fmt.Fprintf(out, "$%s: %s $", name, val)
		}
	}
}

// trymatch recognizes a keyword name at the start of s (s is the text
// immediately after the leading '$'). It returns the name, the
// remainder of s after the name, and whether a keyword was found. A
// keyword is recognized only if followed by '$' or ':'.
func trymatch(s []byte) (name string, rest []byte, ok bool) {
	end := 0
	for end < len(s) && isAlpha(s[end]) {
		end++
	}
	if end == 0 || end >= len(s) {
		return "", nil, false
	}
	if s[end] != '$' && s[end] != ':' {
		return "", nil, false
	}
	cand := string(s[:end])
	if !isKeyword(cand) {
		return "", nil, false
	}
	return cand, s[end:], true
}

// scanTokenTail consumes a keyword's "$" or ":value$" tail, returning
// the number of bytes consumed (including the closing '$') and
// whether a closing '$' was actually found. If no closing '$' is
// found before newline/EOF, per spec.md §4.2 boundary rule the whole
// "$Key:" is not a keyword at all and the caller must emit it as raw
// text instead of expanding it; terminated is false in that case and
// consumed must not be trusted.
func scanTokenTail(s []byte) (consumed int, terminated bool) {
	if len(s) == 0 {
		return 0, false
	}
	if s[0] == '$' {
		return 1, true
	}
	// s[0] == ':'
	idx := bytes.IndexByte(s, '$')
	if idx < 0 {
		return len(s), false
	}
	return idx + 1, true
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// SpliceLog implements the $Log$ special case (spec.md §4.2): it
// detects the leader whitespace prefix of the trigger line, converts a
// /* or (* comment leader to " * ", and prefixes every injected line
// with that leader. A log body beginning with "checked in with -k by "
// is suppressed to prevent recursive log expansion.
func (e *Expander) SpliceLog(triggerLine []byte, logBody []string) []string {
	if len(logBody) > 0 && strings.HasPrefix(logBody[0], ckikLog) {
		return nil
	}
	leader := e.logLeaderFor(triggerLine)
	out := make([]string, 0, len(logBody)+1)
	out = append(out, leader+e.Meta.LogHeader())
	for _, l := range logBody {
		out = append(out, leader+l)
	}
	return out
}

func (e *Expander) logLeaderFor(line []byte) string {
	if e.logLeader != "" {
		return e.logLeader
	}
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	prefix := string(line[:i])
	rest := line[i:]
	switch {
	case bytes.HasPrefix(rest, []byte("/*")):
		e.logLeader = prefix + " * "
	case bytes.HasPrefix(rest, []byte("(*")):
		e.logLeader = prefix + " * "
	default:
		e.logLeader = prefix
	}
	return e.logLeader
}
