package rcsmaster

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/keyword"
)

type parser struct {
	lx    *lexer
	peek  *token
	path  string
}

func newParser(path string, buf []byte) *parser {
	return &parser{lx: newLexer(buf), path: path}
}

func (p *parser) next() (token, error) {
	if p.peek != nil {
		t := *p.peek
		p.peek = nil
		return t, nil
	}
	return p.lx.next()
}

func (p *parser) peekToken() (token, error) {
	if p.peek == nil {
		t, err := p.lx.next()
		if err != nil {
			return token{}, err
		}
		p.peek = &t
	}
	return *p.peek, nil
}

func (p *parser) expectSemi() error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if t.kind != tokSemi {
		return fmt.Errorf("rcsmaster: %s: expected ';', got %v", p.path, t)
	}
	return nil
}

// valuesUntilSemi consumes tokens (words or strings) up to and
// including the next ';', returning their text for callers who want
// the value.
func (p *parser) valuesUntilSemi() ([]string, error) {
	var vals []string
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t.kind {
		case tokSemi:
			return vals, nil
		case tokEOF:
			return nil, fmt.Errorf("rcsmaster: %s: unexpected EOF", p.path)
		default:
			vals = append(vals, t.text)
		}
	}
}

var headerKeywords = map[string]bool{
	"head": true, "branch": true, "access": true, "symbols": true,
	"locks": true, "strict": true, "comment": true, "expand": true,
}

func looksLikeRevision(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

// ParseMaster parses one RCS master file's bytes into a Master,
// building the full delta graph (RevisionNode.Down/To/Sib) but not
// yet loading any patch text bodies — those stay as byte offsets
// until the revision materializer asks for them.
func ParseMaster(path string, buf []byte) (*Master, error) {
	p := newParser(path, buf)
	m := &Master{
		Path:     path,
		Symbols:  map[string]string{},
		byNumber: map[string]*RevisionNode{},
		Expand:   keyword.KKV,
	}
	var headRev, expandDirective string

	for {
		t, err := p.peekToken()
		if err != nil {
			return nil, err
		}
		if t.kind != tokWord || !headerKeywords[t.text] {
			break
		}
		p.next()
		switch t.text {
		case "head":
			vals, err := p.valuesUntilSemi()
			if err != nil {
				return nil, err
			}
			if len(vals) > 0 {
				headRev = vals[0]
			}
		case "branch", "access", "locks", "strict":
			if _, err := p.valuesUntilSemi(); err != nil {
				return nil, err
			}
		case "symbols":
			vals, err := p.valuesUntilSemi()
			if err != nil {
				return nil, err
			}
			for _, v := range vals {
				if idx := strings.LastIndex(v, ":"); idx > 0 {
					m.Symbols[v[:idx]] = v[idx+1:]
				}
			}
		case "comment":
			if _, err := p.valuesUntilSemi(); err != nil {
				return nil, err
			}
		case "expand":
			vt, err := p.next()
			if err != nil {
				return nil, err
			}
			expandDirective = vt.text
			if err := p.expectSemi(); err != nil {
				return nil, err
			}
		}
	}
	if expandDirective != "" {
		mode, err := keyword.ParseMode(expandDirective)
		if err == nil {
			m.Expand = mode
		}
	}

	// Delta (admin) blocks: <rev> date ...; author ...; state ...;
	// branches ...; next ...; [commitid ...;]
	for {
		t, err := p.peekToken()
		if err != nil {
			return nil, err
		}
		if t.kind != tokWord || !looksLikeRevision(t.text) {
			break
		}
		p.next()
		rn := &RevisionNode{Number: t.text, Meta: &VersionMeta{Number: t.text}}
		var branches []string
		var next string
		for {
			ft, err := p.peekToken()
			if err != nil {
				return nil, err
			}
			if ft.kind != tokWord || !isDeltaField(ft.text) {
				break
			}
			p.next()
			switch ft.text {
			case "date":
				vals, err := p.valuesUntilSemi()
				if err != nil {
					return nil, err
				}
				if len(vals) > 0 {
					rn.Meta.Date = parseRCSDate(vals[0])
				}
			case "author":
				vals, err := p.valuesUntilSemi()
				if err != nil {
					return nil, err
				}
				if len(vals) > 0 {
					rn.Meta.Author = vals[0]
				}
			case "state":
				vals, err := p.valuesUntilSemi()
				if err != nil {
					return nil, err
				}
				if len(vals) > 0 {
					rn.Meta.State = vals[0]
				} else {
					rn.Meta.State = "Exp"
				}
			case "branches":
				vals, err := p.valuesUntilSemi()
				if err != nil {
					return nil, err
				}
				branches = vals
			case "next":
				vals, err := p.valuesUntilSemi()
				if err != nil {
					return nil, err
				}
				if len(vals) > 0 {
					next = vals[0]
				}
			case "commitid":
				if _, err := p.valuesUntilSemi(); err != nil {
					return nil, err
				}
			}
		}
		rn.pendingNext = next
		rn.pendingBranches = branches
		m.byNumber[rn.Number] = rn
	}

	// "desc" <string>
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t.kind == tokWord && t.text == "desc" {
		dt, err := p.next()
		if err != nil {
			return nil, err
		}
		m.Description = dt.text
	}

	// deltatext blocks: <rev> log <string> text <string>
	for {
		t, err := p.peekToken()
		if err != nil {
			return nil, err
		}
		if t.kind == tokEOF {
			break
		}
		if t.kind != tokWord || !looksLikeRevision(t.text) {
			break
		}
		p.next()
		rn, ok := m.byNumber[t.text]
		if !ok {
			return nil, fmt.Errorf("rcsmaster: %s: deltatext for unknown revision %s", path, t.text)
		}
		lt, err := p.next()
		if err != nil {
			return nil, err
		}
		if lt.kind != tokWord || lt.text != "log" {
			return nil, fmt.Errorf("rcsmaster: %s: expected 'log' for revision %s", path, t.text)
		}
		logTok, err := p.next()
		if err != nil {
			return nil, err
		}
		rn.Meta.Log = logTok.text
		xt, err := p.next()
		if err != nil {
			return nil, err
		}
		if xt.kind != tokWord || xt.text != "text" {
			return nil, fmt.Errorf("rcsmaster: %s: expected 'text' for revision %s", path, t.text)
		}
		textTok, err := p.next()
		if err != nil {
			return nil, err
		}
		rn.Patch = PatchText{MasterPath: path, Offset: textTok.offset, Length: textTok.length}
	}

	linkGraph(m, headRev)
	return m, nil
}

func isDeltaField(s string) bool {
	switch s {
	case "date", "author", "state", "branches", "next", "commitid":
		return true
	}
	return false
}

// linkGraph wires Down/To/Sib across the parsed revision nodes,
// starting from the trunk head, exactly mirroring each node's "next"
// and "branches" admin fields.
func linkGraph(m *Master, headRev string) {
	if headRev == "" {
		return
	}
	head, ok := m.byNumber[headRev]
	if !ok {
		return
	}
	m.Head = head
	for _, rn := range m.byNumber {
		if rn.pendingNext != "" {
			rn.To = m.byNumber[rn.pendingNext]
		}
		var first, prev *RevisionNode
		for _, b := range rn.pendingBranches {
			bn := m.byNumber[b]
			if bn == nil {
				continue
			}
			if first == nil {
				first = bn
			} else {
				prev.Sib = bn
			}
			prev = bn
		}
		rn.Down = first
	}
}

// parseRCSDate parses RCS's "YY.MM.DD.hh.mm.ss" (or 4-digit year)
// timestamp, which is always recorded in UTC.
func parseRCSDate(s string) time.Time {
	parts := strings.Split(s, ".")
	if len(parts) != 6 {
		return time.Time{}
	}
	nums := make([]int, 6)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}
		}
		nums[i] = n
	}
	year := nums[0]
	if len(parts[0]) <= 2 {
		if year >= 70 {
			year += 1900
		} else {
			year += 2000
		}
	}
	return time.Date(year, time.Month(nums[1]), nums[2], nums[3], nums[4], nums[5], 0, time.UTC)
}
