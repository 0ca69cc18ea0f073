package materialize

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/gapbuffer"
)

// CorruptDeltaError reports a malformed edit script: an unrecognized
// command, a non-positive count, or a position that moves backward
// relative to the position watermarks left by earlier commands.
type CorruptDeltaError struct {
	Reason string
}

func (e *CorruptDeltaError) Error() string {
	return fmt.Sprintf("materialize: corrupt delta: %s", e.Reason)
}

// unescapeAt decodes the doubled '@@' sentinel RCS uses inside patch
// bodies into a literal single '@'.
func unescapeAt(raw []byte) []byte {
	if !bytes.Contains(raw, []byte("@@")) {
		return raw
	}
	return bytes.ReplaceAll(raw, []byte("@@"), []byte("@"))
}

// splitLines breaks data into Line handles, keeping each line's
// trailing '\n' attached (the final line may lack one).
func splitLines(data []byte) []gapbuffer.Line {
	var lines []gapbuffer.Line
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, gapbuffer.Line(data[start:i+1]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, gapbuffer.Line(data[start:]))
	}
	return lines
}

// applyEnter bulk-inserts every line of a full snapshot at the
// (empty) buffer's tail: spec.md §4.3 step 1, root-frame case.
func applyEnter(buf *gapbuffer.Buffer, raw []byte) error {
	for _, l := range splitLines(unescapeAt(raw)) {
		if err := buf.Insert(buf.Len(), l); err != nil {
			return err
		}
	}
	return nil
}

// applyEdit parses and applies an RCS edit script (spec.md §4.1/§4.3):
// lines "a<line> <count>" (insert count following lines at line) and
// "d<line> <count>" (delete count lines starting at line-1), with
// cumulative_adjust tracking net insert-minus-delete drift. Positions
// are required to be non-decreasing within the delta, cross-checked
// the way the source's parse_next_delta_command does: an "a" command
// is only checked against (and updates) the insert watermark adprev,
// but a "d" command is checked against both adprev and the delete
// watermark dafter, and updates both on success.
func applyEdit(buf *gapbuffer.Buffer, raw []byte) error {
	data := unescapeAt(raw)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var cumulativeAdjust int
	var adprev, dafter int = -1, -1

	for sc.Scan() {
		header := sc.Text()
		if header == "" {
			continue
		}
		cmd := header[0]
		if cmd != 'a' && cmd != 'd' {
			return &CorruptDeltaError{Reason: fmt.Sprintf("unrecognized command %q", header)}
		}
		fields := strings.Fields(header[1:])
		if len(fields) != 2 {
			return &CorruptDeltaError{Reason: fmt.Sprintf("malformed command %q", header)}
		}
		line, err1 := strconv.Atoi(fields[0])
		count, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil || count <= 0 {
			return &CorruptDeltaError{Reason: fmt.Sprintf("bad line/count in %q", header)}
		}

		switch cmd {
		case 'a':
			if line < adprev {
				return &CorruptDeltaError{Reason: fmt.Sprintf("backward insertion at %q", header)}
			}
			adprev = line
			pos := line + cumulativeAdjust
			var lines [][]byte
			for i := 0; i < count; i++ {
				if !sc.Scan() {
					return &CorruptDeltaError{Reason: "insert command ran past end of patch body"}
				}
				raw := sc.Bytes()
				cp := make([]byte, len(raw)+1)
				copy(cp, raw)
				cp[len(raw)] = '\n'
				lines = append(lines, cp)
			}
			for i, l := range lines {
				if err := buf.Insert(pos+i, gapbuffer.Line(l)); err != nil {
					return err
				}
			}
			cumulativeAdjust += count
		case 'd':
			if line < adprev || line < dafter {
				return &CorruptDeltaError{Reason: fmt.Sprintf("backward deletion at %q", header)}
			}
			dafter = line
			adprev = line
			pos := line - 1 + cumulativeAdjust
			if err := buf.Delete(pos, count); err != nil {
				return err
			}
			cumulativeAdjust -= count
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("materialize: scanning edit script: %w", err)
	}
	return nil
}
