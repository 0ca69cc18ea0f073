package export

import "strings"

// canonicalizePath implements spec.md §4.5.4: strip a configured byte
// prefix, drop whole "Attic/"/"RCS/" path components, strip a
// trailing ",v" suffix, and rename a bare ".cvsignore" basename to
// ".gitignore".
//
// strip is a one-time, ingestion-only transform: it is meaningful
// only against a raw on-disk master path and is applied exactly once,
// by the collector, before a path is ever stored on a FileRecord.
// Re-running the byte-count strip against an already-canonical path
// is not a supported operation and is not idempotent (a second
// application would chop unrelated leading bytes off a path that has
// already had its prefix removed). The idempotent half of this
// function — component cleanup, independent of strip — is split out
// as canonicalizeComponents so that the actual idempotence property
// (property test 4 in SPEC_FULL.md §8) names the part of the pipeline
// that really has it.
func canonicalizePath(raw string, strip int) string {
	p := raw
	if strip > 0 && strip <= len(p) {
		p = p[strip:]
	}
	p = strings.TrimPrefix(p, "/")
	return canonicalizeComponents(p)
}

// canonicalizeComponents drops "Attic"/"RCS" path components, strips a
// trailing ",v" suffix, and renames a ".cvsignore" basename to
// ".gitignore". It is idempotent: canonicalizeComponents(p) run a
// second time on its own output returns the same string, since none
// of Attic/RCS components, a ",v" suffix, or a ".cvsignore" basename
// can still be present after the first pass.
func canonicalizeComponents(p string) string {
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part == "Attic" || part == "RCS" {
			continue
		}
		kept = append(kept, part)
	}
	p = strings.Join(kept, "/")

	p = strings.TrimSuffix(p, ",v")

	if base := lastComponent(p); base == ".cvsignore" {
		p = p[:len(p)-len(base)] + ".gitignore"
	}
	return p
}

func lastComponent(p string) string {
	if idx := strings.LastIndexByte(p, '/'); idx >= 0 {
		return p[idx+1:]
	}
	return p
}
