package dirpack

import (
	"unsafe"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/model"
)

// pointerBits extracts a FileRecord pointer's bit pattern for hashing.
// spec.md §4.4 requires the hash to mix actual pointer identity, not
// any value derived from the record's contents.
func pointerBits(f *model.FileRecord) uintptr {
	return uintptr(unsafe.Pointer(f))
}
