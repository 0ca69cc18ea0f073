package materialize

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// patchCacheCapacity is the LRU size named in spec.md §4.3/§9: "only
// four slots in the source". Kept at that budget rather than
// re-derived.
const patchCacheCapacity = 4

type mappedFile struct {
	path string
	data []byte
	used int64 // logical clock for LRU eviction
}

// patchCache memory-maps master files on demand and keeps at most
// patchCacheCapacity of them resident, evicting the least recently
// used entry on a miss once full.
type patchCache struct {
	entries map[string]*mappedFile
	clock   int64
}

func newPatchCache() *patchCache {
	return &patchCache{entries: map[string]*mappedFile{}}
}

// Load returns the raw bytes of path, mapping it on first use.
func (c *patchCache) Load(path string) ([]byte, error) {
	c.clock++
	if mf, ok := c.entries[path]; ok {
		mf.used = c.clock
		return mf.data, nil
	}
	if len(c.entries) >= patchCacheCapacity {
		c.evictLRU()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("materialize: open %s: %w", path, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("materialize: stat %s: %w", path, err)
	}
	if fi.Size() == 0 {
		c.entries[path] = &mappedFile{path: path, data: nil, used: c.clock}
		return nil, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("materialize: mmap %s: %w", path, err)
	}
	c.entries[path] = &mappedFile{path: path, data: data, used: c.clock}
	return data, nil
}

func (c *patchCache) evictLRU() {
	var lruPath string
	var lruUsed int64 = -1
	for p, mf := range c.entries {
		if lruUsed == -1 || mf.used < lruUsed {
			lruUsed = mf.used
			lruPath = p
		}
	}
	if lruPath == "" {
		return
	}
	mf := c.entries[lruPath]
	if mf.data != nil {
		unix.Munmap(mf.data)
	}
	delete(c.entries, lruPath)
}

// UnloadAll releases every mapped file. Called once at the end of a
// materialization run (spec.md §4.3 "unload_all").
func (c *patchCache) UnloadAll() {
	for p := range c.entries {
		mf := c.entries[p]
		if mf.data != nil {
			unix.Munmap(mf.data)
		}
		delete(c.entries, p)
	}
}
