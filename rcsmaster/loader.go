package rcsmaster

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/alitto/pond"
	"github.com/sirupsen/logrus"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/keyword"
)

// Loader walks a directory tree of ",v" master files and parses them,
// optionally in parallel. This lives entirely outside the CORE's
// single-threaded constraint (SPEC_FULL.md §5): independent masters
// share no mutable state until their delta graphs are handed off one
// at a time to the export session.
type Loader struct {
	Logger  *logrus.Logger
	Workers int // 0 means runtime.NumCPU()
}

// LoadTree discovers every "*,v" file under root and parses it.
// Parse errors are collected; the returned error reports how many
// masters failed and the first failure. Masters that parsed
// successfully are still returned alongside the error so a caller can
// choose to proceed with a partial tree.
func (l *Loader) LoadTree(root string) ([]*Master, error) {
	var paths []string
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(p, ",v") {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rcsmaster: walking %s: %w", root, err)
	}

	workers := l.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool := pond.New(workers, 0, pond.MinWorkers(1))

	var mu sync.Mutex
	masters := make([]*Master, 0, len(paths))
	var errs []error

	for _, p := range paths {
		p := p
		pool.Submit(func() {
			m, err := LoadMaster(p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("rcsmaster: %s: %w", p, err))
				if l.Logger != nil {
					l.Logger.Warnf("skipping %s: %v", p, err)
				}
				return
			}
			masters = append(masters, m)
		})
	}
	pool.StopAndWait()

	if len(errs) > 0 {
		return masters, fmt.Errorf("rcsmaster: %d master(s) failed to parse: %v", len(errs), errs[0])
	}
	return masters, nil
}

// LoadMaster reads and parses a single master file, and tags it with
// its executable bit (mirrored from the filesystem, since RCS masters
// do not themselves record the worked-file's mode reliably). It also
// runs keyword.SniffBinary over the first 512 bytes of the master file,
// but without a logger, so that sniff reports nothing.
func LoadMaster(path string) (*Master, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseMaster(path, buf)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(path); err == nil {
		m.Executable = info.Mode()&0111 != 0
	}
	if m.Head != nil {
		keyword.SniffBinary(nil, path, buf[:min(len(buf), 512)], m.Expand)
	}
	return m, nil
}
