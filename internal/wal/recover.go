package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Recovery is the shared rename/reopen/mmap/replay/cleanup sequence run by
// every engine at startup. It is the only place an engine's log file is
// opened, so all three engines go through the same compaction-on-startup
// path: the previous log is renamed aside, its bytes are mmapped read-only
// and handed to parse (the engine-specific forward/backward scanner), then a
// fresh empty log is opened in its place and the live snapshot parse
// returns is replayed through replay (which re-appends each surviving entry
// to the new Writer and installs it into memory) before the old log is
// deleted. If parse fails, no new log is opened and the old log stays under
// its dotted temp name.
//
// Mirrors the teacher's engine.recover() dispatch (internal/engine/engine.go)
// generalized from one combined log to one log per engine, plus the
// mmap-based read path used for the old log (following the raw
// syscall.Mmap/Munmap style, not a third-party mmap wrapper).
func Recover[T any](path string, parse func(data []byte) (T, error), replay func(snapshot T, w *Writer) error) (*Writer, error) {
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		tmp := tempPath(path)
		if err := os.Rename(path, tmp); err != nil {
			return nil, fmt.Errorf("wal: rename %s aside: %w", path, err)
		}
		return recoverFrom(path, tmp, parse, replay)
	case os.IsNotExist(statErr):
		w, err := OpenWriter(path)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("wal: stat %s: %w", path, statErr)
	}
}

func recoverFrom[T any](path, tmp string, parse func(data []byte) (T, error), replay func(snapshot T, w *Writer) error) (*Writer, error) {
	data, closeMap, err := mmapFile(tmp)
	if err != nil {
		return nil, err
	}
	defer closeMap()

	snapshot, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("wal: parse %s during recovery: %w", tmp, err)
	}

	w, err := OpenWriter(path)
	if err != nil {
		return nil, err
	}

	if err := replay(snapshot, w); err != nil {
		w.Close()
		return nil, fmt.Errorf("wal: replay into %s: %w", path, err)
	}

	if err := closeMap(); err != nil {
		w.Close()
		return nil, err
	}
	if err := os.Remove(tmp); err != nil {
		return nil, fmt.Errorf("wal: remove old log %s: %w", tmp, err)
	}
	return w, nil
}

// tempPath renames path's basename with a dotted prefix (e.g. kv.wal.dat ->
// .kv.wal.dat), the convention spec.md's external-interfaces section names
// for the log being compacted aside during recovery.
func tempPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path))
}

// mmapFile maps f's full contents read-only and returns the mapping plus a
// close func that unmaps and closes the file. An empty file maps to a nil
// slice rather than calling syscall.Mmap, which rejects zero-length maps.
func mmapFile(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("wal: open %s for recovery: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("wal: stat %s: %w", path, err)
	}

	size := info.Size()
	if size == 0 {
		return nil, func() error { return f.Close() }, nil
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("wal: mmap %s: %w", path, err)
	}

	closed := false
	closeFn := func() error {
		if closed {
			return nil
		}
		closed = true
		if err := syscall.Munmap(data); err != nil {
			f.Close()
			return fmt.Errorf("wal: munmap %s: %w", path, err)
		}
		return f.Close()
	}
	return data, closeFn, nil
}
