package util

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	lru "github.com/hashicorp/golang-lru/v2"
)

// FileCache provides read access to source files via memory-mapped regions
// with LRU eviction. It backs snippet extraction for the context query: the
// graph stores byte offsets, the cache turns them into source text without
// re-reading whole files.
//
// Thread-safe. Files that cannot be mmapped (empty files, exotic
// filesystems) fall back to a plain read of the file contents.
type FileCache struct {
	mu     sync.Mutex
	files  *lru.Cache[string, *mappedFile]
	logger *slog.Logger
}

type mappedFile struct {
	data mmap.MMap // nil when the fallback path was used
	raw  []byte    // fallback contents, or nil
	f    *os.File
}

func (m *mappedFile) bytes() []byte {
	if m.data != nil {
		return m.data
	}
	return m.raw
}

func (m *mappedFile) close() {
	if m.data != nil {
		_ = m.data.Unmap()
	}
	if m.f != nil {
		_ = m.f.Close()
	}
}

// NewFileCache creates a cache holding at most maxFiles mapped files.
// Evicted entries are unmapped on the spot.
func NewFileCache(maxFiles int, logger *slog.Logger) (*FileCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if maxFiles <= 0 {
		maxFiles = 512
	}

	fc := &FileCache{logger: logger}
	cache, err := lru.NewWithEvict(maxFiles, func(_ string, mf *mappedFile) {
		mf.close()
	})
	if err != nil {
		return nil, fmt.Errorf("create file cache: %w", err)
	}
	fc.files = cache
	return fc, nil
}

// Slice returns the source bytes in [startByte, endByte) of the given file.
func (fc *FileCache) Slice(path string, startByte, endByte uint32) ([]byte, error) {
	mf, err := fc.get(path)
	if err != nil {
		return nil, err
	}

	data := mf.bytes()
	if int(endByte) > len(data) || startByte > endByte {
		return nil, fmt.Errorf("byte range [%d,%d) out of bounds for %s (%d bytes)",
			startByte, endByte, path, len(data))
	}
	return data[startByte:endByte], nil
}

func (fc *FileCache) get(path string) (*mappedFile, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if mf, ok := fc.files.Get(path); ok {
		return mf, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	mf := &mappedFile{f: f}
	if stat.Size() == 0 {
		mf.raw = []byte{}
	} else if data, err := mmap.Map(f, mmap.RDONLY, 0); err == nil {
		mf.data = data
	} else {
		// mmap refused; keep the contents in memory instead.
		fc.logger.Debug("mmap failed, falling back to read", "path", path, "error", err)
		raw, rerr := os.ReadFile(path)
		if rerr != nil {
			f.Close()
			return nil, fmt.Errorf("read %s: %w", path, rerr)
		}
		mf.raw = raw
	}

	fc.files.Add(path, mf)
	return mf, nil
}

// Invalidate drops a file from the cache, unmapping it. Called by the
// incremental updater when a file changes on disk.
func (fc *FileCache) Invalidate(path string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.files.Remove(path)
}

// Len returns the number of currently cached files.
func (fc *FileCache) Len() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.files.Len()
}

// Close unmaps every cached file.
func (fc *FileCache) Close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.files.Purge()
}
