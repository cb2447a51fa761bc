package vfs

import (
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryBackend is an in-process, unpersisted mount: a fast scratch
// space for command substitution temp files and scatter/gather worker
// output. Directories are implicit in the file paths written, but
// Mkdir can also record an empty one so List/Stat see it.
type MemoryBackend struct {
	mu       sync.RWMutex
	files    map[string][]byte
	dirs     map[string]bool
	modTime  map[string]time.Time
	readOnly bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(readOnly bool) *MemoryBackend {
	return &MemoryBackend{
		files:    make(map[string][]byte),
		dirs:     map[string]bool{"": true},
		modTime:  make(map[string]time.Time),
		readOnly: readOnly,
	}
}

func clean(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

func (b *MemoryBackend) Read(p string) ([]byte, error) {
	p = clean(p)
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.files[p]
	if !ok {
		return nil, ErrNotExist
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (b *MemoryBackend) Write(p string, data []byte) error {
	if b.readOnly {
		return ErrReadOnly
	}
	p = clean(p)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.files[p] = append([]byte(nil), data...)
	b.modTime[p] = time.Now()
	b.markParents(p)
	return nil
}

func (b *MemoryBackend) Append(p string, data []byte) error {
	if b.readOnly {
		return ErrReadOnly
	}
	p = clean(p)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.files[p] = append(b.files[p], data...)
	b.modTime[p] = time.Now()
	b.markParents(p)
	return nil
}

// markParents records every ancestor directory of p as existing, so a
// write to "a/b/c" makes "a" and "a/b" list-able even without an
// explicit Mkdir.
func (b *MemoryBackend) markParents(p string) {
	dir := path.Dir(p)
	for dir != "." && dir != "/" && dir != "" {
		b.dirs[dir] = true
		dir = path.Dir(dir)
	}
}

func (b *MemoryBackend) Mkdir(p string) error {
	if b.readOnly {
		return ErrReadOnly
	}
	p = clean(p)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dirs[p] = true
	b.markParents(p + "/x")
	return nil
}

func (b *MemoryBackend) Remove(p string) error {
	if b.readOnly {
		return ErrReadOnly
	}
	p = clean(p)
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.files[p]; ok {
		delete(b.files, p)
		delete(b.modTime, p)
		return nil
	}
	if b.dirs[p] {
		prefix := p + "/"
		for f := range b.files {
			if strings.HasPrefix(f, prefix) {
				delete(b.files, f)
				delete(b.modTime, f)
			}
		}
		for d := range b.dirs {
			if d == p || strings.HasPrefix(d, prefix) {
				delete(b.dirs, d)
			}
		}
		return nil
	}
	return ErrNotExist
}

func (b *MemoryBackend) Stat(p string) (FileInfo, error) {
	p = clean(p)
	b.mu.RLock()
	defer b.mu.RUnlock()

	if data, ok := b.files[p]; ok {
		return FileInfo{Name: path.Base(p), Size: int64(len(data)), ModTime: b.modTime[p]}, nil
	}
	if p == "" || b.dirs[p] {
		return FileInfo{Name: path.Base(p), IsDir: true}, nil
	}
	return FileInfo{}, ErrNotExist
}

func (b *MemoryBackend) List(p string) ([]FileInfo, error) {
	p = clean(p)
	b.mu.RLock()
	defer b.mu.RUnlock()

	if p != "" && !b.dirs[p] {
		if _, ok := b.files[p]; ok {
			return nil, ErrNotDir
		}
		return nil, ErrNotExist
	}

	seen := make(map[string]FileInfo)
	collect := func(name string, isDir bool, size int64, mod time.Time) {
		if _, ok := seen[name]; !ok {
			seen[name] = FileInfo{Name: name, IsDir: isDir, Size: size, ModTime: mod}
		}
	}
	for f, data := range b.files {
		dir, name := path.Split(f)
		dir = strings.TrimSuffix(dir, "/")
		if dir == p {
			collect(name, false, int64(len(data)), b.modTime[f])
		}
	}
	for d := range b.dirs {
		if d == "" {
			continue
		}
		parent, name := path.Split(d)
		parent = strings.TrimSuffix(parent, "/")
		if parent == p {
			collect(name, true, 0, time.Time{})
		}
	}

	out := make([]FileInfo, 0, len(seen))
	for _, fi := range seen {
		out = append(out, fi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *MemoryBackend) ReadOnly() bool { return b.readOnly }
