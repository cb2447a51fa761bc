// Package vfs implements the kernel's mount router: every script path
// resolves, by longest matching prefix, to a backend that actually
// stores the bytes — in memory, on the local filesystem, or in a
// remote cache.
package vfs

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNoMount   = errors.New("vfs: no mount matches path")
	ErrReadOnly  = errors.New("vfs: mount is read-only")
	ErrEscape    = errors.New("vfs: path escapes mount root")
	ErrNotExist  = errors.New("vfs: path does not exist")
	ErrNotDir    = errors.New("vfs: not a directory")
)

// FileInfo describes one entry returned by List or Stat.
type FileInfo struct {
	Name    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// Backend stores and retrieves bytes for paths relative to its mount
// root. Every method receives a path already made relative to the
// mount's prefix.
type Backend interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Append(path string, data []byte) error
	List(path string) ([]FileInfo, error)
	Stat(path string) (FileInfo, error)
	Mkdir(path string) error
	Remove(path string) error
	ReadOnly() bool
}

// Mount binds a Backend to a path prefix.
type Mount struct {
	Prefix  string
	Backend Backend
}

// Router resolves a script-visible path to the mount whose prefix
// matches it, preferring the longest (most specific) prefix.
type Router struct {
	mu     sync.RWMutex
	mounts []Mount
}

// NewRouter creates an empty mount router.
func NewRouter() *Router {
	return &Router{}
}

// Mount adds a backend at prefix, re-sorting so resolution always
// checks the longest prefixes first.
func (r *Router) Mount(prefix string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mounts = append(r.mounts, Mount{Prefix: prefix, Backend: b})
	sort.Slice(r.mounts, func(i, j int) bool {
		return len(r.mounts[i].Prefix) > len(r.mounts[j].Prefix)
	})
}

// Unmount removes the mount at prefix, if any. Operations already in
// flight against the removed backend's handle continue against the
// backend they captured; only future resolutions stop seeing it.
func (r *Router) Unmount(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.mounts {
		if m.Prefix == prefix {
			r.mounts = append(r.mounts[:i], r.mounts[i+1:]...)
			return
		}
	}
}

// Mounts lists the currently registered mount prefixes, longest first.
func (r *Router) Mounts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.mounts))
	for i, m := range r.mounts {
		names[i] = m.Prefix
	}
	return names
}

// MountReadOnly reports whether the mount resolving path is read-only,
// for builtins that want to short-circuit before attempting a write.
func (r *Router) MountReadOnly(path string) (bool, error) {
	m, _, err := r.resolve(path)
	if err != nil {
		return false, err
	}
	return m.Backend.ReadOnly(), nil
}

func (r *Router) resolve(path string) (Mount, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.mounts {
		trimmed := strings.TrimSuffix(m.Prefix, "/")
		if path == trimmed || strings.HasPrefix(path, trimmed+"/") {
			rel := strings.TrimPrefix(path, trimmed)
			rel = strings.TrimPrefix(rel, "/")
			return m, rel, nil
		}
	}
	return Mount{}, "", ErrNoMount
}

// Read resolves path to its mount and reads the bytes stored there.
func (r *Router) Read(path string) ([]byte, error) {
	m, rel, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	return m.Backend.Read(rel)
}

// Write resolves path to its mount and writes data, rejecting the write
// if the mount is read-only.
func (r *Router) Write(path string, data []byte) error {
	m, rel, err := r.resolve(path)
	if err != nil {
		return err
	}
	if m.Backend.ReadOnly() {
		return ErrReadOnly
	}
	return m.Backend.Write(rel, data)
}

// Append resolves path to its mount and appends data, rejecting the
// append if the mount is read-only.
func (r *Router) Append(path string, data []byte) error {
	m, rel, err := r.resolve(path)
	if err != nil {
		return err
	}
	if m.Backend.ReadOnly() {
		return ErrReadOnly
	}
	return m.Backend.Append(rel, data)
}

// List resolves path to its mount and lists the entries under it.
func (r *Router) List(path string) ([]FileInfo, error) {
	m, rel, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	return m.Backend.List(rel)
}

// Stat resolves path to its mount and returns metadata about it.
func (r *Router) Stat(path string) (FileInfo, error) {
	m, rel, err := r.resolve(path)
	if err != nil {
		return FileInfo{}, err
	}
	return m.Backend.Stat(rel)
}

// Mkdir resolves path to its mount and creates a directory there,
// rejecting the operation if the mount is read-only.
func (r *Router) Mkdir(path string) error {
	m, rel, err := r.resolve(path)
	if err != nil {
		return err
	}
	if m.Backend.ReadOnly() {
		return ErrReadOnly
	}
	return m.Backend.Mkdir(rel)
}

// Remove resolves path to its mount and removes the file or directory
// there, rejecting the operation if the mount is read-only.
func (r *Router) Remove(path string) error {
	m, rel, err := r.resolve(path)
	if err != nil {
		return err
	}
	if m.Backend.ReadOnly() {
		return ErrReadOnly
	}
	return m.Backend.Remove(rel)
}
