package vfs

import "context"

// ResourceClient is the minimal remote capability a ResourceBackend
// proxies through: listing and reading a remote tool server's resource
// namespace by URI. registry.RemoteServer implements this over MCP.
type ResourceClient interface {
	ListResourceURIs(ctx context.Context) ([]string, error)
	ReadResource(ctx context.Context, uri string) ([]byte, error)
}

// ResourceBackend mounts a remote tool server's resource namespace as a
// read-only VFS tree: Read/Stat/List proxy to the server, and every
// mutating operation fails, since resources are the server's data, not
// ours to write back.
type ResourceBackend struct {
	client ResourceClient
}

// NewResourceBackend wraps a remote resource client as a mountable
// backend.
func NewResourceBackend(client ResourceClient) *ResourceBackend {
	return &ResourceBackend{client: client}
}

func (b *ResourceBackend) Read(path string) ([]byte, error) {
	data, err := b.client.ReadResource(context.Background(), path)
	if err != nil {
		return nil, ErrNotExist
	}
	return data, nil
}

func (b *ResourceBackend) Write(path string, data []byte) error  { return ErrReadOnly }
func (b *ResourceBackend) Append(path string, data []byte) error { return ErrReadOnly }
func (b *ResourceBackend) Mkdir(path string) error                { return ErrReadOnly }
func (b *ResourceBackend) Remove(path string) error               { return ErrReadOnly }

func (b *ResourceBackend) Stat(path string) (FileInfo, error) {
	data, err := b.client.ReadResource(context.Background(), path)
	if err != nil {
		return FileInfo{}, ErrNotExist
	}
	return FileInfo{Name: path, Size: int64(len(data))}, nil
}

// List ignores path and returns every resource URI the server advertises:
// MCP resources are named by opaque URI, not a directory path the mount
// can filter a prefix against.
func (b *ResourceBackend) List(path string) ([]FileInfo, error) {
	uris, err := b.client.ListResourceURIs(context.Background())
	if err != nil {
		return nil, err
	}
	out := make([]FileInfo, 0, len(uris))
	for _, u := range uris {
		out = append(out, FileInfo{Name: u})
	}
	return out, nil
}

func (b *ResourceBackend) ReadOnly() bool { return true }
