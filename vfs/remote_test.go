package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeResourceClient struct {
	resources map[string][]byte
	listErr   error
}

func (f *fakeResourceClient) ListResourceURIs(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	uris := make([]string, 0, len(f.resources))
	for uri := range f.resources {
		uris = append(uris, uri)
	}
	return uris, nil
}

func (f *fakeResourceClient) ReadResource(ctx context.Context, uri string) ([]byte, error) {
	data, ok := f.resources[uri]
	if !ok {
		return nil, ErrNotExist
	}
	return data, nil
}

func TestResourceBackendRead(t *testing.T) {
	client := &fakeResourceClient{resources: map[string][]byte{"file:///a.txt": []byte("hello")}}
	b := NewResourceBackend(client)

	data, err := b.Read("file:///a.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestResourceBackendReadMissingIsErrNotExist(t *testing.T) {
	client := &fakeResourceClient{resources: map[string][]byte{}}
	b := NewResourceBackend(client)

	_, err := b.Read("file:///missing.txt")
	require.ErrorIs(t, err, ErrNotExist)
}

func TestResourceBackendList(t *testing.T) {
	client := &fakeResourceClient{resources: map[string][]byte{
		"file:///a.txt": []byte("a"),
		"file:///b.txt": []byte("bb"),
	}}
	b := NewResourceBackend(client)

	entries, err := b.List("")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestResourceBackendRejectsWrites(t *testing.T) {
	b := NewResourceBackend(&fakeResourceClient{resources: map[string][]byte{}})

	require.ErrorIs(t, b.Write("x", []byte("y")), ErrReadOnly)
	require.ErrorIs(t, b.Append("x", []byte("y")), ErrReadOnly)
	require.ErrorIs(t, b.Mkdir("x"), ErrReadOnly)
	require.ErrorIs(t, b.Remove("x"), ErrReadOnly)
	require.True(t, b.ReadOnly())
}
