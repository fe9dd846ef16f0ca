package archive_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-archiver/internal/archive"
)

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	args := m.Called(ctx, path, contentType, payload)
	return args.String(0), args.Error(1)
}

func TestNewStore(t *testing.T) {
	t.Run("CreatesMissingDir", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "articles")
		store, err := archive.NewStore(root, nil)
		require.NoError(t, err)
		assert.Equal(t, root, store.Root())
		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("MissingRoot", func(t *testing.T) {
		_, err := archive.NewStore("", nil)
		assert.Error(t, err)
	})

	t.Run("RootIsAFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		_, err := archive.NewStore(path, nil)
		assert.Error(t, err)
	})

	t.Run("RootNotWritable", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores directory permissions")
		}
		root := t.TempDir()
		// #nosec G302 -- directory permissions adjusted intentionally for test coverage.
		require.NoError(t, os.Chmod(root, 0o500))
		_, err := archive.NewStore(root, nil)
		assert.Error(t, err)
		// #nosec G302 -- reverting permissions to allow cleanup in the test environment.
		require.NoError(t, os.Chmod(root, 0o700))
	})
}

func TestStorePut(t *testing.T) {
	root := t.TempDir()
	store, err := archive.NewStore(root, nil)
	require.NoError(t, err)

	path, err := store.Put(context.Background(), 2, "12345", []byte("gz"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "0002", "12345.html.gz"), path)

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("gz"), data)

	entries, err := os.ReadDir(filepath.Join(root, "0002"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	idx, err := archive.Scan(root)
	require.NoError(t, err)
	assert.True(t, idx.IsArchived("12345"))
	assert.Equal(t, 3, idx.BaseShard())
}

func TestStorePutRejectsBadKeys(t *testing.T) {
	store, err := archive.NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		_, err := store.Put(context.Background(), 0, key, []byte("x"))
		assert.Error(t, err, "key %q", key)
	}
}

func TestStorePutMirrors(t *testing.T) {
	mirror := new(MockBlobStore)
	mirror.On("PutObject", mock.Anything, "0000/1.html.gz", archive.ContentType, []byte("gz")).
		Return("gs://bucket/0000/1.html.gz", nil).Once()

	store, err := archive.NewStore(t.TempDir(), mirror)
	require.NoError(t, err)
	_, err = store.Put(context.Background(), 0, "1", []byte("gz"))
	require.NoError(t, err)
	mirror.AssertExpectations(t)
}

func TestStorePutMirrorFailure(t *testing.T) {
	mirror := new(MockBlobStore)
	mirror.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("bucket gone"))

	root := t.TempDir()
	store, err := archive.NewStore(root, mirror)
	require.NoError(t, err)
	_, err = store.Put(context.Background(), 0, "1", bytes.Repeat([]byte("a"), 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")

	assert.NoFileExists(t, filepath.Join(root, "0000", "1.html.gz"))
	idx, err := archive.Scan(root)
	require.NoError(t, err)
	assert.False(t, idx.IsArchived("1"), "a key whose upload failed must be retried next run")
}
