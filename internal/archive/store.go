package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore mirrors archived objects to remote storage.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Store writes compressed articles under the archive root.
type Store struct {
	root   string
	mirror BlobStore
}

// NewStore prepares root, creating it when absent, and checks it is writable.
// mirror may be nil.
func NewStore(root string, mirror BlobStore) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("archive directory is required")
	}

	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(root, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat archive directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("archive path %s is not a directory", root)
	}

	probe, err := os.CreateTemp(root, ".writable-*")
	if err != nil {
		return nil, fmt.Errorf("archive directory is not writable: %w", err)
	}
	_ = probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return nil, fmt.Errorf("failed to clean up probe file: %w", err)
	}

	return &Store{root: root, mirror: mirror}, nil
}

// Root is the archive directory.
func (s *Store) Root() string {
	return s.root
}

// Put writes data to <root>/<shard>/<key>.html.gz, creating the shard
// directory on first use. When a mirror is configured the object is uploaded
// first; the local file only appears once the upload succeeded, so an
// archived key is always mirrored.
func (s *Store) Put(ctx context.Context, shard int, key string, data []byte) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}

	if s.mirror != nil {
		if _, err := s.mirror.PutObject(ctx, ObjectPath(shard, key), ContentType, bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("mirror %s: %w", ObjectPath(shard, key), err)
		}
	}

	shardDir := filepath.Join(s.root, ShardName(shard))
	if err := os.MkdirAll(shardDir, 0o750); err != nil {
		return "", fmt.Errorf("create shard dir %s: %w", shardDir, err)
	}
	target := filepath.Join(shardDir, key+FileExtension)
	if err := writeAtomic(target, data); err != nil {
		return "", err
	}
	return target, nil
}

func writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", target, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", target, err)
	}
	// #nosec G302 -- archive files are meant to be world-readable.
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("chmod %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename into %s: %w", target, err)
	}
	return nil
}
