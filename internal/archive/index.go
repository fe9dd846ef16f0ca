package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Index is a snapshot of what the archive held when it was scanned.
type Index struct {
	archived map[string]string
	shards   []int
}

// Scan walks the shard directories under root once. A missing root is an
// empty archive. Directories whose names are not shard numbers are ignored.
func Scan(root string) (*Index, error) {
	idx := &Index{archived: make(map[string]string)}
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return idx, nil
		}
		return nil, fmt.Errorf("read archive dir %s: %w", root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		shard, ok := parseShardName(entry.Name())
		if !ok {
			continue
		}
		idx.shards = append(idx.shards, shard)
		shardDir := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(shardDir)
		if err != nil {
			return nil, fmt.Errorf("read shard dir %s: %w", shardDir, err)
		}
		for _, f := range files {
			key, ok := KeyFromFileName(f.Name())
			if f.IsDir() || !ok {
				continue
			}
			idx.archived[key] = filepath.Join(shardDir, f.Name())
		}
	}
	slices.Sort(idx.shards)
	return idx, nil
}

// KeyFromFileName extracts the key from <key>.html.gz.
func KeyFromFileName(name string) (string, bool) {
	key, ok := strings.CutSuffix(name, FileExtension)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func parseShardName(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsArchived reports whether key already has an archive file.
func (i *Index) IsArchived(key string) bool {
	_, ok := i.archived[key]
	return ok
}

// Pending returns the keys not yet archived, preserving input order.
func (i *Index) Pending(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !i.IsArchived(k) {
			out = append(out, k)
		}
	}
	return out
}

// BaseShard is the first shard a new run may write to: one past the highest
// existing shard, or zero for an empty archive.
func (i *Index) BaseShard() int {
	if len(i.shards) == 0 {
		return 0
	}
	return i.shards[len(i.shards)-1] + 1
}

// Shards lists existing shard numbers in ascending order.
func (i *Index) Shards() []int {
	return slices.Clone(i.shards)
}

// Len is the number of archived keys.
func (i *Index) Len() int {
	return len(i.archived)
}
