// Package archive models the on-disk article archive: numbered shard
// directories holding <key>.html.gz files.
package archive

import (
	"errors"
	"fmt"
	"path"
)

// Archive layout defaults.
const (
	FileExtension        = ".html.gz"
	DefaultShardCapacity = 1000
	DefaultMaxShards     = 10000
	shardNameFormat      = "%04d"
)

// ContentType describes the decompressed payload of an archive object.
const ContentType = "text/html; charset=utf-8"

// ErrShardLimit is returned when an assignment would exceed the shard ceiling.
var ErrShardLimit = errors.New("shard limit exceeded")

// Layout fixes shard capacity and the shard-count ceiling.
type Layout struct {
	Capacity  int
	MaxShards int
}

// DefaultLayout is 1000 files per shard and at most 10000 shards.
func DefaultLayout() Layout {
	return Layout{Capacity: DefaultShardCapacity, MaxShards: DefaultMaxShards}
}

// ShardFor returns the shard for the n-th (zero-based) item written in a run
// that started at base.
func (l Layout) ShardFor(base, n int) (int, error) {
	shard := base + n/l.Capacity
	if shard >= l.MaxShards {
		return 0, fmt.Errorf("%w: shard %d >= %d", ErrShardLimit, shard, l.MaxShards)
	}
	return shard, nil
}

// Validate rejects non-positive settings.
func (l Layout) Validate() error {
	if l.Capacity <= 0 {
		return fmt.Errorf("shard capacity must be > 0")
	}
	if l.MaxShards <= 0 {
		return fmt.Errorf("max shards must be > 0")
	}
	return nil
}

// ShardName formats a shard number as its directory name.
func ShardName(shard int) string {
	return fmt.Sprintf(shardNameFormat, shard)
}

// ObjectPath is the slash-separated path of key inside the archive.
func ObjectPath(shard int, key string) string {
	return path.Join(ShardName(shard), key+FileExtension)
}
