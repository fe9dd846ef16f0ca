// Package compress provides the archive compressor.
package compress

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
)

// Compressor turns a fetched body into its archived form.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Gzip compresses with the gzip container format.
type Gzip struct {
	level int
}

// NewGzip returns a Gzip compressor at level. Zero selects the default level.
func NewGzip(level int) (*Gzip, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	if level < gzip.StatelessCompression || level > gzip.BestCompression {
		return nil, fmt.Errorf("gzip level %d out of range", level)
	}
	return &Gzip{level: level}, nil
}

// Compress returns data gzip-compressed.
func (g *Gzip) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, g.level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}
