package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/JakeFAU/article-archiver/internal/article"
)

const runFileLayout = "20060102150405"

// ErrLedgerFileExists is returned when the target run file is already present.
var ErrLedgerFileExists = errors.New("ledger file already exists")

// RunFileName returns run_<YYYYMMDDHHMMSS>.txt for t.
func RunFileName(t time.Time) string {
	return "run_" + t.Format(runFileLayout) + Extension
}

// WriteRunFile creates a new ledger file in dir holding refs sorted, one per
// line. Existing files are never overwritten.
func WriteRunFile(dir string, now time.Time, refs []article.Reference) (string, error) {
	return writeRunFile(dir, now, refs, writeRefs)
}

// writeRefs writes refs sorted, one per line.
func writeRefs(w io.Writer, refs []article.Reference) error {
	sorted := slices.Clone(refs)
	slices.Sort(sorted)
	bw := bufio.NewWriter(w)
	for _, ref := range sorted {
		if _, err := bw.WriteString(ref.String() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeRunFile removes a partially written file so a failed write never
// leaves a truncated line behind for the next Load.
func writeRunFile(
	dir string,
	now time.Time,
	refs []article.Reference,
	encode func(io.Writer, []article.Reference) error,
) (string, error) {
	path := filepath.Join(dir, RunFileName(now))
	// #nosec G304 -- path is built from the configured ledger directory.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrLedgerFileExists, path)
		}
		return "", fmt.Errorf("create ledger file: %w", err)
	}

	if err := encode(f, refs); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write ledger file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close ledger file %s: %w", path, err)
	}
	return path, nil
}

// CheckRunFile fails with ErrLedgerFileExists if the run file for now is
// already present, so a crawl can bail out before fetching anything.
func CheckRunFile(dir string, now time.Time) error {
	path := filepath.Join(dir, RunFileName(now))
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrLedgerFileExists, path)
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("stat ledger file %s: %w", path, err)
	}
}
