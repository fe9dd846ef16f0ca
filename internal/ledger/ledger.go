// Package ledger reads and appends the on-disk ID ledger: a directory of
// immutable text files, one article reference per line.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/JakeFAU/article-archiver/internal/article"
)

// Extension marks files that belong to the ledger.
const Extension = ".txt"

// ErrKeyCollision signals that one key maps to two different references.
var ErrKeyCollision = errors.New("ledger key collision")

// Ledger is the in-memory union of every ledger file in a directory.
type Ledger struct {
	byKey map[string]article.Reference
	files []string
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{byKey: make(map[string]article.Reference)}
}

// Load scans dir for ledger files and merges their references. It fails on
// malformed lines and on key collisions.
func Load(dir string) (*Ledger, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read ledger dir %s: %w", dir, err)
	}
	l := New()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Extension {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := l.loadFile(path); err != nil {
			return nil, err
		}
		l.files = append(l.files, path)
	}
	return l, nil
}

func (l *Ledger) loadFile(path string) error {
	// #nosec G304 -- path comes from listing the configured ledger directory.
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ref, err := article.ParseReference(line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if _, err := l.Add(ref); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan ledger file %s: %w", path, err)
	}
	return nil
}

// Add records ref. It reports whether ref was new and returns
// ErrKeyCollision if its key is already bound to a different reference.
func (l *Ledger) Add(ref article.Reference) (bool, error) {
	key := ref.Key()
	if key == "" {
		return false, fmt.Errorf("%w: %q", article.ErrInvalidReference, ref)
	}
	existing, ok := l.byKey[key]
	switch {
	case !ok:
		l.byKey[key] = ref
		return true, nil
	case existing == ref:
		return false, nil
	default:
		return false, fmt.Errorf("%w: key %s maps to %s and %s", ErrKeyCollision, key, existing, ref)
	}
}

// Contains reports whether ref is recorded verbatim.
func (l *Ledger) Contains(ref article.Reference) bool {
	existing, ok := l.byKey[ref.Key()]
	return ok && existing == ref
}

// Lookup returns the reference recorded for key.
func (l *Ledger) Lookup(key string) (article.Reference, bool) {
	ref, ok := l.byKey[key]
	return ref, ok
}

// Keys returns every key in sorted order.
func (l *Ledger) Keys() []string {
	keys := make([]string, 0, len(l.byKey))
	for k := range l.byKey {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len is the number of distinct keys.
func (l *Ledger) Len() int {
	return len(l.byKey)
}

// Files lists the ledger files merged by Load.
func (l *Ledger) Files() []string {
	return slices.Clone(l.files)
}
