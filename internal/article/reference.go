// Package article defines the article reference type shared by the crawler,
// the ledger and the downloader.
package article

import (
	"errors"
	"fmt"
	"strings"
)

// Prefix is the fixed path prefix every reference starts with.
const Prefix = "/article/"

// ErrInvalidReference is returned for fragments that do not look like
// /article/<key>-<slug>.
var ErrInvalidReference = errors.New("invalid article reference")

// Reference is a path fragment such as /article/12345-some-slug.
type Reference string

// ParseReference validates raw and returns it as a Reference.
func ParseReference(raw string) (Reference, error) {
	ref := Reference(raw)
	if _, err := ref.key(); err != nil {
		return "", err
	}
	return ref, nil
}

// Key returns the text between the prefix and the first following hyphen.
// It returns an empty string for malformed references.
func (r Reference) Key() string {
	key, err := r.key()
	if err != nil {
		return ""
	}
	return key
}

func (r Reference) key() (string, error) {
	s := string(r)
	if !strings.HasPrefix(s, Prefix) {
		return "", fmt.Errorf("%w: %q missing %s prefix", ErrInvalidReference, s, Prefix)
	}
	rest := s[len(Prefix):]
	end := strings.IndexByte(rest, '-')
	if end <= 0 {
		return "", fmt.Errorf("%w: %q has no key", ErrInvalidReference, s)
	}
	key := rest[:end]
	// Keys name archive files.
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: %q key %q is not a valid file name", ErrInvalidReference, s, key)
	}
	return key, nil
}

// String implements fmt.Stringer.
func (r Reference) String() string {
	return string(r)
}

// URL joins the reference onto base without doubling the slash.
func (r Reference) URL(base string) string {
	return strings.TrimRight(base, "/") + string(r)
}
