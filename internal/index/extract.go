package index

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/JakeFAU/article-archiver/internal/article"
)

// ErrUnterminatedReference means a quoted reference never closed.
var ErrUnterminatedReference = errors.New("unterminated article reference")

// Extractor finds quoted article references such as '/article/1-a' in a page.
type Extractor struct {
	quote  []byte
	prefix []byte
}

// NewExtractor matches references that open with quote followed by prefix
// and close at the next quote.
func NewExtractor(quote, prefix string) (*Extractor, error) {
	if quote == "" {
		return nil, fmt.Errorf("quote must not be empty")
	}
	if prefix == "" {
		return nil, fmt.Errorf("prefix must not be empty")
	}
	return &Extractor{quote: []byte(quote), prefix: []byte(prefix)}, nil
}

// Extract returns the distinct references in body, sorted.
func (e *Extractor) Extract(body []byte) ([]article.Reference, error) {
	marker := append(slices.Clone(e.quote), e.prefix...)
	seen := make(map[article.Reference]struct{})
	for pos := 0; ; {
		p := bytes.Index(body[pos:], marker)
		if p < 0 {
			break
		}
		begin := pos + p + len(e.quote)
		q := bytes.Index(body[begin:], e.quote)
		if q < 0 {
			return nil, fmt.Errorf("%w at offset %d", ErrUnterminatedReference, pos+p)
		}
		end := begin + q
		ref, err := article.ParseReference(string(body[begin:end]))
		if err != nil {
			return nil, fmt.Errorf("extract at offset %d: %w", pos+p, err)
		}
		seen[ref] = struct{}{}
		pos = end + len(e.quote)
	}

	refs := make([]article.Reference, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	return refs, nil
}
