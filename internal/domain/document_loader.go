package domain

import "context"

// DocumentLoader turns a file on disk into ordered pages of text with
// provenance metadata. Unsupported formats fail fast with
// ErrUnsupportedFormat before any page is produced.
type DocumentLoader interface {
	Load(ctx context.Context, path string) ([]Page, error)
}
