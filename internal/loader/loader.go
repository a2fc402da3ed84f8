// Package loader turns files on disk into pages of text with provenance
// metadata, dispatching on file extension.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"

	"ragdocs/internal/domain"
)

// FileLoader loads .pdf, .txt and .md files. Any other extension fails fast
// with domain.ErrUnsupportedFormat before any chunk is produced.
type FileLoader struct{}

// New creates a FileLoader.
func New() *FileLoader {
	return &FileLoader{}
}

// Load reads the file at path and returns its pages in document order. PDFs
// yield one page per physical page with the page number in metadata; plain
// text formats yield a single page.
func (l *FileLoader) Load(ctx context.Context, path string) ([]domain.Page, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf", ".txt", ".md":
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var docs []schema.Document
	switch ext {
	case ".pdf":
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		docs, err = documentloaders.NewPDF(f, info.Size()).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load pdf: %w", err)
		}
	default:
		docs, err = documentloaders.NewText(f).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load text: %w", err)
		}
	}

	pages := make([]domain.Page, 0, len(docs))
	for _, doc := range docs {
		meta := domain.Metadata{}
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		pages = append(pages, domain.Page{
			Text:     doc.PageContent,
			Metadata: meta,
		})
	}
	return pages, nil
}
