package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"doc-qa-go/internal/model"
)

// ErrUnsupportedFileType is returned when no ingestor handles the extension.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Ingestor parses a source file into semantic documents. Every returned
// document carries the file id and filename in its metadata.
type Ingestor interface {
	Ingest(ctx context.Context, content []byte, fileID, fileName string) ([]model.Document, error)
}

// Selector picks the ingestion variant from the filename extension.
type Selector struct {
	paginated Ingestor
	tabular   Ingestor
}

// NewSelector wires the paginated and tabular ingestion variants.
func NewSelector(paginated, tabular Ingestor) *Selector {
	return &Selector{paginated: paginated, tabular: tabular}
}

// ForFile returns the ingestor responsible for the given filename.
func (s *Selector) ForFile(fileName string) (Ingestor, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return s.paginated, nil
	case ".xlsx", ".xls":
		return s.tabular, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, fileName)
	}
}
