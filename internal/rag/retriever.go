package rag

import (
	"context"
	"fmt"

	"doc-qa-go/internal/model"
)

// Retrieval constants mirrored from the vector index defaults.
const (
	topK   = 10
	fetchK = 50
)

// VectorSearcher is the slice of the embedding index the retriever consumes.
type VectorSearcher interface {
	Search(ctx context.Context, query string, k, fetchK int, fileID string) ([]model.VectorRecord, error)
}

// Retriever performs filtered, diversity-aware similarity search. An empty
// fileID spans the whole index.
type Retriever struct {
	index VectorSearcher
}

// NewRetriever wraps the embedding index.
func NewRetriever(index VectorSearcher) *Retriever {
	return &Retriever{index: index}
}

// Retrieve returns the context documents for a standalone question.
func (r *Retriever) Retrieve(ctx context.Context, question, fileID string) ([]model.Document, error) {
	records, err := r.index.Search(ctx, question, topK, fetchK, fileID)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	docs := make([]model.Document, 0, len(records))
	for _, record := range records {
		docs = append(docs, model.Document{Text: record.Text, Metadata: record.Metadata})
	}
	return docs, nil
}
