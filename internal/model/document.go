// Package model contains the application's data structures.
package model

// Metadata carries the provenance of a document chunk. Page is set only for
// paginated (PDF) chunks; Row, Column and Sheet only for tabular ones.
type Metadata struct {
	FileID     string  `json:"file_id"`
	FileName   string  `json:"filename"`
	Page       *int    `json:"page,omitempty"`
	Row        *int    `json:"row,omitempty"`
	Column     *string `json:"column,omitempty"`
	Sheet      string  `json:"sheet,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
}

// Document is one semantic unit produced by an ingestor. It is immutable once
// created; the chunker may subdivide it into smaller documents that each carry
// a copy of the metadata.
type Document struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// VectorRecord is the wire representation of a chunk stored in the vector
// index. ID follows the `fileId + "#chunk_" + N` scheme, N 1-based.
type VectorRecord struct {
	ID       string    `json:"vector_id"`
	Vector   []float32 `json:"vector"`
	Text     string    `json:"text_content"`
	Metadata Metadata  `json:"metadata"`
}
