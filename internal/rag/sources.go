package rag

import "doc-qa-go/internal/model"

// sourceTextLimit bounds the snippet length of a citation, in runes.
const sourceTextLimit = 200

// ExtractSources converts the context documents used for an answer into
// citation records. Text longer than the limit is truncated with an ellipsis
// marker; text at or under the limit passes through unchanged.
func ExtractSources(docs []model.Document) []model.Source {
	sources := make([]model.Source, 0, len(docs))
	for _, doc := range docs {
		filename := doc.Metadata.FileName
		if filename == "" {
			filename = "Unknown"
		}
		sources = append(sources, model.Source{
			Text:     truncate(doc.Text, sourceTextLimit),
			FileName: filename,
			Page:     doc.Metadata.Page,
			Row:      doc.Metadata.Row,
			Column:   doc.Metadata.Column,
		})
	}
	return sources
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
