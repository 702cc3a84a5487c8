// Package ingest turns uploaded files into retrievable documents.
package ingest

import (
	"strings"
	"unicode/utf8"

	"doc-qa-go/internal/model"
)

// Default window parameters for large-text splitting.
const (
	DefaultChunkSize    = 10000
	DefaultChunkOverlap = 1000
)

// Chunker splits long text into overlapping, size-bounded windows. It prefers
// breaking on structural boundaries (paragraphs, then lines, then sentences,
// then words) so semantic units are not needlessly cut. Splitting is a pure
// function of the input: identical text yields identical chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewChunker creates a Chunker with the given window size and overlap,
// both measured in runes.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   []string{"\n\n", "\n", ". ", " "},
	}
}

// SplitText splits text into chunks of at most chunkSize runes where adjacent
// chunks share roughly chunkOverlap runes.
func (c *Chunker) SplitText(text string) []string {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= c.chunkSize {
		return []string{text}
	}
	return c.merge(c.split(text, c.separators))
}

// SplitDocuments runs every document's text through SplitText, copying the
// source metadata onto each derived chunk and numbering chunks per source
// document.
func (c *Chunker) SplitDocuments(docs []model.Document) []model.Document {
	var out []model.Document
	for _, doc := range docs {
		for i, chunk := range c.SplitText(doc.Text) {
			meta := doc.Metadata
			meta.ChunkIndex = i
			out = append(out, model.Document{Text: chunk, Metadata: meta})
		}
	}
	return out
}

// split recursively breaks text into segments no larger than chunkSize,
// trying each separator in order and falling back to a hard rune split for
// text no separator applies to. Separators stay attached to the segment they
// terminate, so joining segments reproduces the input.
func (c *Chunker) split(text string, separators []string) []string {
	if utf8.RuneCountInString(text) <= c.chunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return c.hardSplit(text)
	}

	parts := strings.SplitAfter(text, separators[0])
	if len(parts) == 1 {
		return c.split(text, separators[1:])
	}

	var segments []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= c.chunkSize {
			segments = append(segments, part)
			continue
		}
		segments = append(segments, c.split(part, separators[1:])...)
	}
	return segments
}

// hardSplit cuts text into chunkSize-rune pieces with no boundary preference.
func (c *Chunker) hardSplit(text string) []string {
	runes := []rune(text)
	var pieces []string
	for i := 0; i < len(runes); i += c.chunkSize {
		end := i + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[i:end]))
	}
	return pieces
}

// merge greedily packs segments into windows of at most chunkSize runes.
// When a window is flushed, leading segments are dropped until the retained
// tail fits within chunkOverlap; the tail seeds the next window.
func (c *Chunker) merge(segments []string) []string {
	var chunks []string
	var current []string
	total := 0

	for _, seg := range segments {
		segLen := utf8.RuneCountInString(seg)
		if total+segLen > c.chunkSize && total > 0 {
			chunks = append(chunks, strings.Join(current, ""))
			for len(current) > 0 && (total > c.chunkOverlap || total+segLen > c.chunkSize) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, seg)
		total += segLen
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ""))
	}
	return chunks
}
