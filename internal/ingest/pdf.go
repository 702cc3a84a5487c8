package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"doc-qa-go/internal/model"
	"doc-qa-go/pkg/llm"
	"doc-qa-go/pkg/log"
	"doc-qa-go/pkg/tika"
)

// PDF ingests paginated documents: exactly one document per source page, in
// page order, pages numbered from 1. Embedded images and tables are replaced
// inline with a language-model description of the region. There is no
// fallback path; any parser or description failure is fatal for the upload.
type PDF struct {
	tikaClient *tika.Client
	llmClient  llm.Client
}

// NewPDF creates the paginated-document ingestor.
func NewPDF(tikaClient *tika.Client, llmClient llm.Client) *PDF {
	return &PDF{tikaClient: tikaClient, llmClient: llmClient}
}

// Ingest parses the PDF into per-page documents.
func (p *PDF) Ingest(ctx context.Context, content []byte, fileID, fileName string) ([]model.Document, error) {
	pages, err := p.tikaClient.ExtractPages(bytes.NewReader(content), fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pdf %s: %w", fileName, err)
	}

	docs := make([]model.Document, 0, len(pages))
	for _, page := range pages {
		text := page.Text
		for _, img := range page.Images {
			description, err := p.describeRegion(ctx, fileName, page.Number, img)
			if err != nil {
				return nil, fmt.Errorf("failed to describe embedded content on page %d of %s: %w", page.Number, fileName, err)
			}
			text = strings.Replace(text, "[[image:"+img.Src+"]]", description, 1)
		}

		pageNumber := page.Number
		docs = append(docs, model.Document{
			Text: text,
			Metadata: model.Metadata{
				FileID:   fileID,
				FileName: fileName,
				Page:     &pageNumber,
			},
		})
	}

	log.Infof("parsed %d pages from %s", len(docs), fileName)
	return docs, nil
}

func (p *PDF) describeRegion(ctx context.Context, fileName string, pageNumber int, img tika.ImageRef) (string, error) {
	region := fmt.Sprintf("Embedded object %q on page %d of %s", img.Src, pageNumber, fileName)
	if img.Alt != "" {
		region += fmt.Sprintf(", captioned %q", img.Alt)
	}
	return p.llmClient.DescribeImageOrTable(ctx, region)
}
