package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"doc-qa-go/internal/model"
	"doc-qa-go/pkg/log"
	"doc-qa-go/pkg/tika"
)

// StructuralParseError reports that the structural spreadsheet loader could
// not parse the file. Callers branch to the row-wise fallback on this type;
// any other error aborts the ingestion.
type StructuralParseError struct {
	Err error
}

func (e *StructuralParseError) Error() string {
	return "structural spreadsheet parse failed: " + e.Err.Error()
}

func (e *StructuralParseError) Unwrap() error {
	return e.Err
}

// Excel ingests tabular files. The primary path loads one document per
// worksheet and runs each through the chunker; when the structural loader
// fails, a row-wise fallback produces one document per data row with
// "column: value" pairs joined by " | ". Both paths stamp the file id onto
// every document, so file-scoped filtering and prefix deletion cover
// fallback rows as well.
type Excel struct {
	tikaClient *tika.Client
	chunker    *Chunker
}

// NewExcel creates the tabular ingestor.
func NewExcel(tikaClient *tika.Client, chunker *Chunker) *Excel {
	return &Excel{tikaClient: tikaClient, chunker: chunker}
}

// Ingest parses the spreadsheet, falling back to row-wise loading on a
// structural parse failure.
func (e *Excel) Ingest(ctx context.Context, content []byte, fileID, fileName string) ([]model.Document, error) {
	docs, err := e.loadStructured(content, fileID, fileName)
	if err != nil {
		var parseErr *StructuralParseError
		if errors.As(err, &parseErr) {
			log.Warnf("structural parse of %s failed, using row-wise fallback: %v", fileName, err)
			return e.loadRows(content, fileID, fileName)
		}
		return nil, err
	}
	return e.chunker.SplitDocuments(docs), nil
}

// loadStructured yields one document per worksheet via Tika.
func (e *Excel) loadStructured(content []byte, fileID, fileName string) ([]model.Document, error) {
	sheets, err := e.tikaClient.ExtractSheets(bytes.NewReader(content), fileName)
	if err != nil {
		return nil, &StructuralParseError{Err: err}
	}

	docs := make([]model.Document, 0, len(sheets))
	for _, sheet := range sheets {
		if strings.TrimSpace(sheet.Text) == "" {
			continue
		}
		docs = append(docs, model.Document{
			Text: sheet.Text,
			Metadata: model.Metadata{
				FileID:   fileID,
				FileName: fileName,
				Sheet:    sheet.Name,
			},
		})
	}
	if len(docs) == 0 {
		return nil, &StructuralParseError{Err: errors.New("no non-empty worksheets")}
	}
	return docs, nil
}

// loadRows reads the first worksheet directly and emits one document per data
// row. The first row is treated as the header supplying column names.
func (e *Excel) loadRows(content []byte, fileID, fileName string) ([]model.Document, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", fileName, err)
	}
	defer workbook.Close()

	sheetName := workbook.GetSheetName(0)
	rows, err := workbook.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", fileName, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("workbook %s has no data rows", fileName)
	}

	header := rows[0]
	docs := make([]model.Document, 0, len(rows)-1)
	for i, row := range rows[1:] {
		pairs := make([]string, 0, len(row))
		for j, value := range row {
			column := fmt.Sprintf("col%d", j)
			if j < len(header) && header[j] != "" {
				column = header[j]
			}
			pairs = append(pairs, column+": "+value)
		}

		rowIndex := i
		docs = append(docs, model.Document{
			Text: strings.Join(pairs, " | "),
			Metadata: model.Metadata{
				FileID:   fileID,
				FileName: fileName,
				Row:      &rowIndex,
				Sheet:    "default",
			},
		})
	}
	return docs, nil
}
