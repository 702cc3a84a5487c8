package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-qa-go/internal/model"
)

func TestExtractSourcesTruncatesLongText(t *testing.T) {
	long := strings.Repeat("a", 250)

	sources := ExtractSources([]model.Document{{
		Text:     long,
		Metadata: model.Metadata{FileName: "big.pdf"},
	}})
	require.Len(t, sources, 1)

	assert.Equal(t, 203, utf8.RuneCountInString(sources[0].Text))
	assert.True(t, strings.HasSuffix(sources[0].Text, "..."))
	assert.Equal(t, strings.Repeat("a", 200), strings.TrimSuffix(sources[0].Text, "..."))
}

func TestExtractSourcesKeepsShortTextIntact(t *testing.T) {
	short := strings.Repeat("b", 150)

	sources := ExtractSources([]model.Document{{Text: short}})
	require.Len(t, sources, 1)
	assert.Equal(t, short, sources[0].Text)

	exact := strings.Repeat("c", 200)
	sources = ExtractSources([]model.Document{{Text: exact}})
	assert.Equal(t, exact, sources[0].Text)
}

func TestExtractSourcesDefaultsFileName(t *testing.T) {
	sources := ExtractSources([]model.Document{{Text: "orphan chunk"}})
	require.Len(t, sources, 1)
	assert.Equal(t, "Unknown", sources[0].FileName)
}

func TestExtractSourcesCarriesLocators(t *testing.T) {
	page := 3
	row := 12
	column := "amount"

	sources := ExtractSources([]model.Document{
		{Text: "page chunk", Metadata: model.Metadata{FileName: "a.pdf", Page: &page}},
		{Text: "row chunk", Metadata: model.Metadata{FileName: "b.xlsx", Row: &row, Column: &column}},
	})
	require.Len(t, sources, 2)

	require.NotNil(t, sources[0].Page)
	assert.Equal(t, 3, *sources[0].Page)
	assert.Nil(t, sources[0].Row)

	require.NotNil(t, sources[1].Row)
	assert.Equal(t, 12, *sources[1].Row)
	require.NotNil(t, sources[1].Column)
	assert.Equal(t, "amount", *sources[1].Column)
	assert.Nil(t, sources[1].Page)
}

func TestExtractSourcesOrderMatchesInput(t *testing.T) {
	docs := []model.Document{
		{Text: "first", Metadata: model.Metadata{FileName: "1.pdf"}},
		{Text: "second", Metadata: model.Metadata{FileName: "2.pdf"}},
		{Text: "third", Metadata: model.Metadata{FileName: "3.pdf"}},
	}
	sources := ExtractSources(docs)
	require.Len(t, sources, 3)
	for i, src := range sources {
		assert.Equal(t, docs[i].Text, src.Text)
		assert.Equal(t, docs[i].Metadata.FileName, src.FileName)
	}
}

func TestExtractSourcesEmptyInput(t *testing.T) {
	assert.Empty(t, ExtractSources(nil))
}

func TestTruncateCountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("日", 210)
	got := truncate(text, 200)
	assert.Equal(t, strings.Repeat("日", 200)+"...", got)
}
