// Package tika provides a client for an Apache Tika server. It is the
// structural parser behind both ingestion variants: paginated documents are
// read page by page from Tika's XHTML output, spreadsheets table by table.
package tika

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
)

// Client talks to a Tika server.
type Client struct {
	serverURL string
	client    *http.Client
}

// NewClient creates a new Tika client for the given server URL.
func NewClient(serverURL string) *Client {
	return &Client{serverURL: serverURL, client: &http.Client{}}
}

// ImageRef is a reference to an embedded image found in a page.
type ImageRef struct {
	Src string
	Alt string
}

// Page is one page of a paginated document. Text contains a
// [[image:<src>]] placeholder wherever an embedded image appeared.
type Page struct {
	Number int
	Text   string
	Images []ImageRef
}

// Sheet is one worksheet of a spreadsheet, rows joined by newlines and cells
// by tabs.
type Sheet struct {
	Name string
	Text string
}

var (
	pageDivRe = regexp.MustCompile(`<div[^>]*class="page"[^>]*>`)
	imgRe     = regexp.MustCompile(`<img[^>]*>`)
	attrRe    = regexp.MustCompile(`(src|alt)="([^"]*)"`)
	tagRe     = regexp.MustCompile(`<[^>]*>`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	blankRe   = regexp.MustCompile(`\n{3,}`)
	sheetRe   = regexp.MustCompile(`(?s)(?:<h1[^>]*>(.*?)</h1>\s*)?<table[^>]*>(.*?)</table>`)
	rowRe     = regexp.MustCompile(`(?s)<tr[^>]*>(.*?)</tr>`)
	cellRe    = regexp.MustCompile(`(?s)<t[dh][^>]*>(.*?)</t[dh]>`)
)

// ExtractText extracts the whole document as plain text.
func (c *Client) ExtractText(fileReader io.Reader, fileName string) (string, error) {
	body, err := c.put(fileReader, fileName, "text/plain")
	if err != nil {
		return "", err
	}
	return body, nil
}

// ExtractPages parses a paginated document into its pages, in source order,
// numbered from 1. Embedded images are replaced by placeholders and reported
// in each page's Images slice.
func (c *Client) ExtractPages(fileReader io.Reader, fileName string) ([]Page, error) {
	xhtml, err := c.put(fileReader, fileName, "text/html")
	if err != nil {
		return nil, err
	}

	parts := pageDivRe.Split(xhtml, -1)
	if len(parts) < 2 {
		return nil, fmt.Errorf("no pages found in tika output for %s", fileName)
	}

	// parts[0] is the document head before the first page div.
	pages := make([]Page, 0, len(parts)-1)
	for i, part := range parts[1:] {
		page := Page{Number: i + 1}
		withPlaceholders := imgRe.ReplaceAllStringFunc(part, func(tag string) string {
			ref := parseImageRef(tag)
			page.Images = append(page.Images, ref)
			return "\n[[image:" + ref.Src + "]]\n"
		})
		page.Text = stripMarkup(withPlaceholders)
		pages = append(pages, page)
	}
	return pages, nil
}

// ExtractSheets parses a spreadsheet into one entry per worksheet.
func (c *Client) ExtractSheets(fileReader io.Reader, fileName string) ([]Sheet, error) {
	xhtml, err := c.put(fileReader, fileName, "text/html")
	if err != nil {
		return nil, err
	}

	matches := sheetRe.FindAllStringSubmatch(xhtml, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no worksheets found in tika output for %s", fileName)
	}

	sheets := make([]Sheet, 0, len(matches))
	for i, match := range matches {
		name := stripMarkup(match[1])
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}

		var rows []string
		for _, rowMatch := range rowRe.FindAllStringSubmatch(match[2], -1) {
			var cells []string
			for _, cellMatch := range cellRe.FindAllStringSubmatch(rowMatch[1], -1) {
				cells = append(cells, stripMarkup(cellMatch[1]))
			}
			rows = append(rows, strings.Join(cells, "\t"))
		}
		sheets = append(sheets, Sheet{Name: name, Text: strings.Join(rows, "\n")})
	}
	return sheets, nil
}

func (c *Client) put(fileReader io.Reader, fileName, accept string) (string, error) {
	req, err := http.NewRequest(http.MethodPut, c.serverURL+"/tika", fileReader)
	if err != nil {
		return "", fmt.Errorf("failed to create tika request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Content-Type", detectMimeType(fileName))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call tika: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("tika returned error [%d]: %s", resp.StatusCode, string(body))
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return "", fmt.Errorf("failed to read tika response: %w", err)
	}
	return buf.String(), nil
}

func parseImageRef(tag string) ImageRef {
	var ref ImageRef
	for _, attr := range attrRe.FindAllStringSubmatch(tag, -1) {
		switch attr[1] {
		case "src":
			ref.Src = attr[2]
		case "alt":
			ref.Alt = attr[2]
		}
	}
	return ref
}

// stripMarkup removes tags, unescapes entities and normalizes whitespace.
func stripMarkup(fragment string) string {
	text := strings.ReplaceAll(fragment, "</p>", "\n")
	text = tagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = spaceRe.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	text = strings.Join(lines, "\n")
	text = blankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// detectMimeType derives the Content-Type from the file extension.
func detectMimeType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "application/octet-stream"
	}
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}
