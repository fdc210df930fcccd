// Package extract pulls page text out of uploaded document bytes for local layout analysis.
package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a supported document container.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
	FormatText Format = "text"
)

var pdfMagic = []byte("%PDF-")
var zipMagic = []byte("PK\x03\x04")

// Extractor extracts page text from document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Sniff guesses the format of content from its leading bytes.
// Zip containers are told apart by their part names; anything unrecognized is text.
func Sniff(content []byte) Format {
	switch {
	case bytes.HasPrefix(content, pdfMagic):
		return FormatPDF
	case bytes.HasPrefix(content, zipMagic):
		zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
		if err != nil {
			return FormatText
		}
		for _, f := range zr.File {
			switch {
			case strings.HasPrefix(f.Name, "word/"):
				return FormatDOCX
			case strings.HasPrefix(f.Name, "xl/"):
				return FormatXLSX
			}
		}
	}
	return FormatText
}

// FormatFromName maps a file name's extension to a Format. Unknown extensions return "".
func FormatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".xlsx":
		return FormatXLSX
	case ".txt", ".md", ".csv":
		return FormatText
	}
	return ""
}

// Pages returns the text of each page of content. An empty format is sniffed.
// Spreadsheets yield one page per sheet; plain text is split on form feeds.
func (e *Extractor) Pages(content []byte, format Format) ([]string, error) {
	if format == "" {
		format = Sniff(content)
	}
	switch format {
	case FormatPDF:
		return pdfPages(content)
	case FormatDOCX:
		text, err := docxText(content)
		if err != nil {
			return nil, err
		}
		return []string{text}, nil
	case FormatXLSX:
		return excelPages(content)
	case FormatText:
		return plainPages(content), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Text returns all page text joined by newlines.
func (e *Extractor) Text(content []byte, format Format) (string, error) {
	pages, err := e.Pages(content, format)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n"), nil
}
