package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	docxDefaultPart = "word/document.xml"
	contentTypesXML = "[Content_Types].xml"
	docxMainType    = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// <w:t> runs carry all visible text, with or without attributes.
	textRunRe = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// <w:p> closes end a paragraph.
	paragraphEndRe = regexp.MustCompile(`</w:p>`)
	overrideRe     = regexp.MustCompile(`<Override[^>]*/?>`)
	partNameAttrRe = regexp.MustCompile(`PartName="([^"]+)"`)
)

func readZipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, nil
}

// mainDocumentPart resolves the main part from [Content_Types].xml, falling back to word/document.xml.
func mainDocumentPart(zr *zip.Reader) string {
	types, err := readZipPart(zr, contentTypesXML)
	if err != nil || types == nil {
		return docxDefaultPart
	}
	for _, o := range overrideRe.FindAll(types, -1) {
		if !bytes.Contains(o, []byte(docxMainType)) {
			continue
		}
		if m := partNameAttrRe.FindSubmatch(o); m != nil {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return docxDefaultPart
}

// docxText returns paragraph text separated by newlines.
func docxText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	part := mainDocumentPart(zr)
	body, err := readZipPart(zr, part)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if body == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", part)
	}

	var lines []string
	for _, para := range paragraphEndRe.Split(string(body), -1) {
		runs := textRunRe.FindAllStringSubmatch(para, -1)
		if len(runs) == 0 {
			continue
		}
		var b strings.Builder
		for _, r := range runs {
			b.WriteString(r[1])
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
