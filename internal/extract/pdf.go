package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

func pdfPages(content []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
