package extract

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFBackend extracts text page by page with github.com/ledongthuc/pdf.
type PDFBackend struct{}

// Extract returns the concatenated page text and the page count.
func (PDFBackend) Extract(ctx context.Context, data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, errors.New("empty pdf data")
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, err
	}

	total := reader.NumPage()
	fonts := make(map[string]*pdf.Font)
	var buf strings.Builder
	processed := 0
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return Result{}, err
		}
		buf.WriteString(text)
		processed++
	}

	return Result{
		Text: buf.String(),
		Meta: Meta{Pages: &total, PagesProcessed: processed},
	}, nil
}
