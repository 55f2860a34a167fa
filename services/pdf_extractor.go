package services

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// 200MB cap guards against loading a pathological PDF into memory.
const maxPDFBytes = 200 << 20

// ExtractPDFText extracts plain text from a PDF file, page texts joined
// with blank lines. Returns the text and the page count. Encrypted or
// image-only PDFs yield a ValidationError.
func ExtractPDFText(path string) (string, int, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("stat pdf: %w", err)
	}
	if stat.Size() > maxPDFBytes {
		return "", 0, &ValidationError{Msg: "pdf too large for in-memory extraction"}
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, &ValidationError{Msg: fmt.Sprintf("cannot parse pdf: %v", err)}
	}
	defer f.Close()

	var pages []string
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages rather than failing the document.
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
	}

	joined := strings.Join(pages, "\n\n")
	if strings.TrimSpace(joined) == "" {
		return "", total, &ValidationError{Msg: "pdf contains no extractable text"}
	}
	return joined, total, nil
}
