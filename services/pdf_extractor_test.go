package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractPDFTextMissingFile(t *testing.T) {
	_, _, err := ExtractPDFText(filepath.Join(t.TempDir(), "missing.pdf"))
	if err == nil {
		t.Fatal("ExtractPDFText succeeded on a missing file")
	}
}

func TestExtractPDFTextRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-pdf.pdf")
	if err := os.WriteFile(path, []byte("plain text, not a pdf"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, _, err := ExtractPDFText(path)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
}
