// ABOUTME: PDF text extraction for the document corpus
// ABOUTME: Produces one Document per non-empty page, in sorted file order
package extractor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/clearpath-io/support-rag/internal/models"
)

// ExtractAllPDFs reads every PDF in docsDir in sorted filename order and
// returns one Document per non-empty page. Pages are 1-indexed. A file
// that fails to parse is logged and skipped; a directory with no PDFs at
// all is an error.
func ExtractAllPDFs(docsDir string) ([]models.Document, error) {
	pdfFiles, err := listPDFs(docsDir)
	if err != nil {
		return nil, err
	}
	if len(pdfFiles) == 0 {
		return nil, fmt.Errorf("no PDF files found in %s", docsDir)
	}

	var documents []models.Document
	for _, name := range pdfFiles {
		docs, err := extractPDF(filepath.Join(docsDir, name), name)
		if err != nil {
			slog.Warn("failed to extract PDF", "file", name, "error", err)
			continue
		}
		documents = append(documents, docs...)
	}

	return documents, nil
}

// listPDFs returns the sorted PDF filenames in dir, matched case-insensitively.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read docs directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// extractPDF opens one PDF and returns a Document per page with text.
func extractPDF(path, name string) ([]models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF: %w", err)
	}

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	var documents []models.Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("failed to extract page text", "file", name, "page", i, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		documents = append(documents, models.Document{
			SourceName: name,
			PageNumber: i,
			Text:       text,
		})
	}

	return documents, nil
}
