// ABOUTME: Tests for PDF discovery and extraction error paths
// ABOUTME: Uses temp directories; malformed files are skipped, empty dirs error
package extractor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListPDFs_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zeta.pdf", "alpha.PDF", "notes.txt", "beta.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.pdf"), 0755); err != nil {
		t.Fatalf("Mkdir error = %v", err)
	}

	names, err := listPDFs(dir)
	if err != nil {
		t.Fatalf("listPDFs() error = %v", err)
	}

	want := []string{"alpha.PDF", "beta.pdf", "zeta.pdf"}
	if len(names) != len(want) {
		t.Fatalf("listPDFs() returned %d names, want %d: %v", len(names), len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestExtractAllPDFs_MissingDirectory(t *testing.T) {
	_, err := ExtractAllPDFs(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("ExtractAllPDFs() expected error for missing directory, got nil")
	}
}

func TestExtractAllPDFs_NoPDFs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "readme.md"), []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	_, err := ExtractAllPDFs(dir)
	if err == nil {
		t.Fatal("ExtractAllPDFs() expected error for empty directory, got nil")
	}
	if !strings.Contains(err.Error(), "no PDF files found") {
		t.Errorf("error = %q, want mention of no PDF files", err)
	}
}

func TestExtractAllPDFs_MalformedPDFSkipped(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("not a real pdf"), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	docs, err := ExtractAllPDFs(dir)
	if err != nil {
		t.Fatalf("ExtractAllPDFs() error = %v, want parse failures skipped", err)
	}
	if len(docs) != 0 {
		t.Errorf("ExtractAllPDFs() returned %d documents from a broken file, want 0", len(docs))
	}
}
