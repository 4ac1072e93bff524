package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWalkFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", "{}")
	writeFile(t, dir, "a.txt", "texto")
	writeFile(t, dir, "nested/c.json", "{}")
	writeFile(t, dir, "ignore.pdf", "binary")

	w := NewWalker(nil, nil)
	files, err := w.Walk(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d: %v", len(files), files)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] > files[i] {
			t.Errorf("files not sorted: %v", files)
		}
	}
	for _, f := range files {
		if filepath.Ext(f) == ".pdf" {
			t.Errorf("non-matching file included: %s", f)
		}
	}
}

func TestWalkExcludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.json", "{}")
	writeFile(t, dir, "skip/drop.json", "{}")

	w := NewWalker([]string{"**/*.json"}, []string{"skip/**"})
	files, err := w.Walk(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "keep.json" {
		t.Errorf("exclude pattern not applied: %v", files)
	}
}

func TestLoadDocumentJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "norma.json",
		`{"filename":"norma.pdf","content":"texto extraído","tables":["a\tb"]}`)

	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.SourceFile != "norma.pdf" {
		t.Errorf("expected source 'norma.pdf', got %q", doc.SourceFile)
	}
	if doc.Content != "texto extraído" {
		t.Errorf("unexpected content: %q", doc.Content)
	}
	if len(doc.Tables) != 1 || doc.Tables[0] != "a\tb" {
		t.Errorf("tables not loaded: %v", doc.Tables)
	}
}

func TestLoadDocumentSpanishKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vieja.json", `{"contenido":"texto en contenido"}`)

	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "texto en contenido" {
		t.Errorf("contenido key not accepted: %q", doc.Content)
	}
	if doc.SourceFile != "vieja.json" {
		t.Errorf("expected fallback name 'vieja.json', got %q", doc.SourceFile)
	}
}

func TestLoadDocumentPlainText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plano.txt", "texto plano")

	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.SourceFile != "plano.txt" || doc.Content != "texto plano" {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestLoadDocumentInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "roto.json", "{not json")

	if _, err := LoadDocument(path); err == nil {
		t.Fatal("expected decode error")
	}
}
