// Package fs discovers and loads extracted document files from the input
// directory.
package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"regrag/internal/domain"
)

// Walker lists extraction outputs under a root directory using glob
// patterns.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*.json", "**/*.txt"}
	}
	return &Walker{includes: includes, excludes: excludes}
}

// Walk returns matching file paths in deterministic (sorted) order.
func (w *Walker) Walk(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if w.shouldExclude(relPath + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if w.shouldInclude(relPath) && !w.shouldExclude(relPath) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		if matched, err := doublestar.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		if matched, err := doublestar.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}

// extractedDocument is the wire shape produced by the external PDF extractor.
// Older extraction runs used Spanish field names; both are accepted and
// consolidated into domain.Document.
type extractedDocument struct {
	Filename  string   `json:"filename"`
	Content   string   `json:"content"`
	Contenido string   `json:"contenido"`
	Tables    []string `json:"tables"`
}

// LoadDocument reads one extraction output. JSON files carry filename,
// content and optional raw tables; plain text files become a document named
// after the file.
func LoadDocument(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var ext extractedDocument
		if err := json.Unmarshal(data, &ext); err != nil {
			return domain.Document{}, fmt.Errorf("decode %s: %w", path, err)
		}
		content := ext.Content
		if content == "" {
			content = ext.Contenido
		}
		name := ext.Filename
		if name == "" {
			name = filepath.Base(path)
		}
		return domain.Document{SourceFile: name, Content: content, Tables: ext.Tables}, nil
	}

	return domain.Document{SourceFile: filepath.Base(path), Content: string(data)}, nil
}
