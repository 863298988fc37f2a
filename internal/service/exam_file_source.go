package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/stemsi/exambot/internal/model"
)

// FileExamSource reads exams from <dir>/<name>.json, .yaml or .yml.
type FileExamSource struct {
	dir string
}

// NewFileExamSource serves exams from DATA_DIR/exams.
func NewFileExamSource(dataDir string) *FileExamSource {
	return &FileExamSource{dir: filepath.Join(dataDir, "exams")}
}

var examExtensions = []string{".json", ".yaml", ".yml"}

// GetByName returns fs.ErrNotExist for unknown names, including any name
// that is not a plain file name.
func (f *FileExamSource) GetByName(_ context.Context, name string) (*model.ExamDocument, error) {
	if !isExamName(name) || name != filepath.Base(name) {
		return nil, fmt.Errorf("exam %q: %w", name, fs.ErrNotExist)
	}
	for _, ext := range examExtensions {
		path := filepath.Join(f.dir, name+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		return DecodeExamDocument(path, data)
	}
	return nil, fmt.Errorf("exam %q: %w", name, fs.ErrNotExist)
}

// ListNames returns the sorted, de-duplicated exam names found in the
// directory. Files whose stem is not a valid exam name are skipped.
func (f *FileExamSource) ListNames(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	seen := make(map[string]bool)
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !isExamExtension(ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if !isExamName(name) {
			continue
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListAll decodes every exam in the directory.
func (f *FileExamSource) ListAll(ctx context.Context) ([]model.ExamDocument, error) {
	names, err := f.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]model.ExamDocument, 0, len(names))
	for _, n := range names {
		doc, err := f.GetByName(ctx, n)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func isExamExtension(ext string) bool {
	for _, e := range examExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// isExamName reports whether s can be typed as a single lower-case word
// after the command prefix.
func isExamName(s string) bool {
	return s != "" &&
		s == normalizeName(s) &&
		!strings.HasPrefix(s, ".") &&
		!strings.ContainsFunc(s, unicode.IsSpace)
}

// DecodeExamDocument parses JSON or YAML according to the file extension.
// The file name is the exam's identifier and replaces any name field, so the
// names a store lists are always the names its documents load under.
func DecodeExamDocument(path string, data []byte) (*model.ExamDocument, error) {
	var doc model.ExamDocument
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if !isExamName(name) {
		return nil, fmt.Errorf("decode %s: exam file name must be a single lower-case word", path)
	}
	doc.Name = name
	return &doc, nil
}
