package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// sourceFile is one readable unit of a book.
type sourceFile struct {
	Name string // relative name used as chunk source_file
	Text string
}

// loadSource reads a book from a file or directory. Directories are scanned
// non-recursively for markdown and text files in lexical order so chunk
// positions are stable across runs. PDF sources must be a single file.
func loadSource(path, format string) ([]sourceFile, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("source path: %w", err)
	}

	if info.IsDir() {
		return loadDirectory(path)
	}

	resolved := format
	if resolved == "" {
		resolved = formatFromExtension(path)
	}

	switch resolved {
	case "pdf":
		text, err := extractPDFText(path)
		if err != nil {
			return nil, "", err
		}
		return []sourceFile{{Name: filepath.Base(path), Text: text}}, "pdf", nil
	case "md", "txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		return []sourceFile{{Name: filepath.Base(path), Text: string(data)}}, resolved, nil
	default:
		return nil, "", fmt.Errorf("unsupported source format %q", resolved)
	}
}

func loadDirectory(dir string) ([]sourceFile, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".md", ".mdx", ".txt":
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, "", fmt.Errorf("no markdown or text files in %s", dir)
	}
	sort.Strings(names)

	files := make([]sourceFile, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, "", err
		}
		files = append(files, sourceFile{Name: name, Text: string(data)})
	}
	return files, "md", nil
}

func formatFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".mdx":
		return "md"
	case ".txt":
		return "txt"
	case ".pdf":
		return "pdf"
	default:
		return ""
	}
}

// extractPDFText pulls plain text from every page, skipping pages the parser
// cannot read rather than failing the whole book.
func extractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("no extractable text in PDF %s", filepath.Base(path))
	}
	return b.String(), nil
}

// titleFromPath derives a human title from the source path.
func titleFromPath(path string) string {
	base := filepath.Base(strings.TrimSuffix(path, filepath.Ext(path)))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return strings.TrimSpace(base)
}
