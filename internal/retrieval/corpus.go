package retrieval

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadCorpus ingests reference material from a directory tree.
//
// Every .md and .txt file becomes one topic named after the file (dashes and
// underscores read as spaces), split into one document per markdown section.
// Returns the number of documents indexed.
func LoadCorpus(ctx context.Context, dir string, idx Indexer) (int, error) {
	dir, err := expandPath(dir)
	if err != nil {
		return 0, fmt.Errorf("expanding corpus dir: %w", err)
	}

	total := 0
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}

		docs := splitCorpusFile(rel, string(data))
		if len(docs) == 0 {
			return nil
		}
		if err := idx.Index(ctx, docs); err != nil {
			return fmt.Errorf("indexing %s: %w", rel, err)
		}
		total += len(docs)
		return nil
	})
	if err != nil {
		return total, err
	}
	return total, nil
}

// splitCorpusFile splits file content into per-section documents.
func splitCorpusFile(rel, content string) []Document {
	topic := topicFromFilename(rel)
	slug := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))

	var docs []Document
	for i, section := range splitSections(content) {
		docs = append(docs, Document{
			ID:      fmt.Sprintf("%s-%d", slug, i),
			Topic:   topic,
			Source:  rel,
			Content: section,
		})
	}
	return docs
}

// topicFromFilename derives the topic from a corpus file name:
// "algorithms/two-pointers.md" reads as "two pointers".
func topicFromFilename(rel string) string {
	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}

// splitSections splits markdown content on headings. Files without headings
// become a single document.
func splitSections(content string) []string {
	var sections []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sections = append(sections, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") || strings.HasPrefix(line, "## ") {
			flush()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()

	return sections
}
