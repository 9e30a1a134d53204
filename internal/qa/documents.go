package qa

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// LoadDocuments reads every .txt and .md file under dir and splits them into
// overlapping chunks ready for embedding. Files are visited in lexical order.
func LoadDocuments(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("qa: walk knowledge dir: %w", err)
	}
	sort.Strings(paths)

	var chunks []string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("qa: read %s: %w", path, err)
		}
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("qa: %s is not valid utf-8", path)
		}
		chunks = append(chunks, SplitText(string(data), defaultChunkSize, defaultChunkOverlap)...)
	}
	return chunks, nil
}

// SplitText breaks text into chunks of at most size runes. Whole paragraphs
// are packed together while they fit; a paragraph longer than size is cut into
// windows that share overlap runes with their neighbour.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	var current []rune
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for _, piece := range windows([]rune(para), size, overlap) {
			switch {
			case len(current) == 0:
				current = append(current, piece...)
			case len(current)+2+len(piece) <= size:
				current = append(current, '\n', '\n')
				current = append(current, piece...)
			default:
				chunks = append(chunks, string(current))
				current = append([]rune(nil), piece...)
			}
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}

func windows(runes []rune, size, overlap int) [][]rune {
	if len(runes) <= size {
		return [][]rune{runes}
	}
	step := size - overlap
	var out [][]rune
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end >= len(runes) {
			out = append(out, runes[start:])
			break
		}
		out = append(out, runes[start:end])
	}
	return out
}
