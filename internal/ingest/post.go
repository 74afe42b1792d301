// Package ingest reads crawled forum posts and feeds their lines through the parser and merge store.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Veraticus/rofr-ledger/internal/common"
)

// Post is one forum post handed over by the crawler.
type Post struct {
	SourceURL   string `json:"source_url"`
	ThreadTitle string `json:"thread_title,omitempty"`
	Text        string `json:"text"`
	Page        int    `json:"page"`
}

// Format identifies an input file layout.
type Format string

// Supported input formats.
const (
	FormatJSONL Format = "jsonl"
	FormatText  Format = "text"
)

// DetectFormat picks the input format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".txt", ".text", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

const maxLineBytes = 4 * 1024 * 1024

// ReadJSONL decodes one Post per line. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]Post, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var posts []Post
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var p Post
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		posts = append(posts, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan input: %w", err)
	}

	return posts, nil
}

// ReadText treats the whole input as the body of a single post from sourceURL.
func ReadText(r io.Reader, sourceURL string) ([]Post, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(body) == 0 {
		return nil, nil
	}
	return []Post{{SourceURL: sourceURL, Page: 1, Text: string(body)}}, nil
}
