package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/merge"
	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/Veraticus/rofr-ledger/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const thread1 = "https://www.disboards.com/threads/rofr-thread-july-to-september-2024.1/"

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{path: "posts.jsonl", want: FormatJSONL},
		{path: "posts.NDJSON", want: FormatJSONL},
		{path: "page.txt", want: FormatText},
		{path: "page", want: FormatText},
		{path: "posts.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadJSONL(t *testing.T) {
	input := `{"source_url":"u1","page":1,"text":"a\nb","thread_title":"ROFR Thread July to September 2024"}

{"source_url":"u1","page":2,"text":"c"}
`
	posts, err := ReadJSONL(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, Post{SourceURL: "u1", Page: 1, Text: "a\nb", ThreadTitle: "ROFR Thread July to September 2024"}, posts[0])
	assert.Equal(t, 2, posts[1].Page)

	_, err = ReadJSONL(strings.NewReader("{not json}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestReadText(t *testing.T) {
	posts, err := ReadText(strings.NewReader("line one\nline two"), "file:///tmp/x.txt")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "file:///tmp/x.txt", posts[0].SourceURL)
	assert.Equal(t, 1, posts[0].Page)

	posts, err = ReadText(strings.NewReader(""), "empty")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	jsonl := filepath.Join(dir, "a.jsonl")
	text := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(jsonl, []byte(`{"source_url":"u","page":1,"text":"first"}`+"\n"), 0o600))
	require.NoError(t, os.WriteFile(text, []byte("second"), 0o600))

	posts, err := LoadFiles(context.Background(), []string{jsonl, text})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "first", posts[0].Text)
	assert.Equal(t, "second", posts[1].Text)
	assert.True(t, strings.HasPrefix(posts[1].SourceURL, "file://"))

	_, err = LoadFiles(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrNoInput)

	_, err = LoadFiles(context.Background(), []string{filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
}

func TestSplitter_Split(t *testing.T) {
	posts := []Post{
		{SourceURL: "u1", Page: 1, Text: "first\r\n\n  \nsecond"},
		{SourceURL: "u1", Page: 2, Text: "third"},
	}

	lines, skipped := Splitter{}.Split(posts, 10)
	assert.Zero(t, skipped)
	require.Len(t, lines, 3)

	assert.Equal(t, "first", lines[0].Text)
	assert.Equal(t, uint64(11), lines[0].Seq)
	assert.Equal(t, 1, lines[0].LineNo)
	assert.Equal(t, "second", lines[1].Text)
	assert.Equal(t, 4, lines[1].LineNo)
	assert.Equal(t, uint64(13), lines[2].Seq)
	assert.Equal(t, 2, lines[2].Page)
}

func TestSplitter_SkipsThreadsBeforeStartDate(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	posts := []Post{
		{SourceURL: "old", ThreadTitle: "ROFR Thread April to June 2023", Text: "x---$100-100-SSR- sent 5/23"},
		{SourceURL: "new", ThreadTitle: "ROFR Thread April to June 2024", Text: "x---$100-100-SSR- sent 5/24"},
		{SourceURL: "untitled", Text: "x---$100-100-SSR- sent 5/22"},
	}

	lines, skipped := Splitter{StartDate: &start}.Split(posts, 0)
	assert.Equal(t, 1, skipped)
	require.Len(t, lines, 2)
	assert.Equal(t, "new", lines[0].SourceURL)
	require.NotNil(t, lines[0].Window)
	assert.Nil(t, lines[1].Window)
}

type countingProgress struct{ n int }

func (c *countingProgress) Add(n int) error {
	c.n += n
	return nil
}

func TestRunner_MergesRepostsAcrossPages(t *testing.T) {
	posts := []Post{
		{SourceURL: thread1, Page: 1, Text: strings.Join([]string{
			"Welcome to the new thread!",
			"pangyal---$144-$31536-219-VGF-Aug- sent 8/24",
			"user---$100-219-AKV-Feb- sent 7/24",
		}, "\n")},
		{SourceURL: thread1, Page: 4, Text: strings.Join([]string{
			"Updated my entry:",
			"pangyal---$144-$31536-219-VGF-Aug- sent 8/24, passed 9/24",
			"z---$100-100-SSR- sent 13/24",
		}, "\n")},
	}

	progress := &countingProgress{}
	runner := NewRunner(parser.Options{Workers: 3, BatchSize: 2})
	runner.Progress = progress
	store := merge.NewStore()

	report, err := runner.RunPosts(context.Background(), posts, store)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 6, report.Summary.Lines)
	assert.Equal(t, 3, report.Summary.Matched)
	assert.Equal(t, 2, report.Summary.Inserted)
	assert.Equal(t, 1, report.Summary.Updated)
	assert.Equal(t, 1, report.Summary.DroppedUnparseableDate)
	assert.Equal(t, 6, progress.n)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, parser.ReasonUnparseableDate, report.Diagnostics[0].Reason)

	entries := store.Entries()
	require.Len(t, entries, 2)
	pangyal := entries[1]
	assert.Equal(t, "pangyal", pangyal.Username)
	assert.Equal(t, model.ResultPassed, pangyal.Result)
	assert.Equal(t, 1, pangyal.Page, "provenance comes from the first sighting")
	assert.Equal(t, "pangyal---$144-$31536-219-VGF-Aug- sent 8/24", pangyal.RawText)
}

func TestRunner_SecondRunContinuesSequence(t *testing.T) {
	store := merge.NewStore()
	runner := NewRunner(parser.DefaultOptions())

	first := []Post{{SourceURL: thread1, Page: 1, Text: "a---$100-100-SSR- sent 5/24, taken 6/24"}}
	_, err := runner.RunPosts(context.Background(), first, store)
	require.NoError(t, err)

	second := []Post{{SourceURL: thread1, Page: 9, Text: "a---$100-100-SSR- sent 5/24, passed 6/24"}}
	report, err := runner.RunPosts(context.Background(), second, store)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Summary.MergeAnomalies)
	assert.Equal(t, 1, report.Summary.MergeRejected)
	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, model.ResultTaken, store.Entries()[0].Result)
	assert.Equal(t, uint64(2), store.MaxSeq())
}

func TestRunner_RunIsIdempotentOverSameLines(t *testing.T) {
	posts := []Post{{SourceURL: thread1, Page: 1, Text: "a---$100-100-SSR- sent 5/24\na---$100-100-SSR- sent 5/24, passed 6/24"}}
	lines, _ := Splitter{}.Split(posts, 0)

	runner := NewRunner(parser.DefaultOptions())
	once := merge.NewStore()
	_, err := runner.Run(context.Background(), lines, once)
	require.NoError(t, err)

	twice := merge.NewStore()
	_, err = runner.Run(context.Background(), lines, twice)
	require.NoError(t, err)
	report, err := runner.Run(context.Background(), lines, twice)
	require.NoError(t, err)

	assert.Equal(t, once.Records(), twice.Records())
	assert.Equal(t, 2, report.Summary.Unchanged)
}

func TestRunner_NilStorePanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = NewRunner(parser.DefaultOptions()).Run(context.Background(), nil, nil)
	})
}
