package ingest

import (
	"strings"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/parser"
	"github.com/Veraticus/rofr-ledger/internal/thread"
)

// Splitter turns posts into candidate lines with stream sequence numbers.
type Splitter struct {
	StartDate *time.Time // posts from threads that end before this are skipped whole
}

// Split isolates the lines of every post. Sequence numbers start after afterSeq and follow input
// order, so a later page always carries a higher Seq than an earlier one.
func (s Splitter) Split(posts []Post, afterSeq uint64) (lines []parser.Line, skippedPosts int) {
	windows := make(map[string]*thread.Window)
	seq := afterSeq

	for _, post := range posts {
		window := s.windowFor(windows, post.ThreadTitle)
		if window != nil && s.StartDate != nil && !window.Overlaps(*s.StartDate) {
			skippedPosts++
			continue
		}

		for i, text := range strings.Split(post.Text, "\n") {
			text = strings.TrimSuffix(text, "\r")
			if strings.TrimSpace(text) == "" {
				continue
			}
			seq++
			lines = append(lines, parser.Line{
				Window:    window,
				SourceURL: post.SourceURL,
				Text:      text,
				Page:      post.Page,
				LineNo:    i + 1,
				Seq:       seq,
			})
		}
	}

	if skippedPosts > 0 {
		common.LogDebug("skipped posts from threads before start date", common.Fields{
			"skipped": skippedPosts,
		})
	}

	return lines, skippedPosts
}

func (s Splitter) windowFor(cache map[string]*thread.Window, title string) *thread.Window {
	if title == "" {
		return nil
	}
	if w, ok := cache[title]; ok {
		return w
	}

	var window *thread.Window
	if w, ok := thread.ParseTitle(title); ok {
		window = &w
	}
	cache[title] = window
	return window
}
