package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/rofr-ledger/internal/common"
	"golang.org/x/sync/errgroup"
)

// maxOpenFiles bounds concurrent file reads.
const maxOpenFiles = 8

// LoadFiles reads every file concurrently and returns their posts in argument order.
func LoadFiles(ctx context.Context, paths []string) ([]Post, error) {
	if len(paths) == 0 {
		return nil, common.ErrNoInput
	}

	perFile := make([][]Post, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxOpenFiles)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			posts, err := loadFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			perFile[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var posts []Post
	for _, p := range perFile {
		posts = append(posts, p...)
	}
	return posts, nil
}

func loadFile(path string) ([]Post, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch format {
	case FormatJSONL:
		return ReadJSONL(f)
	default:
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			abs = path
		}
		return ReadText(f, "file://"+filepath.ToSlash(abs))
	}
}
