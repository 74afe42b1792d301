// Package parser turns raw ROFR forum lines into contract entries.
package parser

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/Veraticus/rofr-ledger/internal/thread"
)

// Line is one candidate line isolated from a forum post.
type Line struct {
	Window    *thread.Window
	SourceURL string
	Text      string
	Page      int
	LineNo    int
	Seq       uint64
}

// LineResult is the typed outcome of parsing one line.
type LineResult struct {
	Entry     *model.ContractEntry
	Rejection *Rejection
	Partial   *Partial // set for near misses
	Line      Line
	Status    Status
}

// Options configures a parse run.
type Options struct {
	StartDate *time.Time // optional lower bound on sent date
	Workers   int        // number of parallel workers
	BatchSize int        // lines handed to a worker at a time
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Workers:   4,
		BatchSize: 256,
	}
}

// Parser runs the matcher, extractors, disambiguator and assembler over lines.
type Parser struct {
	assembler Assembler
	opts      Options
}

// New creates a parser. Non-positive worker or batch counts fall back to the defaults.
func New(opts Options) *Parser {
	defaults := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaults.BatchSize
	}
	return &Parser{
		assembler: Assembler{StartDate: opts.StartDate},
		opts:      opts,
	}
}

// ParseLine processes a single line. It never fails; every condition is a status.
func (p *Parser) ParseLine(line Line) LineResult {
	capture, ok := Match(line.Text)
	if !ok {
		res := LineResult{Line: line, Status: StatusNoMatch}
		if partial, near := Diagnose(line.Text); near {
			res.Partial = &partial
		}
		return res
	}

	entry, rej := p.assembler.Assemble(capture, Source{
		Window:    line.Window,
		SourceURL: line.SourceURL,
		RawText:   line.Text,
		Page:      line.Page,
		LineNo:    line.LineNo,
		Seq:       line.Seq,
	})
	if rej != nil {
		status := StatusRejected
		if rej.Reason.IsFilter() {
			status = StatusFiltered
		}
		return LineResult{Line: line, Status: status, Rejection: rej}
	}

	return LineResult{Line: line, Status: StatusMatched, Entry: &entry}
}

// ParseAll parses lines in parallel and returns results ordered by Seq.
// Lines are independent, so workers share nothing but the channels.
func (p *Parser) ParseAll(ctx context.Context, lines []Line) ([]LineResult, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	batches := make(chan []Line, len(lines)/p.opts.BatchSize+1)
	for start := 0; start < len(lines); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(lines))
		batches <- lines[start:end]
	}
	close(batches)

	resultsChan := make(chan LineResult, len(lines))

	var wg sync.WaitGroup
	wg.Add(p.opts.Workers)
	for i := 0; i < p.opts.Workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			p.worker(ctx, workerID, batches, resultsChan)
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]LineResult, 0, len(lines))
	for res := range resultsChan {
		results = append(results, res)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Line.Seq < results[j].Line.Seq
	})

	return results, nil
}

func (p *Parser) worker(ctx context.Context, workerID int, batches <-chan []Line, resultsChan chan<- LineResult) {
	for batch := range batches {
		select {
		case <-ctx.Done():
			return
		default:
		}

		slog.Debug("worker parsing batch",
			"worker_id", workerID,
			"batch_size", len(batch),
			"first_seq", batch[0].Seq)

		for _, line := range batch {
			resultsChan <- p.ParseLine(line)
		}
	}
}
