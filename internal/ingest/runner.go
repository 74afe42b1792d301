package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/merge"
	"github.com/Veraticus/rofr-ledger/internal/parser"
	"github.com/google/uuid"
)

// Progress receives the number of lines folded into the store.
// *progressbar.ProgressBar satisfies it.
type Progress interface {
	Add(n int) error
}

// Report summarizes one ingestion run.
type Report struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	RunID        string
	Diagnostics  []parser.Diagnostic
	Anomalies    []merge.Anomaly
	Summary      parser.Summary
	SkippedPosts int
}

// Runner parses lines in parallel and folds the results into a merge store in Seq order.
type Runner struct {
	Parser   *parser.Parser
	Progress Progress // optional
	Splitter Splitter
}

// NewRunner creates a runner whose parser and splitter share the same options.
func NewRunner(opts parser.Options) *Runner {
	return &Runner{
		Parser:   parser.New(opts),
		Splitter: Splitter{StartDate: opts.StartDate},
	}
}

// RunPosts splits posts into lines numbered after the store's highest Seq and runs them.
func (r *Runner) RunPosts(ctx context.Context, posts []Post, store *merge.Store) (*Report, error) {
	if store == nil {
		panic("ingest: nil merge store")
	}

	lines, skipped := r.Splitter.Split(posts, store.MaxSeq())
	report, err := r.Run(ctx, lines, store)
	if err != nil {
		return nil, err
	}
	report.SkippedPosts = skipped
	return report, nil
}

// Run parses lines and merges every matched entry into store.
func (r *Runner) Run(ctx context.Context, lines []parser.Line, store *merge.Store) (*Report, error) {
	if store == nil {
		panic("ingest: nil merge store")
	}
	if r.Parser == nil {
		panic("ingest: runner has no parser")
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	common.LogInfo("Starting ingestion run", common.Fields{
		"run_id": report.RunID,
		"lines":  len(lines),
	})

	results, err := r.Parser.ParseAll(ctx, lines)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lines: %w", err)
	}

	// single writer: the store sees entries in stream order
	for i, res := range results {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		report.Summary.Record(res)
		if d, ok := res.Diagnostic(); ok {
			report.Diagnostics = append(report.Diagnostics, d)
			common.LogDebug("line dropped", common.Fields{
				"seq":    d.Seq,
				"status": string(d.Status),
				"reason": string(d.Reason),
				"field":  d.Field,
				"source": d.SourceURL,
			})
		}

		if res.Entry != nil {
			recordOutcome(&report.Summary, store.Upsert(*res.Entry))
		}

		if r.Progress != nil {
			if err := r.Progress.Add(1); err != nil {
				common.LogDebug("failed to update progress", common.Fields{"error": err.Error()})
			}
		}
	}

	report.Anomalies = store.Anomalies()
	report.FinishedAt = time.Now().UTC()

	common.LogInfo("Ingestion run complete", common.Fields{
		"run_id":          report.RunID,
		"matched":         report.Summary.Matched,
		"inserted":        report.Summary.Inserted,
		"updated":         report.Summary.Updated,
		"dropped":         report.Summary.Dropped(),
		"merge_anomalies": report.Summary.MergeAnomalies,
		"duration":        report.FinishedAt.Sub(report.StartedAt).String(),
	})

	return report, nil
}

func recordOutcome(s *parser.Summary, out merge.Outcome) {
	s.MergeAnomalies += out.Anomalies
	switch out.Kind {
	case merge.Inserted:
		s.Inserted++
	case merge.Updated:
		s.Updated++
	case merge.Unchanged:
		s.Unchanged++
	case merge.Rejected:
		s.MergeRejected++
	}
}
