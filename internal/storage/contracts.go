package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/merge"
	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// ContractFilter narrows ListContracts. Zero values mean no constraint.
type ContractFilter struct {
	From   *time.Time // sent on or after
	To     *time.Time // sent on or before
	Resort string
	Result model.Result
	Limit  int
}

const contractColumns = `dedup_key, username, price_per_point, total_cost, points, resort_code, resort_recognized,
	use_year, points_details, sent_date, result, result_date, date_inconsistent, source_url, page, raw_text, first_seq`

// saveStoreTx writes the records of store that changed after the given revision, together with
// all of their observations. Pass 0 to write everything.
func saveStoreTx(ctx context.Context, tx *sql.Tx, store *merge.Store, since uint64) (int, error) {
	changed := store.Since(since)
	if len(changed) == 0 {
		return 0, nil
	}

	observations := make(map[model.DedupKey][]model.Observation, len(changed))
	for _, r := range store.Records() {
		observations[r.Entry.DedupKey()] = r.Observations
	}

	contractStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO contracts (`+contractColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dedup_key) DO UPDATE SET
			username = excluded.username,
			price_per_point = excluded.price_per_point,
			total_cost = excluded.total_cost,
			points = excluded.points,
			resort_code = excluded.resort_code,
			resort_recognized = excluded.resort_recognized,
			use_year = excluded.use_year,
			points_details = excluded.points_details,
			result = excluded.result,
			result_date = excluded.result_date,
			date_inconsistent = excluded.date_inconsistent,
			source_url = excluded.source_url,
			page = excluded.page,
			raw_text = excluded.raw_text,
			first_seq = excluded.first_seq,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare contract statement: %w", err)
	}
	defer func() { _ = contractStmt.Close() }()

	obsStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO observations (dedup_key, seq, result, result_date, source_url, raw_text)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare observation statement: %w", err)
	}
	defer func() { _ = obsStmt.Close() }()

	for i := range changed {
		c := &changed[i]
		if err := validateContract(c); err != nil {
			return 0, err
		}

		key := c.DedupKey()
		if _, err := contractStmt.ExecContext(ctx,
			string(key),
			c.Username,
			c.PricePerPoint,
			c.TotalCost,
			c.Points,
			c.ResortCode,
			c.ResortRecognized,
			c.UseYear,
			c.PointsDetails,
			formatDate(c.SentDate),
			string(c.Result),
			formatOptionalDate(c.ResultDate),
			c.DateInconsistent,
			c.SourceURL,
			c.Page,
			c.RawText,
			int64(c.Seq),
		); err != nil {
			return 0, fmt.Errorf("failed to save contract %s: %w", key, err)
		}

		for _, o := range observations[key] {
			if _, err := obsStmt.ExecContext(ctx,
				string(key),
				int64(o.Seq),
				string(o.Result),
				formatOptionalDate(o.ResultDate),
				o.SourceURL,
				o.RawText,
			); err != nil {
				return 0, fmt.Errorf("failed to save observation %s/%d: %w", key, o.Seq, err)
			}
		}
	}

	return len(changed), nil
}

// LoadStore rebuilds a merge store from every persisted contract and observation.
func (s *SQLiteStorage) LoadStore(ctx context.Context) (*merge.Store, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	entries, err := s.ListContracts(ctx, ContractFilter{})
	if err != nil {
		return nil, err
	}

	observations, err := s.loadObservations(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]merge.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, merge.Record{
			Entry:        e,
			Observations: observations[e.DedupKey()],
		})
	}

	store := merge.NewStore()
	if err := store.Restore(records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContract, err)
	}

	return store, nil
}

func (s *SQLiteStorage) loadObservations(ctx context.Context) (map[model.DedupKey][]model.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dedup_key, seq, result, result_date, source_url, raw_text
		FROM observations
		ORDER BY dedup_key, seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[model.DedupKey][]model.Observation)
	for rows.Next() {
		var (
			key        string
			seq        int64
			outcome    string
			resultDate sql.NullString
			o          model.Observation
		)
		if err := rows.Scan(&key, &seq, &outcome, &resultDate, &o.SourceURL, &o.RawText); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.Seq = uint64(seq)
		o.Result = model.Result(outcome)
		if o.ResultDate, err = parseOptionalDate(resultDate); err != nil {
			return nil, err
		}
		result[model.DedupKey(key)] = append(result[model.DedupKey(key)], o)
	}

	return result, rows.Err()
}

// ListContracts returns stored contracts ordered by sent date.
func (s *SQLiteStorage) ListContracts(ctx context.Context, filter ContractFilter) ([]model.ContractEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	if filter.Result != "" && !filter.Result.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResult, filter.Result)
	}

	var (
		where []string
		args  []any
	)
	if filter.From != nil {
		where = append(where, "sent_date >= ?")
		args = append(args, formatDate(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "sent_date <= ?")
		args = append(args, formatDate(*filter.To))
	}
	if filter.Resort != "" {
		where = append(where, "resort_code = ?")
		args = append(args, strings.ToUpper(filter.Resort))
	}
	if filter.Result != "" {
		where = append(where, "result = ?")
		args = append(args, string(filter.Result))
	}

	query := "SELECT " + contractColumns + " FROM contracts"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sent_date, dedup_key"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contracts []model.ContractEntry
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}

	return contracts, rows.Err()
}

// CountContracts returns the number of stored contracts.
func (s *SQLiteStorage) CountContracts(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contracts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contracts: %w", err)
	}
	return count, nil
}

func scanContract(rows *sql.Rows) (model.ContractEntry, error) {
	var (
		c          model.ContractEntry
		key        string
		sentDate   string
		result     string
		resultDate sql.NullString
		totalCost  decimal.NullDecimal
		firstSeq   int64
	)

	if err := rows.Scan(
		&key,
		&c.Username,
		&c.PricePerPoint,
		&totalCost,
		&c.Points,
		&c.ResortCode,
		&c.ResortRecognized,
		&c.UseYear,
		&c.PointsDetails,
		&sentDate,
		&result,
		&resultDate,
		&c.DateInconsistent,
		&c.SourceURL,
		&c.Page,
		&c.RawText,
		&firstSeq,
	); err != nil {
		return model.ContractEntry{}, fmt.Errorf("failed to scan contract: %w", err)
	}

	sent, err := time.Parse(model.DateLayout, sentDate)
	if err != nil {
		return model.ContractEntry{}, fmt.Errorf("%w: contract %s sent date %q", ErrInvalidContract, key, sentDate)
	}

	c.SentDate = sent
	c.TotalCost = totalCost
	c.Result = model.Result(result)
	c.Seq = uint64(firstSeq)
	if c.ResultDate, err = parseOptionalDate(resultDate); err != nil {
		return model.ContractEntry{}, err
	}

	return c, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(model.DateLayout)
}

func formatOptionalDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

func parseOptionalDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(model.DateLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("%w: result date %q", ErrInvalidContract, s.String)
	}
	return &t, nil
}
