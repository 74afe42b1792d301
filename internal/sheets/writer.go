package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/export"
	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Tab titles written by the publisher.
const (
	ContractsTab = "Contracts"
	ResortsTab   = "Resorts"
)

// Publisher pushes a merged contract set somewhere people can look at it.
type Publisher interface {
	Publish(ctx context.Context, entries []model.ContractEntry) error
}

// Writer implements Publisher for Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets publisher.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: service,
		logger:  logger,
	}, nil
}

// Publish replaces the contents of the Contracts and Resorts tabs.
func (w *Writer) Publish(ctx context.Context, entries []model.ContractEntry) error {
	w.logger.Info("starting sheets publish", "contracts", len(entries))

	retryOpts := common.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var tabs map[string]int64
	err := common.WithRetry(ctx, func() error {
		var getErr error
		tabs, getErr = w.getOrCreateSpreadsheet(ctx)
		return classifyAPIError(getErr)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	contracts := prepareContractValues(entries)
	resorts := prepareResortValues(entries)

	for _, tab := range []struct {
		title  string
		values [][]any
	}{
		{ContractsTab, contracts},
		{ResortsTab, resorts},
	} {
		err = common.WithRetry(ctx, func() error {
			if clearErr := w.clearTab(ctx, tab.title); clearErr != nil {
				return classifyAPIError(clearErr)
			}
			return classifyAPIError(w.writeData(ctx, tab.title, tab.values))
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write %s tab: %w", tab.title, err)
		}
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return classifyAPIError(w.applyFormatting(ctx, tabs[ContractsTab], len(contracts)))
		}, retryOpts)
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("sheets publish completed",
		"spreadsheet_id", w.config.SpreadsheetID,
		"rows_written", len(contracts)+len(resorts))

	return nil
}

// classifyAPIError marks quota errors as rate limits and client errors as
// permanent so WithRetry only retries what can succeed later.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return &common.RetryableError{Err: err, Retryable: false}
	default:
		return err
	}
}

func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthClientConfig(config.ClientID, config.ClientSecret, "")
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = client.TokenSource(ctx, token)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet resolves the target spreadsheet and returns the sheet id of each tab,
// adding tabs that are missing.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		spreadsheet := &sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
			Sheets: []*sheets.Sheet{
				{Properties: &sheets.SheetProperties{Title: ContractsTab}},
				{Properties: &sheets.SheetProperties{Title: ResortsTab}},
			},
		}

		created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}

		w.logger.Info("created new spreadsheet",
			"id", created.SpreadsheetId,
			"url", created.SpreadsheetUrl)

		w.config.SpreadsheetID = created.SpreadsheetId
		return sheetIDs(created), nil
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}

	tabs := sheetIDs(existing)
	var requests []*sheets.Request
	for _, title := range []string{ContractsTab, ResortsTab} {
		if _, ok := tabs[title]; !ok {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
			})
		}
	}
	if len(requests) == 0 {
		return tabs, nil
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to add tabs: %w", err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			tabs[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
		}
	}
	return tabs, nil
}

func sheetIDs(s *sheets.Spreadsheet) map[string]int64 {
	ids := make(map[string]int64, len(s.Sheets))
	for _, sh := range s.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return ids
}

func (w *Writer) clearTab(ctx context.Context, title string) error {
	_, err := w.service.Spreadsheets.Values.Clear(w.config.SpreadsheetID, title+"!A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// contractHeader labels the columns of the Contracts tab.
var contractHeader = []any{
	"Sent", "Username", "Resort", "Points", "$/pt", "Total", "Use Year",
	"Result", "Result Date", "Days", "Points Details", "Thread",
}

// prepareContractValues lays out one row per contract, newest submission first.
func prepareContractValues(entries []model.ContractEntry) [][]any {
	sorted := make([]model.ContractEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].SentDate.Equal(sorted[j].SentDate) {
			return sorted[i].SentDate.After(sorted[j].SentDate)
		}
		return sorted[i].DedupKey() < sorted[j].DedupKey()
	})

	values := make([][]any, 0, len(sorted)+1)
	values = append(values, contractHeader)
	for i := range sorted {
		c := &sorted[i]
		row := export.RowOf(*c)

		var total any = ""
		if c.TotalCost.Valid {
			total = c.TotalCost.Decimal.InexactFloat64()
		}
		var days any = ""
		if d := c.DecisionDays(); d >= 0 {
			days = d
		}

		values = append(values, []any{
			row.SentDate,
			row.Username,
			row.Resort,
			row.Points,
			c.PricePerPoint.InexactFloat64(),
			total,
			row.UseYear,
			row.Result,
			row.ResultDate,
			days,
			row.PointsDetails,
			row.ThreadURL,
		})
	}
	return values
}

type resortStats struct {
	priceSum  decimal.Decimal
	code      string
	contracts int
	taken     int
	passed    int
	pending   int
	daysSum   int
	decided   int
}

// prepareResortValues aggregates contracts per resort, ordered by resort code.
func prepareResortValues(entries []model.ContractEntry) [][]any {
	byResort := make(map[string]*resortStats)
	for i := range entries {
		c := &entries[i]
		s, ok := byResort[c.ResortCode]
		if !ok {
			s = &resortStats{code: c.ResortCode, priceSum: decimal.Zero}
			byResort[c.ResortCode] = s
		}
		s.contracts++
		s.priceSum = s.priceSum.Add(c.PricePerPoint)
		switch c.Result {
		case model.ResultTaken:
			s.taken++
		case model.ResultPassed:
			s.passed++
		default:
			s.pending++
		}
		if d := c.DecisionDays(); d >= 0 {
			s.daysSum += d
			s.decided++
		}
	}

	codes := make([]string, 0, len(byResort))
	for code := range byResort {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	values := make([][]any, 0, len(codes)+1)
	values = append(values, []any{"Code", "Resort", "Contracts", "Passed", "Taken", "Pending", "Avg $/pt", "Avg Days"})
	for _, code := range codes {
		s := byResort[code]
		avg := s.priceSum.Div(decimal.NewFromInt(int64(s.contracts))).Round(2)
		var days any = ""
		if s.decided > 0 {
			days = s.daysSum / s.decided
		}
		values = append(values, []any{
			code,
			model.ResortName(code),
			s.contracts,
			s.passed,
			s.taken,
			s.pending,
			avg.InexactFloat64(),
			days,
		})
	}
	return values
}

// writeData writes values to a tab in batches.
func (w *Writer) writeData(ctx context.Context, title string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		rangeStr := fmt.Sprintf("%s!A%d", title, i+1)
		_, err := w.service.Spreadsheets.Values.Update(w.config.SpreadsheetID, rangeStr, &sheets.ValueRange{Values: batch}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", title, "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting styles the Contracts tab: bold header, currency columns, frozen header.
func (w *Writer) applyFormatting(ctx context.Context, sheetID int64, totalRows int) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(len(contractHeader)),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    1,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 4,
					EndColumnIndex:   6,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "CURRENCY",
							Pattern: "$#,##0.00",
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(len(contractHeader)),
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: sheetID,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	_, err := w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	return err
}
