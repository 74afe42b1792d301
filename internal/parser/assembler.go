package parser

import (
	"errors"
	"strings"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/Veraticus/rofr-ledger/internal/thread"
	"github.com/shopspring/decimal"
)

// Source is the provenance of one candidate line.
type Source struct {
	Window    *thread.Window // thread coverage, when the title carried one
	SourceURL string
	RawText   string
	Page      int
	LineNo    int
	Seq       uint64 // position in the input stream; orders "first seen"
}

// Assembler turns captures into contract entries.
type Assembler struct {
	StartDate *time.Time // entries sent before this are filtered out
}

// Assemble builds a ContractEntry from a capture, or explains why it could not.
func (a Assembler) Assemble(c RawCapture, src Source) (model.ContractEntry, *Rejection) {
	if rej := checkRequired(c); rej != nil {
		return model.ContractEntry{}, rej
	}

	price, err := ParsePrice(c.Price)
	if err != nil {
		return model.ContractEntry{}, numberRejection("price_per_point", err)
	}
	points, err := ParsePoints(c.Points)
	if err != nil {
		return model.ContractEntry{}, numberRejection("points", err)
	}

	var total decimal.NullDecimal
	if c.TotalCost != "" {
		t, totalErr := ParsePrice(c.TotalCost)
		if totalErr != nil {
			return model.ContractEntry{}, numberRejection("total_cost", totalErr)
		}
		total = decimal.NewNullDecimal(t)
	}

	resort, recognized := NormalizeResort(c.Resort)
	if resort == "" {
		return model.ContractEntry{}, &Rejection{Reason: ReasonMissingRequiredField, Field: "resort_code", Detail: "empty after normalization"}
	}

	dates, err := ResolveDates(c.SentDate, c.ResultDate)
	if err != nil {
		return model.ContractEntry{}, &Rejection{Reason: ReasonUnparseableDate, Field: dateField(err), Detail: err.Error()}
	}

	if a.StartDate != nil && dates.Sent.Before(*a.StartDate) {
		return model.ContractEntry{}, &Rejection{
			Reason: ReasonBeforeStartDate,
			Field:  "sent_date",
			Detail: dates.Sent.Format(model.DateLayout) + " < " + a.StartDate.Format(model.DateLayout),
		}
	}
	if src.Window != nil && !src.Window.Admits(dates.Sent) && (dates.Result == nil || !src.Window.Admits(*dates.Result)) {
		return model.ContractEntry{}, &Rejection{
			Reason: ReasonOutsideThreadWindow,
			Field:  "sent_date",
			Detail: "neither sent nor result date inside thread window",
		}
	}

	result := ParseOutcome(c.Outcome)
	if dates.Result == nil {
		// an outcome without a decision date cannot satisfy the record invariants
		result = model.ResultPending
	}

	return model.ContractEntry{
		Username:         c.Username,
		PricePerPoint:    price,
		TotalCost:        total,
		Points:           points,
		ResortCode:       resort,
		ResortRecognized: recognized,
		UseYear:          ParseUseYear(c.UseYear),
		PointsDetails:    c.PointsDetails,
		SentDate:         dates.Sent,
		Result:           result,
		ResultDate:       resultDateFor(result, dates.Result),
		DateInconsistent: result.IsTerminal() && dates.Inconsistent,
		SourceURL:        src.SourceURL,
		Page:             src.Page,
		RawText:          src.RawText,
		Seq:              src.Seq,
	}, nil
}

func checkRequired(c RawCapture) *Rejection {
	required := []struct {
		name  string
		value string
	}{
		{"username", c.Username},
		{"price_per_point", c.Price},
		{"points", c.Points},
		{"resort_code", c.Resort},
		{"sent_date", c.SentDate},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &Rejection{Reason: ReasonMissingRequiredField, Field: f.name, Detail: "not captured"}
		}
	}
	return nil
}

func numberRejection(field string, err error) *Rejection {
	reason := ReasonUnparseableNumber
	if errors.Is(err, ErrEmptyField) {
		reason = ReasonMissingRequiredField
	}
	return &Rejection{Reason: reason, Field: field, Detail: err.Error()}
}

func dateField(err error) string {
	if strings.HasPrefix(err.Error(), "result date") {
		return "result_date"
	}
	return "sent_date"
}

func resultDateFor(r model.Result, d *time.Time) *time.Time {
	if !r.IsTerminal() {
		return nil
	}
	return d
}
