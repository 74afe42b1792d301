package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-date format for sent and result dates.
const DateLayout = "2006-01-02"

// Result is the outcome of a ROFR review.
type Result string

// Result constants.
const (
	// ResultPending means no decision has been posted yet.
	ResultPending Result = "pending"
	// ResultPassed means Disney waived its right and the sale proceeds.
	ResultPassed Result = "passed"
	// ResultTaken means Disney exercised its right and bought the contract back.
	ResultTaken Result = "taken"
)

// IsTerminal reports whether no further transition is allowed out of r.
func (r Result) IsTerminal() bool {
	return r == ResultPassed || r == ResultTaken
}

// IsValid reports whether r is one of the known results.
func (r Result) IsValid() bool {
	switch r {
	case ResultPending, ResultPassed, ResultTaken:
		return true
	}
	return false
}

// DedupKey identifies one logical contract submission across reposts.
type DedupKey string

// ContractEntry is a single ROFR contract-sale announcement parsed from a forum line.
type ContractEntry struct {
	SentDate         time.Time           `json:"sent_date"`
	ResultDate       *time.Time          `json:"result_date,omitempty"`
	PricePerPoint    decimal.Decimal     `json:"price_per_point"`
	TotalCost        decimal.NullDecimal `json:"total_cost"`
	Username         string              `json:"username"`
	ResortCode       string              `json:"resort"`
	UseYear          string              `json:"use_year,omitempty"` // empty when absent
	PointsDetails    string              `json:"points_details,omitempty"`
	Result           Result              `json:"result"`
	SourceURL        string              `json:"thread_url"`
	RawText          string              `json:"raw_entry"`
	Points           int                 `json:"points"`
	Page             int                 `json:"page,omitempty"`
	Seq              uint64              `json:"-"`
	ResortRecognized bool                `json:"resort_recognized"`
	DateInconsistent bool                `json:"date_inconsistent,omitempty"`
}

// NormalizedUsername is the case-folded username used for identity.
func (c *ContractEntry) NormalizedUsername() string {
	return strings.ToLower(strings.TrimSpace(c.Username))
}

// DedupKey hashes the identity tuple (username, resort, points, sent date).
// Raw text is deliberately excluded so quoted reposts collapse onto one record.
func (c *ContractEntry) DedupKey() DedupKey {
	data := fmt.Sprintf("%s|%s|%d|%s",
		c.NormalizedUsername(),
		c.ResortCode,
		c.Points,
		c.SentDate.Format(DateLayout))
	hash := sha256.Sum256([]byte(data))
	return DedupKey(fmt.Sprintf("%x", hash))
}

// HasResultDate reports whether a decision date is present.
func (c *ContractEntry) HasResultDate() bool {
	return c.ResultDate != nil && !c.ResultDate.IsZero()
}

// DecisionDays is the number of days between submission and decision, or -1 when pending.
func (c *ContractEntry) DecisionDays() int {
	if !c.HasResultDate() {
		return -1
	}
	return int(c.ResultDate.Sub(c.SentDate).Hours() / 24)
}

// Observation is one sighting of a contract's outcome at a position in the input stream.
type Observation struct {
	ResultDate *time.Time
	Result     Result
	SourceURL  string
	RawText    string
	Seq        uint64
}

// ObservationOf captures the outcome-bearing part of an entry.
func ObservationOf(c ContractEntry) Observation {
	return Observation{
		Seq:        c.Seq,
		Result:     c.Result,
		ResultDate: c.ResultDate,
		SourceURL:  c.SourceURL,
		RawText:    c.RawText,
	}
}
