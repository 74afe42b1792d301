package parser

import "fmt"

// Reason classifies why a matched line did not become a record.
type Reason string

// Rejection reasons.
const (
	ReasonMissingRequiredField Reason = "missing_required_field"
	ReasonUnparseableDate      Reason = "unparseable_date"
	ReasonUnparseableNumber    Reason = "unparseable_number"
	ReasonBeforeStartDate      Reason = "before_start_date"
	ReasonOutsideThreadWindow  Reason = "outside_thread_window"
)

// IsFilter reports whether the reason is a deliberate filter rather than a data defect.
func (r Reason) IsFilter() bool {
	return r == ReasonBeforeStartDate || r == ReasonOutsideThreadWindow
}

// Rejection explains why an assembled line was dropped.
type Rejection struct {
	Reason Reason
	Field  string
	Detail string
}

func (r *Rejection) Error() string {
	if r.Field != "" {
		return fmt.Sprintf("%s (%s): %s", r.Reason, r.Field, r.Detail)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// Status is the per-line outcome of the parse pipeline.
type Status string

// Line statuses.
const (
	StatusMatched  Status = "matched"
	StatusNoMatch  Status = "no_match"
	StatusRejected Status = "rejected"
	StatusFiltered Status = "filtered"
)

// Summary counts per-run outcomes. It is derived entirely from line results and merge outcomes.
type Summary struct {
	Lines                    int `json:"lines"`
	Matched                  int `json:"matched"`
	NoMatch                  int `json:"no_match"`
	NearMiss                 int `json:"near_miss"`
	DroppedMissingField      int `json:"dropped_missing_field"`
	DroppedUnparseableDate   int `json:"dropped_unparseable_date"`
	DroppedUnparseableNumber int `json:"dropped_unparseable_number"`
	Filtered                 int `json:"filtered"`
	FlaggedInconsistent      int `json:"flagged_inconsistent"`
	MergeAnomalies           int `json:"merge_anomalies"`
	Inserted                 int `json:"inserted"`
	Updated                  int `json:"updated"`
	Unchanged                int `json:"unchanged"`
	MergeRejected            int `json:"merge_rejected"`
}

// Record folds one line result into the summary.
func (s *Summary) Record(r LineResult) {
	s.Lines++
	switch r.Status {
	case StatusMatched:
		s.Matched++
		if r.Entry != nil && r.Entry.DateInconsistent {
			s.FlaggedInconsistent++
		}
	case StatusNoMatch:
		s.NoMatch++
		if r.Partial != nil {
			s.NearMiss++
		}
	case StatusFiltered:
		s.Filtered++
	case StatusRejected:
		switch r.Rejection.Reason {
		case ReasonMissingRequiredField:
			s.DroppedMissingField++
		case ReasonUnparseableDate:
			s.DroppedUnparseableDate++
		case ReasonUnparseableNumber:
			s.DroppedUnparseableNumber++
		}
	}
}

// Dropped is the number of matched lines that did not produce a record because of bad data.
func (s *Summary) Dropped() int {
	return s.DroppedMissingField + s.DroppedUnparseableDate + s.DroppedUnparseableNumber
}

// Diagnostic is the low-severity record kept for a line that was dropped or nearly matched.
type Diagnostic struct {
	SourceURL string `json:"source_url"`
	Status    Status `json:"status"`
	Reason    Reason `json:"reason,omitempty"`
	Field     string `json:"field,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Text      string `json:"text"`
	Page      int    `json:"page"`
	LineNo    int    `json:"line_no"`
	Seq       uint64 `json:"seq"`
}

// Diagnostic returns the diagnostic for a result worth inspecting later: rejected and
// filtered lines, and near misses. Plain chatter and clean matches produce none.
func (r LineResult) Diagnostic() (Diagnostic, bool) {
	d := Diagnostic{
		SourceURL: r.Line.SourceURL,
		Status:    r.Status,
		Text:      r.Line.Text,
		Page:      r.Line.Page,
		LineNo:    r.Line.LineNo,
		Seq:       r.Line.Seq,
	}

	switch {
	case r.Rejection != nil:
		d.Reason = r.Rejection.Reason
		d.Field = r.Rejection.Field
		d.Detail = r.Rejection.Detail
	case r.Partial != nil:
		d.Field = r.Partial.Failed
		d.Detail = "matched through " + stageOrNone(r.Partial.Reached)
	default:
		return Diagnostic{}, false
	}

	return d, true
}

func stageOrNone(stage string) string {
	if stage == "" {
		return "nothing"
	}
	return stage
}
