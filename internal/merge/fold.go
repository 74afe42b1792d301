package merge

import (
	"time"

	"github.com/Veraticus/rofr-ledger/internal/model"
)

// Anomaly is an observation that tried to move a record out of a terminal result.
type Anomaly struct {
	Key       model.DedupKey
	Existing  model.Result
	Attempted model.Result
	SourceURL string
	RawText   string
	Seq       uint64
}

// fold derives the merged record from its earliest entry and its observations in Seq order.
// Immutable fields come from base; the result follows the pending -> passed|taken state machine.
func fold(key model.DedupKey, base model.ContractEntry, observations []model.Observation) (model.ContractEntry, []Anomaly) {
	merged := base
	merged.Result = model.ResultPending
	merged.ResultDate = nil

	var anomalies []Anomaly
	for _, o := range observations {
		switch {
		case o.Result == model.ResultPending:
			// no information; a pending repost never regresses a decision
		case merged.Result == model.ResultPending:
			merged.Result = o.Result
			merged.ResultDate = o.ResultDate
		case merged.Result == o.Result:
			if !sameDate(merged.ResultDate, o.ResultDate) {
				merged.ResultDate = o.ResultDate
			}
		default:
			anomalies = append(anomalies, Anomaly{
				Key:       key,
				Existing:  merged.Result,
				Attempted: o.Result,
				SourceURL: o.SourceURL,
				RawText:   o.RawText,
				Seq:       o.Seq,
			})
		}
	}

	merged.DateInconsistent = merged.ResultDate != nil && merged.ResultDate.Before(merged.SentDate)

	return merged, anomalies
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameEntry(a, b model.ContractEntry) bool {
	return a.Username == b.Username &&
		a.PricePerPoint.Equal(b.PricePerPoint) &&
		a.TotalCost.Valid == b.TotalCost.Valid &&
		a.TotalCost.Decimal.Equal(b.TotalCost.Decimal) &&
		a.Points == b.Points &&
		a.ResortCode == b.ResortCode &&
		a.ResortRecognized == b.ResortRecognized &&
		a.UseYear == b.UseYear &&
		a.PointsDetails == b.PointsDetails &&
		a.SentDate.Equal(b.SentDate) &&
		a.Result == b.Result &&
		sameDate(a.ResultDate, b.ResultDate) &&
		a.DateInconsistent == b.DateInconsistent &&
		a.SourceURL == b.SourceURL &&
		a.RawText == b.RawText &&
		a.Page == b.Page &&
		a.Seq == b.Seq
}
