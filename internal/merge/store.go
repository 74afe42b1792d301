// Package merge keeps one logical contract record per dedup key.
package merge

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/model"
)

// Kind is the category of an upsert outcome.
type Kind string

// Upsert outcome kinds.
const (
	Inserted  Kind = "inserted"
	Updated   Kind = "updated"
	Unchanged Kind = "unchanged"
	Rejected  Kind = "rejected"
)

// Rejection reasons.
const (
	ReasonMissingUsername    = "missing_username"
	ReasonMissingSentDate    = "missing_sent_date"
	ReasonNonPositivePrice   = "non_positive_price"
	ReasonNonPositivePoints  = "non_positive_points"
	ReasonInvalidResult      = "invalid_result"
	ReasonResultDateMismatch = "result_date_mismatch"
	ReasonTerminalConflict   = "terminal_conflict"
)

// Outcome reports what an upsert did to the store.
type Outcome struct {
	Key       model.DedupKey
	Kind      Kind
	Reason    string // set when Kind is Rejected
	Anomalies int    // merge anomalies introduced by this upsert
}

func (o Outcome) String() string {
	if o.Kind == Rejected {
		return fmt.Sprintf("rejected(%s)", o.Reason)
	}
	return string(o.Kind)
}

// Record is the persisted form of a merged contract: the earliest entry plus every observation.
type Record struct {
	Entry        model.ContractEntry
	Observations []model.Observation
}

type record struct {
	base         model.ContractEntry
	merged       model.ContractEntry
	observations []model.Observation // sorted by Seq, unique Seq
	anomalies    []Anomaly
	revision     uint64
}

// Store holds merged contracts for one ingestion run. The zero value is not usable; call NewStore.
type Store struct {
	records  map[model.DedupKey]*record
	mu       sync.RWMutex
	revision uint64
	maxSeq   uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[model.DedupKey]*record)}
}

// Upsert folds one entry into the store.
//
// An entry with Seq 0 is assigned the next sequence number. Re-upserting an entry whose Seq has
// already been observed for its key is a no-op.
func (s *Store) Upsert(entry model.ContractEntry) Outcome {
	if reason := validate(entry); reason != "" {
		return Outcome{Key: entry.DedupKey(), Kind: Rejected, Reason: reason}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Seq == 0 {
		entry.Seq = s.maxSeq + 1
	}
	if entry.Seq > s.maxSeq {
		s.maxSeq = entry.Seq
	}

	key := entry.DedupKey()
	rec, exists := s.records[key]
	if !exists {
		rec = &record{base: entry, observations: []model.Observation{model.ObservationOf(entry)}}
		rec.merged, rec.anomalies = fold(key, rec.base, rec.observations)
		s.revision++
		rec.revision = s.revision
		s.records[key] = rec
		s.logAnomalies(rec.anomalies)
		return Outcome{Key: key, Kind: Inserted, Anomalies: len(rec.anomalies)}
	}

	idx := sort.Search(len(rec.observations), func(i int) bool {
		return rec.observations[i].Seq >= entry.Seq
	})
	if idx < len(rec.observations) && rec.observations[idx].Seq == entry.Seq {
		return Outcome{Key: key, Kind: Unchanged}
	}

	rec.observations = append(rec.observations, model.Observation{})
	copy(rec.observations[idx+1:], rec.observations[idx:])
	rec.observations[idx] = model.ObservationOf(entry)
	if entry.Seq < rec.base.Seq {
		rec.base = entry
	}

	previous := rec.merged
	known := len(rec.anomalies)
	rec.merged, rec.anomalies = fold(key, rec.base, rec.observations)

	added := len(rec.anomalies) - known
	if added > 0 {
		s.logAnomalies(rec.anomalies[len(rec.anomalies)-added:])
	}

	// a new observation changes the persisted form even when the merged record stays the same
	s.revision++
	rec.revision = s.revision

	if sameEntry(previous, rec.merged) {
		if added > 0 {
			return Outcome{Key: key, Kind: Rejected, Reason: ReasonTerminalConflict, Anomalies: added}
		}
		return Outcome{Key: key, Kind: Unchanged}
	}
	return Outcome{Key: key, Kind: Updated, Anomalies: max(added, 0)}
}

func validate(e model.ContractEntry) string {
	switch {
	case e.NormalizedUsername() == "":
		return ReasonMissingUsername
	case e.SentDate.IsZero():
		return ReasonMissingSentDate
	case !e.PricePerPoint.IsPositive():
		return ReasonNonPositivePrice
	case e.Points <= 0:
		return ReasonNonPositivePoints
	case !e.Result.IsValid():
		return ReasonInvalidResult
	case e.Result.IsTerminal() != e.HasResultDate():
		return ReasonResultDateMismatch
	}
	return ""
}

// Get returns the merged record for key.
func (s *Store) Get(key model.DedupKey) (model.ContractEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return model.ContractEntry{}, false
	}
	return rec.merged, true
}

// Len returns the number of logical records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Revision returns the store's change counter. It increases whenever a record is inserted or
// gains an observation, and once per record on Restore.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// MaxSeq returns the highest sequence number observed.
func (s *Store) MaxSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSeq
}

// Entries returns the merged record set ordered by sent date, then dedup key.
func (s *Store) Entries() []model.ContractEntry {
	return s.Since(0)
}

// Since returns the records inserted or given a new observation after the given revision.
func (s *Store) Since(revision uint64) []model.ContractEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type keyed struct {
		key   model.DedupKey
		entry model.ContractEntry
	}
	selected := make([]keyed, 0, len(s.records))
	for key, rec := range s.records {
		if rec.revision > revision {
			selected = append(selected, keyed{key: key, entry: rec.merged})
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		a, b := selected[i].entry, selected[j].entry
		if !a.SentDate.Equal(b.SentDate) {
			return a.SentDate.Before(b.SentDate)
		}
		return selected[i].key < selected[j].key
	})

	entries := make([]model.ContractEntry, len(selected))
	for i, k := range selected {
		entries[i] = k.entry
	}
	return entries
}

// Records returns the persisted form of every record, ordered by dedup key.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.sortedKeys()
	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		rec := s.records[key]
		records = append(records, Record{
			Entry:        rec.base,
			Observations: append([]model.Observation(nil), rec.observations...),
		})
	}
	return records
}

// Restore loads previously persisted records into an empty store. Each restored record gets its
// own revision, so Entries returns them and Since(Revision()) is empty afterwards.
func (s *Store) Restore(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) > 0 {
		return fmt.Errorf("restore into non-empty store: %d records present", len(s.records))
	}

	for _, r := range records {
		if reason := validate(r.Entry); reason != "" {
			return fmt.Errorf("restore %s: %s", r.Entry.DedupKey(), reason)
		}

		observations := append([]model.Observation(nil), r.Observations...)
		if len(observations) == 0 {
			observations = []model.Observation{model.ObservationOf(r.Entry)}
		}
		sort.Slice(observations, func(i, j int) bool { return observations[i].Seq < observations[j].Seq })

		key := r.Entry.DedupKey()
		rec := &record{base: r.Entry, observations: observations}
		rec.merged, rec.anomalies = fold(key, rec.base, rec.observations)
		s.revision++
		rec.revision = s.revision
		s.records[key] = rec

		for _, o := range observations {
			if o.Seq > s.maxSeq {
				s.maxSeq = o.Seq
			}
		}
	}

	return nil
}

// Anomalies returns every merge anomaly currently explained by the stored observations.
func (s *Store) Anomalies() []Anomaly {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Anomaly
	for _, key := range s.sortedKeys() {
		all = append(all, s.records[key].anomalies...)
	}
	return all
}

func (s *Store) sortedKeys() []model.DedupKey {
	keys := make([]model.DedupKey, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (s *Store) logAnomalies(anomalies []Anomaly) {
	for _, a := range anomalies {
		common.LogWarn("merge anomaly", common.Fields{
			"key":       string(a.Key),
			"existing":  string(a.Existing),
			"attempted": string(a.Attempted),
			"seq":       a.Seq,
			"source":    a.SourceURL,
		})
	}
}
