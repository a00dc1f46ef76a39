// Package aggregate reduces validated records into one exposure summary per
// contact and decides how new summaries combine with stored ones.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dharsanguruparan/StreetPass/internal/model"
)

// DefaultWindow is the largest gap between two sightings that still counts
// as one continuous encounter (exclusive).
const DefaultWindow = 600 * time.Second

// Aggregator groups records by contact and accumulates exposure.
type Aggregator struct {
	window int64
}

// New returns an Aggregator using window as the encounter gap. A non-positive
// window falls back to DefaultWindow; fractions of a second round up, since
// timestamps are whole seconds.
func New(window time.Duration) *Aggregator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Aggregator{window: int64((window + time.Second - 1) / time.Second)}
}

// Summarize builds one summary per contact ID, in the order contact IDs first
// appear in records. Each summary is the earliest record of its group with
// ContactTime set to the sum of consecutive positive gaps shorter than the
// window.
func (a *Aggregator) Summarize(records []model.ValidatedRecord) []model.ContactSummary {
	var (
		order  []string
		groups = map[string][]model.ValidatedRecord{}
	)
	for _, rec := range records {
		if _, seen := groups[rec.ContactID]; !seen {
			order = append(order, rec.ContactID)
		}
		groups[rec.ContactID] = append(groups[rec.ContactID], rec)
	}

	out := make([]model.ContactSummary, 0, len(order))
	for _, id := range order {
		group := groups[id]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp < group[j].Timestamp
		})
		var contactTime int64
		for i := 1; i < len(group); i++ {
			delta := group[i].Timestamp - group[i-1].Timestamp
			if delta > 0 && delta < a.window {
				contactTime += delta
			}
		}
		out = append(out, model.ContactSummary{Record: group[0], ContactTime: contactTime})
	}
	return out
}

// Aggregate summarizes records and appends prior unchanged, without
// deduplication. It is Merge with PolicyAppend.
func (a *Aggregator) Aggregate(records []model.ValidatedRecord, prior []model.ContactSummary) []model.ContactSummary {
	return Merge(PolicyAppend, a.Summarize(records), prior)
}

// MergePolicy decides how a batch's summaries combine with the summaries
// already stored for the uploader.
type MergePolicy string

const (
	// PolicyAppend keeps every summary ever produced, fresh ones first.
	PolicyAppend MergePolicy = "append"
	// PolicyDedup keeps one summary per contact ID, the latest timestamp
	// winning and ties going to the fresh batch.
	PolicyDedup MergePolicy = "dedup"
	// PolicyReplace drops what was stored and keeps the fresh batch only.
	PolicyReplace MergePolicy = "replace"
)

// ParsePolicy accepts the policy names case-insensitively.
func ParsePolicy(s string) (MergePolicy, error) {
	switch p := MergePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAppend, PolicyDedup, PolicyReplace:
		return p, nil
	default:
		return "", fmt.Errorf("unknown merge policy %q", s)
	}
}

// Merge combines fresh and prior according to policy. Neither input is
// modified.
func Merge(policy MergePolicy, fresh, prior []model.ContactSummary) []model.ContactSummary {
	switch policy {
	case PolicyReplace:
		return append([]model.ContactSummary{}, fresh...)
	case PolicyDedup:
		out := make([]model.ContactSummary, 0, len(fresh)+len(prior))
		index := map[string]int{}
		for _, s := range append(append([]model.ContactSummary{}, fresh...), prior...) {
			i, ok := index[s.Record.ContactID]
			if !ok {
				index[s.Record.ContactID] = len(out)
				out = append(out, s)
				continue
			}
			if s.Record.Timestamp > out[i].Record.Timestamp {
				out[i] = s
			}
		}
		return out
	default:
		out := make([]model.ContactSummary, 0, len(fresh)+len(prior))
		out = append(out, fresh...)
		return append(out, prior...)
	}
}
