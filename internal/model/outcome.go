package model

import "fmt"

// ItemStatus is the outcome of processing one batch item.
type ItemStatus string

const (
	StatusFound   ItemStatus = "found"
	StatusCached  ItemStatus = "cached"
	StatusSkipped ItemStatus = "skipped"
	StatusFailed  ItemStatus = "failed"
)

// ItemResult records what happened to one item (a date, a PDF, an image).
type ItemResult struct {
	Item   string     `json:"item"`
	Status ItemStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

// Found reports a successfully processed item.
func Found(item string) ItemResult {
	return ItemResult{Item: item, Status: StatusFound}
}

// Cached reports an item whose output already existed.
func Cached(item string) ItemResult {
	return ItemResult{Item: item, Status: StatusCached}
}

// Skipped reports an item excluded for an expected reason.
func Skipped(item, reason string) ItemResult {
	return ItemResult{Item: item, Status: StatusSkipped, Reason: reason}
}

// Failed reports an item that errored.
func Failed(item, reason string) ItemResult {
	return ItemResult{Item: item, Status: StatusFailed, Reason: reason}
}

func (r ItemResult) String() string {
	if r.Reason == "" {
		return fmt.Sprintf("%s: %s", r.Item, r.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", r.Item, r.Status, r.Reason)
}

// Summary aggregates item results into an end-of-run report.
type Summary struct {
	Stage   string       `json:"stage"`
	Found   int          `json:"found"`
	Cached  int          `json:"cached"`
	Skipped int          `json:"skipped"`
	Failed  int          `json:"failed"`
	Items   []ItemResult `json:"items,omitempty"`
}

// Add records one item result.
func (s *Summary) Add(r ItemResult) {
	s.Items = append(s.Items, r)
	switch r.Status {
	case StatusFound:
		s.Found++
	case StatusCached:
		s.Cached++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}

// Total is the number of items attempted.
func (s *Summary) Total() int {
	return len(s.Items)
}

// Produced is the number of items that yielded usable output.
func (s *Summary) Produced() int {
	return s.Found + s.Cached
}
