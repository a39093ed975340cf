package models

// FrequencyTable counts occurrences per category and tracks the mode.
// Ties are broken in favor of the earliest category to reach the top count.
type FrequencyTable struct {
	Counts       map[string]int `json:"counts"`
	MostFrequent string         `json:"mostFrequent"`
}

// NewFrequencyTable creates an empty frequency table.
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{Counts: make(map[string]int)}
}

// Add increments the count for each distinct category in the call. Duplicates
// within one call count once, so a round trip to the same station is a single
// visit.
func (t *FrequencyTable) Add(categories ...string) {
	seen := make(map[string]bool, len(categories))
	for _, cat := range categories {
		if seen[cat] {
			continue
		}
		seen[cat] = true
		t.Counts[cat]++
		if t.MostFrequent == "" || t.Counts[cat] > t.Counts[t.MostFrequent] {
			t.MostFrequent = cat
		}
	}
}
