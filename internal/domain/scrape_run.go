package domain

import "time"

// ScrapeRun is the append-only audit entry for one import of one source.
type ScrapeRun struct {
	RunID         string   `json:"runId"`
	Store         StoreID  `json:"store"`
	TotalScraped  int      `json:"totalScraped"`
	FilteredCount int      `json:"filteredCount"`
	Errors        []string `json:"errors"`

	ImportedCount int `json:"importedCount"`
	FailedCount   int `json:"failedCount"`

	CompletedAt time.Time `json:"completedAt"`
}
