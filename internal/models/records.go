package models

import "time"

// Crawl status constants
const (
	CrawlStatusSuccess = "success"
	CrawlStatusFailed  = "failed"
)

// CrawlTypeAll labels the summary entry written after a full pass.
const CrawlTypeAll = "all"

// APITypeVision is the usage counter key for image extraction calls.
const APITypeVision = "vision"

// InspectionItem lists the tests required for a food type.
type InspectionItem struct {
	ID        int64     `json:"id"`
	Category  Domain    `json:"category"`
	FoodType  string    `json:"food_type"`
	Items     string    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// InspectionCycle states how often a food type must be tested for a business type.
type InspectionCycle struct {
	ID           int64        `json:"id"`
	Category     Domain       `json:"category"`
	BusinessType BusinessType `json:"business_type"`
	FoodGroup    string       `json:"food_group"`
	FoodType     string       `json:"food_type"`
	Cycle        string       `json:"cycle"`
	CreatedAt    time.Time    `json:"created_at"`
}

// InfoRecord is the text of one published guidance popup, such as a
// nutrition test table or a board answer.
type InfoRecord struct {
	ID        int64     `json:"id"`
	Category  string    `json:"category"`
	Topic     string    `json:"topic"`
	Details   string    `json:"details"`
	SourceURL string    `json:"source_url"`
	CreatedAt time.Time `json:"created_at"`
}

// CrawlLog summarizes one acquisition pass.
type CrawlLog struct {
	ID        int64     `json:"id"`
	CrawlType string    `json:"crawl_type"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// IsSuccess reports whether the pass wrote at least one record.
func (l *CrawlLog) IsSuccess() bool {
	return l.Status == CrawlStatusSuccess
}

// UsageCounter is a per-day call count for an external API.
type UsageCounter struct {
	APIType string    `json:"api_type"`
	Date    time.Time `json:"date"`
	Count   int       `json:"count"`
}

// StoreCounts reports how many records of each kind are stored.
type StoreCounts struct {
	Items  int64 `json:"items"`
	Cycles int64 `json:"cycles"`
	Info   int64 `json:"info"`
}

// CrawlSummary describes the outcome of one acquisition pass.
type CrawlSummary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Items     int           `json:"items"`
	Cycles    int           `json:"cycles"`
	Info      int           `json:"info"`
	// Failures lists the units that were skipped, one line each.
	Failures []string `json:"failures,omitempty"`
	Status   string   `json:"status"`
	Message  string   `json:"message"`
}

// Total returns the number of records written.
func (s *CrawlSummary) Total() int {
	return s.Items + s.Cycles + s.Info
}
