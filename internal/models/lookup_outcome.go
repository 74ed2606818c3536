package models

import "time"

// Lookup outcome constants
const (
	OutcomeSingle   = "single"
	OutcomeMultiple = "multiple"
	OutcomeNone     = "none"
	OutcomeOCR      = "ocr"
)

// LookupOutcome represents a per-domain hit count by outcome.
type LookupOutcome struct {
	Domain     Domain
	Outcome    string
	Count      int64
	LastSeenAt time.Time
}
