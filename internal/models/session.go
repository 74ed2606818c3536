package models

import "time"

// Session is the conversation state held for one user.
type Session struct {
	UserID              string       `json:"user_id"`
	Function            Function     `json:"function,omitempty"`
	Domain              Domain       `json:"domain,omitempty"`
	BusinessType        BusinessType `json:"business_type,omitempty"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// NewSession returns an empty session for userID.
func NewSession(userID string) *Session {
	return &Session{UserID: userID}
}

// Reset clears every conversation field, keeping the user id.
func (s *Session) Reset() {
	s.Function = ""
	s.Domain = ""
	s.BusinessType = ""
	s.ConsecutiveFailures = 0
}

// SelectFunction starts a new lookup flow.
func (s *Session) SelectFunction(f Function) {
	s.Function = f
	s.Domain = ""
	s.BusinessType = ""
	s.ConsecutiveFailures = 0
}

// SelectDomain sets the domain and drops any business type chosen under another domain.
func (s *Session) SelectDomain(d Domain) {
	s.Domain = d
	s.BusinessType = ""
	s.ConsecutiveFailures = 0
}

// IsEmpty reports whether no flow has been started.
func (s *Session) IsEmpty() bool {
	return s.Function == "" && s.Domain == "" && s.BusinessType == "" && s.ConsecutiveFailures == 0
}

// ReadyForQuery reports whether free text should be treated as a food-type query.
func (s *Session) ReadyForQuery() bool {
	if s.Function == "" || !s.Domain.Valid() {
		return false
	}
	if s.Function == FunctionCycles {
		return s.BusinessType.BelongsTo(s.Domain)
	}
	return true
}
