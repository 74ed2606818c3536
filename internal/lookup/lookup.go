// Package lookup resolves free-text food types against the lookup store and
// classifies the result by cardinality.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inspectbot/internal/models"
)

// ErrInvalidScope is returned when a scope cannot be queried.
var ErrInvalidScope = errors.New("invalid lookup scope")

// Store is the read side of the lookup store used here.
type Store interface {
	QueryItems(ctx context.Context, category models.Domain, foodTypeSubstring string) ([]models.InspectionItem, error)
	QueryCycles(ctx context.Context, category models.Domain, businessType models.BusinessType, foodTypeSubstring string) ([]models.InspectionCycle, error)
}

// Scope selects which collection a query runs against.
type Scope struct {
	Function     models.Function
	Domain       models.Domain
	BusinessType models.BusinessType
}

// ScopeOf returns the scope a session currently points at.
func ScopeOf(s *models.Session) Scope {
	return Scope{Function: s.Function, Domain: s.Domain, BusinessType: s.BusinessType}
}

func (s Scope) validate() error {
	switch s.Function {
	case models.FunctionItems:
		if s.Domain.Valid() {
			return nil
		}
	case models.FunctionCycles:
		if s.BusinessType.BelongsTo(s.Domain) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s/%s/%s", ErrInvalidScope, s.Function, s.Domain, s.BusinessType)
}

// Cardinality classifies how many distinct food types a query matched.
type Cardinality int

const (
	None Cardinality = iota
	One
	Many
)

func (c Cardinality) String() string {
	switch c {
	case One:
		return models.OutcomeSingle
	case Many:
		return models.OutcomeMultiple
	default:
		return models.OutcomeNone
	}
}

// Record is a matched row reduced to what a reply needs.
type Record struct {
	FoodType  string
	FoodGroup string // cycles only
	Detail    string // items text or cycle text
}

// Result is the outcome of a Find call.
type Result struct {
	Query       string
	Cardinality Cardinality
	// Labels are the distinct matched food types in store order.
	Labels []string
	// Record is set when Cardinality is One.
	Record *Record
}

// Service wraps the store with substring matching and result classification.
type Service struct {
	store Store
	mode  Mode
	limit int
}

// NewService creates a lookup service. mode controls how similar labels are picked.
func NewService(store Store, mode Mode) *Service {
	return &Service{store: store, mode: mode, limit: DefaultSimilarLimit}
}

// records runs the substring query for scope and flattens the rows.
func (s *Service) records(ctx context.Context, scope Scope, substring string) ([]Record, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}

	if scope.Function == models.FunctionItems {
		items, err := s.store.QueryItems(ctx, scope.Domain, substring)
		if err != nil {
			return nil, fmt.Errorf("failed to query items: %w", err)
		}
		out := make([]Record, 0, len(items))
		for _, it := range items {
			out = append(out, Record{FoodType: it.FoodType, Detail: it.Items})
		}
		return out, nil
	}

	cycles, err := s.store.QueryCycles(ctx, scope.Domain, scope.BusinessType, substring)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	out := make([]Record, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, Record{FoodType: c.FoodType, FoodGroup: c.FoodGroup, Detail: c.Cycle})
	}
	return out, nil
}

// Find matches query as a case-insensitive substring of stored food types.
//
// Records sharing a food type collapse into one label. A label equal to the
// query (ignoring case) wins outright, so picking a label offered during
// disambiguation always resolves. When several records share the winning
// label the most recently inserted one is returned.
func (s *Service) Find(ctx context.Context, scope Scope, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	res := &Result{Query: query}
	if query == "" {
		return res, nil
	}

	records, err := s.records(ctx, scope, query)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]Record)
	for _, r := range records {
		if _, seen := latest[r.FoodType]; !seen {
			res.Labels = append(res.Labels, r.FoodType)
		}
		latest[r.FoodType] = r
	}

	for _, label := range res.Labels {
		if strings.EqualFold(label, query) {
			r := latest[label]
			res.Cardinality = One
			res.Record = &r
			return res, nil
		}
	}

	switch len(res.Labels) {
	case 0:
		res.Cardinality = None
	case 1:
		r := latest[res.Labels[0]]
		res.Cardinality = One
		res.Record = &r
	default:
		res.Cardinality = Many
	}
	return res, nil
}
