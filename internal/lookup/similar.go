package lookup

import (
	"context"
	"sort"
	"strings"
)

// DefaultSimilarLimit caps how many suggestions Similar returns.
const DefaultSimilarLimit = 5

// Mode selects the similarity heuristic.
type Mode string

const (
	// ModeFirst collects labels in the order bigrams are tried. It is biased
	// toward the leading bigrams of the query rather than toward overlap.
	ModeFirst Mode = "first"
	// ModeRanked orders candidates by how many query bigrams they share.
	ModeRanked Mode = "ranked"
)

// ParseMode maps a config value onto a Mode, defaulting to ModeFirst.
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModeRanked {
		return ModeRanked
	}
	return ModeFirst
}

// bigrams returns the distinct contiguous two-rune substrings of s, left to right.
func bigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	seen := make(map[string]bool, len(runes)-1)
	out := make([]string, 0, len(runes)-1)
	for i := 0; i+1 < len(runes); i++ {
		bg := string(runes[i : i+2])
		if !seen[bg] {
			seen[bg] = true
			out = append(out, bg)
		}
	}
	return out
}

// Similar proposes near-match food types for a query that matched nothing.
// The literal query is never returned and at most limit labels are.
func (s *Service) Similar(ctx context.Context, scope Scope, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	grams := bigrams(query)
	if len(grams) == 0 || s.limit <= 0 {
		return nil, nil
	}

	if s.mode == ModeRanked {
		return s.similarRanked(ctx, scope, query, grams)
	}

	var out []string
	seen := make(map[string]bool)
	for _, bg := range grams {
		records, err := s.records(ctx, scope, bg)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if seen[r.FoodType] || strings.EqualFold(r.FoodType, query) {
				continue
			}
			seen[r.FoodType] = true
			out = append(out, r.FoodType)
			if len(out) >= s.limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *Service) similarRanked(ctx context.Context, scope Scope, query string, grams []string) ([]string, error) {
	type candidate struct {
		label  string
		shared int
	}

	byLabel := make(map[string]*candidate)
	var candidates []*candidate
	for _, bg := range grams {
		records, err := s.records(ctx, scope, bg)
		if err != nil {
			return nil, err
		}
		counted := make(map[string]bool)
		for _, r := range records {
			if strings.EqualFold(r.FoodType, query) || counted[r.FoodType] {
				continue
			}
			counted[r.FoodType] = true
			c, ok := byLabel[r.FoodType]
			if !ok {
				c = &candidate{label: r.FoodType}
				byLabel[r.FoodType] = c
				candidates = append(candidates, c)
			}
			c.shared++
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].shared > candidates[j].shared
	})

	out := make([]string, 0, min(len(candidates), s.limit))
	for _, c := range candidates {
		if len(out) >= s.limit {
			break
		}
		out = append(out, c.label)
	}
	return out, nil
}
