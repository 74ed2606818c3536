package db

import (
	"context"

	"inspectbot/internal/models"
)

// IncrementLookupOutcome upserts a lookup count by domain and outcome.
func (d *DB) IncrementLookupOutcome(ctx context.Context, domain models.Domain, outcome string) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO lookup_outcomes (domain, outcome, count, last_seen_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (domain, outcome) DO UPDATE
		SET count = lookup_outcomes.count + 1, last_seen_at = NOW()
	`, domain, outcome)
	return err
}

// GetAllLookupOutcomes returns all lookup outcome rows for metrics export.
func (d *DB) GetAllLookupOutcomes(ctx context.Context) ([]models.LookupOutcome, error) {
	rows, err := d.Pool.Query(ctx, `SELECT domain, outcome, count, last_seen_at FROM lookup_outcomes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []models.LookupOutcome
	for rows.Next() {
		var o models.LookupOutcome
		if err := rows.Scan(&o.Domain, &o.Outcome, &o.Count, &o.LastSeenAt); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
