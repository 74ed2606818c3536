package db

import (
	"context"
	"fmt"
	"time"
)

// IncrementUsage bumps today's counter for apiType.
func (d *DB) IncrementUsage(ctx context.Context, apiType string) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO api_usage (api_type, usage_date, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (api_type, usage_date) DO UPDATE
		SET count = api_usage.count + 1
	`, apiType, usageDay(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

// UsageCount sums the counters for apiType from the day containing since onwards.
func (d *DB) UsageCount(ctx context.Context, apiType string, since time.Time) (int, error) {
	var n int
	err := d.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(count), 0)::int
		FROM api_usage
		WHERE api_type = $1 AND usage_date >= $2
	`, apiType, usageDay(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return n, nil
}
