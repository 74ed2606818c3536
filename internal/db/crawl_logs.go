package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"inspectbot/internal/models"
)

// RecordCrawl writes one crawl log entry.
func (d *DB) RecordCrawl(ctx context.Context, crawlType, status, message string) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO crawl_logs (crawl_type, status, message)
		VALUES ($1, $2, $3)
	`, crawlType, status, message)
	if err != nil {
		return fmt.Errorf("failed to record crawl: %w", err)
	}
	return nil
}

// LastCrawlTime returns when the most recent successful pass finished, or nil if none has.
func (d *DB) LastCrawlTime(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := d.Pool.QueryRow(ctx, `
		SELECT created_at FROM crawl_logs
		WHERE status = $1
		ORDER BY id DESC
		LIMIT 1
	`, models.CrawlStatusSuccess).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last crawl time: %w", err)
	}
	return &t, nil
}

// LatestCrawlLog returns the most recent crawl log entry regardless of status.
func (d *DB) LatestCrawlLog(ctx context.Context) (*models.CrawlLog, error) {
	var l models.CrawlLog
	err := d.Pool.QueryRow(ctx, `
		SELECT id, crawl_type, status, message, created_at
		FROM crawl_logs
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&l.ID, &l.CrawlType, &l.Status, &l.Message, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest crawl log: %w", err)
	}
	return &l, nil
}
