package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"inspectbot/internal/models"
)

const infoColumns = `id, category, topic, details, source_url, created_at`

func scanInfo(rows pgx.Rows) ([]models.InfoRecord, error) {
	defer rows.Close()

	var records []models.InfoRecord
	for rows.Next() {
		var r models.InfoRecord
		if err := rows.Scan(&r.ID, &r.Category, &r.Topic, &r.Details, &r.SourceURL, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// InsertInfo appends the text of one guidance popup.
func (d *DB) InsertInfo(ctx context.Context, category, topic, details, sourceURL string) error {
	if err := validateInfo(category, topic, details); err != nil {
		return err
	}
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO inspection_info (category, topic, details, source_url)
		VALUES ($1, $2, $3, $4)
	`, category, topic, details, sourceURL)
	if err != nil {
		return fmt.Errorf("failed to insert info: %w", err)
	}
	return nil
}

// QueryInfo returns the info records of category in insertion order.
func (d *DB) QueryInfo(ctx context.Context, category string) ([]models.InfoRecord, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT `+infoColumns+`
		FROM inspection_info
		WHERE category = $1
		ORDER BY id
	`, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query info: %w", err)
	}
	return scanInfo(rows)
}
