package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"inspectbot/internal/models"
)

// itemColumns is the standard column list for item queries.
const itemColumns = `id, category, food_type, items, created_at`

// scanItems scans multiple rows into a slice of InspectionItems.
func scanItems(rows pgx.Rows) ([]models.InspectionItem, error) {
	defer rows.Close()

	var items []models.InspectionItem
	for rows.Next() {
		var it models.InspectionItem
		if err := rows.Scan(&it.ID, &it.Category, &it.FoodType, &it.Items, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// InsertItem appends an inspection item record.
func (d *DB) InsertItem(ctx context.Context, category models.Domain, foodType, items string) error {
	if err := validateItem(category, foodType, items); err != nil {
		return err
	}
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO inspection_items (category, food_type, items)
		VALUES ($1, $2, $3)
	`, category, foodType, items)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// QueryItems returns items in category whose food type contains the substring, case-insensitively.
func (d *DB) QueryItems(ctx context.Context, category models.Domain, foodTypeSubstring string) ([]models.InspectionItem, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM inspection_items
		WHERE category = $1 AND strpos(lower(food_type), lower($2)) > 0
		ORDER BY id
	`, category, foodTypeSubstring)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	return scanItems(rows)
}
