package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"inspectbot/internal/models"
)

const cycleColumns = `id, category, business_type, food_group, food_type, cycle, created_at`

func scanCycles(rows pgx.Rows) ([]models.InspectionCycle, error) {
	defer rows.Close()

	var cycles []models.InspectionCycle
	for rows.Next() {
		var c models.InspectionCycle
		if err := rows.Scan(&c.ID, &c.Category, &c.BusinessType, &c.FoodGroup, &c.FoodType, &c.Cycle, &c.CreatedAt); err != nil {
			return nil, err
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// InsertCycle appends an inspection cycle record.
func (d *DB) InsertCycle(ctx context.Context, category models.Domain, businessType models.BusinessType, foodGroup, foodType, cycle string) error {
	if err := validateCycle(category, businessType, foodType, cycle); err != nil {
		return err
	}
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO inspection_cycles (category, business_type, food_group, food_type, cycle)
		VALUES ($1, $2, $3, $4, $5)
	`, category, businessType, foodGroup, foodType, cycle)
	if err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}
	return nil
}

// QueryCycles returns cycles for the business type whose food type contains the substring.
func (d *DB) QueryCycles(ctx context.Context, category models.Domain, businessType models.BusinessType, foodTypeSubstring string) ([]models.InspectionCycle, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT `+cycleColumns+`
		FROM inspection_cycles
		WHERE category = $1 AND business_type = $2 AND strpos(lower(food_type), lower($3)) > 0
		ORDER BY id
	`, category, businessType, foodTypeSubstring)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	return scanCycles(rows)
}
