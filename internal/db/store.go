package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inspectbot/internal/models"
)

// Store is the lookup store contract shared by the Postgres and SQLite backends.
// Records are append-only; queries return rows in insertion order.
type Store interface {
	InsertItem(ctx context.Context, category models.Domain, foodType, items string) error
	InsertCycle(ctx context.Context, category models.Domain, businessType models.BusinessType, foodGroup, foodType, cycle string) error
	QueryItems(ctx context.Context, category models.Domain, foodTypeSubstring string) ([]models.InspectionItem, error)
	QueryCycles(ctx context.Context, category models.Domain, businessType models.BusinessType, foodTypeSubstring string) ([]models.InspectionCycle, error)

	InsertInfo(ctx context.Context, category, topic, details, sourceURL string) error
	QueryInfo(ctx context.Context, category string) ([]models.InfoRecord, error)

	RecordCrawl(ctx context.Context, crawlType, status, message string) error
	LastCrawlTime(ctx context.Context) (*time.Time, error)
	LatestCrawlLog(ctx context.Context) (*models.CrawlLog, error)

	IncrementUsage(ctx context.Context, apiType string) error
	UsageCount(ctx context.Context, apiType string, since time.Time) (int, error)

	IncrementLookupOutcome(ctx context.Context, domain models.Domain, outcome string) error
	GetAllLookupOutcomes(ctx context.Context) ([]models.LookupOutcome, error)

	Counts(ctx context.Context) (models.StoreCounts, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and applies pending migrations.
func Open(ctx context.Context, driver, url string) (Store, error) {
	switch strings.ToLower(driver) {
	case "postgres", "pgx":
		database, err := New(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(url); err != nil {
			database.Close()
			return nil, err
		}
		return database, nil
	case "sqlite", "":
		return OpenSQLite(ctx, url)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

func validateItem(category models.Domain, foodType, items string) error {
	if !category.Valid() || strings.TrimSpace(foodType) == "" || strings.TrimSpace(items) == "" {
		return fmt.Errorf("%w: item %q/%q", ErrInvalidRecord, category, foodType)
	}
	return nil
}

func validateCycle(category models.Domain, businessType models.BusinessType, foodType, cycle string) error {
	if !businessType.BelongsTo(category) || strings.TrimSpace(foodType) == "" || strings.TrimSpace(cycle) == "" {
		return fmt.Errorf("%w: cycle %q/%q/%q", ErrInvalidRecord, category, businessType, foodType)
	}
	return nil
}

func validateInfo(category, topic, details string) error {
	if strings.TrimSpace(category) == "" || strings.TrimSpace(topic) == "" || strings.TrimSpace(details) == "" {
		return fmt.Errorf("%w: info %q/%q", ErrInvalidRecord, category, topic)
	}
	return nil
}

// usageDay truncates t to the calendar day it falls on in its own location.
func usageDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
