package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	msqlite "modernc.org/sqlite"

	"inspectbot/internal/models"
	"inspectbot/migrations"
)

// SQLite's lower() folds ASCII only; casefold matches Postgres lower() for
// non-ASCII letters.
func init() {
	msqlite.MustRegisterDeterministicScalarFunction("casefold", 1, casefold)
}

func casefold(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	case nil:
		return nil, nil
	default:
		return v, nil
	}
}

// SQLiteStore is the embedded lookup store backed by modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database file at path, applies
// pragmas and runs migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if err := enablePragmas(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to enable pragmas: %w", err)
	}

	store := NewSQLiteStore(sqlDB)
	if err := store.RunMigrations(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an already opened database without touching its schema.
func NewSQLiteStore(sqlDB *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: sqlDB, now: time.Now}
}

func enablePragmas(ctx context.Context, sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

// RunMigrations runs all embedded SQLite migrations.
func (s *SQLiteStore) RunMigrations() error {
	sourceDriver, err := iofs.New(migrations.SQLite, "sqlite")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	dbDriver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// m.Close would close s.db, so the migrator is left for the GC.
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Ping checks that the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// InsertItem appends an inspection item record.
func (s *SQLiteStore) InsertItem(ctx context.Context, category models.Domain, foodType, items string) error {
	if err := validateItem(category, foodType, items); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inspection_items (category, food_type, items, created_at)
		VALUES (?, ?, ?, ?)
	`, string(category), foodType, items, s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// QueryItems returns items in category whose food type contains the substring, case-insensitively.
func (s *SQLiteStore) QueryItems(ctx context.Context, category models.Domain, foodTypeSubstring string) ([]models.InspectionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM inspection_items
		WHERE category = ? AND instr(casefold(food_type), casefold(?)) > 0
		ORDER BY id
	`, string(category), foodTypeSubstring)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []models.InspectionItem
	for rows.Next() {
		var it models.InspectionItem
		var cat, createdAt string
		if err := rows.Scan(&it.ID, &cat, &it.FoodType, &it.Items, &createdAt); err != nil {
			return nil, err
		}
		it.Category = models.Domain(cat)
		it.CreatedAt = parseTimestamp(createdAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

// InsertCycle appends an inspection cycle record.
func (s *SQLiteStore) InsertCycle(ctx context.Context, category models.Domain, businessType models.BusinessType, foodGroup, foodType, cycle string) error {
	if err := validateCycle(category, businessType, foodType, cycle); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inspection_cycles (category, business_type, food_group, food_type, cycle, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(category), string(businessType), foodGroup, foodType, cycle, s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}
	return nil
}

// QueryCycles returns cycles for the business type whose food type contains the substring.
func (s *SQLiteStore) QueryCycles(ctx context.Context, category models.Domain, businessType models.BusinessType, foodTypeSubstring string) ([]models.InspectionCycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cycleColumns+`
		FROM inspection_cycles
		WHERE category = ? AND business_type = ? AND instr(casefold(food_type), casefold(?)) > 0
		ORDER BY id
	`, string(category), string(businessType), foodTypeSubstring)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []models.InspectionCycle
	for rows.Next() {
		var c models.InspectionCycle
		var cat, bt, createdAt string
		if err := rows.Scan(&c.ID, &cat, &bt, &c.FoodGroup, &c.FoodType, &c.Cycle, &createdAt); err != nil {
			return nil, err
		}
		c.Category = models.Domain(cat)
		c.BusinessType = models.BusinessType(bt)
		c.CreatedAt = parseTimestamp(createdAt)
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// InsertInfo appends the text of one guidance popup.
func (s *SQLiteStore) InsertInfo(ctx context.Context, category, topic, details, sourceURL string) error {
	if err := validateInfo(category, topic, details); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inspection_info (category, topic, details, source_url, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, category, topic, details, sourceURL, s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to insert info: %w", err)
	}
	return nil
}

// QueryInfo returns the info records of category in insertion order.
func (s *SQLiteStore) QueryInfo(ctx context.Context, category string) ([]models.InfoRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+infoColumns+`
		FROM inspection_info
		WHERE category = ?
		ORDER BY id
	`, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query info: %w", err)
	}
	defer rows.Close()

	var records []models.InfoRecord
	for rows.Next() {
		var r models.InfoRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Category, &r.Topic, &r.Details, &r.SourceURL, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTimestamp(createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecordCrawl writes one crawl log entry.
func (s *SQLiteStore) RecordCrawl(ctx context.Context, crawlType, status, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crawl_logs (crawl_type, status, message, created_at)
		VALUES (?, ?, ?, ?)
	`, crawlType, status, message, s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to record crawl: %w", err)
	}
	return nil
}

// LastCrawlTime returns when the most recent successful pass finished, or nil if none has.
func (s *SQLiteStore) LastCrawlTime(ctx context.Context) (*time.Time, error) {
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT created_at FROM crawl_logs
		WHERE status = ?
		ORDER BY id DESC
		LIMIT 1
	`, models.CrawlStatusSuccess).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last crawl time: %w", err)
	}
	t := parseTimestamp(createdAt)
	return &t, nil
}

// LatestCrawlLog returns the most recent crawl log entry regardless of status.
func (s *SQLiteStore) LatestCrawlLog(ctx context.Context) (*models.CrawlLog, error) {
	var l models.CrawlLog
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, crawl_type, status, message, created_at
		FROM crawl_logs
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&l.ID, &l.CrawlType, &l.Status, &l.Message, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest crawl log: %w", err)
	}
	l.CreatedAt = parseTimestamp(createdAt)
	return &l, nil
}

// IncrementUsage bumps today's counter for apiType.
func (s *SQLiteStore) IncrementUsage(ctx context.Context, apiType string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_usage (api_type, usage_date, count)
		VALUES (?, ?, 1)
		ON CONFLICT (api_type, usage_date) DO UPDATE
		SET count = count + 1
	`, apiType, usageDay(s.now()).Format(time.DateOnly))
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

// UsageCount sums the counters for apiType from the day containing since onwards.
func (s *SQLiteStore) UsageCount(ctx context.Context, apiType string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(count), 0)
		FROM api_usage
		WHERE api_type = ? AND usage_date >= ?
	`, apiType, usageDay(since).Format(time.DateOnly)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return n, nil
}

// IncrementLookupOutcome upserts a lookup count by domain and outcome.
func (s *SQLiteStore) IncrementLookupOutcome(ctx context.Context, domain models.Domain, outcome string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookup_outcomes (domain, outcome, count, last_seen_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (domain, outcome) DO UPDATE
		SET count = count + 1, last_seen_at = excluded.last_seen_at
	`, string(domain), outcome, s.timestamp())
	return err
}

// GetAllLookupOutcomes returns all lookup outcome rows for metrics export.
func (s *SQLiteStore) GetAllLookupOutcomes(ctx context.Context) ([]models.LookupOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain, outcome, count, last_seen_at FROM lookup_outcomes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []models.LookupOutcome
	for rows.Next() {
		var o models.LookupOutcome
		var domain, lastSeen string
		if err := rows.Scan(&domain, &o.Outcome, &o.Count, &lastSeen); err != nil {
			return nil, err
		}
		o.Domain = models.Domain(domain)
		o.LastSeenAt = parseTimestamp(lastSeen)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// Counts returns how many records of each kind are stored.
func (s *SQLiteStore) Counts(ctx context.Context) (models.StoreCounts, error) {
	var c models.StoreCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM inspection_items),
		       (SELECT COUNT(*) FROM inspection_cycles),
		       (SELECT COUNT(*) FROM inspection_info)
	`).Scan(&c.Items, &c.Cycles, &c.Info)
	if err != nil {
		return c, fmt.Errorf("failed to count records: %w", err)
	}
	return c, nil
}
