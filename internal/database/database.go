package database

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/franckalain/nutritrack/internal/logging"
	"github.com/franckalain/nutritrack/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const lastLoginKey = "last_login"

// DB interface defines the methods our database should implement
type DB interface {
	SaveMealEntry(ctx context.Context, entry *models.MealEntry) error
	GetMealEntry(ctx context.Context, id string) (*models.MealEntry, error)
	ListMealEntries(ctx context.Context, from, to time.Time) ([]*models.MealEntry, error)
	GetRecentMealEntries(ctx context.Context, limit int) ([]*models.MealEntry, error)
	DeleteMealEntry(ctx context.Context, id string) error

	SaveLabelScan(ctx context.Context, scan *models.LabelScan) error
	GetLabelScan(ctx context.Context, id string) (*models.LabelScan, error)
	UpdateScanStatus(ctx context.Context, id, status string, errMsg string) error

	SaveGoal(ctx context.Context, goal *models.Goal) error
	CurrentGoal(ctx context.Context, at time.Time) (*models.Goal, error)

	SetSetting(ctx context.Context, key, value string) error
	GetSetting(ctx context.Context, key string) (string, error)
	RecordLastLogin(ctx context.Context, at time.Time) error
	LastLogin(ctx context.Context) (time.Time, error)

	Close() error
}

// SQLiteDB implements the DB interface
type SQLiteDB struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(dbPath string, logger *zap.Logger) (*SQLiteDB, error) {
	logger = logging.OrNop(logger).Named("database")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Enable foreign keys and WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	logger.Info("database ready", zap.String("path", dbPath))
	return &SQLiteDB{db: db, logger: logger}, nil
}

func initializeSchema(db *sql.DB) error {
	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}

	if _, err := db.Exec(string(schemaBytes)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// SaveMealEntry inserts or replaces a meal entry. Missing ids and
// timestamps are filled in.
func (s *SQLiteDB) SaveMealEntry(ctx context.Context, entry *models.MealEntry) error {
	query := `
		INSERT INTO meal_entries (
			id, food_id, food_name, grams, calories, protein, fat, carbs,
			consumed_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			food_id = excluded.food_id,
			food_name = excluded.food_name,
			grams = excluded.grams,
			calories = excluded.calories,
			protein = excluded.protein,
			fat = excluded.fat,
			carbs = excluded.carbs,
			consumed_at = excluded.consumed_at
	`

	now := time.Now()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.ConsumedAt.IsZero() {
		entry.ConsumedAt = now
	}

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.FoodID, entry.FoodName, entry.Grams,
		entry.Calories, entry.Protein, entry.Fat, entry.Carbs,
		toMillis(entry.ConsumedAt), toMillis(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("error saving meal entry: %w", err)
	}
	return nil
}

const mealColumns = `id, food_id, food_name, grams, calories, protein, fat, carbs, consumed_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMealEntry(row rowScanner) (*models.MealEntry, error) {
	var entry models.MealEntry
	var consumedAt, createdAt int64
	err := row.Scan(
		&entry.ID, &entry.FoodID, &entry.FoodName, &entry.Grams,
		&entry.Calories, &entry.Protein, &entry.Fat, &entry.Carbs,
		&consumedAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	entry.ConsumedAt = fromMillis(consumedAt)
	entry.CreatedAt = fromMillis(createdAt)
	return &entry, nil
}

// GetMealEntry retrieves a meal entry by id
func (s *SQLiteDB) GetMealEntry(ctx context.Context, id string) (*models.MealEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mealColumns+` FROM meal_entries WHERE id = ?`, id)
	entry, err := scanMealEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading meal entry: %w", err)
	}
	return entry, nil
}

// ListMealEntries returns entries consumed in [from, to), newest first.
func (s *SQLiteDB) ListMealEntries(ctx context.Context, from, to time.Time) ([]*models.MealEntry, error) {
	query := `SELECT ` + mealColumns + ` FROM meal_entries
		WHERE consumed_at >= ? AND consumed_at < ?
		ORDER BY consumed_at DESC`
	return s.queryMealEntries(ctx, query, toMillis(from), toMillis(to))
}

// GetRecentMealEntries retrieves the most recently consumed entries
func (s *SQLiteDB) GetRecentMealEntries(ctx context.Context, limit int) ([]*models.MealEntry, error) {
	query := `SELECT ` + mealColumns + ` FROM meal_entries
		ORDER BY consumed_at DESC
		LIMIT ?`
	return s.queryMealEntries(ctx, query, limit)
}

func (s *SQLiteDB) queryMealEntries(ctx context.Context, query string, args ...any) ([]*models.MealEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying meal entries: %w", err)
	}
	defer rows.Close()

	results := []*models.MealEntry{}
	for rows.Next() {
		entry, err := scanMealEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error reading meal entry: %w", err)
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}

// DeleteMealEntry removes a meal entry
func (s *SQLiteDB) DeleteMealEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM meal_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting meal entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error deleting meal entry: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveLabelScan saves a nutrition label scan to the database
func (s *SQLiteDB) SaveLabelScan(ctx context.Context, scan *models.LabelScan) error {
	query := `
		INSERT OR REPLACE INTO label_scans (
			id, image_url, status, result, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if scan.ID == "" {
		scan.ID = uuid.New().String()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = now
	}
	scan.UpdatedAt = now

	var result sql.NullString
	if scan.Result != nil {
		data, err := json.Marshal(scan.Result)
		if err != nil {
			return fmt.Errorf("error encoding scan result: %w", err)
		}
		result = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		scan.ID, scan.ImageURL, scan.Status, result, scan.Error,
		toMillis(scan.CreatedAt), toMillis(scan.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("error saving label scan: %w", err)
	}
	return nil
}

// GetLabelScan retrieves a label scan by id
func (s *SQLiteDB) GetLabelScan(ctx context.Context, id string) (*models.LabelScan, error) {
	query := `
		SELECT id, image_url, status, result, error, created_at, updated_at
		FROM label_scans WHERE id = ?
	`

	var scan models.LabelScan
	var result sql.NullString
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&scan.ID, &scan.ImageURL, &scan.Status, &result, &scan.Error,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading label scan: %w", err)
	}

	if result.Valid {
		var item models.FoodItem
		if err := json.Unmarshal([]byte(result.String), &item); err != nil {
			return nil, fmt.Errorf("error decoding scan result: %w", err)
		}
		scan.Result = &item
	}
	scan.CreatedAt = fromMillis(createdAt)
	scan.UpdatedAt = fromMillis(updatedAt)
	return &scan, nil
}

// UpdateScanStatus updates the status of a scan
func (s *SQLiteDB) UpdateScanStatus(ctx context.Context, id, status string, errMsg string) error {
	query := `
		UPDATE label_scans
		SET status = ?, error = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query, status, errMsg, toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("error updating scan status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveGoal stores a new set of daily targets.
func (s *SQLiteDB) SaveGoal(ctx context.Context, goal *models.Goal) error {
	query := `
		INSERT OR REPLACE INTO goals (
			id, calories, protein, fat, carbs, effective_from, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = now
	}
	if goal.EffectiveFrom.IsZero() {
		goal.EffectiveFrom = now
	}

	_, err := s.db.ExecContext(ctx, query,
		goal.ID, goal.Calories, goal.Protein, goal.Fat, goal.Carbs,
		toMillis(goal.EffectiveFrom), toMillis(goal.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("error saving goal: %w", err)
	}
	return nil
}

// CurrentGoal returns the goal in effect at the given time.
func (s *SQLiteDB) CurrentGoal(ctx context.Context, at time.Time) (*models.Goal, error) {
	query := `
		SELECT id, calories, protein, fat, carbs, effective_from, created_at
		FROM goals
		WHERE effective_from <= ?
		ORDER BY effective_from DESC, created_at DESC
		LIMIT 1
	`

	var goal models.Goal
	var effectiveFrom, createdAt int64
	err := s.db.QueryRowContext(ctx, query, toMillis(at)).Scan(
		&goal.ID, &goal.Calories, &goal.Protein, &goal.Fat, &goal.Carbs,
		&effectiveFrom, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading goal: %w", err)
	}
	goal.EffectiveFrom = fromMillis(effectiveFrom)
	goal.CreatedAt = fromMillis(createdAt)
	return &goal, nil
}

// SetSetting stores a key/value pair.
func (s *SQLiteDB) SetSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, toMillis(time.Now())); err != nil {
		return fmt.Errorf("error saving setting %s: %w", key, err)
	}
	return nil
}

// GetSetting reads a value stored with SetSetting.
func (s *SQLiteDB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error reading setting %s: %w", key, err)
	}
	return value, nil
}

// RecordLastLogin remembers when a client last connected.
func (s *SQLiteDB) RecordLastLogin(ctx context.Context, at time.Time) error {
	return s.SetSetting(ctx, lastLoginKey, at.UTC().Format(time.RFC3339Nano))
}

// LastLogin returns the time stored by RecordLastLogin.
func (s *SQLiteDB) LastLogin(ctx context.Context) (time.Time, error) {
	value, err := s.GetSetting(ctx, lastLoginKey)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing last login %q: %w", value, err)
	}
	return t, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
