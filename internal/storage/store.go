// Package storage persists scan history, the user profile and notification
// settings in a local SQLite database, so none of them reset when the app
// restarts.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fresheye/fresheye/internal/models"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store defines the persistence operations the app needs.
type Store interface {
	SaveScan(ctx context.Context, scan *models.ScanRecord) error
	RecentScans(ctx context.Context, limit int) ([]*models.ScanRecord, error)
	ScansSince(ctx context.Context, since time.Time) ([]*models.ScanRecord, error)

	Profile(ctx context.Context) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, profile *models.UserProfile) error

	NotificationSettings(ctx context.Context) (*models.NotificationSettings, error)
	SaveNotificationSettings(ctx context.Context, settings *models.NotificationSettings) error

	Close() error
}

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Enable foreign keys and WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initializeSchema(db *sql.DB) error {
	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}
	if _, err := db.Exec(string(schemaBytes)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	log.Println("Database schema initialized")
	return nil
}

// SaveScan appends one completed analysis to history. A missing ID or
// timestamp is filled in.
func (s *SQLiteStore) SaveScan(ctx context.Context, scan *models.ScanRecord) error {
	if scan.ID == "" {
		scan.ID = uuid.New().String()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now()
	}
	result := scan.Result
	if len(result) == 0 {
		result = json.RawMessage("{}")
	}

	query := `
		INSERT OR REPLACE INTO scan_history (
			id, kind, label, source, result, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		scan.ID, string(scan.Kind), scan.Label, scan.Source,
		string(result), scan.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// RecentScans returns up to limit history entries, newest first.
func (s *SQLiteStore) RecentScans(ctx context.Context, limit int) ([]*models.ScanRecord, error) {
	query := `
		SELECT id, kind, label, source, result, created_at
		FROM scan_history
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// ScansSince returns the entries created at or after since, newest first.
func (s *SQLiteStore) ScansSince(ctx context.Context, since time.Time) ([]*models.ScanRecord, error) {
	query := `
		SELECT id, kind, label, source, result, created_at
		FROM scan_history
		WHERE created_at >= ?
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]*models.ScanRecord, error) {
	var results []*models.ScanRecord
	for rows.Next() {
		var rec models.ScanRecord
		var kind, result, createdAt string
		if err := rows.Scan(&rec.ID, &kind, &rec.Label, &rec.Source, &result, &createdAt); err != nil {
			return nil, err
		}
		rec.Kind = models.ScanKind(kind)
		rec.Result = json.RawMessage(result)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		results = append(results, &rec)
	}
	return results, rows.Err()
}

// Profile returns the stored profile, or an empty one before the first save.
func (s *SQLiteStore) Profile(ctx context.Context) (*models.UserProfile, error) {
	query := `SELECT name, email, dietary_preferences, allergies FROM user_profile WHERE id = 1`

	profile := &models.UserProfile{}
	var prefs, allergies string
	err := s.db.QueryRowContext(ctx, query).Scan(&profile.Name, &profile.Email, &prefs, &allergies)
	if err == sql.ErrNoRows {
		return profile, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(prefs), &profile.DietaryPreferences); err != nil {
		profile.DietaryPreferences = nil
	}
	if err := json.Unmarshal([]byte(allergies), &profile.Allergies); err != nil {
		profile.Allergies = nil
	}
	return profile, nil
}

// SaveProfile replaces the whole stored profile with the given one.
func (s *SQLiteStore) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	prefs, err := json.Marshal(orEmpty(profile.DietaryPreferences))
	if err != nil {
		return fmt.Errorf("encode dietary preferences: %w", err)
	}
	allergies, err := json.Marshal(orEmpty(profile.Allergies))
	if err != nil {
		return fmt.Errorf("encode allergies: %w", err)
	}

	query := `
		INSERT INTO user_profile (id, name, email, dietary_preferences, allergies, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			dietary_preferences = excluded.dietary_preferences,
			allergies = excluded.allergies,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		profile.Name, profile.Email, string(prefs), string(allergies),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// NotificationSettings returns the stored settings, or the defaults before
// the first save.
func (s *SQLiteStore) NotificationSettings(ctx context.Context) (*models.NotificationSettings, error) {
	query := `SELECT spoilage_alerts, expiry_reminders, daily_report, email FROM notification_settings WHERE id = 1`

	var settings models.NotificationSettings
	var spoilage, expiry, daily int
	err := s.db.QueryRowContext(ctx, query).Scan(&spoilage, &expiry, &daily, &settings.Email)
	if err == sql.ErrNoRows {
		defaults := models.DefaultNotificationSettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}

	settings.SpoilageAlerts = spoilage != 0
	settings.ExpiryReminders = expiry != 0
	settings.DailyReport = daily != 0
	return &settings, nil
}

// SaveNotificationSettings replaces the whole stored settings record.
func (s *SQLiteStore) SaveNotificationSettings(ctx context.Context, settings *models.NotificationSettings) error {
	query := `
		INSERT INTO notification_settings (id, spoilage_alerts, expiry_reminders, daily_report, email, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			spoilage_alerts = excluded.spoilage_alerts,
			expiry_reminders = excluded.expiry_reminders,
			daily_report = excluded.daily_report,
			email = excluded.email,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		boolToInt(settings.SpoilageAlerts), boolToInt(settings.ExpiryReminders),
		boolToInt(settings.DailyReport), settings.Email,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
