package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/fresheye/fresheye/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "fresheye.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveScanFillsDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	scan := &models.ScanRecord{Kind: models.ScanNutrition, Label: "Granola"}
	if err := store.SaveScan(ctx, scan); err != nil {
		t.Fatalf("SaveScan: %v", err)
	}
	if scan.ID == "" {
		t.Error("SaveScan did not assign an id")
	}
	if scan.CreatedAt.IsZero() {
		t.Error("SaveScan did not stamp creation time")
	}
}

func TestScanHistoryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for i, label := range []string{"oldest", "middle", "newest"} {
		scan := &models.ScanRecord{
			Kind:      models.ScanSpoilage,
			Label:     label,
			Source:    "esp32",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Result:    json.RawMessage(`{"status":"fresh"}`),
		}
		if err := store.SaveScan(ctx, scan); err != nil {
			t.Fatalf("SaveScan %s: %v", label, err)
		}
	}

	recent, err := store.RecentScans(ctx, 2)
	if err != nil {
		t.Fatalf("RecentScans: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d records, want 2", len(recent))
	}
	if recent[0].Label != "newest" || recent[1].Label != "middle" {
		t.Errorf("order = %s, %s; want newest first", recent[0].Label, recent[1].Label)
	}
	if recent[0].Kind != models.ScanSpoilage || recent[0].Source != "esp32" {
		t.Errorf("record = %+v", recent[0])
	}
	var result map[string]string
	if err := json.Unmarshal(recent[0].Result, &result); err != nil || result["status"] != "fresh" {
		t.Errorf("result json = %s (%v)", recent[0].Result, err)
	}

	since, err := store.ScansSince(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("ScansSince: %v", err)
	}
	if len(since) != 1 || since[0].Label != "newest" {
		t.Errorf("ScansSince = %v", since)
	}
}

func TestProfileDefaultsAndReplacement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profile, err := store.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.Name != "" || profile.Email != "" {
		t.Errorf("fresh profile = %+v, want empty", profile)
	}

	first := &models.UserProfile{
		Name:               "Dana",
		Email:              "dana@example.com",
		DietaryPreferences: []string{"vegetarian"},
		Allergies:          []string{"peanuts"},
	}
	if err := store.SaveProfile(ctx, first); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	loaded, err := store.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if loaded.Name != "Dana" || len(loaded.DietaryPreferences) != 1 || len(loaded.Allergies) != 1 {
		t.Errorf("loaded = %+v", loaded)
	}

	// Saving replaces the whole record; cleared fields stay cleared.
	second := &models.UserProfile{Name: "Dana R.", Email: "dana@example.com"}
	if err := store.SaveProfile(ctx, second); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	loaded, err = store.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if loaded.Name != "Dana R." {
		t.Errorf("name = %q", loaded.Name)
	}
	if len(loaded.DietaryPreferences) != 0 || len(loaded.Allergies) != 0 {
		t.Errorf("old list values survived replacement: %+v", loaded)
	}
}

func TestNotificationSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings, err := store.NotificationSettings(ctx)
	if err != nil {
		t.Fatalf("NotificationSettings: %v", err)
	}
	defaults := models.DefaultNotificationSettings()
	if *settings != defaults {
		t.Errorf("fresh settings = %+v, want defaults %+v", settings, defaults)
	}

	next := &models.NotificationSettings{
		SpoilageAlerts:  false,
		ExpiryReminders: true,
		DailyReport:     true,
		Email:           "alerts@example.com",
	}
	if err := store.SaveNotificationSettings(ctx, next); err != nil {
		t.Fatalf("SaveNotificationSettings: %v", err)
	}

	loaded, err := store.NotificationSettings(ctx)
	if err != nil {
		t.Fatalf("NotificationSettings: %v", err)
	}
	if *loaded != *next {
		t.Errorf("loaded = %+v, want %+v", loaded, next)
	}
}

func TestSettingsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fresheye.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := store.SaveNotificationSettings(ctx, &models.NotificationSettings{DailyReport: true, Email: "a@b.c"}); err != nil {
		t.Fatalf("SaveNotificationSettings: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.NotificationSettings(ctx)
	if err != nil {
		t.Fatalf("NotificationSettings: %v", err)
	}
	if !loaded.DailyReport || loaded.Email != "a@b.c" {
		t.Errorf("settings did not survive reopen: %+v", loaded)
	}
}
