package models

// UserProfile holds the account details edited on the profile page.
type UserProfile struct {
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	DietaryPreferences []string `json:"dietary_preferences,omitempty"`
	Allergies          []string `json:"allergies,omitempty"`
}

// NotificationSettings holds the alerting preferences edited on the
// notifications page. Email is the delivery address for reports and alerts.
type NotificationSettings struct {
	SpoilageAlerts  bool   `json:"spoilage_alerts"`
	ExpiryReminders bool   `json:"expiry_reminders"`
	DailyReport     bool   `json:"daily_report"`
	Email           string `json:"email"`
}

// DefaultNotificationSettings is what a fresh install starts with.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		SpoilageAlerts:  true,
		ExpiryReminders: true,
		DailyReport:     false,
	}
}
