package notify

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"

	"stride/internal/database"
	"stride/internal/models"
)

const settingsKey = "notification_settings"

// LoadSettings reads the persisted notification toggles, falling back to the
// defaults (everything enabled) when nothing was saved yet.
func LoadSettings(db *sql.DB) models.NotificationSettings {
	raw, err := database.GetValue(db, settingsKey)
	if err != nil {
		if !errors.Is(err, database.ErrNoValue) {
			log.Printf("Failed to read notification settings: %v", err)
		}
		return models.DefaultNotificationSettings()
	}

	var settings models.NotificationSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		log.Printf("Malformed notification settings, using defaults: %v", err)
		return models.DefaultNotificationSettings()
	}
	return settings
}

// SaveSettings persists the notification toggles.
func SaveSettings(db *sql.DB, settings models.NotificationSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return database.SetValue(db, settingsKey, string(raw))
}
