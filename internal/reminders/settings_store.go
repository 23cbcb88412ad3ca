package reminders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const settingsKey = "reminders:settings"

// SettingsStore persists the process-wide reminder rule list in Redis.
type SettingsStore struct {
	redis *redis.Client
}

// NewSettingsStore creates a settings store.
func NewSettingsStore(redisClient *redis.Client) *SettingsStore {
	return &SettingsStore{redis: redisClient}
}

// List returns the configured reminder rules, falling back to the defaults
// when nothing has been saved yet.
func (s *SettingsStore) List(ctx context.Context) ([]Setting, error) {
	data, err := s.redis.Get(ctx, settingsKey).Bytes()
	if err == redis.Nil {
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reminders: get settings: %w", err)
	}

	var settings []Setting
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("reminders: unmarshal settings: %w", err)
	}
	return settings, nil
}

// Save replaces the full rule list.
func (s *SettingsStore) Save(ctx context.Context, settings []Setting) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("reminders: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, settingsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("reminders: set settings: %w", err)
	}
	return nil
}

// Update applies a partial change to one rule identified by type. Returns
// the updated list, or an error when the type is unknown.
func (s *SettingsStore) Update(ctx context.Context, reminderType string, enabled *bool, hoursBefore *int, template *string) ([]Setting, error) {
	settings, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range settings {
		if settings[i].Type != reminderType {
			continue
		}
		found = true
		if enabled != nil {
			settings[i].Enabled = *enabled
		}
		if hoursBefore != nil && *hoursBefore > 0 {
			settings[i].HoursBefore = *hoursBefore
		}
		if template != nil && *template != "" {
			settings[i].Template = *template
		}
	}
	if !found {
		return nil, fmt.Errorf("reminders: unknown reminder type %q", reminderType)
	}
	if err := s.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
