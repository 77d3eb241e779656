package services

import (
	"sync"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/models"
)

// SettingsService owns the settings slice.
type SettingsService interface {
	Settings() models.Settings
	UpdateSettings(patch models.SettingsPatch) models.Settings
	ResetSettings() models.Settings
}

type settingsService struct {
	mu       sync.RWMutex
	settings models.Settings
}

// NewSettingsService creates the settings slice with default values.
func NewSettingsService() SettingsService {
	return &settingsService{settings: models.DefaultSettings()}
}

var _ SettingsService = (*settingsService)(nil)

func (s *settingsService) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *settingsService) UpdateSettings(patch models.SettingsPatch) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = patch.Apply(s.settings)
	return s.settings
}

func (s *settingsService) ResetSettings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = models.DefaultSettings()
	return s.settings
}
