package services

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/models"
)

// ProfileService owns the profile slice.
type ProfileService interface {
	User() models.User
	// UpdateProfile shallow-merges patch into the user and returns the result.
	UpdateProfile(patch models.UserPatch) models.User
	// AddActivity prepends activity, keeping the newest MaxRecentActivity entries.
	AddActivity(activity models.Activity) models.User
	// UpdateNotificationPreference sets the named preference. Unknown names are
	// ignored and reported with false.
	UpdateNotificationPreference(name string, enabled bool) bool
}

type profileService struct {
	mu     sync.RWMutex
	user   models.User
	logger *zap.Logger
}

// NewProfileService creates the profile slice seeded with user.
func NewProfileService(user models.User, logger *zap.Logger) ProfileService {
	return &profileService{
		user:   user.Clone(),
		logger: logger.Named("profile-service"),
	}
}

var _ ProfileService = (*profileService)(nil)

func (s *profileService) User() models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

func (s *profileService) UpdateProfile(patch models.UserPatch) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = patch.Apply(s.user)
	return s.user.Clone()
}

func (s *profileService) AddActivity(activity models.Activity) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user.RecentActivity = models.PrependCapped(s.user.RecentActivity, activity, models.MaxRecentActivity)
	return s.user.Clone()
}

func (s *profileService) UpdateNotificationPreference(name string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.user.NotificationPreferences {
		if s.user.NotificationPreferences[i].Name == name {
			s.user.NotificationPreferences[i].Enabled = enabled
			return true
		}
	}

	s.logger.Debug("Ignoring unknown notification preference", zap.String("name", name))
	return false
}
