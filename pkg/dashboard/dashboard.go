// Package dashboard composes the query, profile and settings slices into one
// explicitly constructed container. Slices never read each other; every
// cross-slice rule lives here.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/repositories"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/services"
)

// DefaultPersistTimeout bounds a single saved-history write.
const DefaultPersistTimeout = 5 * time.Second

// Options configures a Dashboard.
type Options struct {
	// ID identifies the dashboard in saved history. Generated when empty.
	ID string
	// Query configures the query slice. Its Observer is owned by the dashboard.
	Query services.QueryServiceConfig
	// User seeds the profile slice. Zero value uses models.DefaultUser.
	User *models.User
	// History stores saved query history. Nil disables saving.
	History repositories.QueryHistoryRepository
	// PersistTimeout bounds saved-history writes.
	PersistTimeout time.Duration
}

// Dashboard is the root container of the three state slices.
type Dashboard struct {
	id        string
	queries   services.QueryService
	profile   services.ProfileService
	settings  services.SettingsService
	persister *historyPersister
	logger    *zap.Logger

	// saveMu pairs each SaveQueries read with the write it decides on.
	saveMu sync.Mutex
}

// New builds a dashboard and restores saved history when any exists.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*Dashboard, error) {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultPersistTimeout
	}
	user := models.DefaultUser()
	if opts.User != nil {
		user = opts.User.Clone()
	}

	d := &Dashboard{
		id:       opts.ID,
		profile:  services.NewProfileService(user, logger),
		settings: services.NewSettingsService(),
		logger:   logger.Named("dashboard").With(zap.String("dashboard_id", opts.ID)),
	}

	var saved []models.QueryHistoryItem
	if opts.History != nil {
		items, err := opts.History.Load(ctx, opts.ID)
		switch {
		case err == nil:
			saved = items
		case errors.Is(err, apperrors.ErrNotFound):
		default:
			return nil, fmt.Errorf("failed to restore query history: %w", err)
		}
		d.persister = newHistoryPersister(opts.History, opts.ID, opts.PersistTimeout, d.logger)
	}

	queryCfg := opts.Query
	queryCfg.Observer = d.onQueryTransition
	d.queries = services.NewQueryService(queryCfg, logger)

	if len(saved) > 0 {
		d.queries.RestoreHistory(saved)
		d.logger.Debug("Restored saved query history", zap.Int("count", len(saved)))
	}
	return d, nil
}

// ID returns the dashboard identifier.
func (d *Dashboard) ID() string {
	return d.id
}

// onQueryTransition persists history after transitions that change it.
func (d *Dashboard) onQueryTransition(event services.QueryEvent, state models.QueriesState) {
	if d.persister == nil {
		return
	}
	switch event {
	case services.QueryEventSucceeded, services.QueryEventHistoryCleared:
	default:
		return
	}
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	if !d.settings.Settings().SaveQueries {
		return
	}
	d.persister.save(state.History)
}

// SubmitQuery starts a query. The query slice is Loading when this returns.
func (d *Dashboard) SubmitQuery(text string) (*services.Submission, error) {
	return d.queries.Submit(text)
}

// ClearResults clears the current result and error.
func (d *Dashboard) ClearResults() {
	d.queries.ClearResults()
}

// ClearHistory empties query history.
func (d *Dashboard) ClearHistory() {
	d.queries.ClearHistory()
}

// Queries returns the query slice.
func (d *Dashboard) Queries() models.QueriesState {
	return d.queries.State()
}

// Profile returns the profile slice.
func (d *Dashboard) Profile() models.User {
	return d.profile.User()
}

// UpdateProfile shallow-merges patch into the profile.
func (d *Dashboard) UpdateProfile(patch models.UserPatch) models.User {
	return d.profile.UpdateProfile(patch)
}

// AddActivity records a recent activity entry.
func (d *Dashboard) AddActivity(activity models.Activity) models.User {
	return d.profile.AddActivity(activity)
}

// UpdateNotificationPreference toggles a named preference; false when no such preference exists.
func (d *Dashboard) UpdateNotificationPreference(name string, enabled bool) bool {
	return d.profile.UpdateNotificationPreference(name, enabled)
}

// Settings returns the settings slice.
func (d *Dashboard) Settings() models.Settings {
	return d.settings.Settings()
}

// UpdateSettings merges patch into settings. Turning SaveQueries off drops saved
// history; turning it on saves the current history.
func (d *Dashboard) UpdateSettings(patch models.SettingsPatch) models.Settings {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	before := d.settings.Settings()
	after := d.settings.UpdateSettings(patch)
	d.syncSavedHistory(before.SaveQueries, after.SaveQueries)
	return after
}

// ResetSettings restores default settings.
func (d *Dashboard) ResetSettings() models.Settings {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	before := d.settings.Settings()
	after := d.settings.ResetSettings()
	d.syncSavedHistory(before.SaveQueries, after.SaveQueries)
	return after
}

func (d *Dashboard) syncSavedHistory(wasSaving, isSaving bool) {
	if d.persister == nil || wasSaving == isSaving {
		return
	}
	if isSaving {
		d.persister.save(d.queries.State().History)
	} else {
		d.persister.remove()
	}
}

// Suggestions returns completions for partial input, honouring EnableAutoSuggestions.
func (d *Dashboard) Suggestions(input string) []string {
	if !d.settings.Settings().EnableAutoSuggestions {
		return []string{}
	}
	return services.SuggestQueries(input)
}

// Snapshot returns all three slices.
func (d *Dashboard) Snapshot() models.DashboardSnapshot {
	return models.DashboardSnapshot{
		ID:       d.id,
		Queries:  d.queries.State(),
		Profile:  d.profile.User(),
		Settings: d.settings.Settings(),
	}
}

// Close abandons pending queries and flushes saved history.
func (d *Dashboard) Close() {
	d.queries.Close()
	if d.persister != nil {
		d.persister.close()
	}
}
