package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/config"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/dashboard"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/services"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/session"
)

type fixedRandom float64

func (f fixedRandom) Float64() float64 { return float64(f) }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// newTestAPI serves every dashboard route against a single dashboard.
func newTestAPI(t *testing.T, query services.QueryServiceConfig) (http.Handler, *dashboard.Dashboard) {
	t.Helper()
	d, err := dashboard.New(context.Background(), dashboard.Options{ID: "api-test", Query: query}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(d.Close)

	bind := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(session.WithDashboard(r.Context(), d)))
		})
	}

	mux := http.NewServeMux()
	logger := zap.NewNop()
	NewDashboardHandler(logger).RegisterRoutes(mux, bind)
	NewQueriesHandler(logger).RegisterRoutes(mux, bind)
	NewProfileHandler(logger).RegisterRoutes(mux, bind)
	NewSettingsHandler(logger).RegisterRoutes(mux, bind)
	return mux, d
}

// pendingQueries never resolve during a test.
func pendingQueries(policy services.SubmissionPolicy) services.QueryServiceConfig {
	return services.QueryServiceConfig{
		SimulatedDelay: time.Hour,
		Policy:         policy,
		Failure:        services.FailurePolicy{Probability: services.DefaultFailureProbability, Source: fixedRandom(0.99)},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec, env
}

func TestQueriesHandler_SubmitEntersLoading(t *testing.T) {
	h, _ := newTestAPI(t, pendingQueries(services.PolicyOverlap))

	rec, env := do(t, h, http.MethodPost, "/api/queries", `{"text":"Show sales breakdown"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, env.Success)

	var state models.QueriesState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.True(t, state.IsLoading)
	require.NotNil(t, state.CurrentQueryText)
	assert.Equal(t, "Show sales breakdown", *state.CurrentQueryText)
	assert.Nil(t, state.LastError)
	assert.Empty(t, state.History)
}

func TestQueriesHandler_SubmitResolves(t *testing.T) {
	h, d := newTestAPI(t, services.QueryServiceConfig{
		SimulatedDelay: time.Millisecond,
		Failure:        services.FailurePolicy{Probability: services.DefaultFailureProbability, Source: fixedRandom(0.99)},
	})

	rec, _ := do(t, h, http.MethodPost, "/api/queries", `{"text":"Show sales breakdown"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return !d.Queries().IsLoading
	}, 2*time.Second, 5*time.Millisecond)

	_, env := do(t, h, http.MethodGet, "/api/queries", "")
	var state models.QueriesState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	require.NotNil(t, state.CurrentResult)
	assert.Equal(t, models.ChartTypePie, state.CurrentResult.ChartType)
	assert.Equal(t, `Results for: "Show sales breakdown"`, state.CurrentResult.Description)
	require.Len(t, state.History, 1)
	assert.Equal(t, "Show sales breakdown", state.History[0].Text)
}

func TestQueriesHandler_SubmitKeepsTextAsTyped(t *testing.T) {
	h, d := newTestAPI(t, services.QueryServiceConfig{
		SimulatedDelay: time.Millisecond,
		Failure:        services.FailurePolicy{Probability: services.DefaultFailureProbability, Source: fixedRandom(0.99)},
	})
	padded := "  Show sales breakdown "

	rec, env := do(t, h, http.MethodPost, "/api/queries", `{"text":"  Show sales breakdown "}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var state models.QueriesState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	require.NotNil(t, state.CurrentQueryText)
	assert.Equal(t, padded, *state.CurrentQueryText)

	require.Eventually(t, func() bool {
		return !d.Queries().IsLoading
	}, 2*time.Second, 5*time.Millisecond)

	state = d.Queries()
	require.NotNil(t, state.CurrentResult)
	assert.Equal(t, `Results for: "`+padded+`"`, state.CurrentResult.Description)
	assert.Equal(t, models.ChartTypePie, state.CurrentResult.ChartType)
	require.Len(t, state.History, 1)
	assert.Equal(t, padded, state.History[0].Text)
}

func TestQueriesHandler_SubmitValidation(t *testing.T) {
	h, _ := newTestAPI(t, pendingQueries(services.PolicyOverlap))

	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{"blank text", `{"text":"   "}`, "missing_text"},
		{"missing text", `{}`, "missing_text"},
		{"malformed body", `{"text":`, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, "/api/queries", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantError, env.Error)
		})
	}
}

func TestQueriesHandler_RejectWhilePending(t *testing.T) {
	h, d := newTestAPI(t, pendingQueries(services.PolicyReject))

	rec, _ := do(t, h, http.MethodPost, "/api/queries", `{"text":"first"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec, env := do(t, h, http.MethodPost, "/api/queries", `{"text":"second"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "query_pending", env.Error)
	assert.Equal(t, "first", *d.Queries().CurrentQueryText)
}

func TestQueriesHandler_ClearEndpoints(t *testing.T) {
	h, d := newTestAPI(t, services.QueryServiceConfig{
		SimulatedDelay: time.Millisecond,
		Failure:        services.FailurePolicy{Probability: services.DefaultFailureProbability, Source: fixedRandom(0.99)},
	})

	sub, err := d.SubmitQuery("revenue trend")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = sub.Wait(ctx)
	require.NoError(t, err)

	rec, env := do(t, h, http.MethodDelete, "/api/queries/result", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var state models.QueriesState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Nil(t, state.CurrentResult)
	assert.Len(t, state.History, 1, "clearing results keeps history")

	rec, env = do(t, h, http.MethodDelete, "/api/queries/history", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Empty(t, state.History)
}

func TestQueriesHandler_Suggestions(t *testing.T) {
	h, d := newTestAPI(t, pendingQueries(services.PolicyOverlap))

	_, env := do(t, h, http.MethodGet, "/api/queries/suggestions?q=revenue", "")
	var resp SuggestionsResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, []string{"revenue by country", "revenue over time", "revenue compared to last year"}, resp.Suggestions)

	_, env = do(t, h, http.MethodGet, "/api/queries/suggestions?q=", "")
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Empty(t, resp.Suggestions)

	disabled := false
	d.UpdateSettings(models.SettingsPatch{EnableAutoSuggestions: &disabled})
	_, env = do(t, h, http.MethodGet, "/api/queries/suggestions?q=revenue", "")
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Empty(t, resp.Suggestions)
}

func TestQueriesHandler_Examples(t *testing.T) {
	h, _ := newTestAPI(t, pendingQueries(services.PolicyOverlap))

	rec, env := do(t, h, http.MethodGet, "/api/queries/examples", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ExamplesResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, services.ExampleQueries, resp.Examples)
}

func TestProfileHandler_UpdateMergesFields(t *testing.T) {
	h, _ := newTestAPI(t, pendingQueries(services.PolicyOverlap))

	rec, env := do(t, h, http.MethodPatch, "/api/profile", `{"name":"Sam Lee","location":"Berlin"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	expected := models.DefaultUser()
	expected.Name = "Sam Lee"
	expected.Location = "Berlin"
	assert.Equal(t, expected, user)
}

func TestProfileHandler_UpdateRejectsDuplicatePreferenceNames(t *testing.T) {
	h, d := newTestAPI(t, pendingQueries(services.PolicyOverlap))

	rec, env := do(t, h, http.MethodPatch, "/api/profile",
		`{"name":"Sam Lee","notification_preferences":[{"name":"Alerts","enabled":true},{"name":"Alerts","enabled":false}]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "duplicate_notification_preference", env.Error)
	assert.Equal(t, models.DefaultUser(), d.Profile(), "a rejected patch changes nothing")
}

func TestProfileHandler_AddActivity(t *testing.T) {
	h, _ := newTestAPI(t, pendingQueries(services.PolicyOverlap))

	rec, env := do(t, h, http.MethodPost, "/api/profile/activity",
		`{"type":"visualization","description":"Built a funnel chart","timestamp":"Just now"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "Built a funnel chart", user.RecentActivity[0].Description)
	assert.LessOrEqual(t, len(user.RecentActivity), models.MaxRecentActivity)

	rec, env = do(t, h, http.MethodPost, "/api/profile/activity", `{"type":"export","description":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_activity_type", env.Error)
}

func TestProfileHandler_UpdateNotification(t *testing.T) {
	h, _ := newTestAPI(t, pendingQueries(services.PolicyOverlap))
	name := models.DefaultUser().NotificationPreferences[0].Name

	req := httptest.NewRequest(http.MethodPut, "/api/profile/notifications/"+url.PathEscape(name), bytes.NewReader([]byte(`{"enabled":false}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var resp UpdateNotificationResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.True(t, resp.Updated)
	assert.False(t, resp.Profile.NotificationPreferences[0].Enabled)

	rec, env = do(t, h, http.MethodPut, "/api/profile/notifications/Nonexistent", `{"enabled":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.False(t, resp.Updated)
}

func TestSettingsHandler_UpdateAndReset(t *testing.T) {
	h, _ := newTestAPI(t, pendingQueries(services.PolicyOverlap))

	rec, env := do(t, h, http.MethodPatch, "/api/settings", `{"theme":"dark"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var settings models.Settings
	require.NoError(t, json.Unmarshal(env.Data, &settings))
	expected := models.DefaultSettings()
	expected.Theme = "dark"
	assert.Equal(t, expected, settings)

	rec, env = do(t, h, http.MethodPost, "/api/settings/reset", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &settings))
	assert.Equal(t, models.DefaultSettings(), settings)
}

func TestSettingsHandler_RejectsUnknownValues(t *testing.T) {
	h, d := newTestAPI(t, pendingQueries(services.PolicyOverlap))

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"theme", `{"theme":"neon"}`, "theme"},
		{"color scheme", `{"color_scheme":"red"}`, "color_scheme"},
		{"chart type", `{"default_chart_type":"scatter"}`, "default_chart_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPatch, "/api/settings", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_setting", env.Error)
			assert.Contains(t, env.Message, tt.field)
		})
	}
	assert.Equal(t, models.DefaultSettings(), d.Settings())
}

func TestDashboardHandler_Snapshot(t *testing.T) {
	h, _ := newTestAPI(t, pendingQueries(services.PolicyOverlap))

	rec, env := do(t, h, http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var snapshot models.DashboardSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snapshot))
	assert.Equal(t, "api-test", snapshot.ID)
	assert.Equal(t, models.DefaultUser(), snapshot.Profile)
	assert.Equal(t, models.DefaultSettings(), snapshot.Settings)
}

func TestRequireDashboard_NoSession(t *testing.T) {
	rec := httptest.NewRecorder()
	NewDashboardHandler(zap.NewNop()).Get(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "session_unavailable", env.Error)
}

func TestRoutes_SessionCookieIsolatesDashboards(t *testing.T) {
	factory := func(ctx context.Context, id string) (*dashboard.Dashboard, error) {
		return dashboard.New(ctx, dashboard.Options{ID: id, Query: pendingQueries(services.PolicyOverlap)}, zap.NewNop())
	}
	reg := session.NewRegistry(config.SessionConfig{Secret: "test", MaxAgeSeconds: 60, MaxDashboards: 10}, false, factory, zap.NewNop())
	t.Cleanup(reg.Close)

	mux := http.NewServeMux()
	NewSettingsHandler(zap.NewNop()).RegisterRoutes(mux, reg.Middleware)

	// First browser changes its theme.
	req := httptest.NewRequest(http.MethodPatch, "/api/settings", bytes.NewReader([]byte(`{"theme":"dark"}`)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req = httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var settings models.Settings
	require.NoError(t, json.Unmarshal(env.Data, &settings))
	assert.Equal(t, "dark", settings.Theme)

	// A second browser without the cookie sees defaults.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, &settings))
	assert.Equal(t, models.DefaultSettings().Theme, settings.Theme)
	assert.Equal(t, 2, reg.Len())
}
