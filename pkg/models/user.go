package models

// ActivityType classifies an entry in a user's recent activity feed.
type ActivityType string

const (
	ActivityQuery         ActivityType = "query"
	ActivityVisualization ActivityType = "visualization"
)

// MaxRecentActivity is the number of activity entries kept on a profile.
const MaxRecentActivity = 10

// UserStats holds read-only usage counters.
type UserStats struct {
	Queries        int `json:"queries" yaml:"queries"`
	Visualizations int `json:"visualizations" yaml:"visualizations"`
	SavedReports   int `json:"saved_reports" yaml:"saved_reports"`
}

// NotificationPreference is a named toggle. Name is the lookup key and is unique per user.
type NotificationPreference struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
}

// Activity is a single entry in the recent activity feed.
// Timestamp is a display label ("Today at 10:23 AM"), not a parsed time.
type Activity struct {
	Type        ActivityType `json:"type" yaml:"type"`
	Description string       `json:"description" yaml:"description"`
	Timestamp   string       `json:"timestamp" yaml:"timestamp"`
}

// IsValidActivityType checks if the given activity type is valid.
func IsValidActivityType(t ActivityType) bool {
	return t == ActivityQuery || t == ActivityVisualization
}

// User is the profile owned by the profile slice.
type User struct {
	Name                    string                   `json:"name" yaml:"name"`
	Email                   string                   `json:"email" yaml:"email"`
	Avatar                  string                   `json:"avatar" yaml:"avatar"`
	Role                    string                   `json:"role" yaml:"role"`
	Location                string                   `json:"location" yaml:"location"`
	Bio                     string                   `json:"bio" yaml:"bio"`
	Stats                   UserStats                `json:"stats" yaml:"stats"`
	NotificationPreferences []NotificationPreference `json:"notification_preferences" yaml:"notification_preferences"`
	RecentActivity          []Activity               `json:"recent_activity" yaml:"recent_activity"`
}

// Clone returns a deep copy of the user.
func (u User) Clone() User {
	c := u
	c.NotificationPreferences = append([]NotificationPreference{}, u.NotificationPreferences...)
	c.RecentActivity = append([]Activity{}, u.RecentActivity...)
	return c
}

// UserPatch is a partial User. Nil fields are left untouched by a merge;
// Stats and the two slices replace the current value wholesale when set.
type UserPatch struct {
	Name                    *string                   `json:"name,omitempty"`
	Email                   *string                   `json:"email,omitempty"`
	Avatar                  *string                   `json:"avatar,omitempty"`
	Role                    *string                   `json:"role,omitempty"`
	Location                *string                   `json:"location,omitempty"`
	Bio                     *string                   `json:"bio,omitempty"`
	Stats                   *UserStats                `json:"stats,omitempty"`
	NotificationPreferences *[]NotificationPreference `json:"notification_preferences,omitempty"`
	RecentActivity          *[]Activity               `json:"recent_activity,omitempty"`
}

// Apply shallow-merges the patch into u and returns the merged user.
func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Stats != nil {
		u.Stats = *p.Stats
	}
	if p.NotificationPreferences != nil {
		u.NotificationPreferences = append([]NotificationPreference{}, (*p.NotificationPreferences)...)
	}
	if p.RecentActivity != nil {
		u.RecentActivity = append([]Activity{}, (*p.RecentActivity)...)
	}
	return u
}

// DuplicatePreferenceName returns the first notification preference name that
// appears more than once, or "" when every name is unique.
func DuplicatePreferenceName(prefs []NotificationPreference) string {
	seen := make(map[string]struct{}, len(prefs))
	for _, p := range prefs {
		if _, ok := seen[p.Name]; ok {
			return p.Name
		}
		seen[p.Name] = struct{}{}
	}
	return ""
}

// DefaultUser returns the seeded profile.
func DefaultUser() User {
	return User{
		Name:     "Alex Johnson",
		Email:    "alex.johnson@example.com",
		Avatar:   "/placeholder.svg?height=128&width=128",
		Role:     "Data Analyst",
		Location: "San Francisco, CA",
		Bio:      "Data enthusiast with a passion for turning complex information into actionable insights. Specializing in visualization and AI-powered analytics.",
		Stats: UserStats{
			Queries:        128,
			Visualizations: 47,
			SavedReports:   12,
		},
		NotificationPreferences: []NotificationPreference{
			{Name: "Email Notifications", Description: "Receive updates and reports via email", Enabled: true},
			{Name: "Query Alerts", Description: "Get notified when queries complete", Enabled: true},
			{Name: "Weekly Reports", Description: "Receive weekly usage summaries", Enabled: false},
		},
		RecentActivity: []Activity{
			{Type: ActivityQuery, Description: "Analyzed sales data by region", Timestamp: "Today at 10:23 AM"},
			{Type: ActivityVisualization, Description: "Created bar chart for Q2 performance", Timestamp: "Yesterday at 3:45 PM"},
			{Type: ActivityQuery, Description: "Compared marketing campaign results", Timestamp: "2 days ago"},
			{Type: ActivityVisualization, Description: "Generated pie chart for user demographics", Timestamp: "3 days ago"},
		},
	}
}
