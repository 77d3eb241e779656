package models

import "testing"

func TestUserPatch_Apply(t *testing.T) {
	name := "Sam Lee"
	stats := UserStats{Queries: 1}
	prefs := []NotificationPreference{{Name: "Only", Enabled: true}}

	got := UserPatch{Name: &name, Stats: &stats, NotificationPreferences: &prefs}.Apply(DefaultUser())

	if got.Name != "Sam Lee" {
		t.Errorf("Name = %q, want %q", got.Name, "Sam Lee")
	}
	if got.Email != DefaultUser().Email {
		t.Errorf("Email changed to %q", got.Email)
	}
	if got.Stats != stats {
		t.Errorf("Stats = %+v, want %+v", got.Stats, stats)
	}
	if len(got.NotificationPreferences) != 1 {
		t.Errorf("expected preferences to be replaced wholesale, got %d", len(got.NotificationPreferences))
	}
	if len(got.RecentActivity) != len(DefaultUser().RecentActivity) {
		t.Error("RecentActivity changed without being patched")
	}

	prefs[0].Name = "mutated"
	if got.NotificationPreferences[0].Name != "Only" {
		t.Error("merged user shares storage with the patch")
	}
}

func TestDefaultUser(t *testing.T) {
	u := DefaultUser()

	if u.Name != "Alex Johnson" || u.Role != "Data Analyst" {
		t.Errorf("unexpected seed identity: %s / %s", u.Name, u.Role)
	}
	if u.Stats != (UserStats{Queries: 128, Visualizations: 47, SavedReports: 12}) {
		t.Errorf("unexpected stats: %+v", u.Stats)
	}
	if len(u.NotificationPreferences) != 3 {
		t.Errorf("expected 3 notification preferences, got %d", len(u.NotificationPreferences))
	}
	if len(u.RecentActivity) != 4 {
		t.Errorf("expected 4 recent activities, got %d", len(u.RecentActivity))
	}
	for _, a := range u.RecentActivity {
		if !IsValidActivityType(a.Type) {
			t.Errorf("invalid activity type %q", a.Type)
		}
	}
}

func TestUser_CloneIsDeep(t *testing.T) {
	u := DefaultUser()
	c := u.Clone()
	c.NotificationPreferences[0].Enabled = !u.NotificationPreferences[0].Enabled
	c.RecentActivity[0].Description = "changed"

	if u.NotificationPreferences[0].Enabled == c.NotificationPreferences[0].Enabled {
		t.Error("preferences share storage with clone")
	}
	if u.RecentActivity[0].Description == "changed" {
		t.Error("activity shares storage with clone")
	}
}

func TestDuplicatePreferenceName(t *testing.T) {
	tests := []struct {
		name  string
		prefs []NotificationPreference
		want  string
	}{
		{"empty", nil, ""},
		{"defaults are unique", DefaultUser().NotificationPreferences, ""},
		{"duplicate", []NotificationPreference{{Name: "A"}, {Name: "B"}, {Name: "A", Enabled: true}}, "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DuplicatePreferenceName(tt.prefs); got != tt.want {
				t.Errorf("DuplicatePreferenceName() = %q, want %q", got, tt.want)
			}
		})
	}
}
