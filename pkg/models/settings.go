package models

// Theme constants.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// ValidThemes contains all valid theme values.
var ValidThemes = []string{ThemeLight, ThemeDark, ThemeSystem}

// ValidColorSchemes contains all valid color scheme values.
var ValidColorSchemes = []string{"blue", "purple", "green", "orange"}

// Settings is the flat record of display and behavior toggles.
type Settings struct {
	Theme                 string `json:"theme"`
	ColorScheme           string `json:"color_scheme"`
	EnableAnimations      bool   `json:"enable_animations"`
	ReducedMotion         bool   `json:"reduced_motion"`
	EnableSoundEffects    bool   `json:"enable_sound_effects"`
	EnableAutoSuggestions bool   `json:"enable_auto_suggestions"`
	SaveQueries           bool   `json:"save_queries"`
	DefaultChartType      string `json:"default_chart_type"`
}

// DefaultSettings returns the initial settings.
func DefaultSettings() Settings {
	return Settings{
		Theme:                 ThemeSystem,
		ColorScheme:           "purple",
		EnableAnimations:      true,
		ReducedMotion:         false,
		EnableSoundEffects:    true,
		EnableAutoSuggestions: true,
		SaveQueries:           true,
		DefaultChartType:      string(ChartTypeBar),
	}
}

// SettingsPatch is a partial Settings. Nil fields are left untouched.
type SettingsPatch struct {
	Theme                 *string `json:"theme,omitempty"`
	ColorScheme           *string `json:"color_scheme,omitempty"`
	EnableAnimations      *bool   `json:"enable_animations,omitempty"`
	ReducedMotion         *bool   `json:"reduced_motion,omitempty"`
	EnableSoundEffects    *bool   `json:"enable_sound_effects,omitempty"`
	EnableAutoSuggestions *bool   `json:"enable_auto_suggestions,omitempty"`
	SaveQueries           *bool   `json:"save_queries,omitempty"`
	DefaultChartType      *string `json:"default_chart_type,omitempty"`
}

// Apply overwrites the fields set in the patch and returns the merged settings.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.ColorScheme != nil {
		s.ColorScheme = *p.ColorScheme
	}
	if p.EnableAnimations != nil {
		s.EnableAnimations = *p.EnableAnimations
	}
	if p.ReducedMotion != nil {
		s.ReducedMotion = *p.ReducedMotion
	}
	if p.EnableSoundEffects != nil {
		s.EnableSoundEffects = *p.EnableSoundEffects
	}
	if p.EnableAutoSuggestions != nil {
		s.EnableAutoSuggestions = *p.EnableAutoSuggestions
	}
	if p.SaveQueries != nil {
		s.SaveQueries = *p.SaveQueries
	}
	if p.DefaultChartType != nil {
		s.DefaultChartType = *p.DefaultChartType
	}
	return s
}

// Validate reports the first enumerated field holding an unknown value.
// Returns the field name, or "" when the patch is acceptable.
func (p SettingsPatch) Validate() string {
	if p.Theme != nil && !contains(ValidThemes, *p.Theme) {
		return "theme"
	}
	if p.ColorScheme != nil && !contains(ValidColorSchemes, *p.ColorScheme) {
		return "color_scheme"
	}
	if p.DefaultChartType != nil && !IsValidChartType(*p.DefaultChartType) {
		return "default_chart_type"
	}
	return ""
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
