package store

import "github.com/citypulse/server/internal/models"

// AppState is the preferences slice. IsRTL is always derived from Language.
type AppState struct {
	models.AppPreferences
}

func NewAppState() AppState {
	return AppState{AppPreferences: models.DefaultAppPreferences()}
}

func (s AppState) SetLanguage(lang models.Language) AppState {
	s.Language = lang
	s.IsRTL = lang == models.LanguageArabic
	return s
}

func (s AppState) SetTheme(theme models.Theme) AppState {
	s.Theme = theme
	return s
}

func (s AppState) SetSplashSeen() AppState {
	s.HasSeenSplash = true
	return s
}

func (s AppState) SetBiometric(enabled bool) AppState {
	s.BiometricEnabled = enabled
	return s
}
