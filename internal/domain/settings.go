package domain

// CardKeywordCustomization is a user's per-card keyword override.
type CardKeywordCustomization struct {
	AddedUpright    []string `json:"addedUpright,omitempty"`
	RemovedUpright  []string `json:"removedUpright,omitempty"`
	AddedReversed   []string `json:"addedReversed,omitempty"`
	RemovedReversed []string `json:"removedReversed,omitempty"`
}

// IsEmpty reports whether the customization carries no overrides. An empty
// customization is equivalent to none and is never stored.
func (c CardKeywordCustomization) IsEmpty() bool {
	return len(c.AddedUpright) == 0 && len(c.RemovedUpright) == 0 &&
		len(c.AddedReversed) == 0 && len(c.RemovedReversed) == 0
}

// Screen names a top-level screen with its own tutorial.
type Screen string

const (
	ScreenHome     Screen = "home"
	ScreenLogs     Screen = "logs"
	ScreenSettings Screen = "settings"
)

// AppSettings are user preferences persisted across launches.
type AppSettings struct {
	SpeechVolume          float64 `json:"speechVolume"`
	SpeechRate            float64 `json:"speechRate"`
	TutorialEnabled       bool    `json:"tutorialEnabled"`
	HomeTutorialShown     bool    `json:"homeTutorialShown"`
	LogsTutorialShown     bool    `json:"logsTutorialShown"`
	SettingsTutorialShown bool    `json:"settingsTutorialShown"`
	DefaultSpread         Spread  `json:"defaultSpread"`
	HapticEnabled         bool    `json:"hapticEnabled"`
}

// DefaultAppSettings returns first-launch preferences.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		SpeechVolume:    1.0,
		SpeechRate:      0.5,
		TutorialEnabled: true,
		DefaultSpread:   SpreadOneCard,
		HapticEnabled:   true,
	}
}

// ShouldShowTutorial reports whether the tutorial for screen is still pending.
func (s AppSettings) ShouldShowTutorial(screen Screen) bool {
	if !s.TutorialEnabled {
		return false
	}
	switch screen {
	case ScreenHome:
		return !s.HomeTutorialShown
	case ScreenLogs:
		return !s.LogsTutorialShown
	case ScreenSettings:
		return !s.SettingsTutorialShown
	default:
		return false
	}
}

// MarkTutorialShown records that the tutorial for screen was seen.
func (s *AppSettings) MarkTutorialShown(screen Screen) {
	switch screen {
	case ScreenHome:
		s.HomeTutorialShown = true
	case ScreenLogs:
		s.LogsTutorialShown = true
	case ScreenSettings:
		s.SettingsTutorialShown = true
	}
}

// Normalize clamps out-of-range values to their defaults.
func (s AppSettings) Normalize() AppSettings {
	def := DefaultAppSettings()
	if s.SpeechVolume < 0 || s.SpeechVolume > 1 {
		s.SpeechVolume = def.SpeechVolume
	}
	if s.SpeechRate <= 0 || s.SpeechRate > 1 {
		s.SpeechRate = def.SpeechRate
	}
	if !s.DefaultSpread.Valid() {
		s.DefaultSpread = def.DefaultSpread
	}
	return s
}
