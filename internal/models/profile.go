package models

import "time"

// Goal is the user's primary training goal.
type Goal string

const (
	GoalHypertrophy Goal = "muscle_hypertrophy"
	GoalStrength    Goal = "strength"
	GoalDiet        Goal = "diet"
	GoalHealth      Goal = "health"
)

// Valid reports whether g is a known goal.
func (g Goal) Valid() bool {
	switch g {
	case GoalHypertrophy, GoalStrength, GoalDiet, GoalHealth:
		return true
	}
	return false
}

// Level is the user's training experience.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Language selects the language of generated text.
type Language string

const (
	LanguageJapanese Language = "ja"
	LanguageEnglish  Language = "en"
	LanguageItalian  Language = "it"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	switch l {
	case LanguageJapanese, LanguageEnglish, LanguageItalian:
		return true
	}
	return false
}

// OrDefault returns l, or Japanese when l is empty or unsupported.
func (l Language) OrDefault() Language {
	if l.Valid() {
		return l
	}
	return LanguageJapanese
}

// Name returns the English name of the language, as used in prompts.
func (l Language) Name() string {
	switch l.OrDefault() {
	case LanguageEnglish:
		return "English"
	case LanguageItalian:
		return "Italian"
	default:
		return "Japanese"
	}
}

// Permission is the tri-state notification permission.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Valid reports whether p is one of the three permission states.
func (p Permission) Valid() bool {
	switch p {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return true
	}
	return false
}

// Profile holds the per-user settings that shape generated plans.
type Profile struct {
	UserID                 string     `json:"user_id"`
	Goal                   Goal       `json:"goal"`
	Level                  Level      `json:"level"`
	PersonalInfo           string     `json:"personal_info"`
	Language               Language   `json:"language"`
	NotificationPermission Permission `json:"notification_permission"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// DefaultProfile returns the settings a new user starts with.
func DefaultProfile(userID string) Profile {
	return Profile{
		UserID:                 userID,
		Goal:                   GoalHypertrophy,
		Level:                  LevelIntermediate,
		Language:               LanguageJapanese,
		NotificationPermission: PermissionDefault,
	}
}

// Onboarded reports whether the user has chosen a goal.
func (p Profile) Onboarded() bool {
	return p.Goal != ""
}
