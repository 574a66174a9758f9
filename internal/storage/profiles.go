package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/claude/gymcoach/internal/models"
)

// GetProfile returns userID's profile, or the default profile when none is stored.
func (db *DB) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	p := models.Profile{UserID: userID}
	err := db.Pool.QueryRow(ctx,
		`SELECT goal, level, personal_info, language, notification_permission, updated_at
		 FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.Goal, &p.Level, &p.PersonalInfo, &p.Language, &p.NotificationPermission, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultProfile(userID), nil
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("getting profile: %w", err)
	}
	return p, nil
}

// UpsertProfile stores goal, level and personal info, keeping language and
// notification permission unless p sets them.
func (db *DB) UpsertProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	def := models.DefaultProfile(p.UserID)
	lang := p.Language
	if !lang.Valid() {
		lang = def.Language
	}
	perm := p.NotificationPermission
	if !perm.Valid() {
		perm = def.NotificationPermission
	}

	out := models.Profile{UserID: p.UserID}
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO profiles (user_id, goal, level, personal_info, language, notification_permission)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
			goal = EXCLUDED.goal,
			level = EXCLUDED.level,
			personal_info = EXCLUDED.personal_info,
			language = CASE WHEN $7 THEN EXCLUDED.language ELSE profiles.language END,
			notification_permission = CASE WHEN $8 THEN EXCLUDED.notification_permission ELSE profiles.notification_permission END,
			updated_at = NOW()
		 RETURNING goal, level, personal_info, language, notification_permission, updated_at`,
		p.UserID, p.Goal, p.Level, p.PersonalInfo, lang, perm, p.Language.Valid(), p.NotificationPermission.Valid(),
	).Scan(&out.Goal, &out.Level, &out.PersonalInfo, &out.Language, &out.NotificationPermission, &out.UpdatedAt)
	if err != nil {
		return models.Profile{}, fmt.Errorf("upserting profile: %w", err)
	}
	return out, nil
}

// SetLanguage updates only the language of userID's profile.
func (db *DB) SetLanguage(ctx context.Context, userID string, lang models.Language) error {
	def := models.DefaultProfile(userID)
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO profiles (user_id, goal, level, language)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET language = EXCLUDED.language, updated_at = NOW()`,
		userID, def.Goal, def.Level, lang)
	if err != nil {
		return fmt.Errorf("setting language: %w", err)
	}
	return nil
}

// SetNotificationPermission updates only the notification permission of userID's profile.
func (db *DB) SetNotificationPermission(ctx context.Context, userID string, perm models.Permission) error {
	def := models.DefaultProfile(userID)
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO profiles (user_id, goal, level, notification_permission)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET notification_permission = EXCLUDED.notification_permission, updated_at = NOW()`,
		userID, def.Goal, def.Level, perm)
	if err != nil {
		return fmt.Errorf("setting notification permission: %w", err)
	}
	return nil
}
