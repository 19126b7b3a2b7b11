package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"amora/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type User struct {
	ID              uuid.UUID
	Email           string
	PasswordHash    util.Optional[string]
	FirstName       string
	GenderID        int
	IntentionID     int
	IsConfirmed     bool
	PreferredMinAge int
	PreferredMaxAge int
	ProfileViews    int
	SearchCount     int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserDates holds the per-user activity timestamps. Owned by its user row,
// created and deleted with it.
type UserDates struct {
	UserID                  uuid.UUID
	CreationDate            time.Time
	DateOfBirth             time.Time
	ActiveDate              time.Time
	MessageDate             time.Time
	MessageCheckedDate      time.Time
	NotificationDate        time.Time
	NotificationCheckedDate time.Time
	IntentionChangeDate     time.Time
}

type UserSettings struct {
	UserID     uuid.UUID
	EmailLike  bool
	EmailMatch bool
	EmailChat  bool
}

type CreateAccountParams struct {
	ID              uuid.UUID
	Email           string
	PasswordHash    util.Optional[string]
	FirstName       string
	GenderID        int
	IntentionID     int
	IsConfirmed     bool
	PreferredMinAge int
	PreferredMaxAge int
	DateOfBirth     time.Time
	Now             time.Time
}

const userColumns = `id, email, password_hash, first_name, gender_id, intention_id, is_confirmed,
	preferred_min_age, preferred_max_age, profile_views, search_count, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.GenderID,
		&user.IntentionID, &user.IsConfirmed, &user.PreferredMinAge, &user.PreferredMaxAge,
		&user.ProfileViews, &user.SearchCount, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// CreateAccount inserts the user row together with its dates and settings
// rows in a single transaction. The unique index on email is the
// authoritative duplicate guard; a violation surfaces as ErrDuplicateEmail.
func (db *Database) CreateAccount(ctx context.Context, params CreateAccountParams) (User, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	user, err := scanUser(tx.QueryRow(ctx, `INSERT INTO tbl_user
		(id, email, password_hash, first_name, gender_id, intention_id, is_confirmed,
		 preferred_min_age, preferred_max_age, profile_views, search_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, $10, $10)
		RETURNING `+userColumns,
		params.ID, params.Email, params.PasswordHash, params.FirstName, params.GenderID,
		params.IntentionID, params.IsConfirmed, params.PreferredMinAge, params.PreferredMaxAge,
		params.Now))
	if err != nil {
		if isUniqueViolation(err, "tbl_user_email_key") {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO tbl_user_dates
		(user_id, creation_date, date_of_birth, active_date, message_date, message_checked_date,
		 notification_date, notification_checked_date, intention_change_date)
		VALUES ($1, $2, $3, $2, $2, $2, $2, $2, $2)`,
		params.ID, params.Now, params.DateOfBirth); err != nil {
		return User{}, fmt.Errorf("failed to insert user dates: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO tbl_user_settings
		(user_id, email_like, email_match, email_chat)
		VALUES ($1, false, false, false)`, params.ID); err != nil {
		return User{}, fmt.Errorf("failed to insert user settings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, fmt.Errorf("failed to commit account creation: %w", err)
	}

	return user, nil
}

func (db *Database) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM tbl_user WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

func (db *Database) GetUserByEmail(ctx context.Context, email string) (User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM tbl_user WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

// ConfirmUser flips is_confirmed for the given user if and only if it is
// still false. Returns false when the row exists but was already confirmed,
// so concurrent confirmations resolve to exactly one winner.
func (db *Database) ConfirmUser(ctx context.Context, id uuid.UUID, now time.Time) (User, bool, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, `UPDATE tbl_user
		SET is_confirmed = true, updated_at = $2
		WHERE id = $1 AND is_confirmed = false
		RETURNING `+userColumns, id, now))
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return User{}, false, fmt.Errorf("failed to confirm user: %w", err)
	}

	// No transition happened: either the user is gone or someone beat us.
	user, err = db.GetUserByID(ctx, id)
	if err != nil {
		return User{}, false, err
	}
	return user, false, nil
}

func (db *Database) GetUserSettings(ctx context.Context, userID uuid.UUID) (UserSettings, error) {
	var settings UserSettings
	err := db.Pool.QueryRow(ctx, `SELECT user_id, email_like, email_match, email_chat
		FROM tbl_user_settings WHERE user_id = $1`, userID).Scan(
		&settings.UserID, &settings.EmailLike, &settings.EmailMatch, &settings.EmailChat)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings, ErrUserNotFound
		}
		return settings, err
	}
	return settings, nil
}

func (db *Database) GetUserDates(ctx context.Context, userID uuid.UUID) (UserDates, error) {
	var dates UserDates
	err := db.Pool.QueryRow(ctx, `SELECT user_id, creation_date, date_of_birth, active_date,
		message_date, message_checked_date, notification_date, notification_checked_date,
		intention_change_date FROM tbl_user_dates WHERE user_id = $1`, userID).Scan(
		&dates.UserID, &dates.CreationDate, &dates.DateOfBirth, &dates.ActiveDate,
		&dates.MessageDate, &dates.MessageCheckedDate, &dates.NotificationDate,
		&dates.NotificationCheckedDate, &dates.IntentionChangeDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dates, ErrUserNotFound
		}
		return dates, err
	}
	return dates, nil
}

// DeleteStaleUnconfirmedUsers removes accounts that never confirmed within
// the retention window. Dates, settings and tokens go with them via cascade.
func (db *Database) DeleteStaleUnconfirmedUsers(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM tbl_user WHERE is_confirmed = false AND created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale unconfirmed users: %w", err)
	}
	return tag.RowsAffected(), nil
}
