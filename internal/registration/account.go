package registration

import (
	"amora/internal/database"

	"github.com/google/uuid"
)

// Account bundles a freshly created user row with the sibling records that
// exist from the first moment of its life. Relationship collections start
// as empty slices, never nil, so downstream features can range and append
// without nil checks; "no items yet" is always an empty container.
type Account struct {
	User     database.User
	Dates    database.UserDates
	Settings database.UserSettings

	Interests     []uuid.UUID
	Images        []uuid.UUID
	Likes         []uuid.UUID
	Conversations []uuid.UUID
	Messages      []uuid.UUID
	Notifications []uuid.UUID
	Hides         []uuid.UUID
	Blocks        []uuid.UUID
	Reports       []uuid.UUID
	WebPushSubs   []uuid.UUID
	Donations     []uuid.UUID
}

func NewAccount(user database.User, dates database.UserDates, settings database.UserSettings) Account {
	return Account{
		User:     user,
		Dates:    dates,
		Settings: settings,

		Interests:     []uuid.UUID{},
		Images:        []uuid.UUID{},
		Likes:         []uuid.UUID{},
		Conversations: []uuid.UUID{},
		Messages:      []uuid.UUID{},
		Notifications: []uuid.UUID{},
		Hides:         []uuid.UUID{},
		Blocks:        []uuid.UUID{},
		Reports:       []uuid.UUID{},
		WebPushSubs:   []uuid.UUID{},
		Donations:     []uuid.UUID{},
	}
}
