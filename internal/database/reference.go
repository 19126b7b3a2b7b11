package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Gender and Intention are seeded reference tables; registration resolves
// the identifiers from the sign-up form against them.
type Gender struct {
	ID   int
	Name string
}

type Intention struct {
	ID   int
	Name string
}

func (db *Database) GetGenderByID(ctx context.Context, id int) (Gender, error) {
	var gender Gender
	err := db.Pool.QueryRow(ctx, `SELECT id, name FROM tbl_gender WHERE id = $1`, id).Scan(
		&gender.ID, &gender.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return gender, ErrGenderNotFound
		}
		return gender, err
	}
	return gender, nil
}

func (db *Database) GetIntentionByID(ctx context.Context, id int) (Intention, error) {
	var intention Intention
	err := db.Pool.QueryRow(ctx, `SELECT id, name FROM tbl_intention WHERE id = $1`, id).Scan(
		&intention.ID, &intention.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return intention, ErrIntentionNotFound
		}
		return intention, err
	}
	return intention, nil
}
