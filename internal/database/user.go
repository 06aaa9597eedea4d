package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/madhavavukkum/Cipher-Chat/internal/auth"
	"github.com/madhavavukkum/Cipher-Chat/internal/models"
)

// ErrUserNotFound is returned when a referenced user does not exist.
var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, email, password, username, is_guest, is_online, last_seen, avatar, bio`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Password, &u.Username,
		&u.IsGuest, &u.IsOnline, &u.LastSeen, &u.Avatar, &u.Bio,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	hash, err := auth.CreateHash(user.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hash

	q := `INSERT INTO users (id, email, password, username, is_guest, bio)
	      VALUES ($1, $2, $3, $4, $5, $6)`

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			user.ID, user.Email, user.Password, user.Username,
			user.IsGuest, user.Bio,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// CreateGuestUser creates a throwaway account with a generated name. Guest
// accounts are torn down later via DeleteGuestUser.
func CreateGuestUser(ctx context.Context, username string) (*models.User, error) {
	u := models.User{
		Username: username,
		Email:    fmt.Sprintf("guest_%d_%s@temp.local", time.Now().UnixMilli(), uuid.NewString()[:8]),
		Password: uuid.NewString(),
		IsGuest:  true,
	}
	if err := CreateUser(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(DB.QueryRow(ctx, q, id))
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(DB.QueryRow(ctx, q, email))
}

// AuthenticateUser checks credentials and issues a JWT on success. Guest
// accounts have generated throwaway passwords and cannot log in this way.
func AuthenticateUser(ctx context.Context, email, password string) (string, error) {
	user, err := GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("user not found or db error: %w", err)
	}
	if user.IsGuest {
		return "", fmt.Errorf("guest accounts cannot log in with credentials")
	}

	match, err := auth.ComparePasswordAndHash(password, user.Password)
	if err != nil || !match {
		return "", fmt.Errorf("invalid credentials")
	}

	token, err := auth.CreateJWT(user.ID.String())
	if err != nil {
		return "", fmt.Errorf("failed to create jwt: %w", err)
	}
	return token, nil
}

// SetOnlineStatus flips the durable online flag and refreshes last_seen.
func SetOnlineStatus(ctx context.Context, id uuid.UUID, online bool) error {
	q := `UPDATE users SET is_online=$1, last_seen=NOW() WHERE id=$2`
	_, err := DB.Exec(ctx, q, online, id)
	return err
}

// SearchUsers finds users whose username or email contains the query,
// excluding the searching user. Case-insensitive, capped at 20 rows.
func SearchUsers(ctx context.Context, query string, selfID uuid.UUID) ([]models.User, error) {
	q := `
	SELECT ` + userColumns + `
	FROM users
	WHERE id <> $2 AND (username ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
	ORDER BY username
	LIMIT 20
	`
	rows, err := DB.Query(ctx, q, query, selfID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		u.Password = ""
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateProfile sets the mutable profile fields.
func UpdateProfile(ctx context.Context, id uuid.UUID, username, bio, avatar string) error {
	q := `UPDATE users SET username=$1, bio=$2, avatar=$3 WHERE id=$4`
	ct, err := DB.Exec(ctx, q, username, bio, avatar, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteGuestUser hard-deletes a guest account and everything tied to it:
// messages in both directions, ledger entries, friendships, then the row.
func DeleteGuestUser(ctx context.Context, id uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var isGuest bool
		err := tx.QueryRow(ctx, `SELECT is_guest FROM users WHERE id=$1`, id).Scan(&isGuest)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if !isGuest {
			return fmt.Errorf("user %v is not a guest account", id)
		}

		if err := purgeMessagesFor(ctx, tx, id); err != nil {
			return err
		}

		steps := []string{
			`DELETE FROM friend_requests WHERE sender_id=$1 OR receiver_id=$1`,
			`DELETE FROM friendships WHERE user_lo=$1 OR user_hi=$1`,
			`DELETE FROM users WHERE id=$1`,
		}
		for _, q := range steps {
			if _, err := tx.Exec(ctx, q, id); err != nil {
				return err
			}
		}
		return nil
	})
}
