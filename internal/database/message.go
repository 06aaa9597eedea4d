// internal/database/message.go

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/madhavavukkum/Cipher-Chat/internal/crypto"
	"github.com/madhavavukkum/Cipher-Chat/internal/models"
)

// ErrMessageNotFound is returned when a message does not exist or the caller
// is not allowed to act on it. The two cases are deliberately not
// distinguished, so a requester cannot probe for other users' message ids.
var ErrMessageNotFound = errors.New("message not found or unauthorized")

// InsertMessage encrypts the plaintext and persists it as unread. The
// returned record carries the plaintext body for immediate delivery;
// ciphertext never leaves this package.
func InsertMessage(ctx context.Context, senderID, receiverID uuid.UUID, plaintext, kind string) (*models.Message, error) {
	if _, err := GetUserByID(ctx, receiverID); err != nil {
		return nil, err
	}

	ct, iv, err := crypto.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt message: %w", err)
	}

	m := models.Message{
		ID:       uuid.New(),
		SenderID: senderID,
		Receiver: receiverID,
		Body:     plaintext,
		Kind:     kind,
	}

	q := `
	INSERT INTO messages (id, sender_id, receiver_id, ciphertext, iv, kind)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING created_at
	`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q, m.ID, senderID, receiverID, ct, iv, kind).Scan(&m.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return &m, nil
}

// GetConversation fetches one page of the non-deleted messages between viewer
// and other, newest page first but ordered oldest to newest for display, and
// decrypts each row with per-record failure isolation. As a side effect every
// fetched-direction message addressed to the viewer is marked read inside the
// same transaction, so a concurrent insert cannot slip between the read and
// the mark. Marking is idempotent: already-read rows stay read.
func GetConversation(ctx context.Context, viewerID, otherID uuid.UUID, page, limit int) ([]models.Message, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 30
	}
	offset := (page - 1) * limit

	var msgs []models.Message
	var total int

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		SELECT id, sender_id, receiver_id, ciphertext, iv, created_at, is_read, kind, edited_at
		FROM messages
		WHERE ((sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1))
		  AND NOT is_deleted
		ORDER BY created_at DESC, id DESC
		OFFSET $3 LIMIT $4
		`
		rows, err := tx.Query(ctx, q, viewerID, otherID, offset, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m models.Message
			if err := rows.Scan(
				&m.ID, &m.SenderID, &m.Receiver, &m.Ciphertext, &m.IV,
				&m.CreatedAt, &m.IsRead, &m.Kind, &m.EditedAt,
			); err != nil {
				return err
			}
			m.Body = crypto.DecryptOrPlaceholder(m.Ciphertext, m.IV)
			m.Ciphertext, m.IV = "", ""
			msgs = append(msgs, m)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		markQ := `
		UPDATE messages SET is_read=TRUE
		WHERE sender_id=$1 AND receiver_id=$2 AND NOT is_read AND NOT is_deleted
		`
		if _, err := tx.Exec(ctx, markQ, otherID, viewerID); err != nil {
			return err
		}

		countQ := `
		SELECT COUNT(*) FROM messages
		WHERE ((sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1))
		  AND NOT is_deleted
		`
		return tx.QueryRow(ctx, countQ, viewerID, otherID).Scan(&total)
	})
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to fetch conversation: %w", err)
	}

	// Rows came back newest first; flip to oldest-first for display.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	totalPages := (total + limit - 1) / limit
	return msgs, models.Pagination{
		Current: page,
		Total:   totalPages,
		HasPrev: page > 1,
	}, nil
}

// MarkMessagesRead marks the given messages read, but only those addressed
// to readerID. Ids that don't match that constraint are silently ignored;
// clients batch these asynchronously and stale ids are expected.
func MarkMessagesRead(ctx context.Context, readerID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	q := `UPDATE messages SET is_read=TRUE WHERE id = ANY($1) AND receiver_id=$2`
	_, err := DB.Exec(ctx, q, ids, readerID)
	return err
}

// SoftDeleteMessage hides a message from future fetches. Only the original
// sender may delete; anyone else gets ErrMessageNotFound.
func SoftDeleteMessage(ctx context.Context, messageID, requesterID uuid.UUID) error {
	q := `UPDATE messages SET is_deleted=TRUE WHERE id=$1 AND sender_id=$2`
	ct, err := DB.Exec(ctx, q, messageID, requesterID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// CountUnread returns how many live messages from fromID await forID.
func CountUnread(ctx context.Context, forID, fromID uuid.UUID) (int, error) {
	q := `
	SELECT COUNT(*) FROM messages
	WHERE sender_id=$1 AND receiver_id=$2 AND NOT is_read AND NOT is_deleted
	`
	var n int
	err := DB.QueryRow(ctx, q, fromID, forID).Scan(&n)
	return n, err
}

// execer covers both the pool and an open transaction, so the purge can run
// standalone or join a caller's transaction.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func purgeMessagesFor(ctx context.Context, db execer, userID uuid.UUID) error {
	_, err := db.Exec(ctx, `DELETE FROM messages WHERE sender_id=$1 OR receiver_id=$1`, userID)
	return err
}

// PurgeMessagesFor hard-deletes every message the user sent or received.
// Only the guest-account teardown path calls this.
func PurgeMessagesFor(ctx context.Context, userID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return purgeMessagesFor(ctx, tx, userID)
	})
}
