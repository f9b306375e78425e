package subscriber

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wb-go/wbf/dbpg"

	"github.com/webstoer2020/Subscription-bot/internal/model"
)

var (
	ErrSubscriberNotFound = errors.New("subscriber not found")
)

// Repository provides methods to interact with the subscribers table.
//
// Grant, Extend and Delete run as single transactions so the subscriber
// row, the audit entry and the reminder batch always commit together.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new subscriber repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// Grant upserts a subscriber with a fresh validity window.
//
// A new grant to an existing ID overwrites the window and resets the
// status to active. All of the subscriber's previous reminders are
// replaced by the supplied batch, and an audit row is written.
func (r *Repository) Grant(ctx context.Context, sub model.Subscriber, details string, reminders []model.Reminder) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grant tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO subscribers (
		    user_id, username, first_name, last_name,
		    valid_from, valid_until, status, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 'active', $7)
		ON CONFLICT (user_id) DO UPDATE SET
		    username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    valid_from = EXCLUDED.valid_from,
		    valid_until = EXCLUDED.valid_until,
		    status = 'active',
		    updated_at = EXCLUDED.updated_at;
    `

	_, err = tx.ExecContext(
		ctx, query, sub.UserID, sub.Username, sub.FirstName, sub.LastName,
		sub.ValidFrom, sub.ValidUntil, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscriber: %w", err)
	}

	if err = insertActionLog(ctx, tx, model.ActionGrant, sub.UserID, details); err != nil {
		return err
	}

	// A fresh grant starts a new window, so old reminders (sent or not)
	// are history of a superseded window and go away entirely.
	_, err = tx.ExecContext(ctx, `DELETE FROM reminders WHERE user_id = $1;`, sub.UserID)
	if err != nil {
		return fmt.Errorf("failed to clear reminders: %w", err)
	}

	if err = insertReminders(ctx, tx, reminders); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit grant tx: %w", err)
	}

	return nil
}

// Extend pushes an existing subscriber's validUntil forward and revives
// it to active. Only unsent reminders are cleared before the new batch
// is inserted; sent ones stay as history.
//
// Returns ErrSubscriberNotFound when the subscriber does not exist.
func (r *Repository) Extend(ctx context.Context, userID int64, newValidUntil, now time.Time, details string, reminders []model.Reminder) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin extend tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE subscribers
		SET valid_until = $1, status = 'active', updated_at = $2
		WHERE user_id = $3;
    `

	res, err := tx.ExecContext(ctx, query, newValidUntil, now, userID)
	if err != nil {
		return fmt.Errorf("failed to extend subscriber: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrSubscriberNotFound
	}

	if err = insertActionLog(ctx, tx, model.ActionExtend, userID, details); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM reminders WHERE user_id = $1 AND sent = FALSE;`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear unsent reminders: %w", err)
	}

	if err = insertReminders(ctx, tx, reminders); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit extend tx: %w", err)
	}

	return nil
}

// Get retrieves a subscriber by its user ID.
func (r *Repository) Get(ctx context.Context, userID int64) (model.Subscriber, error) {
	query := `
		SELECT user_id, username, first_name, last_name,
		       valid_from, valid_until, status, created_at, updated_at
		FROM subscribers
		WHERE user_id = $1;
    `

	var s model.Subscriber
	err := r.db.Master.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &s.Username, &s.FirstName, &s.LastName,
		&s.ValidFrom, &s.ValidUntil, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Subscriber{}, ErrSubscriberNotFound
		}

		return model.Subscriber{}, fmt.Errorf("failed to get subscriber: %w", err)
	}

	return s, nil
}

// ListByStatus retrieves subscribers ordered by ascending valid_until
// (soonest-expiring first). An empty status returns everyone.
func (r *Repository) ListByStatus(ctx context.Context, status string) ([]model.Subscriber, error) {
	query := `
		SELECT user_id, username, first_name, last_name,
		       valid_from, valid_until, status, created_at, updated_at
		FROM subscribers
		ORDER BY valid_until;
    `
	args := []interface{}{}

	if status != "" {
		query = `
		SELECT user_id, username, first_name, last_name,
		       valid_from, valid_until, status, created_at, updated_at
		FROM subscribers
		WHERE status = $1
		ORDER BY valid_until;
    `
		args = append(args, status)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscriber
	for rows.Next() {
		var s model.Subscriber
		if err := rows.Scan(
			&s.UserID, &s.Username, &s.FirstName, &s.LastName,
			&s.ValidFrom, &s.ValidUntil, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}

		subs = append(subs, s)
	}

	return subs, rows.Err()
}

// UpdateStatus sets a subscriber's status.
//
// Returns ErrSubscriberNotFound when the subscriber does not exist.
func (r *Repository) UpdateStatus(ctx context.Context, userID int64, status string, now time.Time) error {
	query := `
		UPDATE subscribers
		SET status = $1, updated_at = $2
		WHERE user_id = $3;
    `

	res, err := r.db.ExecContext(ctx, query, status, now, userID)
	if err != nil {
		return fmt.Errorf("failed to update subscriber status: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrSubscriberNotFound
	}

	return nil
}

// Delete removes a subscriber and all of its reminders.
//
// Reminders go first so the cascade holds even on storages without
// native foreign-key cascading.
func (r *Repository) Delete(ctx context.Context, userID int64) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM reminders WHERE user_id = $1;`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete reminders: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM subscribers WHERE user_id = $1;`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete subscriber: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrSubscriberNotFound
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}

	return nil
}

func insertActionLog(ctx context.Context, tx *sql.Tx, action string, userID int64, details string) error {
	query := `
		INSERT INTO action_logs (action, user_id, details)
		VALUES ($1, $2, $3);
    `

	if _, err := tx.ExecContext(ctx, query, action, userID, details); err != nil {
		return fmt.Errorf("failed to insert action log: %w", err)
	}

	return nil
}

func insertReminders(ctx context.Context, tx *sql.Tx, reminders []model.Reminder) error {
	query := `
		INSERT INTO reminders (user_id, kind, due_at)
		VALUES ($1, $2, $3);
    `

	for _, rem := range reminders {
		if _, err := tx.ExecContext(ctx, query, rem.UserID, rem.Kind, rem.DueAt); err != nil {
			return fmt.Errorf("failed to insert reminder %s: %w", rem.Kind, err)
		}
	}

	return nil
}
