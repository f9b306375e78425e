package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/webstoer2020/Subscription-bot/internal/model"
)

// Repository provides methods to interact with the reminders table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new reminder repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// GetDue retrieves unsent reminders whose due time has passed, joined
// with the subscriber display fields the sweep needs.
func (r *Repository) GetDue(ctx context.Context, now time.Time) ([]model.DueReminder, error) {
	query := `
		SELECT rm.id, rm.user_id, rm.kind, rm.due_at, rm.sent, rm.sent_at, rm.created_at,
		       s.username, s.first_name, s.valid_until
		FROM reminders rm
		JOIN subscribers s ON rm.user_id = s.user_id
		WHERE rm.sent = FALSE AND rm.due_at <= $1;
    `

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due reminders: %w", err)
	}
	defer rows.Close()

	var due []model.DueReminder
	for rows.Next() {
		var d model.DueReminder
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.Kind, &d.DueAt, &d.Sent, &d.SentAt, &d.CreatedAt,
			&d.Username, &d.FirstName, &d.ValidUntil,
		); err != nil {
			return nil, err
		}

		due = append(due, d)
	}

	return due, rows.Err()
}

// MarkSent flags a reminder as sent. Re-marking an already-sent entry
// matches zero rows, so the original sent_at survives overlapping
// sweeps.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE reminders
		SET sent = TRUE, sent_at = $1
		WHERE id = $2 AND sent = FALSE;
    `

	if _, err := r.db.ExecContext(ctx, query, now, id); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	return nil
}

// ListByUser retrieves all reminders for a subscriber, soonest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]model.Reminder, error) {
	query := `
		SELECT id, user_id, kind, due_at, sent, sent_at, created_at
		FROM reminders
		WHERE user_id = $1
		ORDER BY due_at;
    `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		var rem model.Reminder
		if err := rows.Scan(
			&rem.ID, &rem.UserID, &rem.Kind, &rem.DueAt, &rem.Sent, &rem.SentAt, &rem.CreatedAt,
		); err != nil {
			return nil, err
		}

		reminders = append(reminders, rem)
	}

	return reminders, rows.Err()
}
