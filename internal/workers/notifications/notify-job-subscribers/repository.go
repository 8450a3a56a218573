// internal/workers/notifications/notify-job-subscribers/repository.go
package notifyjobsubscribers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"job-notifier/internal/common/errors"
	"job-notifier/internal/models"

	"github.com/lib/pq"
)

// ProfileStore reads subscriber profiles.
type ProfileStore interface {
	LoadSubscribers(ctx context.Context) ([]models.SubscriberProfile, error)
}

// NotificationStore persists in-app notification records.
type NotificationStore interface {
	InsertBatch(ctx context.Context, records []models.NotificationRecord) error
}

const subscribersQuery = `
	SELECT user_id, telegram_chat_id, full_name,
	       notification_categories, notification_locations, notification_keywords,
	       notification_job_types, notification_experience_levels,
	       COALESCE(email_notifications, false), COALESCE(telegram_notifications, false)
	FROM profiles
	WHERE user_type = 'job_seeker' AND notification_enabled = true`

// insertNotificationsQuery writes the whole batch in one statement so a
// failure leaves no partial set behind.
const insertNotificationsQuery = `
	INSERT INTO notifications (id, user_id, job_id, title, message, type, is_read, created_at)
	SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::uuid[], $4::text[], $5::text[], $6::text[], $7::bool[], $8::timestamptz[])`

// SQLStore implements ProfileStore and NotificationStore on Postgres.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) LoadSubscribers(ctx context.Context) ([]models.SubscriberProfile, error) {
	rows, err := s.db.QueryContext(ctx, subscribersQuery)
	if err != nil {
		return nil, errors.NewProfileLoadFailedError(err)
	}
	defer rows.Close()

	var profiles []models.SubscriberProfile
	for rows.Next() {
		var (
			p                models.SubscriberProfile
			chatID, fullName sql.NullString
		)
		if err := rows.Scan(
			&p.UserID, &chatID, &fullName,
			pq.Array(&p.Preferences.Categories),
			pq.Array(&p.Preferences.Locations),
			pq.Array(&p.Preferences.Keywords),
			pq.Array(&p.Preferences.JobTypes),
			pq.Array(&p.Preferences.ExperienceLevels),
			&p.EmailNotifications, &p.TelegramNotifications,
		); err != nil {
			return nil, errors.NewProfileLoadFailedError(fmt.Errorf("scan profile: %w", err))
		}
		p.TelegramChatID = chatID.String
		p.FullName = fullName.String
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewProfileLoadFailedError(err)
	}
	return profiles, nil
}

func (s *SQLStore) InsertBatch(ctx context.Context, records []models.NotificationRecord) error {
	if len(records) == 0 {
		return nil
	}

	n := len(records)
	ids := make([]string, n)
	userIDs := make([]string, n)
	jobIDs := make([]string, n)
	titles := make([]string, n)
	messages := make([]string, n)
	types := make([]string, n)
	read := make([]bool, n)
	created := make([]string, n)
	for i, r := range records {
		ids[i] = r.ID
		userIDs[i] = r.UserID
		jobIDs[i] = r.JobID
		titles[i] = r.Title
		messages[i] = r.Message
		types[i] = r.Type
		read[i] = r.IsRead
		created[i] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err := s.db.ExecContext(ctx, insertNotificationsQuery,
		pq.Array(ids), pq.Array(userIDs), pq.Array(jobIDs),
		pq.Array(titles), pq.Array(messages), pq.Array(types),
		pq.Array(read), pq.Array(created),
	)
	if err != nil {
		return errors.NewNotificationInsertFailedError(n, err)
	}
	return nil
}
