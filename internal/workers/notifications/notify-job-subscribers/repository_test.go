package notifyjobsubscribers

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "job-notifier/internal/common/errors"
	"job-notifier/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var profileColumns = []string{
	"user_id", "telegram_chat_id", "full_name",
	"notification_categories", "notification_locations", "notification_keywords",
	"notification_job_types", "notification_experience_levels",
	"email_notifications", "telegram_notifications",
}

// ==========================
// Profile Store Tests
// ==========================

func TestSQLStore_LoadSubscribers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(profileColumns).
		AddRow("u-1", "555", "Abebe Kebede", "{Transport,Logistics}", "{}", nil, nil, "{Entry}", true, true).
		AddRow("u-2", nil, nil, nil, "{\"Addis Ababa\"}", "{driver}", "{}", nil, false, false)
	mock.ExpectQuery(`SELECT user_id, telegram_chat_id, full_name,.*FROM profiles\s+WHERE user_type = 'job_seeker' AND notification_enabled = true`).
		WillReturnRows(rows)

	profiles, err := NewSQLStore(db).LoadSubscribers(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, "u-1", profiles[0].UserID)
	assert.Equal(t, "555", profiles[0].TelegramChatID)
	assert.Equal(t, "Abebe Kebede", profiles[0].FullName)
	assert.Equal(t, []string{"Transport", "Logistics"}, profiles[0].Preferences.Categories)
	assert.Empty(t, profiles[0].Preferences.Locations)
	assert.Empty(t, profiles[0].Preferences.Keywords)
	assert.Equal(t, []string{"Entry"}, profiles[0].Preferences.ExperienceLevels)
	assert.True(t, profiles[0].WantsTelegram())
	assert.True(t, profiles[0].WantsEmail())

	assert.Equal(t, "", profiles[1].TelegramChatID)
	assert.Empty(t, profiles[1].Preferences.Categories)
	assert.Equal(t, []string{"Addis Ababa"}, profiles[1].Preferences.Locations)
	assert.Equal(t, []string{"driver"}, profiles[1].Preferences.Keywords)
	assert.False(t, profiles[1].WantsTelegram())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_LoadSubscribers_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m sqlmock.Sqlmock)
	}{
		{
			name: "query fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM profiles`).WillReturnError(errors.New("permission denied for table profiles"))
			},
		},
		{
			name: "row iteration fails",
			setup: func(m sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(profileColumns).
					AddRow("u-1", nil, nil, nil, nil, nil, nil, nil, true, false).
					RowError(0, errors.New("connection reset"))
				m.ExpectQuery(`FROM profiles`).WillReturnRows(rows)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(mock)

			_, err = NewSQLStore(db).LoadSubscribers(context.Background())

			require.Error(t, err)
			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeProfileLoadFailed, stdErr.Code)
		})
	}
}

// ==========================
// Notification Store Tests
// ==========================

func TestSQLStore_InsertBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	records := []models.NotificationRecord{
		{ID: "11111111-1111-1111-1111-111111111111", UserID: "u-1", JobID: "j-1", Title: "t", Message: "m", Type: models.NotificationTypeJobAlert, CreatedAt: now},
		{ID: "22222222-2222-2222-2222-222222222222", UserID: "u-2", JobID: "j-1", Title: "t", Message: "m", Type: models.NotificationTypeJobAlert, CreatedAt: now},
	}

	mock.ExpectExec(`INSERT INTO notifications .* FROM unnest\(`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, NewSQLStore(db).InsertBatch(context.Background(), records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_InsertBatch_EmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewSQLStore(db).InsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_InsertBatch_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO notifications`).WillReturnError(errors.New("violates foreign key constraint"))

	err = NewSQLStore(db).InsertBatch(context.Background(), []models.NotificationRecord{{ID: "x", UserID: "u", JobID: "j"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotificationInsertFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
