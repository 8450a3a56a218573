package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"job-notifier/internal/common/auth"
	"job-notifier/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveEmail(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) GetUser(ctx context.Context, userID string) (*auth.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// ==========================
// SQL Resolver Tests
// ==========================

func TestSQLResolver_ResolveEmail(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(m sqlmock.Sqlmock)
		wantEmail string
		wantErr   error
	}{
		{
			name: "email found",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`SELECT email FROM auth.users WHERE id = \$1`).
					WithArgs("u-1").
					WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow(" abebe@example.et "))
			},
			wantEmail: "abebe@example.et",
		},
		{
			name: "no such user",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`SELECT email FROM auth.users`).
					WithArgs("u-1").
					WillReturnRows(sqlmock.NewRows([]string{"email"}))
			},
			wantErr: ErrEmailNotFound,
		},
		{
			name: "null email",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`SELECT email FROM auth.users`).
					WithArgs("u-1").
					WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow(nil))
			},
			wantErr: ErrEmailNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, m, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(m)

			email, err := NewSQLResolver(db).ResolveEmail(context.Background(), "u-1")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantEmail, email)
			}
			assert.NoError(t, m.ExpectationsWereMet())
		})
	}
}

func TestSQLResolver_QueryError(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	m.ExpectQuery(`SELECT email`).WillReturnError(errors.New("connection reset"))

	_, err = NewSQLResolver(db).ResolveEmail(context.Background(), "u-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailNotFound)
}

// ==========================
// Keycloak Resolver Tests
// ==========================

func TestKeycloakResolver_ResolveEmail(t *testing.T) {
	users := new(mockUsers)
	users.On("GetUser", mock.Anything, "u-1").Return(&auth.User{ID: "u-1", Email: "abebe@example.et"}, nil)
	users.On("GetUser", mock.Anything, "u-2").Return(nil, auth.ErrUserNotFound)
	users.On("GetUser", mock.Anything, "u-3").Return(&auth.User{ID: "u-3"}, nil)

	r := NewKeycloakResolver(users)

	email, err := r.ResolveEmail(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "abebe@example.et", email)

	_, err = r.ResolveEmail(context.Background(), "u-2")
	assert.ErrorIs(t, err, ErrEmailNotFound)

	_, err = r.ResolveEmail(context.Background(), "u-3")
	assert.ErrorIs(t, err, ErrEmailNotFound)
}

// ==========================
// Cached Resolver Tests
// ==========================

func TestCachedResolver_MissThenHit(t *testing.T) {
	mr, rdb := setupRedis(t)
	next := new(mockResolver)
	next.On("ResolveEmail", mock.Anything, "u-1").Return("abebe@example.et", nil).Once()

	r := NewCachedResolver(next, rdb, time.Minute, logger.NewTestLogger(t))

	email, err := r.ResolveEmail(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "abebe@example.et", email)

	cached, err := mr.Get("user:email:u-1")
	require.NoError(t, err)
	assert.Equal(t, "abebe@example.et", cached)
	assert.True(t, mr.TTL("user:email:u-1") > 0)

	email, err = r.ResolveEmail(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "abebe@example.et", email)
	next.AssertNumberOfCalls(t, "ResolveEmail", 1)
}

func TestCachedResolver_DoesNotCacheMisses(t *testing.T) {
	mr, rdb := setupRedis(t)
	next := new(mockResolver)
	next.On("ResolveEmail", mock.Anything, "u-9").Return("", ErrEmailNotFound)

	r := NewCachedResolver(next, rdb, time.Minute, logger.NewTestLogger(t))

	_, err := r.ResolveEmail(context.Background(), "u-9")
	assert.ErrorIs(t, err, ErrEmailNotFound)
	assert.False(t, mr.Exists("user:email:u-9"))
}

func TestCachedResolver_RedisDownFallsThrough(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	rmock.ExpectGet("user:email:u-1").SetErr(errors.New("redis down"))
	rmock.ExpectSet("user:email:u-1", "abebe@example.et", time.Minute).SetErr(errors.New("redis down"))

	next := new(mockResolver)
	next.On("ResolveEmail", mock.Anything, "u-1").Return("abebe@example.et", nil)

	r := NewCachedResolver(next, rdb, time.Minute, logger.NewTestLogger(t))
	email, err := r.ResolveEmail(context.Background(), "u-1")

	require.NoError(t, err)
	assert.Equal(t, "abebe@example.et", email)
	assert.NoError(t, rmock.ExpectationsWereMet())
}
