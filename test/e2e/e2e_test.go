// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-notifier/internal/common/config"
	"job-notifier/internal/common/logger"
	"job-notifier/internal/common/resend"
	"job-notifier/internal/common/telegram"
	"job-notifier/internal/identity"
	"job-notifier/internal/server"
	notify "job-notifier/internal/workers/notifications/notify-job-subscribers"
)

// E2E_DATABASE_DSN points at a disposable Postgres. The suite creates its own
// tables and removes its rows afterwards.
const dsnEnv = "E2E_DATABASE_DSN"

// ==========================
// Fake providers
// ==========================

type providerRecorder struct {
	mu       sync.Mutex
	telegram []map[string]interface{}
	emails   []map[string]interface{}
}

func (p *providerRecorder) telegramServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		body := map[string]interface{}{
			"chat_id":    r.FormValue("chat_id"),
			"parse_mode": r.FormValue("parse_mode"),
			"text":       r.FormValue("text"),
		}
		p.mu.Lock()
		p.telegram = append(p.telegram, body)
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`))
	}))
}

func (p *providerRecorder) resendServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		p.mu.Lock()
		p.emails = append(p.emails, body)
		p.mu.Unlock()
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
}

// ==========================
// Database setup
// ==========================

var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS auth`,
	`CREATE TABLE IF NOT EXISTS auth.users (
		id UUID PRIMARY KEY,
		email TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id UUID PRIMARY KEY,
		user_type TEXT NOT NULL,
		full_name TEXT,
		telegram_chat_id TEXT,
		notification_enabled BOOLEAN DEFAULT true,
		email_notifications BOOLEAN,
		telegram_notifications BOOLEAN,
		notification_categories TEXT[],
		notification_locations TEXT[],
		notification_keywords TEXT[],
		notification_job_types TEXT[],
		notification_experience_levels TEXT[]
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		job_id UUID NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		type TEXT NOT NULL,
		is_read BOOLEAN DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

type seededUsers struct {
	both, telegramOnly, mismatch, recruiter string
}

func openDatabase(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "PostgreSQL ping failed")

	for _, q := range schema {
		_, err := db.ExecContext(ctx, q)
		require.NoError(t, err)
	}
	return db
}

func seedSubscribers(t *testing.T, db *sql.DB) seededUsers {
	t.Helper()
	users := seededUsers{
		both:         uuid.NewString(),
		telegramOnly: uuid.NewString(),
		mismatch:     uuid.NewString(),
		recruiter:    uuid.NewString(),
	}

	insertProfile := `INSERT INTO profiles (user_id, user_type, full_name, telegram_chat_id,
		notification_enabled, email_notifications, telegram_notifications,
		notification_categories, notification_locations)
		VALUES ($1, $2, $3, $4, true, $5, $6, $7, $8)`

	rows := []struct {
		id, userType, name, chat string
		email, tg                bool
		categories, locations    string
	}{
		{users.both, "job_seeker", "አበበ ከበደ", "1001", true, true, "{Technology}", "{Addis Ababa}"},
		{users.telegramOnly, "job_seeker", "Sara", "1002", false, true, "{}", "{}"},
		{users.mismatch, "job_seeker", "Dawit", "1003", true, true, "{Healthcare}", "{}"},
		{users.recruiter, "employer", "HR", "1004", true, true, "{}", "{}"},
	}
	for _, r := range rows {
		_, err := db.Exec(insertProfile, r.id, r.userType, r.name, r.chat, r.email, r.tg, r.categories, r.locations)
		require.NoError(t, err)
	}
	_, err := db.Exec(`INSERT INTO auth.users (id, email) VALUES ($1, $2)`, users.both, "abebe@example.com")
	require.NoError(t, err)

	t.Cleanup(func() {
		ids := []string{users.both, users.telegramOnly, users.mismatch, users.recruiter}
		for _, id := range ids {
			_, _ = db.Exec(`DELETE FROM notifications WHERE user_id = $1`, id)
			_, _ = db.Exec(`DELETE FROM profiles WHERE user_id = $1`, id)
			_, _ = db.Exec(`DELETE FROM auth.users WHERE id = $1`, id)
		}
	})
	return users
}

// ==========================
// Full run through the HTTP trigger
// ==========================

func TestFullE2E(t *testing.T) {
	db := openDatabase(t)
	users := seedSubscribers(t, db)

	recorder := &providerRecorder{}
	tgSrv := recorder.telegramServer(t)
	defer tgSrv.Close()
	emailSrv := recorder.resendServer(t)
	defer emailSrv.Close()

	log := logger.NewTestLogger(t)
	store := notify.NewSQLStore(db)
	handler := notify.NewHandler(&notify.Config{
		PublicSiteURL:   "https://jobs.example.et",
		FromAddress:     "Ethio Jobs <notifications@example.et>",
		TelegramEnabled: true,
		EmailEnabled:    true,
	}, notify.Dependencies{
		Profiles:      store,
		Notifications: store,
		Matcher:       notify.PolicyMatcher{},
		Identity:      identity.NewSQLResolver(db),
		Telegram:      notify.BotSender{Bot: telegram.NewBot("e2e-token", tgSrv.URL, 5*time.Second)},
		Email:         notify.ResendSender{Client: resend.NewClient("re_e2e", emailSrv.URL, 5*time.Second)},
	}, log)

	srv := server.NewServer(config.ServerConfig{Port: 0}, handler, pingDB{db}, log)
	api := httptest.NewServer(srv.Handler())
	defer api.Close()

	jobID := uuid.NewString()
	body := `{
		"job_id": "` + jobID + `",
		"job_title": "Backend Developer",
		"company_name": "Ethio Telecom",
		"city": "Addis Ababa",
		"category": "Technology",
		"job_type": "Full-time",
		"experience_level": "Mid",
		"description": "Build Go services"
	}`

	resp, err := http.Post(api.URL+"/functions/v1/notify-job-subscribers", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out notify.Output
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	assert.True(t, out.Success)
	assert.Equal(t, jobID, out.JobID)
	assert.GreaterOrEqual(t, out.TotalSubscribers, 3)
	assert.Equal(t, 2, out.MatchedSubscribers)
	assert.Equal(t, 2, out.NotificationsCreated)
	assert.Equal(t, 2, out.TelegramDelivered)
	assert.Equal(t, 1, out.EmailDelivered)

	var stored []string
	rows, err := db.Query(`SELECT user_id FROM notifications WHERE job_id = $1 ORDER BY user_id`, jobID)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		stored = append(stored, id)
	}
	require.NoError(t, rows.Err())
	assert.ElementsMatch(t, []string{users.both, users.telegramOnly}, stored)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.emails, 1)
	assert.Equal(t, []interface{}{"abebe@example.com"}, recorder.emails[0]["to"])
	assert.Contains(t, recorder.emails[0]["html"], "https://jobs.example.et/jobs/"+jobID)

	chats := []interface{}{}
	for _, msg := range recorder.telegram {
		chats = append(chats, msg["chat_id"])
		assert.Equal(t, "HTML", msg["parse_mode"])
	}
	assert.ElementsMatch(t, []interface{}{"1001", "1002"}, chats)
}

func TestReadiness(t *testing.T) {
	db := openDatabase(t)

	srv := server.NewServer(config.ServerConfig{}, nil, pingDB{db}, logger.NewTestLogger(t))
	api := httptest.NewServer(srv.Handler())
	defer api.Close()

	resp, err := http.Get(api.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type pingDB struct {
	db *sql.DB
}

func (p pingDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
