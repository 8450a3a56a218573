// Package identity resolves a subscriber's user id to a deliverable email
// address. Email addresses live in the identity store, not on the profile.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"job-notifier/internal/common/auth"
)

// ErrEmailNotFound means the user exists nowhere or has no email on file.
// Callers skip the email channel for that subscriber.
var ErrEmailNotFound = errors.New("identity: email not found")

// Resolver looks up the email address registered for a user id.
type Resolver interface {
	ResolveEmail(ctx context.Context, userID string) (string, error)
}

// SQLResolver reads auth.users in the job board database.
type SQLResolver struct {
	db *sql.DB
}

func NewSQLResolver(db *sql.DB) *SQLResolver {
	return &SQLResolver{db: db}
}

const emailQuery = `SELECT email FROM auth.users WHERE id = $1`

func (r *SQLResolver) ResolveEmail(ctx context.Context, userID string) (string, error) {
	var email sql.NullString
	err := r.db.QueryRowContext(ctx, emailQuery, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrEmailNotFound
		}
		return "", fmt.Errorf("query auth.users: %w", err)
	}
	if !email.Valid || strings.TrimSpace(email.String) == "" {
		return "", ErrEmailNotFound
	}
	return strings.TrimSpace(email.String), nil
}

// UserGetter is satisfied by *auth.KeycloakClient.
type UserGetter interface {
	GetUser(ctx context.Context, userID string) (*auth.User, error)
}

// KeycloakResolver reads the user record from the Keycloak admin API.
type KeycloakResolver struct {
	users UserGetter
}

func NewKeycloakResolver(users UserGetter) *KeycloakResolver {
	return &KeycloakResolver{users: users}
}

func (r *KeycloakResolver) ResolveEmail(ctx context.Context, userID string) (string, error) {
	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return "", ErrEmailNotFound
		}
		return "", err
	}
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return "", ErrEmailNotFound
	}
	return strings.TrimSpace(user.Email), nil
}
