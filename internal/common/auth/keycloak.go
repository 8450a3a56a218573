// internal/common/auth/keycloak.go
package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"job-notifier/internal/common/errors"
	commonhttp "job-notifier/internal/common/http"
)

// tokenLeeway refreshes the admin token slightly before Keycloak expires it.
const tokenLeeway = 10 * time.Second

// KeycloakClient reads user records through the Keycloak admin API using a
// service account (client credentials flow).
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	json         *commonhttp.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// User represents a user in Keycloak.
type User struct {
	ID            string `json:"id,omitempty"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Username      string `json:"username"`
	Enabled       bool   `json:"enabled"`
	EmailVerified bool   `json:"emailVerified"`
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		json:         commonhttp.NewClient(30 * time.Second),
	}
}

// token returns a cached admin token, fetching a new one when it is about to
// expire. Safe for concurrent use.
func (k *KeycloakClient) token(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.accessToken != "" && time.Now().Add(tokenLeeway).Before(k.tokenExpiry) {
		return k.accessToken, nil
	}

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	var tokenResp TokenResponse
	if err := k.json.PostForm(ctx, tokenURL, data, &tokenResp); err != nil {
		return "", fmt.Errorf("keycloak token request failed: %w", err)
	}

	k.accessToken = tokenResp.AccessToken
	k.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return k.accessToken, nil
}

// GetUser retrieves a user by their unique ID.
func (k *KeycloakClient) GetUser(ctx context.Context, userID string) (*User, error) {
	token, err := k.token(ctx)
	if err != nil {
		return nil, errors.NewExternalServiceError("keycloak", err)
	}

	userURL := fmt.Sprintf("%s/admin/realms/%s/users/%s", k.baseURL, k.realm, url.PathEscape(userID))
	headers := map[string]string{"Authorization": "Bearer " + token}

	var user User
	if err := k.json.GetJSON(ctx, userURL, headers, &user); err != nil {
		var statusErr *commonhttp.StatusError
		if stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, ErrUserNotFound
		}
		if stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			k.invalidate()
		}
		return nil, errors.NewExternalServiceError("keycloak", err)
	}
	return &user, nil
}

// ErrUserNotFound is returned by GetUser for unknown ids.
var ErrUserNotFound = stderrors.New("keycloak: user not found")

func (k *KeycloakClient) invalidate() {
	k.mu.Lock()
	k.accessToken = ""
	k.mu.Unlock()
}
