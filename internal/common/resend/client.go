// internal/common/resend/client.go
package resend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	resendsdk "github.com/resend/resend-go/v2"
)

const DefaultAPIBaseURL = "https://api.resend.com"

var ErrMissingAPIKey = errors.New("resend: api key is not configured")

// Email is one transactional message.
type Email struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// EmailsAPI is the part of the Resend SDK the notifier uses.
type EmailsAPI interface {
	SendWithContext(ctx context.Context, params *resendsdk.SendEmailRequest) (*resendsdk.SendEmailResponse, error)
}

// Client sends transactional email through the Resend SDK.
type Client struct {
	apiKey string
	emails EmailsAPI
}

// NewClient builds an SDK client. baseURL overrides the API host and is
// mostly useful for tests; empty means DefaultAPIBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	sdk := resendsdk.NewCustomClient(&http.Client{Timeout: timeout}, apiKey)
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/"); err == nil {
		sdk.BaseURL = u
	}
	return &Client{apiKey: apiKey, emails: sdk.Emails}
}

// NewClientWithAPI wraps an existing EmailsAPI, e.g. a mock.
func NewClientWithAPI(apiKey string, emails EmailsAPI) *Client {
	return &Client{apiKey: apiKey, emails: emails}
}

// Send submits one email and returns the provider message id.
func (c *Client) Send(ctx context.Context, email Email) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if len(email.To) == 0 {
		return "", errors.New("resend: no recipients")
	}

	resp, err := c.emails.SendWithContext(ctx, &resendsdk.SendEmailRequest{
		From:    email.From,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("resend: send email: %w", err)
	}
	return resp.Id, nil
}
