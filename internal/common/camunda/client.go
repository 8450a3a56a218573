// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"job-notifier/internal/common/config"
	"job-notifier/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// RetryConfig defines retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// NewClient connects to the Zeebe gateway and verifies the connection with a
// topology request, retrying while the broker is still coming up.
func NewClient(ctx context.Context, cfg config.CamundaConfig, log logger.Logger) (zbc.Client, error) {
	connectTimeout := config.GetDuration(cfg.RequestTimeout)
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	var client zbc.Client
	err := RetryWithBackoff(ctx, DefaultRetryConfig, log, "Zeebe client initialization", func() error {
		c, err := zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.BrokerAddress,
			UsePlaintextConnection: true,
		})
		if err != nil {
			return err
		}

		tctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if _, err := c.NewTopologyCommand().Send(tctx); err != nil {
			_ = c.Close()
			return fmt.Errorf("failed to reach Zeebe broker at %s: %w", cfg.BrokerAddress, err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// RetryWithBackoff runs operation until it succeeds, a non-transient error
// occurs, the attempts run out or ctx is done. The delay doubles per attempt.
func RetryWithBackoff(ctx context.Context, rc *RetryConfig, log logger.Logger, operationName string, operation func() error) error {
	if rc == nil {
		rc = DefaultRetryConfig
	}
	delay := rc.BaseDelay

	var err error
	for attempt := 1; attempt <= rc.MaxRetries; attempt++ {
		if err = operation(); err == nil {
			return nil
		}
		if !IsRetryableError(err) || attempt == rc.MaxRetries {
			break
		}

		log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
			"error":       err,
			"attempt":     attempt,
			"maxRetries":  rc.MaxRetries,
			"nextRetryIn": delay.String(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", operationName, attempt, ctx.Err())
		}

		delay *= 2
		if delay > rc.MaxDelay {
			delay = rc.MaxDelay
		}
	}
	return fmt.Errorf("%s failed: %w", operationName, err)
}

// IsRetryableError reports whether err looks like a transient connection
// problem.
func IsRetryableError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
		"no such host",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
