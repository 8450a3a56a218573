// internal/workers/notifications/notify-job-subscribers/delivery.go
package notifyjobsubscribers

import (
	"context"
	"fmt"
	"strings"

	"job-notifier/internal/common/aws"
	"job-notifier/internal/common/errors"
	"job-notifier/internal/common/logger"
	"job-notifier/internal/common/metrics"
	"job-notifier/internal/common/resend"
	"job-notifier/internal/common/telegram"
	"job-notifier/internal/models"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

type TelegramSender interface {
	SendMessage(ctx context.Context, msg models.TelegramDispatch) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, msg models.EmailDispatch) error
}

// BotSender adapts the Bot API client.
type BotSender struct {
	Bot *telegram.Bot
}

func (s BotSender) SendMessage(ctx context.Context, msg models.TelegramDispatch) error {
	return s.Bot.SendMessage(ctx, msg.ChatID, msg.Text, msg.ParseMode)
}

// ResendSender adapts the Resend client.
type ResendSender struct {
	Client *resend.Client
}

func (s ResendSender) SendEmail(ctx context.Context, msg models.EmailDispatch) error {
	_, err := s.Client.Send(ctx, resend.Email{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	return err
}

// SESSender adapts the SES client.
type SESSender struct {
	Client *aws.SESClient
}

func (s SESSender) SendEmail(ctx context.Context, msg models.EmailDispatch) error {
	_, err := s.Client.SendHTML(ctx, msg.From, msg.To, msg.Subject, msg.HTML)
	return err
}

// dispatcher fans composed payloads out to the providers. Each channel runs
// in its own result pool and both channels run at the same time. A failed
// send is recorded in its result and never stops its siblings.
type dispatcher struct {
	telegram       TelegramSender
	email          EmailSender
	maxConcurrency int
	logger         logger.Logger
}

func (d *dispatcher) dispatch(ctx context.Context, tgMsgs []models.TelegramDispatch, emailMsgs []models.EmailDispatch) (tgResults, emailResults []models.DeliveryResult) {
	var wg conc.WaitGroup

	if d.telegram != nil && len(tgMsgs) > 0 {
		wg.Go(func() {
			p := pool.NewWithResults[models.DeliveryResult]().WithMaxGoroutines(d.maxConcurrency)
			for _, msg := range tgMsgs {
				p.Go(func() models.DeliveryResult {
					return d.record(models.ChannelTelegram, msg.UserID, msg.ChatID, d.telegram.SendMessage(ctx, msg))
				})
			}
			tgResults = p.Wait()
		})
	}

	if d.email != nil && len(emailMsgs) > 0 {
		wg.Go(func() {
			p := pool.NewWithResults[models.DeliveryResult]().WithMaxGoroutines(d.maxConcurrency)
			for _, msg := range emailMsgs {
				p.Go(func() models.DeliveryResult {
					return d.record(models.ChannelEmail, msg.UserID, msg.To, d.email.SendEmail(ctx, msg))
				})
			}
			emailResults = p.Wait()
		})
	}

	wg.Wait()
	return tgResults, emailResults
}

// record turns one send into a DeliveryResult. The logged error names the
// recipient; the result error never does, since results reach HTTP callers.
func (d *dispatcher) record(channel, userID, recipient string, sendErr error) models.DeliveryResult {
	res := models.DeliveryResult{
		Channel:   channel,
		UserID:    userID,
		Recipient: recipient,
		Success:   sendErr == nil,
	}
	if sendErr != nil {
		var stdErr *errors.StandardError
		if channel == models.ChannelTelegram {
			stdErr = errors.NewTelegramSendFailedError(recipient, sendErr)
		} else {
			stdErr = errors.NewEmailSendFailedError(recipient, sendErr)
		}
		res.Error = publicError(stdErr, sendErr, recipient)
		metrics.DispatchTotal.WithLabelValues(channel, StatusFailed).Inc()
		d.logger.Warn("dispatch failed", map[string]interface{}{
			"channel": channel,
			"userId":  userID,
			"error":   stdErr,
		})
		return res
	}
	metrics.DispatchTotal.WithLabelValues(channel, StatusSuccess).Inc()
	d.logger.Debug("dispatch succeeded", map[string]interface{}{
		"channel": channel,
		"userId":  userID,
	})
	return res
}

func publicError(stdErr *errors.StandardError, cause error, recipient string) string {
	msg := cause.Error()
	if recipient != "" {
		msg = strings.ReplaceAll(msg, recipient, "<recipient>")
	}
	return fmt.Sprintf("%s: %s", stdErr.Code, msg)
}

func countDelivered(results []models.DeliveryResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
