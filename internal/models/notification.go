package models

import "time"

// NotificationTypeJobAlert tags in-app records created by the job alert pipeline.
const NotificationTypeJobAlert = "job_alert"

// NotificationRecord is the in-app notification row, one per matched
// subscriber and job.
type NotificationRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	JobID     string    `json:"job_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// TelegramDispatch is a transient Bot API payload. Never persisted.
type TelegramDispatch struct {
	UserID    string `json:"-"`
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// EmailDispatch is a transient transactional email. Never persisted.
type EmailDispatch struct {
	UserID  string `json:"-"`
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Delivery channels reported in DeliveryResult.
const (
	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
)

// DeliveryResult is the outcome of one dispatch attempt. Recipient is kept
// for logs and callers in process; it is never serialized.
type DeliveryResult struct {
	Channel   string `json:"channel"`
	UserID    string `json:"user_id"`
	Recipient string `json:"-"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}
