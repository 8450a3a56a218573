// internal/workers/notifications/notify-job-subscribers/models.go
package notifyjobsubscribers

import "job-notifier/internal/models"

// Input is the job posting carried by the HTTP body or the workflow variables.
type Input = models.JobPosting

// Output is the run summary returned to the caller. Attempted counts include
// failed sends; delivered counts only those the provider accepted.
type Output struct {
	Success              bool                    `json:"success"`
	JobID                string                  `json:"job_id"`
	TotalSubscribers     int                     `json:"total_subscribers"`
	MatchedSubscribers   int                     `json:"matched_subscribers"`
	NotificationsCreated int                     `json:"notifications_created"`
	TelegramAttempted    int                     `json:"telegram_attempted"`
	TelegramDelivered    int                     `json:"telegram_delivered"`
	EmailAttempted       int                     `json:"email_attempted"`
	EmailDelivered       int                     `json:"email_delivered"`
	SkippedProfiles      int                     `json:"skipped_profiles"`
	EmailUnresolved      int                     `json:"email_unresolved"`
	Deduplicated         int                     `json:"deduplicated,omitempty"`
	Deliveries           []models.DeliveryResult `json:"deliveries"`
}

// Run statuses used for metrics.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
