// internal/workers/notifications/notify-job-subscribers/composer.go
package notifyjobsubscribers

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"job-notifier/internal/common/telegram"
	"job-notifier/internal/models"

	"github.com/google/uuid"
)

const (
	recordTitle         = "አዲስ የስራ ማስታወቂያ"
	notSpecified        = "ያልተገለጸ"
	descriptionMaxRunes = 200
)

// ComposeRecord builds the in-app notification. Every matched subscriber gets
// one regardless of channel toggles.
func ComposeRecord(job models.JobPosting, profile models.SubscriberProfile) models.NotificationRecord {
	return models.NotificationRecord{
		ID:        uuid.NewString(),
		UserID:    profile.UserID,
		JobID:     job.ID,
		Title:     recordTitle,
		Message:   fmt.Sprintf("%s በ%s አዲስ የ%s ስራ አውጥቷል።", job.CompanyName, job.City, job.Title),
		Type:      models.NotificationTypeJobAlert,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	}
}

// ComposeTelegram returns nil unless the subscriber opted in and linked a chat.
func ComposeTelegram(job models.JobPosting, profile models.SubscriberProfile) *models.TelegramDispatch {
	if !profile.WantsTelegram() {
		return nil
	}

	var b strings.Builder
	b.WriteString("🆕 <b>" + recordTitle + "</b>\n\n")
	writeField(&b, "💼", "የስራ መደብ", job.Title)
	writeField(&b, "🏢", "ድርጅት", job.CompanyName)
	writeField(&b, "📍", "ከተማ", job.City)
	writeField(&b, "📂", "ዘርፍ", job.Category)
	writeField(&b, "⏰", "የስራ አይነት", job.JobType)
	writeField(&b, "📊", "የልምድ ደረጃ", job.ExperienceLevel)
	b.WriteString("\nለበለጠ መረጃ እና ለማመልከት ድረ-ገጻችንን ይጎብኙ።")

	return &models.TelegramDispatch{
		UserID:    profile.UserID,
		ChatID:    profile.TelegramChatID,
		Text:      b.String(),
		ParseMode: telegram.ParseModeHTML,
	}
}

func writeField(b *strings.Builder, icon, label, value string) {
	if strings.TrimSpace(value) == "" {
		value = notSpecified
	}
	fmt.Fprintf(b, "%s <b>%s:</b> %s\n", icon, label, html.EscapeString(value))
}

var emailTemplate = template.Must(template.New("job_alert").Parse(`<!DOCTYPE html>
<html lang="am">
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="margin:0;padding:0;background:#f4f6f8;font-family:'Noto Sans Ethiopic',Arial,sans-serif;">
  <div style="max-width:600px;margin:0 auto;background:#ffffff;">
    <div style="background:#0f766e;color:#ffffff;padding:24px;text-align:center;">
      <h1 style="margin:0;font-size:22px;">አዲስ የስራ ዕድል</h1>
      <p style="margin:8px 0 0;">{{if .Name}}ሰላም {{.Name}}፣ {{end}}ከምርጫዎ ጋር የሚስማማ ስራ ተለጥፏል</p>
    </div>
    <div style="padding:24px;">
      <ul style="list-style:none;padding:0;margin:0 0 16px;color:#374151;">
        <li><strong>የስራ መደብ:</strong> {{.Job.Title}}</li>
        <li><strong>ድርጅት:</strong> {{.Job.CompanyName}}</li>
        <li><strong>ከተማ:</strong> {{.Job.City}}</li>
        {{- if .Job.Category}}
        <li><strong>ዘርፍ:</strong> {{.Job.Category}}</li>
        {{- end}}
        {{- if .Job.JobType}}
        <li><strong>የስራ አይነት:</strong> {{.Job.JobType}}</li>
        {{- end}}
        {{- if .Job.ExperienceLevel}}
        <li><strong>የልምድ ደረጃ:</strong> {{.Job.ExperienceLevel}}</li>
        {{- end}}
      </ul>
      {{- if .Description}}
      <p style="color:#4b5563;line-height:1.6;">{{.Description}}</p>
      {{- end}}
      <p style="text-align:center;margin:32px 0;">
        <a href="{{.JobURL}}" style="background:#0f766e;color:#ffffff;padding:12px 28px;border-radius:6px;text-decoration:none;">ስራውን ይመልከቱ</a>
      </p>
    </div>
    <div style="padding:16px 24px;background:#f9fafb;color:#6b7280;font-size:12px;text-align:center;">
      <p style="margin:0;">ይህን መልዕክት የተቀበሉት የስራ ማስታወቂያ ማሳወቂያዎችን ስለመረጡ ነው።</p>
      <p style="margin:8px 0 0;"><a href="{{.PreferencesURL}}" style="color:#0f766e;">የማሳወቂያ ምርጫዎችን ይቀይሩ</a></p>
    </div>
  </div>
</body>
</html>`))

type emailView struct {
	Subject        string
	Name           string
	Job            models.JobPosting
	Description    string
	JobURL         string
	PreferencesURL string
}

var errNoAddress = stderrors.New("no email address")

// ComposeEmail renders the HTML alert for one resolved address.
func ComposeEmail(job models.JobPosting, profile models.SubscriberProfile, address, siteURL, from string) (*models.EmailDispatch, error) {
	if strings.TrimSpace(address) == "" {
		return nil, errNoAddress
	}
	siteURL = strings.TrimRight(siteURL, "/")

	view := emailView{
		Subject:        fmt.Sprintf("አዲስ ስራ: %s - %s", job.Title, job.CompanyName),
		Name:           profile.FullName,
		Job:            job,
		Description:    truncateRunes(job.Description, descriptionMaxRunes),
		JobURL:         siteURL + "/jobs/" + job.ID,
		PreferencesURL: siteURL + "/profile",
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}

	return &models.EmailDispatch{
		UserID:  profile.UserID,
		From:    from,
		To:      address,
		Subject: view.Subject,
		HTML:    buf.String(),
	}, nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
