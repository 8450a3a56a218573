package models

// Preferences are a job seeker's subscription criteria. An empty list places
// no restriction on its dimension.
type Preferences struct {
	Categories       []string `json:"notification_categories"`
	Locations        []string `json:"notification_locations"`
	Keywords         []string `json:"notification_keywords"`
	JobTypes         []string `json:"notification_job_types"`
	ExperienceLevels []string `json:"notification_experience_levels"`
}

// SubscriberProfile is one job seeker with notification_enabled = true.
type SubscriberProfile struct {
	UserID                string      `json:"user_id"`
	TelegramChatID        string      `json:"telegram_chat_id,omitempty"`
	FullName              string      `json:"full_name,omitempty"`
	Preferences           Preferences `json:"preferences"`
	EmailNotifications    bool        `json:"email_notifications"`
	TelegramNotifications bool        `json:"telegram_notifications"`
}

// WantsTelegram is true when the seeker opted in and linked a chat.
func (p SubscriberProfile) WantsTelegram() bool {
	return p.TelegramNotifications && p.TelegramChatID != ""
}

// WantsEmail is true when the seeker opted in to email.
func (p SubscriberProfile) WantsEmail() bool {
	return p.EmailNotifications
}
