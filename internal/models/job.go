package models

import "strings"

// JobPosting is the newly created job that triggers a notification run. It is
// read-only for the duration of the run.
type JobPosting struct {
	ID              string `json:"job_id"`
	Title           string `json:"job_title"`
	CompanyName     string `json:"company_name"`
	City            string `json:"city"`
	Category        string `json:"category,omitempty"`
	JobType         string `json:"job_type,omitempty"`
	ExperienceLevel string `json:"experience_level,omitempty"`
	Description     string `json:"description,omitempty"`
}

// Normalize trims surrounding whitespace from every field.
func (j JobPosting) Normalize() JobPosting {
	return JobPosting{
		ID:              strings.TrimSpace(j.ID),
		Title:           strings.TrimSpace(j.Title),
		CompanyName:     strings.TrimSpace(j.CompanyName),
		City:            strings.TrimSpace(j.City),
		Category:        strings.TrimSpace(j.Category),
		JobType:         strings.TrimSpace(j.JobType),
		ExperienceLevel: strings.TrimSpace(j.ExperienceLevel),
		Description:     strings.TrimSpace(j.Description),
	}
}
