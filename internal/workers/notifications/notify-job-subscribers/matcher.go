// internal/workers/notifications/notify-job-subscribers/matcher.go
package notifyjobsubscribers

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"job-notifier/internal/common/errors"
	"job-notifier/internal/models"

	"github.com/lib/pq"
)

// Matches reports whether job satisfies every non-empty preference dimension.
// Within a dimension any entry may match; an empty dimension matches anything.
// Comparisons ignore surrounding whitespace and letter case.
func Matches(job models.JobPosting, prefs models.Preferences) bool {
	return matchEqual(prefs.Categories, job.Category) &&
		matchLocation(prefs.Locations, job.City) &&
		matchKeywords(prefs.Keywords, job.Title, job.Description) &&
		matchEqual(prefs.JobTypes, job.JobType) &&
		matchEqual(prefs.ExperienceLevels, job.ExperienceLevel)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// activeEntries drops blank entries. A list holding only blanks is a wildcard.
func activeEntries(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if n := normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func matchEqual(list []string, attr string) bool {
	entries := activeEntries(list)
	if len(entries) == 0 {
		return true
	}
	value := normalize(attr)
	if value == "" {
		return false
	}
	for _, e := range entries {
		if e == value {
			return true
		}
	}
	return false
}

func matchLocation(list []string, city string) bool {
	entries := activeEntries(list)
	if len(entries) == 0 {
		return true
	}
	c := normalize(city)
	if c == "" {
		return false
	}
	for _, e := range entries {
		if strings.Contains(c, e) || strings.Contains(e, c) {
			return true
		}
	}
	return false
}

// matchKeywords looks for each keyword inside a single field, so a phrase
// never matches across the title and description boundary.
func matchKeywords(list []string, fields ...string) bool {
	entries := activeEntries(list)
	if len(entries) == 0 {
		return true
	}
	var haystacks []string
	for _, f := range fields {
		if n := normalize(f); n != "" {
			haystacks = append(haystacks, n)
		}
	}
	for _, e := range entries {
		for _, h := range haystacks {
			if strings.Contains(h, e) {
				return true
			}
		}
	}
	return false
}

// Matcher decides whether a profile should be notified about a job. An error
// skips that profile only.
type Matcher interface {
	Match(ctx context.Context, job models.JobPosting, profile models.SubscriberProfile) (bool, error)
}

var errMissingUserID = stderrors.New("profile has no user id")

// PolicyMatcher evaluates Matches in process.
type PolicyMatcher struct{}

func (PolicyMatcher) Match(_ context.Context, job models.JobPosting, profile models.SubscriberProfile) (bool, error) {
	if strings.TrimSpace(profile.UserID) == "" {
		return false, errors.NewMatchEvaluationFailedError("", errMissingUserID)
	}
	return Matches(job, profile.Preferences), nil
}

const matchPredicateQuery = `SELECT match_job_to_preferences($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// DatabaseMatcher delegates to the match_job_to_preferences function kept in
// the job board database, for deployments that still own the policy there.
type DatabaseMatcher struct {
	db *sql.DB
}

func NewDatabaseMatcher(db *sql.DB) *DatabaseMatcher {
	return &DatabaseMatcher{db: db}
}

func (m *DatabaseMatcher) Match(ctx context.Context, job models.JobPosting, profile models.SubscriberProfile) (bool, error) {
	p := profile.Preferences
	var matched sql.NullBool
	err := m.db.QueryRowContext(ctx, matchPredicateQuery,
		job.Category, job.City, job.Title, job.Description, job.JobType, job.ExperienceLevel,
		pq.Array(nonNil(p.Categories)), pq.Array(nonNil(p.Locations)), pq.Array(nonNil(p.Keywords)),
		pq.Array(nonNil(p.JobTypes)), pq.Array(nonNil(p.ExperienceLevels)),
	).Scan(&matched)
	if err != nil {
		return false, errors.NewMatchEvaluationFailedError(profile.UserID, err)
	}
	return matched.Valid && matched.Bool, nil
}

// nonNil sends an empty array instead of NULL so the predicate sees a wildcard.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
