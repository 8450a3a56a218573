// internal/workers/notifications/notify-job-subscribers/handler.go
package notifyjobsubscribers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"job-notifier/internal/common/errors"
	"job-notifier/internal/common/logger"
	"job-notifier/internal/common/metrics"
	"job-notifier/internal/common/observability"
	"job-notifier/internal/common/validation"
	"job-notifier/internal/identity"
	"job-notifier/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/sourcegraph/conc/iter"
)

const (
	TaskType = "notify-job-subscribers"

	TriggerHTTP     = "http"
	TriggerWorkflow = "workflow"
)

// Dependencies are the collaborators of one Handler. Telegram and Email may be
// nil; they are also ignored when the matching channel is disabled in Config.
// Identity is required only when Email is set. Dedup is consulted only when
// Config.DedupEnabled is true.
type Dependencies struct {
	Profiles      ProfileStore
	Notifications NotificationStore
	Matcher       Matcher
	Identity      identity.Resolver
	Telegram      TelegramSender
	Email         EmailSender
	Dedup         Deduper
	Observability *observability.Observability
}

type Handler struct {
	config        *Config
	profiles      ProfileStore
	notifications NotificationStore
	matcher       Matcher
	identity      identity.Resolver
	dedup         Deduper
	dispatcher    *dispatcher
	obs           *observability.Observability
	errorHandler  *errors.ErrorHandler
	logger        logger.Logger
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) *Handler {
	config = config.withDefaults()
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	if deps.Matcher == nil {
		deps.Matcher = PolicyMatcher{}
	}
	if !config.TelegramEnabled {
		deps.Telegram = nil
	}
	if !config.EmailEnabled || deps.Identity == nil {
		deps.Email = nil
	}
	if !config.DedupEnabled {
		deps.Dedup = nil
	}

	return &Handler{
		config:        config,
		profiles:      deps.Profiles,
		notifications: deps.Notifications,
		matcher:       deps.Matcher,
		identity:      deps.Identity,
		dedup:         deps.Dedup,
		dispatcher: &dispatcher{
			telegram:       deps.Telegram,
			email:          deps.Email,
			maxConcurrency: config.MaxConcurrency,
			logger:         log,
		},
		obs:          deps.Observability,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

// Handle is the zeebe job handler. The job variables carry the job posting.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := ParseInput([]byte(job.Variables))
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.run(ctx, input, TriggerWorkflow)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// ParseInput validates a raw payload and decodes it into a normalized Input.
func ParseInput(raw []byte) (*Input, error) {
	result, err := validation.ValidateJobPosting(raw)
	if err != nil {
		return nil, errors.NewInvalidJobPostingError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidJobPostingError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInvalidJobPostingError(err.Error())
	}
	input = input.Normalize()
	return &input, nil
}

// Execute runs the pipeline for a job posting received over HTTP.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.run(ctx, input, TriggerHTTP)
}

func (h *Handler) run(ctx context.Context, input *Input, trigger string) (*Output, error) {
	start := time.Now()
	output, err := h.execute(ctx, input)

	status := StatusSuccess
	if err != nil {
		status = StatusFailed
	}
	elapsed := time.Since(start)
	metrics.RunsTotal.WithLabelValues(status).Inc()
	metrics.RunDuration.Observe(elapsed.Seconds())
	h.obs.RecordRun(ctx, trigger, status, elapsed)

	return output, err
}

// outcome is what one profile contributes to the run.
type outcome struct {
	skipped         bool
	matched         bool
	deduplicated    bool
	emailUnresolved bool
	record          models.NotificationRecord
	telegram        *models.TelegramDispatch
	email           *models.EmailDispatch
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidJobPostingError("missing job posting")
	}
	job := input.Normalize()
	if err := checkRequired(job); err != nil {
		return nil, err
	}

	log := h.logger.WithFields(map[string]interface{}{"jobId": job.ID})

	profiles, err := h.profiles.LoadSubscribers(ctx)
	if err != nil {
		if _, ok := errors.AsStandardError(err); !ok {
			err = errors.NewProfileLoadFailedError(err)
		}
		log.Error("failed to load subscriber profiles", map[string]interface{}{"error": err})
		return nil, err
	}

	mapper := iter.Mapper[models.SubscriberProfile, outcome]{MaxGoroutines: h.config.MaxConcurrency}
	outcomes := mapper.Map(profiles, func(p *models.SubscriberProfile) outcome {
		return h.evaluate(ctx, log, job, *p)
	})

	out := &Output{
		JobID:            job.ID,
		TotalSubscribers: len(profiles),
		Deliveries:       []models.DeliveryResult{},
	}
	var (
		records   []models.NotificationRecord
		tgMsgs    []models.TelegramDispatch
		emailMsgs []models.EmailDispatch
	)
	for _, o := range outcomes {
		switch {
		case o.skipped:
			out.SkippedProfiles++
			continue
		case !o.matched:
			continue
		}
		out.MatchedSubscribers++
		if o.deduplicated {
			out.Deduplicated++
			continue
		}
		records = append(records, o.record)
		if o.telegram != nil {
			tgMsgs = append(tgMsgs, *o.telegram)
		}
		if o.email != nil {
			emailMsgs = append(emailMsgs, *o.email)
		}
		if o.emailUnresolved {
			out.EmailUnresolved++
		}
	}
	metrics.SubscribersMatched.Add(float64(out.MatchedSubscribers))

	if err := h.notifications.InsertBatch(ctx, records); err != nil {
		if _, ok := errors.AsStandardError(err); !ok {
			err = errors.NewNotificationInsertFailedError(len(records), err)
		}
		h.releaseClaims(ctx, job.ID, records)
		log.Error("failed to insert notifications", map[string]interface{}{
			"count": len(records),
			"error": err,
		})
		return nil, err
	}
	out.NotificationsCreated = len(records)

	dispatchCtx, cancel := context.WithTimeout(ctx, h.config.DispatchTimeout)
	defer cancel()
	tgResults, emailResults := h.dispatcher.dispatch(dispatchCtx, tgMsgs, emailMsgs)

	out.TelegramAttempted = len(tgResults)
	out.TelegramDelivered = countDelivered(tgResults)
	out.EmailAttempted = len(emailResults)
	out.EmailDelivered = countDelivered(emailResults)
	out.Deliveries = append(out.Deliveries, tgResults...)
	out.Deliveries = append(out.Deliveries, emailResults...)
	out.Success = true

	log.Info("job subscribers notified", map[string]interface{}{
		"totalSubscribers":     out.TotalSubscribers,
		"matchedSubscribers":   out.MatchedSubscribers,
		"notificationsCreated": out.NotificationsCreated,
		"telegramAttempted":    out.TelegramAttempted,
		"telegramDelivered":    out.TelegramDelivered,
		"emailAttempted":       out.EmailAttempted,
		"emailDelivered":       out.EmailDelivered,
		"skippedProfiles":      out.SkippedProfiles,
	})
	return out, nil
}

// evaluate matches one profile and composes its payloads. It never fails the
// run: problems are logged and reflected in the outcome.
func (h *Handler) evaluate(ctx context.Context, log logger.Logger, job models.JobPosting, profile models.SubscriberProfile) outcome {
	matched, err := h.matcher.Match(ctx, job, profile)
	if err != nil {
		log.Warn("match evaluation failed, skipping profile", map[string]interface{}{
			"userId": profile.UserID,
			"error":  err,
		})
		return outcome{skipped: true}
	}
	if !matched {
		return outcome{}
	}

	if h.dedup != nil && !h.dedup.Claim(ctx, job.ID, profile.UserID) {
		log.Debug("subscriber already notified for job", map[string]interface{}{"userId": profile.UserID})
		return outcome{matched: true, deduplicated: true}
	}

	o := outcome{
		matched: true,
		record:  ComposeRecord(job, profile),
	}
	if h.dispatcher.telegram != nil {
		o.telegram = ComposeTelegram(job, profile)
	}
	if h.dispatcher.email != nil && profile.WantsEmail() {
		o.email, o.emailUnresolved = h.composeEmail(ctx, log, job, profile)
	}
	return o
}

func (h *Handler) composeEmail(ctx context.Context, log logger.Logger, job models.JobPosting, profile models.SubscriberProfile) (*models.EmailDispatch, bool) {
	address, err := h.identity.ResolveEmail(ctx, profile.UserID)
	if err != nil {
		fields := map[string]interface{}{"userId": profile.UserID}
		if !stderrors.Is(err, identity.ErrEmailNotFound) {
			fields["error"] = errors.NewIdentityLookupFailedError(profile.UserID, err)
		}
		log.Warn("email address unresolved, skipping email", fields)
		return nil, true
	}

	msg, err := ComposeEmail(job, profile, address, h.config.PublicSiteURL, h.config.FromAddress)
	if err != nil {
		log.Warn("email composition failed, skipping email", map[string]interface{}{
			"userId": profile.UserID,
			"error":  err,
		})
		return nil, true
	}
	return msg, false
}

// releaseClaims lets a retried run notify subscribers whose records were
// never written.
func (h *Handler) releaseClaims(ctx context.Context, jobID string, records []models.NotificationRecord) {
	if h.dedup == nil {
		return
	}
	for _, rec := range records {
		h.dedup.Release(ctx, jobID, rec.UserID)
	}
}

func checkRequired(job models.JobPosting) error {
	var missing []string
	if job.ID == "" {
		missing = append(missing, "job_id")
	}
	if job.Title == "" {
		missing = append(missing, "job_title")
	}
	if job.CompanyName == "" {
		missing = append(missing, "company_name")
	}
	if job.City == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return errors.NewInvalidJobPostingError(fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
