package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"purpaws/internal/cache"
	"purpaws/internal/featureflags"
	"purpaws/internal/middleware"
	"purpaws/internal/models"
	"purpaws/internal/observability"
	"purpaws/internal/policy"
	"purpaws/internal/repository"
)

// JobMode selects what a run does with eligible reports.
type JobMode string

const (
	// JobModeScan notifies every admin about each eligible report.
	JobModeScan JobMode = "scan"
	// JobModeAutoList converts eligible reports without admin input.
	JobModeAutoList JobMode = "auto-list"
)

// ErrNoSuperuser aborts an automated listing run: listings need a superuser to attribute to.
var ErrNoSuperuser = errors.New("no superuser account exists to attribute automated listings to")

const jobLockTTL = 10 * time.Minute

// JobSummary is the structured result of one run.
type JobSummary struct {
	Mode       JobMode   `json:"mode"`
	Processed  int       `json:"processed"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// AdoptionJob is the scheduled entry point over eligible Found reports.
type AdoptionJob struct {
	repos         *repository.Repositories
	adoption      *AdoptionService
	notifications *NotificationService
	flags         *featureflags.Manager
	now           Clock
}

// NewAdoptionJob returns an AdoptionJob. flags may be nil, which means scan mode.
func NewAdoptionJob(repos *repository.Repositories, adoption *AdoptionService, notifications *NotificationService, flags *featureflags.Manager, now Clock) *AdoptionJob {
	return &AdoptionJob{repos: repos, adoption: adoption, notifications: notifications, flags: flags, now: now}
}

// Mode is the mode Run uses.
func (j *AdoptionJob) Mode() JobMode {
	if j.flags != nil && j.flags.EnabledGlobal(featureflags.AutomatedAdoptionListing) {
		return JobModeAutoList
	}
	return JobModeScan
}

// Run executes the configured mode under a cross-instance lock. It returns
// cache.ErrLockHeld when another run is in progress.
func (j *AdoptionJob) Run(ctx context.Context) (*JobSummary, error) {
	return j.RunMode(ctx, j.Mode())
}

// RunMode is Run with an explicit mode.
func (j *AdoptionJob) RunMode(ctx context.Context, mode JobMode) (*JobSummary, error) {
	if mode != JobModeScan && mode != JobModeAutoList {
		return nil, fmt.Errorf("unknown adoption job mode %q", mode)
	}
	release, err := cache.AcquireLock(ctx, cache.JobLockKey("adoption"), jobLockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	if mode == JobModeAutoList {
		return j.RunAutomatedListing(ctx)
	}
	return j.RunEligibilityScan(ctx)
}

func (j *AdoptionJob) begin(mode JobMode) *JobSummary {
	return &JobSummary{Mode: mode, StartedAt: j.now()}
}

func (j *AdoptionJob) finish(ctx context.Context, s *JobSummary) {
	s.FinishedAt = j.now()
	observability.AdoptionJobDuration.WithLabelValues(string(s.Mode)).Observe(s.FinishedAt.Sub(s.StartedAt).Seconds())
	middleware.Logger.InfoContext(ctx, "adoption job finished",
		slog.String("mode", string(s.Mode)),
		slog.Int("processed", s.Processed),
		slog.Int("succeeded", s.Succeeded),
		slog.Int("failed", s.Failed),
		slog.Int("skipped", s.Skipped),
	)
}

func (j *AdoptionJob) record(s *JobSummary, result string) {
	switch result {
	case "succeeded":
		s.Succeeded++
	case "failed":
		s.Failed++
	case "skipped":
		s.Skipped++
	}
	observability.AdoptionJobItems.WithLabelValues(string(s.Mode), result).Inc()
}

// RunEligibilityScan sends one notification per admin per eligible report. Pairs that
// were already notified count as skipped, so repeated runs are harmless.
func (j *AdoptionJob) RunEligibilityScan(ctx context.Context) (*JobSummary, error) {
	summary := j.begin(JobModeScan)
	defer j.finish(ctx, summary)

	reports, err := j.repos.Reports.ListEligible(ctx, j.adoption.threshold())
	if err != nil {
		return summary, err
	}
	admins, err := j.repos.Users.ListElevated(ctx)
	if err != nil {
		return summary, err
	}

	for i := range reports {
		report := &reports[i]
		summary.Processed++
		message := fmt.Sprintf("Found %s (report #%d) near %s is now eligible for adoption listing.",
			report.PetType, report.ID, report.Location)

		created, failed := 0, 0
		for _, admin := range admins {
			ok, err := j.notifications.Notify(ctx, admin.ID, &report.ID, message)
			if err != nil {
				failed++
				middleware.Logger.ErrorContext(ctx, "failed to notify admin of eligible report",
					slog.Uint64("report_id", uint64(report.ID)),
					slog.Uint64("recipient_id", uint64(admin.ID)),
					slog.String("error", err.Error()),
				)
				continue
			}
			if ok {
				created++
			}
		}
		switch {
		case failed > 0:
			j.record(summary, "failed")
		case created > 0:
			j.record(summary, "succeeded")
		default:
			j.record(summary, "skipped")
		}
	}
	return summary, nil
}

// RunAutomatedListing converts every eligible report into a listing attributed to the
// lowest-id superuser. Each report is handled on its own: a failure is logged and the
// run moves on. Reports that stopped being eligible mid-run are skipped.
func (j *AdoptionJob) RunAutomatedListing(ctx context.Context) (*JobSummary, error) {
	summary := j.begin(JobModeAutoList)
	defer j.finish(ctx, summary)

	system, err := j.repos.Users.LowestSuperuser(ctx)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			middleware.Logger.ErrorContext(ctx, "automated adoption listing aborted", slog.String("error", ErrNoSuperuser.Error()))
			return summary, ErrNoSuperuser
		}
		return summary, err
	}
	actor := policy.ActorFor(system)

	reports, err := j.repos.Reports.ListEligible(ctx, j.adoption.threshold())
	if err != nil {
		return summary, err
	}

	for i := range reports {
		report := &reports[i]
		summary.Processed++

		age := 1
		if report.Age != nil {
			age = *report.Age
		}
		in := ConversionInput{
			Name:   listingName(report),
			Age:    &age,
			Gender: report.Gender,
			Description: fmt.Sprintf(
				"This lovely %s was found near %s on %s. After a waiting period, this pet is now looking for a loving forever home!",
				report.PetType, report.Location, report.EventDate.Format("January 02, 2006")),
		}

		listing, err := j.adoption.ConvertToAdoption(ctx, actor, report.ID, in)
		switch {
		case err == nil:
			j.record(summary, "succeeded")
			middleware.Logger.InfoContext(ctx, "automatically listed found pet",
				slog.Uint64("report_id", uint64(report.ID)),
				slog.Uint64("listing_id", uint64(listing.ID)),
			)
		case models.HasCode(err, models.CodeConflict), models.HasCode(err, models.CodeNotFound):
			j.record(summary, "skipped")
			middleware.Logger.WarnContext(ctx, "report no longer eligible, skipping",
				slog.Uint64("report_id", uint64(report.ID)),
			)
		default:
			j.record(summary, "failed")
			middleware.Logger.ErrorContext(ctx, "failed to list found pet",
				slog.Uint64("report_id", uint64(report.ID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return summary, nil
}

// StartScheduler runs the job every interval until ctx is done. A run skipped because
// another instance holds the lock is not an error.
func (j *AdoptionJob) StartScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := j.Run(ctx); err != nil {
					if errors.Is(err, cache.ErrLockHeld) {
						middleware.Logger.InfoContext(ctx, "adoption job already running elsewhere")
						continue
					}
					middleware.Logger.ErrorContext(ctx, "scheduled adoption job failed", slog.String("error", err.Error()))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
