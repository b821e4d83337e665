package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"purpaws/internal/cache"
	"purpaws/internal/config"
	"purpaws/internal/middleware"
	"purpaws/internal/models"
	"purpaws/internal/observability"
	"purpaws/internal/policy"
	"purpaws/internal/repository"
	"purpaws/internal/storage"
	"purpaws/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// ConversionInput is the admin-authored part of a listing converted from a report.
type ConversionInput struct {
	Name        string           `json:"name"`
	Age         *int             `json:"age"`
	Gender      models.PetGender `json:"gender"`
	Description string           `json:"description"`
}

// AdoptionService owns the eligibility view and the report to listing conversion.
type AdoptionService struct {
	repos   *repository.Repositories
	blobs   storage.Store
	now     Clock
	waiting time.Duration
}

// NewAdoptionService returns an AdoptionService.
func NewAdoptionService(repos *repository.Repositories, blobs storage.Store, cfg *config.Config, now Clock) *AdoptionService {
	return &AdoptionService{
		repos:   repos,
		blobs:   blobs,
		now:     now,
		waiting: cfg.AdoptionWaitingPeriod(),
	}
}

// threshold is the newest date_reported that has waited long enough.
func (s *AdoptionService) threshold() time.Time {
	return s.now().Add(-s.waiting)
}

// ListEligible returns reports ready to be listed, longest waiting first.
func (s *AdoptionService) ListEligible(ctx context.Context, actor policy.Actor) ([]models.PetReport, error) {
	if err := policy.Authorize(actor.Capability, policy.ActionProcessAdoption); err != nil {
		return nil, err
	}
	reports, err := s.repos.Reports.ListEligible(ctx, s.threshold())
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []models.PetReport{}
	}
	return reports, nil
}

// Draft suggests listing fields for an eligible report.
func (s *AdoptionService) Draft(ctx context.Context, actor policy.Actor, reportID uint) (*ConversionInput, error) {
	if err := policy.Authorize(actor.Capability, policy.ActionProcessAdoption); err != nil {
		return nil, err
	}
	report, err := s.repos.Reports.GetEligible(ctx, reportID, s.threshold())
	if err != nil {
		return nil, err
	}
	return &ConversionInput{
		Name:   listingName(report),
		Age:    report.Age,
		Gender: report.Gender,
		Description: fmt.Sprintf(
			"This lovely %s was found near %s. We are looking for a forever home for them!",
			report.PetType, report.Location),
	}, nil
}

func listingName(report *models.PetReport) string {
	if report.Name != "" {
		return report.Name
	}
	return "Friendly " + report.PetType
}

func validateConversion(in *ConversionInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	gender, err := validation.Gender(in.Gender)
	if err != nil {
		return err
	}
	in.Gender = gender
	if in.Age == nil {
		return models.NewFieldError("age", "Age is required")
	}
	return validation.First(
		validation.Required("name", "Name", in.Name),
		validation.MaxLength("name", "Name", in.Name, 100),
		validation.NonNegative("age", "Age", in.Age),
		validation.Required("description", "Description", in.Description),
	)
}

// ConvertToAdoption turns an eligible Found report into an Available listing attributed
// to actor and closes the report. The image is copied so each record owns its blob.
// Closing the report and creating the listing commit together; a caller that loses a
// race gets a conflict and nothing is written.
func (s *AdoptionService) ConvertToAdoption(ctx context.Context, actor policy.Actor, reportID uint, in ConversionInput) (listing *models.PetForAdoption, err error) {
	ctx, span := observability.StartSpan(ctx, "adoption", "convert",
		attribute.Int64("report_id", int64(reportID)),
		attribute.Int64("actor_id", int64(actor.UserID)),
	)
	defer span.Finish(&err)
	defer func() {
		outcome := "converted"
		switch {
		case err == nil:
		case models.HasCode(err, models.CodeConflict):
			outcome = "conflict"
		case models.HasCode(err, models.CodeNotFound):
			outcome = "not_eligible"
		default:
			outcome = "failed"
		}
		observability.AdoptionConversions.WithLabelValues(outcome).Inc()
	}()

	if err := policy.Authorize(actor.Capability, policy.ActionProcessAdoption); err != nil {
		return nil, err
	}
	if err := validateConversion(&in); err != nil {
		return nil, err
	}

	threshold := s.threshold()
	report, err := s.repos.Reports.GetEligible(ctx, reportID, threshold)
	if err != nil {
		return nil, err
	}

	imageKey, err := s.blobs.Copy(ctx, report.PetImage, storage.PrefixAdoptionImages)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("copy report image: %w", err))
	}

	source := report.ID
	listing = &models.PetForAdoption{
		Name:           in.Name,
		Age:            *in.Age,
		Gender:         in.Gender,
		PetType:        report.PetType,
		Breed:          report.Breed,
		Color:          report.Color,
		Image:          imageKey,
		Description:    in.Description,
		ListerID:       actor.UserID,
		Status:         models.AdoptionStatusAvailable,
		SourceReportID: &source,
		DateListed:     s.now(),
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		closed, err := tx.Reports.CloseIfEligible(ctx, report.ID, threshold)
		if err != nil {
			return err
		}
		if !closed {
			return models.NewConflictError("This report is no longer eligible for adoption. Please refresh and try again.")
		}
		return tx.Listings.Create(ctx, listing)
	})
	if err != nil {
		releaseBlobs(ctx, s.blobs, imageKey)
		return nil, err
	}

	cache.InvalidateCatalog(ctx)
	middleware.Logger.InfoContext(ctx, "report converted to adoption listing",
		slog.Uint64("report_id", uint64(report.ID)),
		slog.Uint64("listing_id", uint64(listing.ID)),
		slog.Uint64("lister_id", uint64(actor.UserID)),
	)
	return listing, nil
}
