package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

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

// SubmitReportInput is a lost or found report as submitted by its reporter.
type SubmitReportInput struct {
	ReportType        models.ReportType
	Name              string
	Age               *int
	Gender            models.PetGender
	PetType           string
	Breed             string
	Color             string
	Location          string
	ContactInfo       string
	HealthInformation string
	Injury            string
	EventDate         time.Time
	// Image is the uploaded photo; nil means none was sent.
	Image io.Reader
}

// ApproveResult reports the approved report and whether it had already been approved.
type ApproveResult struct {
	Report          *models.PetReport `json:"report"`
	AlreadyApproved bool              `json:"already_approved"`
}

// ReportService implements report submission and moderation.
type ReportService struct {
	repos         *repository.Repositories
	blobs         storage.Store
	now           Clock
	maxImageBytes int64
}

// NewReportService returns a ReportService.
func NewReportService(repos *repository.Repositories, blobs storage.Store, cfg *config.Config, now Clock) *ReportService {
	return &ReportService{
		repos:         repos,
		blobs:         blobs,
		now:           now,
		maxImageBytes: cfg.ImageMaxUploadBytes(),
	}
}

func (in *SubmitReportInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.PetType = strings.TrimSpace(in.PetType)
	in.Breed = strings.TrimSpace(in.Breed)
	in.Color = strings.TrimSpace(in.Color)
	in.Location = strings.TrimSpace(in.Location)
	in.ContactInfo = strings.TrimSpace(in.ContactInfo)
	// Health information belongs to lost pets, injuries to found ones.
	switch in.ReportType {
	case models.ReportTypeLost:
		in.Injury = ""
	case models.ReportTypeFound:
		in.HealthInformation = ""
	}
}

func (s *ReportService) validate(in *SubmitReportInput) error {
	if !in.ReportType.Valid() {
		return models.NewFieldError("report_type", "Report type must be Lost or Found")
	}
	gender, err := validation.Gender(in.Gender)
	if err != nil {
		return err
	}
	in.Gender = gender

	if err := validation.First(
		validation.MaxLength("name", "Name", in.Name, 100),
		validation.NonNegative("age", "Age", in.Age),
		validation.Required("pet_type", "Pet type", in.PetType),
		validation.MaxLength("pet_type", "Pet type", in.PetType, 50),
		validation.MaxLength("breed", "Breed", in.Breed, 100),
		validation.Required("color", "Color", in.Color),
		validation.MaxLength("color", "Color", in.Color, 50),
		validation.Required("location", "Location", in.Location),
		validation.MaxLength("location", "Location", in.Location, 255),
		validation.Required("contact_info", "Contact info", in.ContactInfo),
		validation.MaxLength("contact_info", "Contact info", in.ContactInfo, 255),
	); err != nil {
		return err
	}
	if in.EventDate.IsZero() {
		return models.NewFieldError("event_date", "Event date is required")
	}
	if in.EventDate.After(s.now()) {
		return models.NewFieldError("event_date", "Event date cannot be in the future")
	}
	if in.Image == nil {
		return models.NewFieldError("pet_image", "Image is required")
	}
	return nil
}

// Submit creates an Open, unapproved report owned by reporterID.
func (s *ReportService) Submit(ctx context.Context, reporterID uint, in SubmitReportInput) (report *models.PetReport, err error) {
	ctx, span := observability.StartSpan(ctx, "report", "submit", attribute.String("report_type", string(in.ReportType)))
	defer span.Finish(&err)

	in.normalize()
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	img, err := storage.ReadImage("pet_image", in.Image, s.maxImageBytes)
	if err != nil {
		return nil, err
	}
	key, err := s.blobs.Put(ctx, storage.PrefixPetImages, img.Reader(), img.Size(), img.ContentType)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	report = &models.PetReport{
		ReportType:        in.ReportType,
		Status:            models.ReportStatusOpen,
		IsApproved:        false,
		ReporterID:        reporterID,
		Name:              in.Name,
		Age:               in.Age,
		Gender:            in.Gender,
		PetType:           in.PetType,
		Breed:             in.Breed,
		Color:             in.Color,
		Location:          in.Location,
		ContactInfo:       in.ContactInfo,
		PetImage:          key,
		HealthInformation: in.HealthInformation,
		Injury:            in.Injury,
		DateReported:      s.now(),
		EventDate:         in.EventDate.UTC(),
	}
	if err := s.repos.Reports.Create(ctx, report); err != nil {
		releaseBlobs(ctx, s.blobs, key)
		return nil, err
	}

	observability.ReportEvents.WithLabelValues("submitted", string(report.ReportType)).Inc()
	middleware.Logger.InfoContext(ctx, "pet report submitted",
		slog.Uint64("report_id", uint64(report.ID)),
		slog.String("report_type", string(report.ReportType)),
	)
	return report, nil
}

// Get returns a report to a signed-in viewer. Unapproved reports are visible only to
// their reporter and to admins.
func (s *ReportService) Get(ctx context.Context, viewer policy.Actor, id uint) (*models.PetReport, error) {
	report, err := s.repos.Reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.IsApproved && report.ReporterID != viewer.UserID && !viewer.Capability.Elevated() {
		return nil, models.NewNotFoundError("Pet report", id)
	}
	return report, nil
}

// ListPublic returns the dashboard. reportType may be empty, Lost or Found.
func (s *ReportService) ListPublic(ctx context.Context, reportType string) ([]models.PetReport, error) {
	t := models.ReportType(reportType)
	if t != "" && !t.Valid() {
		return nil, models.NewFieldError("type", "Report type must be Lost or Found")
	}
	reports, err := s.repos.Reports.ListPublic(ctx, t)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []models.PetReport{}
	}
	return reports, nil
}

// ListMine returns every report by reporterID regardless of moderation state.
func (s *ReportService) ListMine(ctx context.Context, reporterID uint) ([]models.PetReport, error) {
	reports, err := s.repos.Reports.ListByReporter(ctx, reporterID)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []models.PetReport{}
	}
	return reports, nil
}

// ListPending returns the moderation queue.
func (s *ReportService) ListPending(ctx context.Context, actor policy.Actor) ([]models.PetReport, error) {
	if err := policy.Authorize(actor.Capability, policy.ActionModerateReports); err != nil {
		return nil, err
	}
	reports, err := s.repos.Reports.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []models.PetReport{}
	}
	return reports, nil
}

// Approve makes a report publicly visible. Approving an approved report changes nothing
// and is flagged in the result.
func (s *ReportService) Approve(ctx context.Context, actor policy.Actor, id uint) (*ApproveResult, error) {
	if err := policy.Authorize(actor.Capability, policy.ActionModerateReports); err != nil {
		return nil, err
	}
	report, err := s.repos.Reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.IsApproved {
		return &ApproveResult{Report: report, AlreadyApproved: true}, nil
	}

	changed, err := s.repos.Reports.Approve(ctx, id)
	if err != nil {
		return nil, err
	}
	// Re-read either way: a concurrent reject may have removed the row, or a concurrent
	// approve may have won.
	report, err = s.repos.Reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &ApproveResult{Report: report, AlreadyApproved: true}, nil
	}

	observability.ReportEvents.WithLabelValues("approved", string(report.ReportType)).Inc()
	middleware.Logger.InfoContext(ctx, "pet report approved",
		slog.Uint64("report_id", uint64(id)),
		slog.Uint64("admin_id", uint64(actor.UserID)),
	)
	return &ApproveResult{Report: report}, nil
}

// Reject deletes the report and its notifications, then releases its image.
func (s *ReportService) Reject(ctx context.Context, actor policy.Actor, id uint) error {
	if err := policy.Authorize(actor.Capability, policy.ActionModerateReports); err != nil {
		return err
	}
	var report *models.PetReport
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		report, err = tx.Reports.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Notifications.DeleteByReports(ctx, id); err != nil {
			return err
		}
		return tx.Reports.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	releaseBlobs(ctx, s.blobs, report.PetImage)

	observability.ReportEvents.WithLabelValues("rejected", string(report.ReportType)).Inc()
	middleware.Logger.InfoContext(ctx, "pet report rejected",
		slog.Uint64("report_id", uint64(id)),
		slog.Uint64("admin_id", uint64(actor.UserID)),
	)
	return nil
}
