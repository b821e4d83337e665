package repository

import (
	"context"
	"time"

	"purpaws/internal/models"

	"gorm.io/gorm"
)

// PetReportRepository defines persistence operations for lost and found reports.
type PetReportRepository interface {
	Create(ctx context.Context, report *models.PetReport) error
	GetByID(ctx context.Context, id uint) (*models.PetReport, error)
	ListPublic(ctx context.Context, reportType models.ReportType) ([]models.PetReport, error)
	ListByReporter(ctx context.Context, reporterID uint) ([]models.PetReport, error)
	ListPending(ctx context.Context) ([]models.PetReport, error)
	Approve(ctx context.Context, id uint) (bool, error)
	Delete(ctx context.Context, id uint) error
	DeleteByReporter(ctx context.Context, reporterID uint) error
	ListEligible(ctx context.Context, threshold time.Time) ([]models.PetReport, error)
	GetEligible(ctx context.Context, id uint, threshold time.Time) (*models.PetReport, error)
	CloseIfEligible(ctx context.Context, id uint, threshold time.Time) (bool, error)
	CountEligible(ctx context.Context, threshold time.Time) (int64, error)
	CountPending(ctx context.Context) (int64, error)
	CountOpen(ctx context.Context, reportType models.ReportType) (int64, error)
}

// Eligible scopes a query to Found reports ready for adoption conversion: approved and
// Open with date_reported at or before threshold, or carrying the legacy Pending Adoption
// status.
func Eligible(threshold time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("report_type = ?", models.ReportTypeFound).
			Where("(status = ? AND is_approved = ? AND date_reported <= ?) OR status = ?",
				models.ReportStatusOpen, true, threshold, models.ReportStatusPendingAdoption)
	}
}

// Public scopes a query to reports shown on the dashboard.
func Public(db *gorm.DB) *gorm.DB {
	return db.Where("is_approved = ? AND status = ?", true, models.ReportStatusOpen)
}

func newestReportsFirst(db *gorm.DB) *gorm.DB {
	return db.Order("date_reported DESC").Order("id DESC")
}

type petReportRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewPetReportRepository returns a new PetReportRepository implementation.
func NewPetReportRepository(db *gorm.DB) PetReportRepository {
	return &petReportRepository{db: db}
}

func (r *petReportRepository) Create(ctx context.Context, report *models.PetReport) error {
	if err := r.db.WithContext(ctx).Omit("Reporter").Create(report).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID reads the primary so moderation decisions see the latest state.
func (r *petReportRepository) GetByID(ctx context.Context, id uint) (*models.PetReport, error) {
	var report models.PetReport
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, notFound(err, "Pet report", id)
	}
	return &report, nil
}

// ListPublic returns approved Open reports, newest first. An empty reportType lists both.
func (r *petReportRepository) ListPublic(ctx context.Context, reportType models.ReportType) ([]models.PetReport, error) {
	q := reader(r.db, r.inTx).WithContext(ctx).Scopes(Public, newestReportsFirst)
	if reportType != "" {
		q = q.Where("report_type = ?", reportType)
	}
	var reports []models.PetReport
	if err := q.Find(&reports).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reports, nil
}

func (r *petReportRepository) ListByReporter(ctx context.Context, reporterID uint) ([]models.PetReport, error) {
	var reports []models.PetReport
	if err := r.db.WithContext(ctx).
		Where("reporter_id = ?", reporterID).
		Scopes(newestReportsFirst).
		Find(&reports).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reports, nil
}

// ListPending returns the moderation queue, oldest first.
func (r *petReportRepository) ListPending(ctx context.Context) ([]models.PetReport, error) {
	var reports []models.PetReport
	if err := r.db.WithContext(ctx).
		Preload("Reporter").
		Where("is_approved = ?", false).
		Order("date_reported ASC").Order("id ASC").
		Find(&reports).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reports, nil
}

// Approve flips is_approved on an unapproved report. It reports false when no row changed.
func (r *petReportRepository) Approve(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PetReport{}).
		Where("id = ? AND is_approved = ?", id, false).
		Update("is_approved", true)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *petReportRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.PetReport{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Pet report", id)
	}
	return nil
}

func (r *petReportRepository) DeleteByReporter(ctx context.Context, reporterID uint) error {
	if err := r.db.WithContext(ctx).Where("reporter_id = ?", reporterID).Delete(&models.PetReport{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListEligible returns eligible reports, oldest first so the longest-waiting pets lead.
func (r *petReportRepository) ListEligible(ctx context.Context, threshold time.Time) ([]models.PetReport, error) {
	var reports []models.PetReport
	if err := r.db.WithContext(ctx).
		Scopes(Eligible(threshold)).
		Order("date_reported ASC").Order("id ASC").
		Find(&reports).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reports, nil
}

// GetEligible loads a report only while it is eligible; anything else is not found.
func (r *petReportRepository) GetEligible(ctx context.Context, id uint, threshold time.Time) (*models.PetReport, error) {
	var report models.PetReport
	if err := r.db.WithContext(ctx).Scopes(Eligible(threshold)).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, notFound(err, "Eligible pet report", id)
	}
	return &report, nil
}

// CloseIfEligible closes the report with a conditional update that re-applies the
// eligibility predicate. Exactly one concurrent caller sees true.
func (r *petReportRepository) CloseIfEligible(ctx context.Context, id uint, threshold time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PetReport{}).
		Where("id = ?", id).
		Scopes(Eligible(threshold)).
		Update("status", models.ReportStatusClosed)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *petReportRepository) CountEligible(ctx context.Context, threshold time.Time) (int64, error) {
	return r.count(ctx, func(db *gorm.DB) *gorm.DB { return db.Scopes(Eligible(threshold)) })
}

func (r *petReportRepository) CountPending(ctx context.Context) (int64, error) {
	return r.count(ctx, func(db *gorm.DB) *gorm.DB { return db.Where("is_approved = ?", false) })
}

// CountOpen counts Open reports of one type regardless of moderation state.
func (r *petReportRepository) CountOpen(ctx context.Context, reportType models.ReportType) (int64, error) {
	return r.count(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("report_type = ? AND status = ?", reportType, models.ReportStatusOpen)
	})
}

func (r *petReportRepository) count(ctx context.Context, scope func(*gorm.DB) *gorm.DB) (int64, error) {
	var n int64
	if err := reader(r.db, r.inTx).WithContext(ctx).Model(&models.PetReport{}).Scopes(scope).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
