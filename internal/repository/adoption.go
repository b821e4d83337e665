package repository

import (
	"context"

	"purpaws/internal/models"

	"gorm.io/gorm"
)

// AdoptionRepository defines persistence operations for adoption listings.
type AdoptionRepository interface {
	Create(ctx context.Context, listing *models.PetForAdoption) error
	GetByID(ctx context.Context, id uint) (*models.PetForAdoption, error)
	GetAvailable(ctx context.Context, id uint) (*models.PetForAdoption, error)
	ListAvailable(ctx context.Context) ([]models.PetForAdoption, error)
	ListByLister(ctx context.Context, listerID uint) ([]models.PetForAdoption, error)
	UpdateStatus(ctx context.Context, id uint, status models.AdoptionStatus) error
	Delete(ctx context.Context, id uint) error
	DeleteByLister(ctx context.Context, listerID uint) error
	CountAvailable(ctx context.Context) (int64, error)
}

type adoptionRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewAdoptionRepository returns a new AdoptionRepository implementation.
func NewAdoptionRepository(db *gorm.DB) AdoptionRepository {
	return &adoptionRepository{db: db}
}

// Create inserts a listing. A second listing for the same source report violates the
// unique index and is reported as a conflict.
func (r *adoptionRepository) Create(ctx context.Context, listing *models.PetForAdoption) error {
	if err := r.db.WithContext(ctx).Omit("Lister").Create(listing).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("This report has already been listed for adoption")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *adoptionRepository) GetByID(ctx context.Context, id uint) (*models.PetForAdoption, error) {
	var listing models.PetForAdoption
	if err := r.db.WithContext(ctx).First(&listing, id).Error; err != nil {
		return nil, notFound(err, "Pet for adoption", id)
	}
	return &listing, nil
}

// GetAvailable hides listings that are no longer Available behind a not-found error.
func (r *adoptionRepository) GetAvailable(ctx context.Context, id uint) (*models.PetForAdoption, error) {
	var listing models.PetForAdoption
	if err := reader(r.db, r.inTx).WithContext(ctx).
		Where("id = ? AND status = ?", id, models.AdoptionStatusAvailable).
		First(&listing).Error; err != nil {
		return nil, notFound(err, "Pet for adoption", id)
	}
	return &listing, nil
}

// ListAvailable returns the public catalog, newest first with id as tiebreak.
func (r *adoptionRepository) ListAvailable(ctx context.Context) ([]models.PetForAdoption, error) {
	listings := []models.PetForAdoption{}
	if err := reader(r.db, r.inTx).WithContext(ctx).
		Where("status = ?", models.AdoptionStatusAvailable).
		Order("date_listed DESC").Order("id DESC").
		Find(&listings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return listings, nil
}

func (r *adoptionRepository) ListByLister(ctx context.Context, listerID uint) ([]models.PetForAdoption, error) {
	var listings []models.PetForAdoption
	if err := r.db.WithContext(ctx).Where("lister_id = ?", listerID).Find(&listings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return listings, nil
}

func (r *adoptionRepository) UpdateStatus(ctx context.Context, id uint, status models.AdoptionStatus) error {
	res := r.db.WithContext(ctx).Model(&models.PetForAdoption{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Pet for adoption", id)
	}
	return nil
}

func (r *adoptionRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.PetForAdoption{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Pet for adoption", id)
	}
	return nil
}

func (r *adoptionRepository) DeleteByLister(ctx context.Context, listerID uint) error {
	if err := r.db.WithContext(ctx).Where("lister_id = ?", listerID).Delete(&models.PetForAdoption{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *adoptionRepository) CountAvailable(ctx context.Context) (int64, error) {
	var n int64
	if err := reader(r.db, r.inTx).WithContext(ctx).Model(&models.PetForAdoption{}).
		Where("status = ?", models.AdoptionStatusAvailable).
		Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
