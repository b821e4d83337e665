package repository

import (
	"context"
	"errors"

	"purpaws/internal/cache"
	"purpaws/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users and their profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetWithProfile(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateProfile(ctx context.Context, profile *models.Profile) error
	UpdateProfile(ctx context.Context, userID uint, fields map[string]any) error
	Elevate(ctx context.Context, userID uint) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
	CountStaffAdmins(ctx context.Context) (int64, error)
	ListNonSuperusers(ctx context.Context) ([]models.User, error)
	ListElevated(ctx context.Context) ([]models.User, error)
	LowestSuperuser(ctx context.Context) (*models.User, error)
}

type userRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID is served from the user cache outside transactions. Cached copies never carry
// the password hash, so credential checks go through GetByUsername.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	fetch := func() error {
		if err := reader(r.db, r.inTx).WithContext(ctx).First(&user, id).Error; err != nil {
			return notFound(err, "User", id)
		}
		return nil
	}
	if r.inTx {
		if err := fetch(); err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, fetch); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetWithProfile(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := reader(r.db, r.inTx).WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, notFound(err, "User", id)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has the address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByUsername returns nil, nil when no user has the name. It always reads the primary
// and includes the password hash.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit("Profile").Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("A user with that username or email already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Profile already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// UpdateProfile writes only the given profile columns.
func (r *userRepository) UpdateProfile(ctx context.Context, userID uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", userID).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("Profile not found")
	}
	return nil
}

// Elevate sets is_staff and the admin display role together.
func (r *userRepository) Elevate(ctx context.Context, userID uint) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("is_staff", true)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", userID)
	}
	if err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("role", models.ProfileRoleAdmin).Error; err != nil {
		return models.NewInternalError(err)
	}
	if !r.inTx {
		cache.InvalidateUser(ctx, userID)
	}
	return nil
}

// Delete removes the profile and the user. Callers clear owned records first.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", id).Delete(&models.Profile{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	if !r.inTx {
		cache.InvalidateUser(ctx, id)
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := reader(r.db, r.inTx).WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// CountStaffAdmins counts capped accounts: staff that are not superusers.
func (r *userRepository) CountStaffAdmins(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_staff = ? AND is_superuser = ?", true, false).
		Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *userRepository) ListNonSuperusers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := reader(r.db, r.inTx).WithContext(ctx).
		Preload("Profile").
		Where("is_superuser = ?", false).
		Order("username ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListElevated(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := reader(r.db, r.inTx).WithContext(ctx).
		Where("is_staff = ? OR is_superuser = ?", true, true).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// LowestSuperuser returns the superuser with the smallest id, the system actor for
// automated listings.
func (r *userRepository) LowestSuperuser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("is_superuser = ?", true).Order("id ASC").First(&user).Error; err != nil {
		return nil, notFound(err, "Superuser", "any")
	}
	return &user, nil
}
