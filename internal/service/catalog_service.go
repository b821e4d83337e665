package service

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"purpaws/internal/cache"
	"purpaws/internal/config"
	"purpaws/internal/middleware"
	"purpaws/internal/models"
	"purpaws/internal/policy"
	"purpaws/internal/repository"
	"purpaws/internal/storage"
	"purpaws/internal/validation"
)

// CreateListingInput is a listing authored directly by an admin.
type CreateListingInput struct {
	Name        string
	Age         *int
	Gender      models.PetGender
	PetType     string
	Breed       string
	Color       string
	Description string
	Image       io.Reader
}

// CatalogService serves the public adoption catalog and admin listing maintenance.
type CatalogService struct {
	repos         *repository.Repositories
	blobs         storage.Store
	now           Clock
	maxImageBytes int64
}

// NewCatalogService returns a CatalogService.
func NewCatalogService(repos *repository.Repositories, blobs storage.Store, cfg *config.Config, now Clock) *CatalogService {
	return &CatalogService{repos: repos, blobs: blobs, now: now, maxImageBytes: cfg.ImageMaxUploadBytes()}
}

// ListAvailable returns Available listings, newest first.
func (s *CatalogService) ListAvailable(ctx context.Context) ([]models.PetForAdoption, error) {
	var listings []models.PetForAdoption
	err := cache.Aside(ctx, cache.CatalogKey, &listings, cache.CatalogTTL, func() error {
		var err error
		listings, err = s.repos.Listings.ListAvailable(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []models.PetForAdoption{}
	}
	return listings, nil
}

// Get returns a listing only while it is Available.
func (s *CatalogService) Get(ctx context.Context, id uint) (*models.PetForAdoption, error) {
	return s.repos.Listings.GetAvailable(ctx, id)
}

// Create adds an Available listing with an uploaded image.
func (s *CatalogService) Create(ctx context.Context, actor policy.Actor, in CreateListingInput) (*models.PetForAdoption, error) {
	if err := policy.Authorize(actor.Capability, policy.ActionManageListings); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.PetType = strings.TrimSpace(in.PetType)
	in.Breed = strings.TrimSpace(in.Breed)
	in.Color = strings.TrimSpace(in.Color)
	in.Description = strings.TrimSpace(in.Description)

	gender, err := validation.Gender(in.Gender)
	if err != nil {
		return nil, err
	}
	if in.Age == nil {
		return nil, models.NewFieldError("age", "Age is required")
	}
	if err := validation.First(
		validation.Required("name", "Name", in.Name),
		validation.MaxLength("name", "Name", in.Name, 100),
		validation.NonNegative("age", "Age", in.Age),
		validation.Required("pet_type", "Pet type", in.PetType),
		validation.MaxLength("pet_type", "Pet type", in.PetType, 50),
		validation.MaxLength("breed", "Breed", in.Breed, 100),
		validation.Required("color", "Color", in.Color),
		validation.MaxLength("color", "Color", in.Color, 50),
		validation.Required("description", "Description", in.Description),
	); err != nil {
		return nil, err
	}
	if in.Image == nil {
		return nil, models.NewFieldError("image", "Image is required")
	}
	img, err := storage.ReadImage("image", in.Image, s.maxImageBytes)
	if err != nil {
		return nil, err
	}
	key, err := s.blobs.Put(ctx, storage.PrefixAdoptionImages, img.Reader(), img.Size(), img.ContentType)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	listing := &models.PetForAdoption{
		Name:        in.Name,
		Age:         *in.Age,
		Gender:      gender,
		PetType:     in.PetType,
		Breed:       in.Breed,
		Color:       in.Color,
		Image:       key,
		Description: in.Description,
		ListerID:    actor.UserID,
		Status:      models.AdoptionStatusAvailable,
		DateListed:  s.now(),
	}
	if err := s.repos.Listings.Create(ctx, listing); err != nil {
		releaseBlobs(ctx, s.blobs, key)
		return nil, err
	}
	cache.InvalidateCatalog(ctx)
	middleware.Logger.InfoContext(ctx, "adoption listing created",
		slog.Uint64("listing_id", uint64(listing.ID)),
		slog.Uint64("lister_id", uint64(actor.UserID)),
	)
	return listing, nil
}

// UpdateStatus moves a listing between Available, Pending and Adopted.
func (s *CatalogService) UpdateStatus(ctx context.Context, actor policy.Actor, id uint, status models.AdoptionStatus) (*models.PetForAdoption, error) {
	if err := policy.Authorize(actor.Capability, policy.ActionManageListings); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, models.NewFieldError("status", "Status must be Available, Pending or Adopted")
	}
	if err := s.repos.Listings.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	cache.InvalidateCatalog(ctx)
	return s.repos.Listings.GetByID(ctx, id)
}

// Delete removes a listing and releases its image.
func (s *CatalogService) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	if err := policy.Authorize(actor.Capability, policy.ActionManageListings); err != nil {
		return err
	}
	listing, err := s.repos.Listings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repos.Listings.Delete(ctx, id); err != nil {
		return err
	}
	releaseBlobs(ctx, s.blobs, listing.Image)
	cache.InvalidateCatalog(ctx)
	middleware.Logger.InfoContext(ctx, "adoption listing deleted", slog.Uint64("listing_id", uint64(id)))
	return nil
}
