package service

import (
	"context"
	"log/slog"

	"purpaws/internal/cache"
	"purpaws/internal/config"
	"purpaws/internal/middleware"
	"purpaws/internal/models"
	"purpaws/internal/policy"
	"purpaws/internal/repository"
	"purpaws/internal/storage"
)

// DashboardStats are the admin dashboard counters.
type DashboardStats struct {
	TotalUsers         int64 `json:"total_users"`
	AvailableListings  int64 `json:"available_listings"`
	OpenLostReports    int64 `json:"open_lost_reports"`
	OpenFoundReports   int64 `json:"open_found_reports"`
	PendingModeration  int64 `json:"pending_moderation"`
	EligibleForListing int64 `json:"eligible_for_listing"`
}

// PromoteResult is the promoted user and whether they already held admin capability.
type PromoteResult struct {
	User            *models.User `json:"user"`
	AlreadyElevated bool         `json:"already_elevated"`
}

// AdminService implements user management for admins.
type AdminService struct {
	repos          *repository.Repositories
	blobs          storage.Store
	adoption       *AdoptionService
	maxStaffAdmins int
}

// NewAdminService returns an AdminService.
func NewAdminService(repos *repository.Repositories, blobs storage.Store, adoption *AdoptionService, cfg *config.Config) *AdminService {
	return &AdminService{repos: repos, blobs: blobs, adoption: adoption, maxStaffAdmins: cfg.MaxStaffAdmins}
}

// Dashboard gathers the counters shown on the admin landing page.
func (s *AdminService) Dashboard(ctx context.Context, actor policy.Actor) (*DashboardStats, error) {
	if err := policy.Authorize(actor.Capability, policy.ActionViewAdminDashboard); err != nil {
		return nil, err
	}
	var stats DashboardStats
	var err error
	if stats.TotalUsers, err = s.repos.Users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.AvailableListings, err = s.repos.Listings.CountAvailable(ctx); err != nil {
		return nil, err
	}
	if stats.OpenLostReports, err = s.repos.Reports.CountOpen(ctx, models.ReportTypeLost); err != nil {
		return nil, err
	}
	if stats.OpenFoundReports, err = s.repos.Reports.CountOpen(ctx, models.ReportTypeFound); err != nil {
		return nil, err
	}
	if stats.PendingModeration, err = s.repos.Reports.CountPending(ctx); err != nil {
		return nil, err
	}
	if stats.EligibleForListing, err = s.repos.Reports.CountEligible(ctx, s.adoption.threshold()); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListUsers returns every account an admin can manage.
func (s *AdminService) ListUsers(ctx context.Context, actor policy.Actor) ([]models.User, error) {
	if err := policy.Authorize(actor.Capability, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	users, err := s.repos.Users.ListNonSuperusers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// ListAdmins returns staff and superuser accounts.
func (s *AdminService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.repos.Users.ListElevated(ctx)
}

// Promote grants staff capability. The admin cap is checked under a lock in the same
// transaction as the write, so concurrent promotions cannot overshoot it.
func (s *AdminService) Promote(ctx context.Context, actor policy.Actor, targetID uint) (*PromoteResult, error) {
	if err := policy.Authorize(actor.Capability, policy.ActionPromoteUser); err != nil {
		return nil, err
	}
	var result PromoteResult
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		target, err := tx.Users.GetWithProfile(ctx, targetID)
		if err != nil {
			return err
		}
		already, err := policy.CanPromote(actor, policy.Target{
			UserID:     target.ID,
			Capability: policy.CapabilityFor(target.IsStaff, target.IsSuperuser),
		})
		if err != nil {
			return err
		}
		if already {
			result = PromoteResult{User: target, AlreadyElevated: true}
			return nil
		}
		if err := checkAdminCap(ctx, tx, s.maxStaffAdmins); err != nil {
			return err
		}
		if err := tx.Users.Elevate(ctx, target.ID); err != nil {
			return err
		}
		target.IsStaff = true
		if target.Profile != nil {
			target.Profile.Role = models.ProfileRoleAdmin
		}
		result = PromoteResult{User: target}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.AlreadyElevated {
		cache.InvalidateUser(ctx, targetID)
		middleware.Logger.InfoContext(ctx, "user promoted to admin",
			slog.Uint64("target_id", uint64(targetID)),
			slog.Uint64("admin_id", uint64(actor.UserID)),
		)
	}
	return &result, nil
}

// Remove deletes an account with its reports, listings, notifications and profile, then
// releases their blobs.
func (s *AdminService) Remove(ctx context.Context, actor policy.Actor, targetID uint) error {
	if err := policy.Authorize(actor.Capability, policy.ActionRemoveUser); err != nil {
		return err
	}
	var blobs []string
	var hadListings bool
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		target, err := tx.Users.GetWithProfile(ctx, targetID)
		if err != nil {
			return err
		}
		if err := policy.CanRemove(actor, policy.Target{
			UserID:     target.ID,
			Capability: policy.CapabilityFor(target.IsStaff, target.IsSuperuser),
		}); err != nil {
			return err
		}

		reports, err := tx.Reports.ListByReporter(ctx, target.ID)
		if err != nil {
			return err
		}
		listings, err := tx.Listings.ListByLister(ctx, target.ID)
		if err != nil {
			return err
		}
		reportIDs := make([]uint, 0, len(reports))
		for _, r := range reports {
			reportIDs = append(reportIDs, r.ID)
			blobs = append(blobs, r.PetImage)
		}
		for _, l := range listings {
			blobs = append(blobs, l.Image)
		}
		hadListings = len(listings) > 0
		if target.Profile != nil {
			blobs = append(blobs, target.Profile.ProfilePicture)
		}

		if err := tx.Notifications.DeleteByRecipient(ctx, target.ID); err != nil {
			return err
		}
		if err := tx.Notifications.DeleteByReports(ctx, reportIDs...); err != nil {
			return err
		}
		if err := tx.Reports.DeleteByReporter(ctx, target.ID); err != nil {
			return err
		}
		if err := tx.Listings.DeleteByLister(ctx, target.ID); err != nil {
			return err
		}
		return tx.Users.Delete(ctx, target.ID)
	})
	if err != nil {
		return err
	}

	releaseBlobs(ctx, s.blobs, blobs...)
	cache.InvalidateUser(ctx, targetID)
	if hadListings {
		cache.InvalidateCatalog(ctx)
	}
	middleware.Logger.InfoContext(ctx, "user removed",
		slog.Uint64("target_id", uint64(targetID)),
		slog.Uint64("admin_id", uint64(actor.UserID)),
	)
	return nil
}
