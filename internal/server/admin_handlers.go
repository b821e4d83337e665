package server

import (
	"errors"

	"purpaws/internal/cache"
	"purpaws/internal/models"
	"purpaws/internal/policy"
	"purpaws/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAdminDashboard handles GET /api/admin/dashboard
// @Summary Admin dashboard counters
// @Tags admin
// @Produce json
// @Success 200 {object} service.DashboardStats
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/dashboard [get]
func (s *Server) GetAdminDashboard(c *fiber.Ctx) error {
	stats, err := s.admin.Dashboard(c.UserContext(), actorFrom(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(stats)
}

// GetManagedUsers handles GET /api/admin/users
func (s *Server) GetManagedUsers(c *fiber.Ctx) error {
	users, err := s.admin.ListUsers(c.UserContext(), actorFrom(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(users)
}

// PromoteUser handles POST /api/admin/users/:id/promote
// @Summary Promote a user to staff admin
// @Description Superuser only. Promoting an admin is a no-op answered with a warning; the staff admin cap is enforced.
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{user=models.User,warning=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /admin/users/{id}/promote [post]
func (s *Server) PromoteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.admin.Promote(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	if result.AlreadyElevated {
		return c.JSON(fiber.Map{
			"user":    result.User,
			"warning": result.User.Username + " is already an admin",
		})
	}
	return c.JSON(fiber.Map{
		"user":    result.User,
		"message": result.User.Username + " has been promoted to admin",
	})
}

// RemoveUser handles DELETE /api/admin/users/:id
func (s *Server) RemoveUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.admin.Remove(c.UserContext(), actorFrom(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User removed"})
}

// RunAdoptionJob handles POST /api/admin/jobs/adoption. ?mode=scan|auto-list overrides
// the feature flag.
func (s *Server) RunAdoptionJob(c *fiber.Ctx) error {
	if err := policy.Authorize(actorFrom(c).Capability, policy.ActionRunJobs); err != nil {
		return s.respondError(c, err)
	}
	ctx := c.UserContext()

	mode := s.job.Mode()
	if raw := c.Query("mode"); raw != "" {
		mode = service.JobMode(raw)
		if mode != service.JobModeScan && mode != service.JobModeAutoList {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewFieldError("mode", "Mode must be scan or auto-list"))
		}
	}

	summary, err := s.job.RunMode(ctx, mode)
	switch {
	case errors.Is(err, cache.ErrLockHeld):
		return s.respondError(c, models.NewConflictError("The adoption job is already running"))
	case errors.Is(err, service.ErrNoSuperuser):
		return s.respondError(c, models.NewConflictError("No superuser exists to attribute automated listings to"))
	case err != nil:
		return s.respondError(c, err)
	}
	return c.JSON(summary)
}

// GetFeatureFlags returns configured feature flags and their state for the current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if err := policy.Authorize(actorFrom(c).Capability, policy.ActionRunJobs); err != nil {
		return s.respondError(c, err)
	}
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userIDFrom(c)),
		"job_mode":  s.job.Mode(),
	})
}
