package server

import (
	"purpaws/internal/models"
	"purpaws/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAvailableListings handles GET /api/petsforadoption
// @Summary Adoption catalog
// @Description Available listings, newest first
// @Tags petsforadoption
// @Produce json
// @Success 200 {array} models.PetForAdoption
// @Router /petsforadoption [get]
func (s *Server) GetAvailableListings(c *fiber.Ctx) error {
	listings, err := s.catalog.ListAvailable(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(listings)
}

// GetListing handles GET /api/petsforadoption/:id
func (s *Server) GetListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	listing, err := s.catalog.Get(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(listing)
}

// GetEligibleReports handles GET /api/admin/adoptions/eligible
func (s *Server) GetEligibleReports(c *fiber.Ctx) error {
	reports, err := s.adoption.ListEligible(c.UserContext(), actorFrom(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(reports)
}

// GetConversionDraft handles GET /api/admin/adoptions/eligible/:id/draft
func (s *Server) GetConversionDraft(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	draft, err := s.adoption.Draft(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(draft)
}

// ConvertReport handles POST /api/admin/adoptions/eligible/:id/convert
// @Summary Convert an eligible Found report into an adoption listing
// @Description Copies the report image, creates an Available listing and closes the report in one step
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param request body service.ConversionInput true "Listing details"
// @Success 201 {object} models.PetForAdoption
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/adoptions/eligible/{id}/convert [post]
func (s *Server) ConvertReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.ConversionInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	listing, err := s.adoption.ConvertToAdoption(c.UserContext(), actorFrom(c), id, in)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(listing)
}

// CreateListing handles POST /api/admin/petsforadoption (multipart/form-data)
func (s *Server) CreateListing(c *fiber.Ctx) error {
	age, err := optionalInt("age", c.FormValue("age"))
	if err != nil {
		return s.respondError(c, err)
	}
	image, err := formImage(c, "image")
	if err != nil {
		return s.respondError(c, err)
	}
	in := service.CreateListingInput{
		Name:        c.FormValue("name"),
		Age:         age,
		Gender:      models.PetGender(c.FormValue("gender")),
		PetType:     c.FormValue("pet_type"),
		Breed:       c.FormValue("breed"),
		Color:       c.FormValue("color"),
		Description: c.FormValue("description"),
	}
	if image != nil {
		defer image.Close()
		in.Image = image
	}

	listing, err := s.catalog.Create(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(listing)
}

// UpdateListingStatus handles PATCH /api/admin/petsforadoption/:id/status
func (s *Server) UpdateListingStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Status models.AdoptionStatus `json:"status" form:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	listing, err := s.catalog.UpdateStatus(c.UserContext(), actorFrom(c), id, req.Status)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(listing)
}

// DeleteListing handles DELETE /api/admin/petsforadoption/:id
func (s *Server) DeleteListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.catalog.Delete(c.UserContext(), actorFrom(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Listing deleted"})
}
