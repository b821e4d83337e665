package server

import (
	"purpaws/internal/models"
	"purpaws/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/profiles/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.accounts.GetProfile(c.UserContext(), userIDFrom(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/profiles/me. Omitted fields keep their value.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Age   *int    `json:"age"`
		City  *string `json:"city"`
		Phone *string `json:"phone_number"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	user, err := s.accounts.UpdateProfile(c.UserContext(), userIDFrom(c), service.ProfileInput{
		Age:   req.Age,
		City:  req.City,
		Phone: req.Phone,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}

// UploadProfilePicture handles POST /api/profiles/me/picture (multipart field "profile_picture")
func (s *Server) UploadProfilePicture(c *fiber.Ctx) error {
	image, err := formImage(c, "profile_picture")
	if err != nil {
		return s.respondError(c, err)
	}
	if image == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldError("profile_picture", "Image is required"))
	}
	defer image.Close()

	user, err := s.accounts.UploadProfilePicture(c.UserContext(), userIDFrom(c), image)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}
