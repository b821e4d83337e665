package server

import (
	"purpaws/internal/models"
	"purpaws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm"`
	Age             *int   `json:"age" form:"age"`
	City            string `json:"city" form:"city"`
	Phone           string `json:"phone_number" form:"phone_number"`
	IsAdmin         bool   `json:"is_admin" form:"is_admin"`
	AdminPasscode   string `json:"admin_passcode" form:"admin_passcode"`
}

// Register handles POST /api/auth/register
// @Summary Register an account
// @Description Creates a user and profile. Admin registration needs the configured passcode and a free admin slot.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Registration form"
// @Success 201 {object} service.LoginResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ctx := c.UserContext()
	user, err := s.accounts.Register(ctx, service.RegisterInput{
		Username:            req.Username,
		Email:               req.Email,
		Password:            req.Password,
		PasswordConfirm:     req.PasswordConfirm,
		Age:                 req.Age,
		City:                req.City,
		Phone:               req.Phone,
		IsAdminRegistration: req.IsAdmin,
		AdminPasscode:       req.AdminPasscode,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	result, err := s.accounts.Login(ctx, user.Username, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Login handles POST /api/auth/login
// @Summary Log in
// @Description Authenticates with username and password and returns an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Credentials"
// @Success 200 {object} service.LoginResult
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Username == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and password are required"))
	}

	result, err := s.accounts.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(result)
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (s *Server) Logout(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if claims == nil || claims.JTI == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Logout requires a bearer token"))
	}
	if err := s.accounts.Logout(c.UserContext(), claims); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}
