package server

import (
	"io"

	"purpaws/internal/models"
	"purpaws/internal/service"

	"github.com/gofiber/fiber/v2"
)

// formImage opens an uploaded file. A missing part yields a nil reader so the service
// reports it as a required-field error.
func formImage(c *fiber.Ctx, field string) (io.ReadCloser, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewFieldError(field, "Could not read the uploaded image")
	}
	return f, nil
}

// GetPublicReports handles GET /api/petreports
// @Summary Public dashboard
// @Description Approved, open reports newest first, optionally filtered by type
// @Tags petreports
// @Produce json
// @Param type query string false "Lost or Found"
// @Success 200 {array} models.PetReport
// @Failure 400 {object} models.ErrorResponse
// @Router /petreports [get]
func (s *Server) GetPublicReports(c *fiber.Ctx) error {
	reports, err := s.reports.ListPublic(c.UserContext(), c.Query("type"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(reports)
}

// SubmitReport handles POST /api/petreports (multipart/form-data)
// @Summary Submit a lost or found report
// @Tags petreports
// @Accept mpfd
// @Produce json
// @Param report_type formData string true "Lost or Found"
// @Param pet_image formData file true "Photo"
// @Success 201 {object} models.PetReport
// @Failure 400 {object} models.ErrorResponse
// @Router /petreports [post]
func (s *Server) SubmitReport(c *fiber.Ctx) error {
	age, err := optionalInt("age", c.FormValue("age"))
	if err != nil {
		return s.respondError(c, err)
	}
	eventDate, err := parseEventDate(c.FormValue("event_date"))
	if err != nil {
		return s.respondError(c, err)
	}
	image, err := formImage(c, "pet_image")
	if err != nil {
		return s.respondError(c, err)
	}
	in := service.SubmitReportInput{
		ReportType:        models.ReportType(c.FormValue("report_type")),
		Name:              c.FormValue("name"),
		Age:               age,
		Gender:            models.PetGender(c.FormValue("gender")),
		PetType:           c.FormValue("pet_type"),
		Breed:             c.FormValue("breed"),
		Color:             c.FormValue("color"),
		Location:          c.FormValue("location"),
		ContactInfo:       c.FormValue("contact_info"),
		HealthInformation: c.FormValue("health_information"),
		Injury:            c.FormValue("injury"),
		EventDate:         eventDate,
	}
	if image != nil {
		defer image.Close()
		in.Image = image
	}

	report, err := s.reports.Submit(c.UserContext(), userIDFrom(c), in)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// GetMyReports handles GET /api/petreports/mine
func (s *Server) GetMyReports(c *fiber.Ctx) error {
	reports, err := s.reports.ListMine(c.UserContext(), userIDFrom(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(reports)
}

// GetReport handles GET /api/petreports/:id
func (s *Server) GetReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.reports.Get(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(report)
}

// GetPendingReports handles GET /api/admin/petreports/pending
func (s *Server) GetPendingReports(c *fiber.Ctx) error {
	reports, err := s.reports.ListPending(c.UserContext(), actorFrom(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(reports)
}

// ApproveReport handles POST /api/admin/petreports/:id/approve
// @Summary Approve a report
// @Description Approving an approved report is a no-op answered with a warning
// @Tags admin
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} object{report=models.PetReport,warning=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/petreports/{id}/approve [post]
func (s *Server) ApproveReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.reports.Approve(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	if result.AlreadyApproved {
		return c.JSON(fiber.Map{
			"report":  result.Report,
			"warning": "This report has already been approved",
		})
	}
	return c.JSON(fiber.Map{
		"report":  result.Report,
		"message": "Report approved",
	})
}

// RejectReport handles POST /api/admin/petreports/:id/reject
func (s *Server) RejectReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.reports.Reject(c.UserContext(), actorFrom(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Report rejected and removed"})
}
