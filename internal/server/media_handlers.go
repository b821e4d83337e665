package server

import (
	"errors"

	"purpaws/internal/models"
	"purpaws/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// GetMedia handles GET /media/* by streaming the blob stored under the rest of the path.
// Malformed keys are answered like missing ones.
func (s *Server) GetMedia(c *fiber.Ctx) error {
	key := c.Params("*")
	if err := storage.ValidateKey(key); err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundMessage("Media not found"))
	}

	body, err := s.blobs.Open(c.UserContext(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundMessage("Media not found"))
		}
		return s.respondError(c, models.NewInternalError(err))
	}

	c.Set(fiber.HeaderContentType, storage.ContentTypeForKey(key))
	// Keys are never reused, so a blob's bytes never change.
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400, immutable")
	// fasthttp closes the stream once it has been written.
	return c.SendStream(body)
}
