package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/escola-ledger-api/internal/service"
	"github.com/noah-isme/escola-ledger-api/internal/utils"
)

// GuardianHandler exposes guardian lifecycle endpoints. Both routes are admin only.
type GuardianHandler struct {
	service service.GuardianService
	logger  zerolog.Logger
}

// NewGuardianHandler constructs the handler.
func NewGuardianHandler(service service.GuardianService, logger zerolog.Logger) *GuardianHandler {
	return &GuardianHandler{
		service: service,
		logger:  logger.With().Str("component", "guardian_handler").Logger(),
	}
}

// Register attaches guardian routes.
func (h *GuardianHandler) Register(router fiber.Router) {
	router.Patch("/:id/deactivate", h.deactivate)
	router.Delete("/:id", h.delete)
}

func (h *GuardianHandler) deactivate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	guardian, err := h.service.Deactivate(ledgerContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to deactivate guardian")
	}

	return utils.OK(c, guardian, "guardian deactivated", nil)
}

func (h *GuardianHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(ledgerContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete guardian")
	}

	return utils.OK(c, fiber.Map{"id": id}, "guardian deleted", nil)
}
