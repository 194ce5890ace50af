package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/escola-ledger-api/internal/dto"
	"github.com/noah-isme/escola-ledger-api/internal/service"
	"github.com/noah-isme/escola-ledger-api/internal/utils"
)

// EnrollmentHandler exposes enrollment and confirmation endpoints.
type EnrollmentHandler struct {
	service service.EnrollmentService
	logger  zerolog.Logger
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(service service.EnrollmentService, logger zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service: service,
		logger:  logger.With().Str("component", "enrollment_handler").Logger(),
	}
}

// Register attaches enrollment routes.
func (h *EnrollmentHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Post("/:id/confirmations", h.confirm)
}

func (h *EnrollmentHandler) create(c *fiber.Ctx) error {
	var payload dto.EnrollmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	enrollment, err := h.service.Create(ledgerContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create enrollment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "enrollment created", enrollment)
}

func (h *EnrollmentHandler) confirm(c *fiber.Ctx) error {
	enrollmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ConfirmationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	confirmation, err := h.service.Confirm(ledgerContext(c), enrollmentID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to confirm enrollment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "enrollment confirmed", confirmation)
}
