package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/escola-ledger-api/internal/service"
	"github.com/noah-isme/escola-ledger-api/internal/utils"
)

// LedgerHandler exposes the per-student ledger endpoints.
type LedgerHandler struct {
	ledger service.LedgerService
	logger zerolog.Logger
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(ledger service.LedgerService, logger zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger: ledger,
		logger: logger.With().Str("component", "ledger_handler").Logger(),
	}
}

// Register attaches student ledger routes. admin guards the cascade deletion.
func (h *LedgerHandler) Register(router fiber.Router, admin fiber.Handler) {
	router.Get("/:id/tuition", h.tuition)
	router.Get("/:id/debts", h.debts)
	router.Delete("/:id", guard(admin), h.deleteStudent)
}

func (h *LedgerHandler) tuition(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	yearID, err := parseOptionalQueryUint(c, "academic_year_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.ledger.ReconcileTuition(ledgerContext(c), studentID, yearID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to reconcile tuition")
	}

	return utils.OK(c, result, "tuition ledger retrieved", nil)
}

func (h *LedgerHandler) debts(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	currentID, err := parseOptionalQueryUint(c, "current_academic_year_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if currentID == nil {
		return utils.Fail(c, fiber.StatusBadRequest, "current_academic_year_id is required", fiber.Map{"field": "current_academic_year_id"})
	}

	records, err := h.ledger.AggregateHistoricalDebt(ledgerContext(c), studentID, *currentID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to aggregate historical debt")
	}

	meta := fiber.Map{"years_in_debt": len(records)}
	return utils.OK(c, records, "historical debt retrieved", meta)
}

func (h *LedgerHandler) deleteStudent(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.ledger.DeleteStudentCascade(ledgerContext(c), studentID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to delete student")
	}

	return utils.OK(c, summary, "student deleted", nil)
}

func guard(handler fiber.Handler) fiber.Handler {
	if handler == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return handler
}
