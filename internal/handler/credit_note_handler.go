package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/escola-ledger-api/internal/dto"
	"github.com/noah-isme/escola-ledger-api/internal/service"
	"github.com/noah-isme/escola-ledger-api/internal/utils"
)

// CreditNoteHandler exposes credit note issuance.
type CreditNoteHandler struct {
	ledger service.LedgerService
	logger zerolog.Logger
}

// NewCreditNoteHandler constructs the handler.
func NewCreditNoteHandler(ledger service.LedgerService, logger zerolog.Logger) *CreditNoteHandler {
	return &CreditNoteHandler{
		ledger: ledger,
		logger: logger.With().Str("component", "credit_note_handler").Logger(),
	}
}

// Register attaches credit note routes.
func (h *CreditNoteHandler) Register(router fiber.Router) {
	router.Post("", h.issue)
}

func (h *CreditNoteHandler) issue(c *fiber.Ctx) error {
	var payload dto.CreditNoteRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	note, err := h.ledger.ReverseViaCreditNote(ledgerContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to issue credit note")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "credit note issued", note)
}
