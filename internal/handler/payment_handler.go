package handler

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/escola-ledger-api/internal/dto"
	"github.com/noah-isme/escola-ledger-api/internal/service"
	"github.com/noah-isme/escola-ledger-api/internal/utils"
)

// PaymentHandler exposes payment recording and voucher checks.
type PaymentHandler struct {
	ledger service.LedgerService
	logger zerolog.Logger
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(ledger service.LedgerService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		ledger: ledger,
		logger: logger.With().Str("component", "payment_handler").Logger(),
	}
}

// Register attaches payment routes.
func (h *PaymentHandler) Register(router fiber.Router) {
	router.Post("", h.record)
	router.Get("/vouchers/:voucher/validate", h.validateVoucher)
}

func (h *PaymentHandler) record(c *fiber.Ctx) error {
	var payload dto.PaymentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	payment, err := h.ledger.RecordPayment(ledgerContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to record payment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "payment recorded", payment)
}

func (h *PaymentHandler) validateVoucher(c *fiber.Ctx) error {
	voucher := c.Params("voucher")
	if decoded, err := url.PathUnescape(voucher); err == nil {
		voucher = decoded
	}
	excludeID, err := parseOptionalQueryUint(c, "exclude_invoice_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.ledger.ValidateVoucher(ledgerContext(c), voucher, excludeID); err != nil {
		return respondError(c, h.logger, err, "voucher validation failed")
	}

	return utils.OK(c, dto.VoucherValidationResponse{
		Voucher:   strings.TrimSpace(voucher),
		Available: true,
	}, "voucher available", nil)
}
