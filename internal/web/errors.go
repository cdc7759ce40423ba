package web

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"transactions/transaction"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code    string                   `json:"code"`
	Title   string                   `json:"title"`
	Message string                   `json:"message"`
	Fields  []transaction.FieldError `json:"fields,omitempty"`
}

func (h *handler) renderError(c *fiber.Ctx, err error) error {
	var (
		fiberErr *fiber.Error
		invalid  *transaction.ValidationError
		notFound *transaction.NotFoundError
		state    *transaction.StateError
		ledger   *transaction.LedgerError
		stopping *transaction.UnavailableError
	)

	switch {
	case errors.As(err, &fiberErr):
		return writeError(c, fiberErr.Code, "request_error", fiberErr.Message, nil)
	case errors.As(err, &invalid):
		return writeError(c, fiber.StatusBadRequest, "validation_failed", err.Error(), invalid.Fields)
	case errors.As(err, &notFound):
		return writeError(c, fiber.StatusNotFound, "not_found", err.Error(), nil)
	case errors.As(err, &state):
		return writeError(c, fiber.StatusConflict, "invalid_state", err.Error(), nil)
	case errors.As(err, &ledger):
		return writeError(c, fiber.StatusBadGateway, "ledger_failed", err.Error(), nil)
	case errors.As(err, &stopping):
		return writeError(c, fiber.StatusServiceUnavailable, "unavailable", err.Error(), nil)
	}

	h.logger.Error("handler error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return writeError(c, fiber.StatusInternalServerError, "internal_error", "internal server error", nil)
}

func writeError(c *fiber.Ctx, status int, title, message string, fields []transaction.FieldError) error {
	return c.Status(status).JSON(ErrorResponse{
		Code:    strconv.Itoa(status),
		Title:   title,
		Message: message,
		Fields:  fields,
	})
}

// failedInLedger reports whether err is a ledger failure already recorded on t
func failedInLedger(t *transaction.Transaction, err error) bool {
	var ledgerErr *transaction.LedgerError
	return t != nil && t.Status == transaction.Failed && errors.As(err, &ledgerErr)
}
