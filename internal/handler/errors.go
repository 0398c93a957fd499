package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/cohab/internal/domain"
)

// errorResponse writes the standard {"error", "code"} body
func errorResponse(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

// handleError maps domain errors to HTTP responses
func handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrMissingPaymentData),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidDueDay):
		return errorResponse(c, fiber.StatusUnprocessableEntity, domain.ErrorCode(err), err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errorResponse(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		return errorResponse(c, fiber.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrSelfDeactivation):
		return errorResponse(c, fiber.StatusBadRequest, "self_deactivation", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return errorResponse(c, fiber.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, domain.ErrStudentWithoutEmail):
		return errorResponse(c, fiber.StatusBadRequest, "student_without_email", err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		return errorResponse(c, fiber.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return errorResponse(c, fiber.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrEmailDisabled):
		return errorResponse(c, fiber.StatusServiceUnavailable, "email_disabled", err.Error())
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return errorResponse(c, fe.Code, "request_error", fe.Message)
	}

	log.Printf("⚠️ %s %s: %v", c.Method(), c.Path(), err)
	return errorResponse(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
}
