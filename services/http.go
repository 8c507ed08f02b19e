package services

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/Serhat17/bonkback-sub000/pkg/errors"
)

// respondError maps the error taxonomy onto HTTP statuses so handlers stay
// uniform. Callers can always distinguish "you are not eligible" (a typed
// 200 result, never an error) from "we could not determine it" (503).
func respondError(c *fiber.Ctx, err error) error {
	code := apperrors.Code(err)

	status := fiber.StatusInternalServerError
	switch code {
	case apperrors.ErrCodeValidation:
		status = fiber.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		status = fiber.StatusNotFound
	case apperrors.ErrCodeStateConflict:
		status = fiber.StatusConflict
	case apperrors.ErrCodeConcurrencyConflict:
		status = fiber.StatusServiceUnavailable
	case apperrors.ErrCodeUnavailable:
		status = fiber.StatusServiceUnavailable
	}

	msg := err.Error()
	if appErr, ok := err.(*apperrors.AppError); ok {
		msg = appErr.Message
	}

	return c.Status(status).JSON(fiber.Map{"error": msg, "code": code})
}
