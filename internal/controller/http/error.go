package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sportclub/club_scheduler/internal/apperrors"
)

// newErrorHandler переводит типизированные ошибки сервисов в HTTP-статусы.
// Непредвиденные ошибки логируются и наружу уходят без деталей.
func newErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		body := fiber.Map{"error": err.Error()}

		var (
			validationErr *apperrors.ValidationError
			notFoundErr   *apperrors.NotFoundError
			businessErr   *apperrors.BusinessRuleError
			conflictErr   *apperrors.ConflictError
			permissionErr *apperrors.PermissionError
			fiberErr      *fiber.Error
		)

		switch {
		case errors.As(err, &validationErr):
			status = fiber.StatusBadRequest
			if validationErr.Details != nil {
				body["details"] = validationErr.Details
			}
		case errors.As(err, &notFoundErr):
			status = fiber.StatusNotFound
		case errors.As(err, &businessErr):
			status = fiber.StatusUnprocessableEntity
			if businessErr.Details != nil {
				body["details"] = businessErr.Details
			}
		case errors.As(err, &conflictErr):
			status = fiber.StatusConflict
		case errors.As(err, &permissionErr):
			status = fiber.StatusForbidden
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
		default:
			logger.Error("Необработанная ошибка запроса",
				zap.String("path", c.Path()),
				zap.Error(err))
			body = fiber.Map{"error": "internal server error"}
		}

		return c.Status(status).JSON(body)
	}
}
