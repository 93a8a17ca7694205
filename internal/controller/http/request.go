package http

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sportclub/club_scheduler/internal/apperrors"
	"github.com/sportclub/club_scheduler/internal/model"
	"github.com/sportclub/club_scheduler/internal/service"
)

// capabilitiesFrom читает права вызывающего из заголовков запроса
func capabilitiesFrom(c *fiber.Ctx) (service.Capabilities, error) {
	actorID, err := strconv.ParseInt(c.Get("X-User-ID"), 10, 64)
	if err != nil || actorID <= 0 {
		return service.Capabilities{}, apperrors.Validationf("X-User-ID header is required")
	}
	return service.Capabilities{
		ActorID:       actorID,
		CanManageClub: c.Get("X-Can-Manage-Club") == "true",
	}, nil
}

func parseID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validationf("%s must be a positive integer", name)
	}
	return id, nil
}

func parseQueryID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validationf("%s must be a positive integer", name)
	}
	return id, nil
}

func parseDateQuery(c *fiber.Ctx, name string) (model.Date, error) {
	raw := c.Query(name)
	if raw == "" {
		return model.Date{}, apperrors.Validationf("query parameter %s is required", name)
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, apperrors.Validationf("%s must be a date in YYYY-MM-DD format", name)
	}
	return d, nil
}

// parseBody разбирает JSON-тело и прогоняет его через validator
func parseBody(c *fiber.Ctx, validate *validator.Validate, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.Validationf("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return apperrors.Validationf("invalid request body")
		}
		details := map[string]any{}
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
		return &apperrors.ValidationError{Message: "request validation failed", Details: details}
	}
	return nil
}
