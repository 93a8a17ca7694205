package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sportclub/club_scheduler/internal/apperrors"
	"github.com/sportclub/club_scheduler/internal/model"
	"github.com/sportclub/club_scheduler/internal/service"
)

// ScheduleHandler маршруты шаблона расписания и генерации занятий
type ScheduleHandler struct {
	schedules *service.ScheduleService
	validate  *validator.Validate
}

func (h *ScheduleHandler) GetTemplate(c *fiber.Ctx) error {
	groupID, err := parseID(c, "groupID")
	if err != nil {
		return err
	}
	tmpl, err := h.schedules.GetTemplate(c.UserContext(), groupID)
	if err != nil {
		return err
	}
	return c.JSON(tmpl)
}

type updateTemplateRequest struct {
	WeeklyPattern model.WeeklyPattern `json:"weekly_pattern"`
	ValidFrom     model.Date          `json:"valid_from"`
	ValidUntil    model.Date          `json:"valid_until"`
	Timezone      string              `json:"timezone"`
}

func (h *ScheduleHandler) UpdateTemplate(c *fiber.Ctx) error {
	groupID, err := parseID(c, "groupID")
	if err != nil {
		return err
	}
	if err := requireManager(c); err != nil {
		return err
	}
	var req updateTemplateRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	tmpl := &model.ScheduleTemplate{
		WeeklyPattern: req.WeeklyPattern,
		ValidFrom:     req.ValidFrom,
		ValidUntil:    req.ValidUntil,
		Timezone:      req.Timezone,
	}
	if err := h.schedules.UpdateTemplate(c.UserContext(), groupID, tmpl); err != nil {
		return err
	}
	return c.JSON(tmpl)
}

type patchTemplateRequest struct {
	WeeklyPattern *model.WeeklyPattern `json:"weekly_pattern"`
	ValidFrom     *model.Date          `json:"valid_from"`
	ValidUntil    *model.Date          `json:"valid_until"`
	Timezone      *string              `json:"timezone"`
}

func (h *ScheduleHandler) PatchTemplate(c *fiber.Ctx) error {
	groupID, err := parseID(c, "groupID")
	if err != nil {
		return err
	}
	if err := requireManager(c); err != nil {
		return err
	}
	var req patchTemplateRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	tmpl, err := h.schedules.PatchTemplate(c.UserContext(), groupID, service.TemplatePatch{
		WeeklyPattern: req.WeeklyPattern,
		ValidFrom:     req.ValidFrom,
		ValidUntil:    req.ValidUntil,
		Timezone:      req.Timezone,
	})
	if err != nil {
		return err
	}
	return c.JSON(tmpl)
}

type generateRequest struct {
	StartDate         string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate           string `json:"end_date" validate:"required,datetime=2006-01-02"`
	OverwriteExisting bool   `json:"overwrite_existing"`
	// nil означает значение по умолчанию: праздники пропускаются
	ExcludeHolidays *bool `json:"exclude_holidays"`
}

func (h *ScheduleHandler) Generate(c *fiber.Ctx) error {
	groupID, err := parseID(c, "groupID")
	if err != nil {
		return err
	}
	if err := requireManager(c); err != nil {
		return err
	}
	var req generateRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	start, _ := model.ParseDate(req.StartDate)
	end, _ := model.ParseDate(req.EndDate)
	exclude := true
	if req.ExcludeHolidays != nil {
		exclude = *req.ExcludeHolidays
	}
	result, err := h.schedules.Generate(c.UserContext(), groupID, service.GenerateRequest{
		StartDate:         start,
		EndDate:           end,
		OverwriteExisting: req.OverwriteExisting,
		ExcludeHolidays:   exclude,
	})
	if err != nil {
		return err
	}
	return c.JSON(result)
}

type regenerateRequest struct {
	StartDate             string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate               string `json:"end_date" validate:"required,datetime=2006-01-02"`
	PreserveModifications *bool  `json:"preserve_modifications"`
}

func (h *ScheduleHandler) Regenerate(c *fiber.Ctx) error {
	groupID, err := parseID(c, "groupID")
	if err != nil {
		return err
	}
	if err := requireManager(c); err != nil {
		return err
	}
	var req regenerateRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	start, _ := model.ParseDate(req.StartDate)
	end, _ := model.ParseDate(req.EndDate)
	preserve := true
	if req.PreserveModifications != nil {
		preserve = *req.PreserveModifications
	}
	result, err := h.schedules.Regenerate(c.UserContext(), groupID, start, end, preserve)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *ScheduleHandler) CoachConflicts(c *fiber.Ctx) error {
	coachID, err := parseID(c, "coachID")
	if err != nil {
		return err
	}
	from, err := parseDateQuery(c, "from")
	if err != nil {
		return err
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		return err
	}
	conflicts, err := h.schedules.CoachConflicts(c.UserContext(), coachID, from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"conflicts": conflicts, "count": len(conflicts)})
}

// requireManager проверяет право управления клубом для мутаций расписания
func requireManager(c *fiber.Ctx) error {
	caps, err := capabilitiesFrom(c)
	if err != nil {
		return err
	}
	if !caps.CanManageClub {
		return apperrors.Permissionf("no permission to manage the group schedule")
	}
	return nil
}
