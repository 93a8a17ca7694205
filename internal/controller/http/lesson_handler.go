package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sportclub/club_scheduler/internal/apperrors"
	"github.com/sportclub/club_scheduler/internal/model"
	"github.com/sportclub/club_scheduler/internal/repository"
	"github.com/sportclub/club_scheduler/internal/service"
)

// LessonHandler маршруты жизненного цикла занятия
type LessonHandler struct {
	lessons  *service.LessonService
	validate *validator.Validate
}

type createLessonRequest struct {
	GroupID         int64   `json:"group_id" validate:"required,gt=0"`
	Date            string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string  `json:"start_time" validate:"required"`
	DurationMinutes int     `json:"duration" validate:"required,gt=0"`
	CoachID         *int64  `json:"coach_id"`
	Location        *string `json:"location"`
	Notes           *string `json:"notes"`
}

func (h *LessonHandler) Create(c *fiber.Ctx) error {
	caps, err := capabilitiesFrom(c)
	if err != nil {
		return err
	}
	var req createLessonRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	date, _ := model.ParseDate(req.Date)
	lesson, err := h.lessons.Create(c.UserContext(), service.CreateLessonRequest{
		GroupID:         req.GroupID,
		Date:            date,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		CoachID:         req.CoachID,
		Location:        req.Location,
		Notes:           req.Notes,
	}, caps)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(lesson)
}

func (h *LessonHandler) Get(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "lessonID")
	if err != nil {
		return err
	}
	lesson, err := h.lessons.GetByID(c.UserContext(), lessonID)
	if err != nil {
		return err
	}
	return c.JSON(lesson)
}

func (h *LessonHandler) List(c *fiber.Ctx) error {
	from, err := parseDateQuery(c, "from")
	if err != nil {
		return err
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		return err
	}
	filters := repository.LessonFilters{From: from, To: to}
	if raw := c.Query("group_id"); raw != "" {
		id, err := parseQueryID(raw, "group_id")
		if err != nil {
			return err
		}
		filters.GroupID = &id
	}
	if raw := c.Query("coach_id"); raw != "" {
		id, err := parseQueryID(raw, "coach_id")
		if err != nil {
			return err
		}
		filters.CoachID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status := model.LessonStatus(raw)
		switch status {
		case model.LessonStatusScheduled, model.LessonStatusCompleted,
			model.LessonStatusCancelled, model.LessonStatusRescheduled:
			filters.Status = &status
		default:
			return apperrors.Validationf("unknown lesson status %q", raw)
		}
	}
	lessons, err := h.lessons.List(c.UserContext(), filters)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"lessons": lessons, "count": len(lessons)})
}

type updateLessonRequest struct {
	CoachID         *int64  `json:"coach_id"`
	Location        *string `json:"location"`
	Notes           *string `json:"notes"`
	DurationMinutes *int    `json:"duration" validate:"omitempty,gt=0"`
}

func (h *LessonHandler) Update(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "lessonID")
	if err != nil {
		return err
	}
	caps, err := capabilitiesFrom(c)
	if err != nil {
		return err
	}
	var req updateLessonRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	lesson, err := h.lessons.Update(c.UserContext(), lessonID, service.UpdateLessonRequest{
		CoachID:         req.CoachID,
		Location:        req.Location,
		Notes:           req.Notes,
		DurationMinutes: req.DurationMinutes,
	}, caps)
	if err != nil {
		return err
	}
	return c.JSON(lesson)
}

type rescheduleRequest struct {
	NewDate string `json:"new_date" validate:"required,datetime=2006-01-02"`
	NewTime string `json:"new_time" validate:"required"`
	Reason  string `json:"reason" validate:"required"`
}

func (h *LessonHandler) Reschedule(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "lessonID")
	if err != nil {
		return err
	}
	caps, err := capabilitiesFrom(c)
	if err != nil {
		return err
	}
	var req rescheduleRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	newDate, _ := model.ParseDate(req.NewDate)
	lesson, err := h.lessons.Reschedule(c.UserContext(), lessonID, newDate, req.NewTime, req.Reason, caps)
	if err != nil {
		return err
	}
	return c.JSON(lesson)
}

type cancelLessonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *LessonHandler) Cancel(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "lessonID")
	if err != nil {
		return err
	}
	caps, err := capabilitiesFrom(c)
	if err != nil {
		return err
	}
	var req cancelLessonRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	lesson, err := h.lessons.Cancel(c.UserContext(), lessonID, req.Reason, caps)
	if err != nil {
		return err
	}
	return c.JSON(lesson)
}

type completeLessonRequest struct {
	Notes          *string `json:"notes"`
	ActualDuration *int    `json:"actual_duration" validate:"omitempty,gt=0"`
}

func (h *LessonHandler) Complete(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "lessonID")
	if err != nil {
		return err
	}
	caps, err := capabilitiesFrom(c)
	if err != nil {
		return err
	}
	var req completeLessonRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	lesson, err := h.lessons.Complete(c.UserContext(), lessonID, req.Notes, req.ActualDuration, caps)
	if err != nil {
		return err
	}
	return c.JSON(lesson)
}

func (h *LessonHandler) Delete(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "lessonID")
	if err != nil {
		return err
	}
	caps, err := capabilitiesFrom(c)
	if err != nil {
		return err
	}
	if err := h.lessons.Delete(c.UserContext(), lessonID, caps); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
