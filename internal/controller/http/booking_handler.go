package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sportclub/club_scheduler/internal/service"
)

// BookingHandler маршруты записи на занятие и листа ожидания
type BookingHandler struct {
	bookings *service.BookingService
	validate *validator.Validate
}

type bookingRequest struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
}

func (h *BookingHandler) Book(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "lessonID")
	if err != nil {
		return err
	}
	var req bookingRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	booking, err := h.bookings.Book(c.UserContext(), req.StudentID, lessonID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(booking)
}

func (h *BookingHandler) JoinWaitlist(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "lessonID")
	if err != nil {
		return err
	}
	var req bookingRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	booking, err := h.bookings.JoinWaitlist(c.UserContext(), req.StudentID, lessonID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(booking)
}

func (h *BookingHandler) CancelBooking(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "lessonID")
	if err != nil {
		return err
	}
	var req bookingRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	if err := h.bookings.Cancel(c.UserContext(), req.StudentID, lessonID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type excuseRequest struct {
	StudentID int64   `json:"student_id" validate:"required,gt=0"`
	Note      *string `json:"note"`
}

func (h *BookingHandler) Excuse(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "lessonID")
	if err != nil {
		return err
	}
	var req excuseRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	if err := h.bookings.Excuse(c.UserContext(), req.StudentID, lessonID, req.Note); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *BookingHandler) Participants(c *fiber.Ctx) error {
	lessonID, err := parseID(c, "lessonID")
	if err != nil {
		return err
	}
	participants, err := h.bookings.LessonParticipants(c.UserContext(), lessonID)
	if err != nil {
		return err
	}
	return c.JSON(participants)
}

func (h *BookingHandler) StudentBookings(c *fiber.Ctx) error {
	studentID, err := parseID(c, "studentID")
	if err != nil {
		return err
	}
	bookings, err := h.bookings.StudentBookings(c.UserContext(), studentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"bookings": bookings, "count": len(bookings)})
}
