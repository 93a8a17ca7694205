// Package http транспортный слой: маршруты Fiber поверх сервисов
// планировщика. Аутентификация и разрешение ролей выполняются внешним
// слоем, сюда приходят уже разрешённые права в заголовках запроса.
package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sportclub/club_scheduler/internal/service"
)

// NewRouter собирает fiber-приложение с маршрутами планировщика
func NewRouter(
	schedules *service.ScheduleService,
	lessons *service.LessonService,
	bookings *service.BookingService,
	logger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "club_scheduler",
		ErrorHandler: newErrorHandler(logger),
	})

	validate := validator.New()

	sh := &ScheduleHandler{schedules: schedules, validate: validate}
	lh := &LessonHandler{lessons: lessons, validate: validate}
	bh := &BookingHandler{bookings: bookings, validate: validate}

	group := app.Group("/groups/:groupID")
	group.Get("/schedule/template", sh.GetTemplate)
	group.Put("/schedule/template", sh.UpdateTemplate)
	group.Patch("/schedule/template", sh.PatchTemplate)
	group.Post("/schedule/generate", sh.Generate)
	group.Post("/schedule/regenerate", sh.Regenerate)

	app.Get("/coaches/:coachID/schedule/conflicts", sh.CoachConflicts)

	app.Post("/lessons", lh.Create)
	app.Get("/lessons", lh.List)
	app.Get("/lessons/:lessonID", lh.Get)
	app.Patch("/lessons/:lessonID", lh.Update)
	app.Delete("/lessons/:lessonID", lh.Delete)
	app.Post("/lessons/:lessonID/reschedule", lh.Reschedule)
	app.Post("/lessons/:lessonID/cancel", lh.Cancel)
	app.Post("/lessons/:lessonID/complete", lh.Complete)

	app.Post("/lessons/:lessonID/book", bh.Book)
	app.Post("/lessons/:lessonID/cancel-booking", bh.CancelBooking)
	app.Post("/lessons/:lessonID/excuse", bh.Excuse)
	app.Post("/lessons/:lessonID/waitlist", bh.JoinWaitlist)
	app.Get("/lessons/:lessonID/participants", bh.Participants)
	app.Get("/students/:studentID/bookings", bh.StudentBookings)

	return app
}
