// Package notify доставка уведомлений о событиях расписания и записей.
// Доставка fire-and-forget: сбой уведомления логируется и никогда не
// откатывает транзакцию, породившую событие.
package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event тип события для уведомления
type Event string

const (
	EventWaitlistPromoted  Event = "waitlist_promoted"
	EventBookingCancelled  Event = "booking_cancelled"
	EventLessonCancelled   Event = "lesson_cancelled"
	EventLessonRescheduled Event = "lesson_rescheduled"
	EventLessonCompleted   Event = "lesson_completed"
)

// Notifier отправляет уведомление получателю. Реализации не возвращают
// ошибку вызывающему - корректность записи не зависит от канала доставки.
type Notifier interface {
	Notify(ctx context.Context, recipientID int64, event Event, payload map[string]any)
}

// ZapNotifier пишет события в лог. Используется, когда внешний канал
// доставки не настроен, и в тестах.
type ZapNotifier struct {
	logger *zap.Logger
}

func NewZapNotifier(logger *zap.Logger) *ZapNotifier {
	return &ZapNotifier{logger: logger}
}

func (n *ZapNotifier) Notify(_ context.Context, recipientID int64, event Event, payload map[string]any) {
	n.logger.Info("Notification dispatched",
		zap.String("event_id", uuid.NewString()),
		zap.Int64("recipient_id", recipientID),
		zap.String("event", string(event)),
		zap.Any("payload", payload),
	)
}
