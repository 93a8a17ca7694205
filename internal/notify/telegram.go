package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TelegramNotifier доставляет уведомления сообщениями в Telegram.
// recipientID трактуется как telegram chat id получателя.
type TelegramNotifier struct {
	bot    *bot.Bot
	logger *zap.Logger
}

// NewTelegramNotifier создаёт нотификатор поверх telegram-бота
func NewTelegramNotifier(token string, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{bot: b, logger: logger}, nil
}

// Notify отправляет сообщение в отдельной горутине и не ждёт результата
func (n *TelegramNotifier) Notify(_ context.Context, recipientID int64, event Event, payload map[string]any) {
	eventID := uuid.NewString()

	go func() {
		// Отдельный контекст: доставка не должна зависеть от жизни запроса
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: recipientID,
			Text:   renderEvent(event, payload),
		})
		if err != nil {
			n.logger.Warn("Failed to deliver notification",
				zap.String("event_id", eventID),
				zap.Int64("recipient_id", recipientID),
				zap.String("event", string(event)),
				zap.Error(err),
			)
			return
		}

		n.logger.Debug("Notification delivered",
			zap.String("event_id", eventID),
			zap.Int64("recipient_id", recipientID),
			zap.String("event", string(event)),
		)
	}()
}

func renderEvent(event Event, payload map[string]any) string {
	switch event {
	case EventWaitlistPromoted:
		return fmt.Sprintf("Освободилось место! Вы записаны на занятие %v в %v.",
			payload["date"], payload["start_time"])
	case EventBookingCancelled:
		return fmt.Sprintf("Студент отменил запись на занятие %v в %v.",
			payload["date"], payload["start_time"])
	case EventLessonCancelled:
		return fmt.Sprintf("Занятие %v в %v отменено: %v.",
			payload["date"], payload["start_time"], payload["reason"])
	case EventLessonRescheduled:
		return fmt.Sprintf("Занятие перенесено на %v %v.",
			payload["date"], payload["start_time"])
	case EventLessonCompleted:
		return fmt.Sprintf("Занятие %v отмечено как проведённое.", payload["date"])
	}
	return string(event)
}
