package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sportclub/club_scheduler/internal/config"
	httpctrl "github.com/sportclub/club_scheduler/internal/controller/http"
	"github.com/sportclub/club_scheduler/internal/holidays"
	"github.com/sportclub/club_scheduler/internal/notify"
	"github.com/sportclub/club_scheduler/internal/repository"
	"github.com/sportclub/club_scheduler/internal/repository/base"
	"github.com/sportclub/club_scheduler/internal/service"
)

// Run собирает зависимости и держит HTTP-сервер до сигнала остановки
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("create pgx pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrator, err := NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := migrator.Run(ctx); err != nil {
		return err
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Не удалось закрыть соединение мигратора", zap.Error(err))
	}

	transactor := base.NewPgxTransactor(pool)
	lessonRepo := repository.NewLessonRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)

	var notifier notify.Notifier
	if cfg.TelegramToken != "" {
		notifier, err = notify.NewTelegramNotifier(cfg.TelegramToken, logger)
		if err != nil {
			return fmt.Errorf("create telegram notifier: %w", err)
		}
	} else {
		logger.Info("TELEGRAM_TOKEN не задан, уведомления пишутся в лог")
		notifier = notify.NewZapNotifier(logger)
	}

	scheduleService := service.NewScheduleService(transactor, groupRepo, lessonRepo, holidays.Kazakhstan(), logger)
	lessonService := service.NewLessonService(lessonRepo, groupRepo, notifier, logger)
	bookingService := service.NewBookingService(transactor, lessonRepo, bookingRepo, groupRepo, enrollmentRepo, notifier, logger)

	router := httpctrl.NewRouter(scheduleService, lessonService, bookingService, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server started", zap.String("addr", cfg.HTTPAddr))
		errCh <- router.Listen(cfg.HTTPAddr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
		return router.Shutdown()
	case <-ctx.Done():
		return router.Shutdown()
	}
}
