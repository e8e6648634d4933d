package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/govdesk/internal/api/http"
	"github.com/spec-kit/govdesk/internal/api/http/handlers"
	"github.com/spec-kit/govdesk/internal/auth"
	"github.com/spec-kit/govdesk/internal/config"
	"github.com/spec-kit/govdesk/internal/events"
	"github.com/spec-kit/govdesk/internal/observability"
	"github.com/spec-kit/govdesk/internal/persistence"
	"github.com/spec-kit/govdesk/internal/repository"
	"github.com/spec-kit/govdesk/internal/schedule"
	"github.com/spec-kit/govdesk/internal/service"
	"github.com/spec-kit/govdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	loc, err := cfg.Booking.Location()
	if err != nil {
		logger.Fatal("invalid booking timezone", zap.String("tz", cfg.Booking.Timezone), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	directory := service.NewDirectoryService(departmentRepo, redis, logger, cfg.Booking.DirectoryCacheTTL)
	checker := schedule.NewChecker(ticketRepo, cfg.Booking.SlotMinutes, cfg.Booking.HorizonMonths, loc)

	bookingService := service.NewBookingService(service.BookingDependencies{
		TicketRepo:   ticketRepo,
		CustomerRepo: customerRepo,
		StaffRepo:    staffRepo,
		Directory:    directory,
		Checker:      checker,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
	})
	assembler := service.NewTicketViewAssembler(customerRepo, directory)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		CustomerRepo: customerRepo,
		StaffRepo:    staffRepo,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), customerRepo, staffRepo)

	mailer := service.NewMailer(cfg.Notification, logger)
	notificationService := service.NewNotificationService(dispatcher, customerRepo, directory, mailer, logger)
	worker.StartNotificationWorker(notificationService)

	var reminder *worker.ReminderWorker
	if cfg.Reminder.Enabled {
		reminder = worker.NewReminderWorker(ticketRepo, dispatcher, logger, cfg.Reminder.CronSpec, loc)
		if err := reminder.Start(); err != nil {
			logger.Fatal("failed to start reminder worker", zap.Error(err))
		}
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(bookingService, assembler),
		Departments:    handlers.NewDepartmentsHandler(directory, bookingService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	if reminder != nil {
		reminder.Stop()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
