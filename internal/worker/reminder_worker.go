package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/govdesk/internal/domain"
	"github.com/spec-kit/govdesk/internal/events"
	"github.com/spec-kit/govdesk/internal/repository"
)

const reminderRunTimeout = 30 * time.Second

// ReminderWorker publishes a reminder event for every active ticket whose
// appointment falls on the next calendar day. Scheduling runs on a cron
// expression, typically once each morning.
type ReminderWorker struct {
	cron       *cron.Cron
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	spec       string
	loc        *time.Location
	now        func() time.Time
}

// NewReminderWorker constructs the worker. loc is the booking timezone, so
// "tomorrow" lines up with the appointment calendar rather than server time.
func NewReminderWorker(tickets repository.TicketRepository, dispatcher events.Dispatcher, logger *zap.Logger, spec string, loc *time.Location) *ReminderWorker {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderWorker{
		cron:       cron.New(),
		tickets:    tickets,
		dispatcher: dispatcher,
		logger:     logger,
		spec:       spec,
		loc:        loc,
		now:        time.Now,
	}
}

// Start registers the cron entry and begins scheduling.
func (w *ReminderWorker) Start() error {
	if _, err := w.cron.AddFunc(w.spec, w.run); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("reminder worker started", zap.String("cron", w.spec))
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (w *ReminderWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}

func (w *ReminderWorker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), reminderRunTimeout)
	defer cancel()

	tomorrow := w.now().In(w.loc).AddDate(0, 0, 1).Format("2006-01-02")
	tickets, err := w.tickets.ListWithFilter(ctx, repository.TicketFilter{
		AppointmentDate: &tomorrow,
		Statuses:        []domain.TicketStatus{domain.TicketStatusPending, domain.TicketStatusApproved},
		Limit:           500,
	})
	if err != nil {
		w.logger.Error("reminder scan failed", zap.String("date", tomorrow), zap.Error(err))
		return
	}

	for i := range tickets {
		ticket := &tickets[i]
		_ = w.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventAppointmentReminder,
			TicketID:  ticket.ID,
			Timestamp: w.now(),
			Payload: events.AppointmentReminderPayload{
				CustomerID:      ticket.CustomerID,
				DepartmentID:    ticket.DepartmentID,
				AppointmentDate: ticket.AppointmentDate,
				AppointmentTime: ticket.AppointmentTime,
				Status:          ticket.Status,
			},
		})
	}
	w.logger.Info("reminders published", zap.String("date", tomorrow), zap.Int("count", len(tickets)))
}
