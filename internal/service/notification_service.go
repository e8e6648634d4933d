package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/govdesk/internal/domain"
	"github.com/spec-kit/govdesk/internal/events"
	"github.com/spec-kit/govdesk/internal/repository"
)

// NotificationService turns domain events into customer email. Delivery is
// strictly best-effort: every failure is logged and swallowed so a broken
// mail path can never undo or block a committed state transition.
type NotificationService struct {
	dispatcher events.Dispatcher
	customers  repository.CustomerRepository
	directory  *DirectoryService
	mailer     Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, customers repository.CustomerRepository, directory *DirectoryService, mailer Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		customers:  customers,
		directory:  directory,
		mailer:     mailer,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to the lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketBooked, n.handleTicketBooked)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketRescheduled, n.handleRescheduled)
	n.dispatcher.Subscribe(events.EventAppointmentReminder, n.handleReminder)
}

func (n *NotificationService) handleTicketBooked(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketBookedPayload)
	if !ok {
		return nil
	}
	email, deptName := n.recipient(ctx, payload.CustomerID, payload.DepartmentID)
	if email == "" {
		return nil
	}
	subject := fmt.Sprintf("Appointment request received - %s", deptName)
	body := fmt.Sprintf(
		"Your appointment request with %s for %s at %s has been received and is pending review.",
		deptName, payload.AppointmentDate, payload.AppointmentTime)
	n.send(ctx, event, email, subject, body)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	email, deptName := n.recipient(ctx, payload.CustomerID, payload.DepartmentID)
	if email == "" {
		return nil
	}

	var subject, body string
	switch payload.NewStatus {
	case domain.TicketStatusApproved:
		subject = fmt.Sprintf("Appointment confirmed - %s", deptName)
		body = fmt.Sprintf(
			"Your appointment with %s on %s at %s has been confirmed.",
			deptName, payload.AppointmentDate, payload.AppointmentTime)
		if payload.Feedback != nil && *payload.Feedback != "" {
			body += "\n\nNote from staff: " + *payload.Feedback
		}
	case domain.TicketStatusRejected:
		subject = fmt.Sprintf("Appointment request declined - %s", deptName)
		body = fmt.Sprintf(
			"Your appointment request with %s for %s at %s was declined.",
			deptName, payload.AppointmentDate, payload.AppointmentTime)
		if payload.RejectionReason != nil {
			body += "\n\nReason: " + *payload.RejectionReason
		}
	case domain.TicketStatusCancelled:
		subject = fmt.Sprintf("Appointment cancelled - %s", deptName)
		body = fmt.Sprintf(
			"Your appointment with %s on %s at %s has been cancelled.",
			deptName, payload.AppointmentDate, payload.AppointmentTime)
	default:
		return nil
	}
	n.send(ctx, event, email, subject, body)
	return nil
}

func (n *NotificationService) handleRescheduled(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketRescheduledPayload)
	if !ok {
		return nil
	}
	email, deptName := n.recipient(ctx, payload.CustomerID, payload.DepartmentID)
	if email == "" {
		return nil
	}
	subject := fmt.Sprintf("Appointment rescheduled - %s", deptName)
	body := fmt.Sprintf(
		"Your appointment with %s has moved from %s %s to %s %s.",
		deptName, payload.OldDate, payload.OldTime, payload.NewDate, payload.NewTime)
	n.send(ctx, event, email, subject, body)
	return nil
}

func (n *NotificationService) handleReminder(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AppointmentReminderPayload)
	if !ok {
		return nil
	}
	email, deptName := n.recipient(ctx, payload.CustomerID, payload.DepartmentID)
	if email == "" {
		return nil
	}
	subject := fmt.Sprintf("Appointment reminder - %s", deptName)
	body := fmt.Sprintf(
		"Reminder: you have an appointment with %s tomorrow, %s at %s.",
		deptName, payload.AppointmentDate, payload.AppointmentTime)
	n.send(ctx, event, email, subject, body)
	return nil
}

// recipient resolves the customer email and department display name. A
// failed lookup is logged and reported as no recipient.
func (n *NotificationService) recipient(ctx context.Context, customerID, departmentID string) (string, string) {
	customer, err := n.customers.GetByID(ctx, customerID)
	if err != nil {
		n.logger.Warn("notification recipient lookup failed",
			zap.String("customer_id", customerID), zap.Error(err))
		return "", ""
	}
	deptName := "the department"
	if dept, err := n.directory.GetDepartment(ctx, departmentID); err == nil {
		deptName = dept.Name
	}
	return customer.Email, deptName
}

func (n *NotificationService) send(ctx context.Context, event events.Event, to, subject, body string) {
	if err := n.mailer.Send(ctx, to, subject, body); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
