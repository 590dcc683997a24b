package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/photoworks/printshop/app/internal/application/retention"
	domorder "github.com/photoworks/printshop/app/internal/domain/order"
	domoutbox "github.com/photoworks/printshop/app/internal/domain/outbox"
	"github.com/photoworks/printshop/app/internal/observability"
	"github.com/photoworks/printshop/app/internal/observability/logctx"
)

var ErrUnknownStatus = errors.New("fulfillment: unknown target status")

// RetentionScheduler is the tracker surface invoked when an order completes.
type RetentionScheduler interface {
	ScheduleDeletion(ctx context.Context, ord *domorder.Order) (*retention.ScheduleResult, error)
}

// Service drives administrator status changes through the order state
// machine. Each update is a single optimistic write: a concurrent admin's
// change surfaces as a version conflict instead of being silently lost.
type Service struct {
	orders    domorder.Repository
	scheduler RetentionScheduler
	publisher domoutbox.Publisher

	log observability.Logger
}

func NewService(orders domorder.Repository, scheduler RetentionScheduler, publisher domoutbox.Publisher, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		orders:    orders,
		scheduler: scheduler,
		publisher: publisher,
		log:       logger.With(observability.F("component", "fulfillment_service")),
	}
}

type UpdateStatusInput struct {
	OrderID        string
	Target         domorder.Status
	AdminID        string
	TrackingNumber string
	Note           string
	// ExpectedVersion guards against lost updates; zero means "whatever is
	// current", preserving the old racy behavior for callers that opt out.
	ExpectedVersion int64
}

type UpdateStatusResult struct {
	Order           *domorder.Order
	PhotosScheduled int
	ScheduledFor    *time.Time
}

// UpdateStatus validates and applies one transition, with its side effects.
// A pair absent from the transition table is rejected with no mutation.
func (s *Service) UpdateStatus(ctx context.Context, in UpdateStatusInput) (*UpdateStatusResult, error) {
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("order_id", in.OrderID),
		observability.F("target_status", string(in.Target)),
	)

	if in.OrderID == "" {
		return nil, fmt.Errorf("fulfillment: order id is required")
	}
	if !in.Target.Valid() {
		return nil, ErrUnknownStatus
	}

	ord, err := s.orders.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if in.ExpectedVersion > 0 {
		ord.Version = in.ExpectedVersion
	}

	if err := s.apply(ord, in); err != nil {
		return nil, err
	}
	if in.Note != "" {
		ord.AddNote(in.AdminID, in.Note)
	}

	if err := s.orders.Update(ctx, ord); err != nil {
		return nil, err
	}

	result := &UpdateStatusResult{Order: ord}

	if ord.Status == domorder.StatusCompleted {
		// Retention scheduling is a separate write after the status commit;
		// a failure here leaves a completed order with unscheduled photos,
		// which the log flags for manual reconciliation.
		sched, schedErr := s.scheduler.ScheduleDeletion(ctx, ord)
		if schedErr != nil {
			logger.Error("retention_schedule_failed_reconcile_required",
				observability.F("error", schedErr.Error()),
			)
			return nil, fmt.Errorf("fulfillment: order %s completed but retention scheduling failed: %w", ord.ID, schedErr)
		}
		result.PhotosScheduled = sched.PhotosScheduled
		result.ScheduledFor = &sched.ScheduledFor

		if s.publisher != nil {
			if pubErr := s.publisher.Publish(ctx, domorder.NewCompletedEvent(ord, sched.PhotosScheduled, sched.ScheduledFor)); pubErr != nil {
				logger.Warn("order_completed_event_publish_failed",
					observability.F("error", pubErr.Error()),
				)
			}
		}
	}

	logger.Info("order_status_updated",
		observability.F("admin_id", in.AdminID),
		observability.F("photos_scheduled", result.PhotosScheduled),
	)
	return result, nil
}

func (s *Service) apply(ord *domorder.Order, in UpdateStatusInput) error {
	switch in.Target {
	case domorder.StatusPaymentVerified:
		return ord.VerifyPayment(in.AdminID)
	case domorder.StatusProcessing:
		return ord.StartProcessing()
	case domorder.StatusPrinted:
		return ord.MarkPrinted()
	case domorder.StatusShipped:
		return ord.MarkShipped(in.TrackingNumber)
	case domorder.StatusCompleted:
		return ord.Complete()
	case domorder.StatusCancelled:
		return ord.Cancel()
	default:
		return &domorder.TransitionError{From: ord.Status, To: in.Target}
	}
}

func (s *Service) Get(ctx context.Context, orderID string) (*domorder.Order, error) {
	if orderID == "" {
		return nil, fmt.Errorf("fulfillment: order id is required")
	}
	return s.orders.Get(ctx, orderID)
}

func (s *Service) ListByStatus(ctx context.Context, status domorder.Status) ([]*domorder.Order, error) {
	if !status.Valid() {
		return nil, ErrUnknownStatus
	}
	return s.orders.ListByStatus(ctx, status)
}
