package order

import "time"

// CreatedEvent is emitted once an order has been persisted and its photos bound.
type CreatedEvent struct {
	OrderID     string
	OrderNumber string
	UserID      string
	Total       float64
	OccurredAt  time.Time
}

func (CreatedEvent) EventName() string { return "order.created" }

func NewCreatedEvent(o *Order) CreatedEvent {
	return CreatedEvent{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		Total:       o.Pricing.Total,
		OccurredAt:  time.Now().UTC(),
	}
}

// CompletedEvent is emitted when fulfillment reaches the completed state.
type CompletedEvent struct {
	OrderID         string
	OrderNumber     string
	PhotosScheduled int
	ScheduledFor    time.Time
	OccurredAt      time.Time
}

func (CompletedEvent) EventName() string { return "order.completed" }

func NewCompletedEvent(o *Order, photosScheduled int, scheduledFor time.Time) CompletedEvent {
	return CompletedEvent{
		OrderID:         o.ID,
		OrderNumber:     o.Number,
		PhotosScheduled: photosScheduled,
		ScheduledFor:    scheduledFor,
		OccurredAt:      time.Now().UTC(),
	}
}
