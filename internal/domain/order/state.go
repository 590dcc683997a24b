package order

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusPaymentVerified Status = "payment_verified"
	StatusProcessing      Status = "processing"
	StatusPrinted         Status = "printed"
	StatusShipped         Status = "shipped"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
)

// transitions is the full fulfillment state machine. A pair absent from this
// table is rejected with no mutation; terminal states have no entries.
var transitions = map[Status][]Status{
	StatusPending:         {StatusPaymentVerified, StatusCancelled},
	StatusPaymentVerified: {StatusProcessing, StatusCancelled},
	StatusProcessing:      {StatusPrinted, StatusCancelled},
	StatusPrinted:         {StatusShipped, StatusCompleted},
	StatusShipped:         {StatusCompleted},
	StatusCompleted:       {},
	StatusCancelled:       {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionError reports a status change not present in the transition table.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order: transition %s -> %s is not allowed", e.From, e.To)
}

func (o *Order) guard(to Status) error {
	if !CanTransition(o.Status, to) {
		return &TransitionError{From: o.Status, To: to}
	}
	return nil
}

// VerifyPayment moves pending -> payment_verified. The payment block is only
// stamped when it is still pending; a pre-verified payment is left untouched.
func (o *Order) VerifyPayment(adminID string) error {
	if err := o.guard(StatusPaymentVerified); err != nil {
		return err
	}
	o.Status = StatusPaymentVerified
	if o.Payment.Status == PaymentPending {
		now := time.Now().UTC()
		o.Payment.Status = PaymentVerified
		o.Payment.VerifiedAt = &now
		o.Payment.VerifiedBy = adminID
	}
	o.touch()
	return nil
}

func (o *Order) StartProcessing() error {
	if err := o.guard(StatusProcessing); err != nil {
		return err
	}
	o.Status = StatusProcessing
	o.touch()
	return nil
}

func (o *Order) MarkPrinted() error {
	if err := o.guard(StatusPrinted); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.Status = StatusPrinted
	o.Fulfillment.PrintedAt = &now
	o.touch()
	return nil
}

func (o *Order) MarkShipped(trackingNumber string) error {
	if err := o.guard(StatusShipped); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.Status = StatusShipped
	o.Fulfillment.ShippedAt = &now
	if trackingNumber != "" {
		o.Fulfillment.TrackingNumber = trackingNumber
	}
	o.touch()
	return nil
}

// Complete is only reachable from printed or shipped. It stamps CompletedAt
// and resets the cleanup block for the executor to finalize later.
func (o *Order) Complete() error {
	if err := o.guard(StatusCompleted); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.Status = StatusCompleted
	o.Fulfillment.CompletedAt = &now
	o.PhotoCleanup = PhotoCleanup{}
	o.touch()
	return nil
}

func (o *Order) Cancel() error {
	if err := o.guard(StatusCancelled); err != nil {
		return err
	}
	o.Status = StatusCancelled
	o.touch()
	return nil
}
