package order

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allStatuses() []Status {
	return []Status{
		StatusPending, StatusPaymentVerified, StatusProcessing,
		StatusPrinted, StatusShipped, StatusCompleted, StatusCancelled,
	}
}

func testOrder(t *testing.T, status Status) *Order {
	t.Helper()

	o, err := New("order-1", "ORD-2026-0000001", "user-1", "", "MA",
		[]Item{{
			PhotoID:  "photo-1",
			FileName: "beach.jpg",
			Selections: []PrintSelection{
				{SizeCode: "4x6", SizeName: "4x6", Quantity: 2, UnitPrice: 0.29, Subtotal: 0.58},
			},
			PhotoTotal: 0.58,
		}},
		Pricing{Subtotal: 0.58, TaxRate: 0.0625, TaxAmount: 0.03625, Total: 0.61625},
		Payment{Method: PaymentBranch, Status: PaymentPending, BranchReference: "BP-2026-0000001"},
	)
	require.NoError(t, err)
	o.Status = status
	return o
}

func transitionCall(o *Order, to Status) error {
	switch to {
	case StatusPaymentVerified:
		return o.VerifyPayment("admin-1")
	case StatusProcessing:
		return o.StartProcessing()
	case StatusPrinted:
		return o.MarkPrinted()
	case StatusShipped:
		return o.MarkShipped("TRACK-1")
	case StatusCompleted:
		return o.Complete()
	case StatusCancelled:
		return o.Cancel()
	default:
		return errors.New("unreachable")
	}
}

// Exhaustively checks every (from, to) pair: exactly the pairs in the
// transition table succeed, everything else is rejected without mutation.
func TestTransitionTableSoundness(t *testing.T) {
	for _, from := range allStatuses() {
		for _, to := range allStatuses() {
			if to == StatusPending {
				// No operation re-enters pending; nothing to drive.
				continue
			}
			o := testOrder(t, from)
			err := transitionCall(o, to)

			if CanTransition(from, to) {
				require.NoError(t, err, "%s -> %s should be allowed", from, to)
				assert.Equal(t, to, o.Status)
				continue
			}

			require.Error(t, err, "%s -> %s should be rejected", from, to)
			var te *TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, from, te.From)
			assert.Equal(t, to, te.To)
			assert.Equal(t, from, o.Status, "rejected transition must not mutate")
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		assert.True(t, terminal.Terminal())
		for _, to := range allStatuses() {
			assert.False(t, CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}
	assert.False(t, StatusPending.Terminal())
	assert.False(t, Status("bogus").Terminal())
}

func TestVerifyPaymentStampsPendingPayment(t *testing.T) {
	o := testOrder(t, StatusPending)

	require.NoError(t, o.VerifyPayment("admin-7"))

	assert.Equal(t, StatusPaymentVerified, o.Status)
	assert.Equal(t, PaymentVerified, o.Payment.Status)
	assert.Equal(t, "admin-7", o.Payment.VerifiedBy)
	require.NotNil(t, o.Payment.VerifiedAt)
}

func TestVerifyPaymentLeavesVerifiedPaymentUntouched(t *testing.T) {
	o := testOrder(t, StatusPending)
	earlier := time.Now().UTC().Add(-time.Hour)
	o.Payment.Status = PaymentVerified
	o.Payment.VerifiedAt = &earlier
	o.Payment.VerifiedBy = "admin-1"

	require.NoError(t, o.VerifyPayment("admin-2"))

	assert.Equal(t, "admin-1", o.Payment.VerifiedBy)
	assert.Equal(t, earlier, *o.Payment.VerifiedAt)
}

func TestMarkShippedRecordsTracking(t *testing.T) {
	o := testOrder(t, StatusPrinted)

	require.NoError(t, o.MarkShipped("1Z999"))

	assert.Equal(t, "1Z999", o.Fulfillment.TrackingNumber)
	require.NotNil(t, o.Fulfillment.ShippedAt)
}

func TestCompleteFromPrintedSkipsShipping(t *testing.T) {
	o := testOrder(t, StatusPrinted)

	require.NoError(t, o.Complete())

	assert.Equal(t, StatusCompleted, o.Status)
	require.NotNil(t, o.Fulfillment.CompletedAt)
	assert.Nil(t, o.Fulfillment.ShippedAt)
}

func TestCompleteResetsCleanupBlock(t *testing.T) {
	o := testOrder(t, StatusShipped)
	o.PhotoCleanup = PhotoCleanup{IsCompleted: true, PhotosDeleted: 3}

	require.NoError(t, o.Complete())

	assert.Equal(t, PhotoCleanup{}, o.PhotoCleanup)
}

func TestCancelNotAllowedAfterShipping(t *testing.T) {
	for _, from := range []Status{StatusShipped, StatusCompleted, StatusCancelled} {
		o := testOrder(t, from)
		err := o.Cancel()
		require.Error(t, err, "cancel from %s", from)
		assert.Equal(t, from, o.Status)
	}
}
