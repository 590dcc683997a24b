package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	domcart "github.com/photoworks/printshop/app/internal/domain/cart"
	domorder "github.com/photoworks/printshop/app/internal/domain/order"
	domoutbox "github.com/photoworks/printshop/app/internal/domain/outbox"
	"github.com/photoworks/printshop/app/internal/observability"
	"github.com/photoworks/printshop/app/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	checkoutService = "checkout-service"
	useCaseCheckout = "order.checkout"
	spanPrefix      = "UC."
	publishPeer     = "outbox"
	publishEndpoint = "order.created"
	publishTimeout  = 300 * time.Millisecond
)

// DefaultTaxRate is the statutory fallback applied when no configured rate is
// reachable for the shipping state.
const DefaultTaxRate = 0.0625

var (
	ErrConflict   = domorder.ErrConflict
	ErrNotFound   = domorder.ErrNotFound
	ErrRepository = errors.New("checkout: repository failure")
)

// UseCase converts a mutable cart into an immutable, price-locked order.
// Order insert and photo binding are two independent writes; the use case
// runs them as a saga with a compensating unbind + delete, and an idempotency
// key so retries are safe.
type UseCase struct {
	orders  domorder.Repository
	carts   domcart.Repository
	binder  PhotoBinder
	numbers NumberSource
	ids     IDGenerator
	taxes   TaxRateLookup

	publisher domoutbox.Publisher
	tel       observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewUseCase(
	orders domorder.Repository,
	carts domcart.Repository,
	binder PhotoBinder,
	numbers NumberSource,
	ids IDGenerator,
	taxes TaxRateLookup,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *UseCase {
	baseLog := observability.NopLogger()
	if tel != nil {
		baseLog = tel.Logger()
	}
	baseLog = baseLog.With(observability.F("service", checkoutService))

	metricsProvider := observability.NopMetrics()
	if tel == nil {
		tel = observability.Nop()
	} else {
		metricsProvider = tel.Metrics()
	}

	return &UseCase{
		orders:       orders,
		carts:        carts,
		binder:       binder,
		numbers:      numbers,
		ids:          ids,
		taxes:        taxes,
		publisher:    publisher,
		tel:          tel,
		log:          baseLog,
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
	}
}

// PaymentInput selects the payment method. For credit cards only the last
// four digits survive into the order; the raw number is never persisted.
type PaymentInput struct {
	Method         domorder.PaymentMethod
	CardNumber     string
	CardholderName string
}

type Input struct {
	IdempotencyKey string
	UserID         string
	ShippingState  string
	Payment        PaymentInput
}

type Result struct {
	OrderID     string
	OrderNumber string
	Status      domorder.Status
	Pricing     domorder.Pricing
}

// Execute runs the order creation pipeline.
func (uc *UseCase) Execute(ctx context.Context, cmd Input) (_ *Result, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseCheckout))

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"Checkout",
		attribute.String("use_case", useCaseCheckout),
		attribute.String("order.user_id", cmd.UserID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var publishErr error

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseCheckout),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCaseCheckout),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}

		logger.Info("use_case_done", fields...)
	}()

	if cmd.UserID == "" {
		outcome, statusText = "error", "USER_ID_REQUIRED"
		return nil, domcart.ValidationError{Field: "userId", Reason: "required"}
	}
	if cmd.ShippingState == "" {
		outcome, statusText = "error", "SHIPPING_STATE_REQUIRED"
		return nil, domcart.ValidationError{Field: "shippingState", Reason: "required"}
	}
	if cmd.Payment.Method != domorder.PaymentCreditCard && cmd.Payment.Method != domorder.PaymentBranch {
		outcome, statusText = "error", "PAYMENT_METHOD_INVALID"
		return nil, domcart.ValidationError{Field: "payment.method", Reason: "must be credit_card or branch"}
	}
	if err := ctx.Err(); err != nil {
		outcome, statusText = "error", "CONTEXT_CANCELED"
		return nil, err
	}

	if cmd.IdempotencyKey != "" {
		existing, repoErr := uc.orders.FindByIdempotency(ctx, cmd.UserID, cmd.IdempotencyKey)
		switch {
		case repoErr == nil:
			statusText = "IDEMPOTENT_REPLAY"
			span.AddEvent("order.idempotent_replay",
				trace.WithAttributes(attribute.String("order.id", existing.ID)),
			)
			return resultOf(existing), nil
		case errors.Is(repoErr, domorder.ErrNotFound):
			// continue
		default:
			outcome, statusText = "error", "IDEMPOTENCY_LOOKUP_FAILED"
			return nil, wrapRepositoryError(repoErr)
		}
	}

	// Step 1: a cart with zero items cannot check out.
	c, err := uc.carts.Get(ctx, cmd.UserID)
	if errors.Is(err, domcart.ErrNotFound) {
		outcome, statusText = "error", "CART_EMPTY"
		return nil, domcart.ErrEmpty
	}
	if err != nil {
		outcome, statusText = "error", "CART_LOAD_FAILED"
		return nil, wrapRepositoryError(err)
	}
	if len(c.Items) == 0 {
		outcome, statusText = "error", "CART_EMPTY"
		return nil, domcart.ErrEmpty
	}

	// Step 2: resolve the buyer's real tax rate. The lookup has its own
	// fallback chain; a hard failure still never blocks checkout.
	rate, err := uc.taxes.Rate(ctx, cmd.ShippingState)
	if err != nil {
		logger.Warn("tax_rate_lookup_failed",
			observability.F("state", cmd.ShippingState),
			observability.F("error", err.Error()),
		)
		rate = DefaultTaxRate
	}

	// Steps 3-4: lock pricing and freeze the cart items. Per-selection
	// subtotals are re-derived from quantity x unit price, never trusted
	// from the cart's cache.
	items, pricing := freeze(c, rate)

	// Step 5: payment block, nothing sensitive persisted.
	payment, err := buildPayment(cmd.Payment)
	if err != nil {
		outcome, statusText = "error", "PAYMENT_INVALID"
		return nil, err
	}

	// Step 6: persist under the next order number; a duplicate-number
	// conflict is retried once with a fresh number.
	entity, err := uc.insertOrder(ctx, cmd, items, pricing, payment)
	if err != nil {
		if errors.Is(err, domorder.ErrConflict) && cmd.IdempotencyKey != "" {
			if existing, lookupErr := uc.orders.FindByIdempotency(ctx, cmd.UserID, cmd.IdempotencyKey); lookupErr == nil {
				statusText = "IDEMPOTENT_REPLAY"
				return resultOf(existing), nil
			}
		}
		outcome, statusText = "error", "ORDER_INSERT_FAILED"
		return nil, err
	}

	// Step 7: bind photos; on failure, compensate by unbinding whatever was
	// bound and removing the order so no half-created order survives.
	if bound, bindErr := uc.binder.MarkOrdered(ctx, entity.PhotoIDs(), entity.ID); bindErr != nil {
		uc.compensate(ctx, logger, entity, bound)
		outcome, statusText = "error", "PHOTO_BIND_FAILED"
		return nil, fmt.Errorf("checkout: bind photos: %w", bindErr)
	}

	// Step 8: the cart is spent. A failed clear is not fatal; the sliding
	// TTL will reap it, but it is logged for the operator.
	if err := uc.carts.Delete(ctx, cmd.UserID); err != nil {
		logger.Warn("cart_clear_failed",
			observability.F("user_id", cmd.UserID),
			observability.F("order_id", entity.ID),
			observability.F("error", err.Error()),
		)
	}

	publishErr = uc.publish(ctx, entity)

	span.SetAttributes(attribute.String("order.number", entity.Number))
	span.AddEvent("order.created",
		trace.WithAttributes(attribute.String("order.id", entity.ID)),
	)

	return resultOf(entity), nil
}

func (uc *UseCase) insertOrder(
	ctx context.Context,
	cmd Input,
	items []domorder.Item,
	pricing domorder.Pricing,
	payment domorder.Payment,
) (*domorder.Order, error) {
	now := time.Now().UTC()

	for attempt := 0; attempt < 2; attempt++ {
		number, err := uc.numbers.NextOrderNumber(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("checkout: allocate order number: %w", err)
		}

		entity, err := domorder.New(uc.ids.NewID(), number, cmd.UserID, cmd.IdempotencyKey, cmd.ShippingState, items, pricing, payment)
		if err != nil {
			return nil, fmt.Errorf("checkout: construct order: %w", err)
		}

		err = uc.orders.Insert(ctx, entity)
		if err == nil {
			return entity, nil
		}
		if errors.Is(err, domorder.ErrConflict) && attempt == 0 {
			continue
		}
		return nil, wrapRepositoryError(err)
	}
	return nil, wrapRepositoryError(domorder.ErrConflict)
}

func (uc *UseCase) compensate(ctx context.Context, logger observability.Logger, entity *domorder.Order, bound []string) {
	// Compensation runs even when the request context is gone.
	ctx = context.WithoutCancel(ctx)

	if err := uc.binder.Unbind(ctx, bound, entity.ID); err != nil {
		logger.Error("checkout_compensate_unbind_failed",
			observability.F("order_id", entity.ID),
			observability.F("error", err.Error()),
		)
	}
	if err := uc.orders.Delete(ctx, entity.ID); err != nil {
		logger.Error("checkout_compensate_delete_failed",
			observability.F("order_id", entity.ID),
			observability.F("error", err.Error()),
		)
	}
}

func (uc *UseCase) publish(ctx context.Context, entity *domorder.Order) error {
	if uc.publisher == nil {
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	pubStart := time.Now()
	pubOutcome := "success"

	publishErr := uc.publisher.Publish(pubCtx, domorder.NewCreatedEvent(entity))
	if publishErr != nil {
		pubOutcome = "error"
	}

	uc.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", publishEndpoint),
		observability.L("outcome", pubOutcome),
	)
	uc.extHistogram.Observe(time.Since(pubStart).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", publishEndpoint),
	)
	return publishErr
}

// freeze copies the cart's items into their immutable order form and locks
// the pricing block.
func freeze(c *domcart.Cart, taxRate float64) ([]domorder.Item, domorder.Pricing) {
	items := make([]domorder.Item, 0, len(c.Items))
	var subtotal float64

	for _, ci := range c.Items {
		item := domorder.Item{
			PhotoID:  ci.PhotoID,
			FileName: ci.FileName,
		}
		for _, sel := range ci.Selections {
			lineSubtotal := float64(sel.Quantity) * sel.UnitPrice
			item.Selections = append(item.Selections, domorder.PrintSelection{
				SizeCode:  sel.SizeCode,
				SizeName:  sel.SizeName,
				Quantity:  sel.Quantity,
				UnitPrice: sel.UnitPrice,
				Subtotal:  lineSubtotal,
			})
			item.PhotoTotal += lineSubtotal
		}
		subtotal += item.PhotoTotal
		items = append(items, item)
	}

	taxAmount := subtotal * taxRate
	return items, domorder.Pricing{
		Subtotal:  subtotal,
		TaxRate:   taxRate,
		TaxAmount: taxAmount,
		Total:     subtotal + taxAmount,
	}
}

func buildPayment(in PaymentInput) (domorder.Payment, error) {
	switch in.Method {
	case domorder.PaymentCreditCard:
		if len(in.CardNumber) < 4 {
			return domorder.Payment{}, domcart.ValidationError{Field: "payment.cardNumber", Reason: "required"}
		}
		return domorder.Payment{
			Method:         domorder.PaymentCreditCard,
			Status:         domorder.PaymentPending,
			CardLastFour:   in.CardNumber[len(in.CardNumber)-4:],
			CardholderName: in.CardholderName,
		}, nil
	case domorder.PaymentBranch:
		return domorder.Payment{
			Method:          domorder.PaymentBranch,
			Status:          domorder.PaymentPending,
			BranchReference: branchReference(time.Now().UTC()),
		}, nil
	default:
		return domorder.Payment{}, domcart.ValidationError{Field: "payment.method", Reason: "must be credit_card or branch"}
	}
}

// branchReference formats a pay-at-branch slip number, BP-{year}-{7 digits}.
func branchReference(now time.Time) string {
	return fmt.Sprintf("BP-%04d-%07d", now.Year(), rand.IntN(10_000_000))
}

func resultOf(o *domorder.Order) *Result {
	return &Result{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Status:      o.Status,
		Pricing:     o.Pricing,
	}
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domorder.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, domorder.ErrConflict):
		return ErrConflict
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}
