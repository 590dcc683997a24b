package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/photoworks/printshop/app/internal/application"
	appcart "github.com/photoworks/printshop/app/internal/application/cart"
	appcheckout "github.com/photoworks/printshop/app/internal/application/checkout"
	appfulfillment "github.com/photoworks/printshop/app/internal/application/fulfillment"
	appphoto "github.com/photoworks/printshop/app/internal/application/photo"
	appretention "github.com/photoworks/printshop/app/internal/application/retention"
	domcart "github.com/photoworks/printshop/app/internal/domain/cart"
	domcatalog "github.com/photoworks/printshop/app/internal/domain/catalog"
	domorder "github.com/photoworks/printshop/app/internal/domain/order"
	domphoto "github.com/photoworks/printshop/app/internal/domain/photo"
	"github.com/photoworks/printshop/app/internal/observability"
	"github.com/photoworks/printshop/app/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerUserID         = "X-User-ID"
	headerAdminID        = "X-Admin-ID"
)

// CleanupQueue exposes the retention work queue for the admin surface.
type CleanupQueue interface {
	ListDueForCleanup(ctx context.Context, before time.Time) ([]*domphoto.Photo, error)
}

type Handler struct {
	photoService *appphoto.Service
	cartService  *appcart.Service
	checkout     application.UseCase[appcheckout.Input, *appcheckout.Result]
	fulfillment  *appfulfillment.Service
	retention    *appretention.Tracker
	cleanupQueue CleanupQueue
	log          observability.Logger
	tel          observability.Observability
}

func NewHandler(
	photoSvc *appphoto.Service,
	cartSvc *appcart.Service,
	checkoutUC application.UseCase[appcheckout.Input, *appcheckout.Result],
	fulfillmentSvc *appfulfillment.Service,
	retention *appretention.Tracker,
	cleanupQueue CleanupQueue,
	logger observability.Logger,
	tel observability.Observability,
) *Handler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = observability.NopLogger()
	}
	return &Handler{
		photoService: photoSvc,
		cartService:  cartSvc,
		checkout:     checkoutUC,
		fulfillment:  fulfillmentSvc,
		retention:    retention,
		cleanupQueue: cleanupQueue,
		log:          baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:          tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Wire each route with middlewares:
	// Trace → ObservabilityMiddleware (request logger) → Access log → Handler
	h.muxHandle(mux, http.MethodPost, "/photos", h.handleRegisterPhoto)
	h.muxHandle(mux, http.MethodGet, "/photos/{id}", h.handleGetPhoto)
	h.muxHandle(mux, http.MethodDelete, "/photos/{id}", h.handleDeletePhoto)

	h.muxHandle(mux, http.MethodGet, "/cart", h.handleGetCart)
	h.muxHandle(mux, http.MethodDelete, "/cart", h.handleClearCart)
	h.muxHandle(mux, http.MethodPost, "/cart/items", h.handleAddCartItem)
	h.muxHandle(mux, http.MethodPut, "/cart/items/{id}", h.handleUpdateCartItem)
	h.muxHandle(mux, http.MethodDelete, "/cart/items/{id}", h.handleRemoveCartItem)

	h.muxHandle(mux, http.MethodPost, "/checkout", h.handleCheckout)

	h.muxHandle(mux, http.MethodGet, "/orders", h.handleListOrders)
	h.muxHandle(mux, http.MethodGet, "/orders/{id}", h.handleGetOrder)
	h.muxHandle(mux, http.MethodPost, "/orders/{id}/status", h.handleUpdateOrderStatus)

	h.muxHandle(mux, http.MethodGet, "/admin/cleanup/queue", h.handleCleanupQueue)
	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	mux.HandleFunc(method+" "+route, func(w http.ResponseWriter, r *http.Request) {
		// Store stable route template for low-cardinality labels
		ctx := contextWithRoute(r.Context(), method+" "+route)
		r = r.WithContext(ctx)

		wrapped := h.withTrace(
			ObservabilityMiddleware(
				logctx.FromOr(ctx, h.log),
				func(r *http.Request) string {
					return r.Header.Get(headerRequestID)
				},
				func(r *http.Request) string {
					return r.Header.Get(headerUserID)
				},
				h.tel,
			)(
				h.withAccessLog(http.HandlerFunc(handler)),
			),
		)
		wrapped.ServeHTTP(w, r)
	})
}

type registerPhotoRequest struct {
	FileName string `json:"file_name"`
	Data     []byte `json:"data"`
}

type photoResponse struct {
	ID                   string     `json:"id"`
	FileName             string     `json:"file_name"`
	SizeBytes            int64      `json:"size_bytes"`
	IsOrdered            bool       `json:"is_ordered"`
	OrderedIn            []string   `json:"ordered_in,omitempty"`
	IsPendingDeletion    bool       `json:"is_pending_deletion"`
	DeletionScheduledFor *time.Time `json:"deletion_scheduled_for,omitempty"`
	UploadedAt           time.Time  `json:"uploaded_at"`
}

func toPhotoResponse(p *domphoto.Photo) photoResponse {
	return photoResponse{
		ID:                   p.ID,
		FileName:             p.FileName,
		SizeBytes:            p.SizeBytes,
		IsOrdered:            p.OrderInfo.IsOrdered,
		OrderedIn:            p.OrderInfo.OrderedIn,
		IsPendingDeletion:    p.Flags.IsPendingDeletion,
		DeletionScheduledFor: p.Flags.DeletionScheduledFor,
		UploadedAt:           p.UploadedAt,
	}
}

func (h *Handler) handleRegisterPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req registerPhotoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.photoService.Register(r.Context(), userID, req.FileName, req.Data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPhotoResponse(p))
}

func (h *Handler) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.photoService.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPhotoResponse(p))
}

func (h *Handler) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := h.retention.UserDelete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectionRequest struct {
	SizeCode string `json:"size_code"`
	Quantity int    `json:"quantity"`
}

type addCartItemRequest struct {
	PhotoID    string             `json:"photo_id"`
	Selections []selectionRequest `json:"selections"`
}

type updateCartItemRequest struct {
	Selections []selectionRequest `json:"selections"`
}

type cartSelectionResponse struct {
	SizeCode  string  `json:"size_code"`
	SizeName  string  `json:"size_name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type cartItemResponse struct {
	ID         string                  `json:"id"`
	PhotoID    string                  `json:"photo_id"`
	FileName   string                  `json:"file_name"`
	Selections []cartSelectionResponse `json:"selections"`
	PhotoTotal float64                 `json:"photo_total"`
}

type cartResponse struct {
	Items          []cartItemResponse `json:"items"`
	TotalPhotos    int                `json:"total_photos"`
	TotalPrints    int                `json:"total_prints"`
	Subtotal       float64            `json:"subtotal"`
	EstimatedTax   float64            `json:"estimated_tax"`
	EstimatedTotal float64            `json:"estimated_total"`
	ExpiresAt      time.Time          `json:"expires_at"`
}

func toCartResponse(c *domcart.Cart) cartResponse {
	resp := cartResponse{
		Items:          make([]cartItemResponse, 0, len(c.Items)),
		TotalPhotos:    c.Summary.TotalPhotos,
		TotalPrints:    c.Summary.TotalPrints,
		Subtotal:       c.Summary.Subtotal,
		EstimatedTax:   c.Summary.EstimatedTax,
		EstimatedTotal: c.Summary.EstimatedTotal,
		ExpiresAt:      c.ExpiresAt,
	}
	for _, item := range c.Items {
		ir := cartItemResponse{
			ID:         item.ID,
			PhotoID:    item.PhotoID,
			FileName:   item.FileName,
			PhotoTotal: item.PhotoTotal,
		}
		for _, sel := range item.Selections {
			ir.Selections = append(ir.Selections, cartSelectionResponse{
				SizeCode:  sel.SizeCode,
				SizeName:  sel.SizeName,
				Quantity:  sel.Quantity,
				UnitPrice: sel.UnitPrice,
				LineTotal: sel.LineTotal,
			})
		}
		resp.Items = append(resp.Items, ir)
	}
	return resp
}

func toSelectionInputs(in []selectionRequest) []appcart.SelectionInput {
	out := make([]appcart.SelectionInput, 0, len(in))
	for _, s := range in {
		out = append(out, appcart.SelectionInput{SizeCode: s.SizeCode, Quantity: s.Quantity})
	}
	return out
}

func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c, err := h.cartService.AddItem(r.Context(), userID, req.PhotoID, toSelectionInputs(req.Selections))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c, err := h.cartService.UpdateItem(r.Context(), userID, r.PathValue("id"), toSelectionInputs(req.Selections))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.cartService.RemoveItem(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := h.cartService.Clear(r.Context(), userID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.cartService.Get(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

type checkoutRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	ShippingState  string `json:"shipping_state"`
	Payment        struct {
		Method         string `json:"method"`
		CardNumber     string `json:"card_number"`
		CardholderName string `json:"cardholder_name"`
	} `json:"payment"`
}

type checkoutResponse struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Status      domorder.Status `json:"status"`
	Pricing     pricingResponse `json:"pricing"`
}

type pricingResponse struct {
	Subtotal  float64 `json:"subtotal"`
	TaxRate   float64 `json:"tax_rate"`
	TaxAmount float64 `json:"tax_amount"`
	Total     float64 `json:"total"`
}

func toPricingResponse(p domorder.Pricing) pricingResponse {
	return pricingResponse{Subtotal: p.Subtotal, TaxRate: p.TaxRate, TaxAmount: p.TaxAmount, Total: p.Total}
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.checkout.Execute(r.Context(), appcheckout.Input{
		IdempotencyKey: req.IdempotencyKey,
		UserID:         userID,
		ShippingState:  req.ShippingState,
		Payment: appcheckout.PaymentInput{
			Method:         domorder.PaymentMethod(req.Payment.Method),
			CardNumber:     req.Payment.CardNumber,
			CardholderName: req.Payment.CardholderName,
		},
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:     result.OrderID,
		OrderNumber: result.OrderNumber,
		Status:      result.Status,
		Pricing:     toPricingResponse(result.Pricing),
	})
}

type orderResponse struct {
	ID            string               `json:"id"`
	Number        string               `json:"number"`
	UserID        string               `json:"user_id"`
	Status        domorder.Status      `json:"status"`
	ShippingState string               `json:"shipping_state"`
	Items         []orderItemResponse  `json:"items"`
	Pricing       pricingResponse      `json:"pricing"`
	Tracking      string               `json:"tracking_number,omitempty"`
	Version       int64                `json:"version"`
	CreatedAt     time.Time            `json:"created_at"`
	PhotoCleanup  cleanupBlockResponse `json:"photo_cleanup"`
}

type orderItemResponse struct {
	PhotoID    string                  `json:"photo_id"`
	FileName   string                  `json:"file_name"`
	Selections []cartSelectionResponse `json:"selections"`
	PhotoTotal float64                 `json:"photo_total"`
}

type cleanupBlockResponse struct {
	IsCompleted   bool       `json:"is_completed"`
	PhotosDeleted int        `json:"photos_deleted"`
	StorageFreed  int64      `json:"storage_freed_bytes"`
	CleanupAt     *time.Time `json:"cleanup_at,omitempty"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		Number:        o.Number,
		UserID:        o.UserID,
		Status:        o.Status,
		ShippingState: o.ShippingState,
		Pricing:       toPricingResponse(o.Pricing),
		Tracking:      o.Fulfillment.TrackingNumber,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		PhotoCleanup: cleanupBlockResponse{
			IsCompleted:   o.PhotoCleanup.IsCompleted,
			PhotosDeleted: o.PhotoCleanup.PhotosDeleted,
			StorageFreed:  o.PhotoCleanup.StorageFreed,
			CleanupAt:     o.PhotoCleanup.CleanupAt,
		},
	}
	for _, item := range o.Items {
		ir := orderItemResponse{
			PhotoID:    item.PhotoID,
			FileName:   item.FileName,
			PhotoTotal: item.PhotoTotal,
		}
		for _, sel := range item.Selections {
			ir.Selections = append(ir.Selections, cartSelectionResponse{
				SizeCode:  sel.SizeCode,
				SizeName:  sel.SizeName,
				Quantity:  sel.Quantity,
				UnitPrice: sel.UnitPrice,
				LineTotal: sel.Subtotal,
			})
		}
		resp.Items = append(resp.Items, ir)
	}
	return resp
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.fulfillment.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	status := domorder.Status(r.URL.Query().Get("status"))
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, errors.New("unknown status filter"))
		return
	}

	orders, err := h.fulfillment.ListByStatus(r.Context(), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateOrderStatusRequest struct {
	Status          string `json:"status"`
	TrackingNumber  string `json:"tracking_number"`
	Note            string `json:"note"`
	ExpectedVersion int64  `json:"expected_version"`
}

type updateOrderStatusResponse struct {
	Order           orderResponse `json:"order"`
	PhotosScheduled int           `json:"photos_scheduled"`
	ScheduledFor    *time.Time    `json:"scheduled_for,omitempty"`
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	adminID := strings.TrimSpace(r.Header.Get(headerAdminID))
	if adminID == "" {
		writeError(w, http.StatusUnauthorized, errors.New("missing "+headerAdminID+" header"))
		return
	}

	var req updateOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.fulfillment.UpdateStatus(r.Context(), appfulfillment.UpdateStatusInput{
		OrderID:         r.PathValue("id"),
		Target:          domorder.Status(req.Status),
		AdminID:         adminID,
		TrackingNumber:  req.TrackingNumber,
		Note:            req.Note,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updateOrderStatusResponse{
		Order:           toOrderResponse(result.Order),
		PhotosScheduled: result.PhotosScheduled,
		ScheduledFor:    result.ScheduledFor,
	})
}

func (h *Handler) handleCleanupQueue(w http.ResponseWriter, r *http.Request) {
	due, err := h.cleanupQueue.ListDueForCleanup(r.Context(), time.Now().UTC())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]photoResponse, 0, len(due))
	for _, p := range due {
		out = append(out, toPhotoResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(headerUserID))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, errors.New("missing "+headerUserID+" header"))
		return "", false
	}
	return userID, true
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("printshop.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		spanName := route
		if spanName == "unknown" {
			spanName = r.Method + " " + r.URL.Path
		}
		template := route
		if idx := strings.Index(template, " "); idx >= 0 {
			template = template[idx+1:]
		}
		if template == "unknown" || template == "" {
			template = r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeDomainError maps the error taxonomy onto HTTP statuses: validation 400,
// conflicts 409, state-rule violations 422, not-found 404. Anything else is an
// opaque 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var validation domcart.ValidationError
	var transition *domorder.TransitionError

	switch {
	case errors.As(err, &validation),
		errors.Is(err, domcart.ErrNoSelections),
		errors.Is(err, domcart.ErrEmpty),
		errors.Is(err, domorder.ErrNoItems),
		errors.Is(err, domcatalog.ErrInvalidCode),
		errors.Is(err, domcatalog.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domorder.ErrConflict),
		errors.Is(err, domorder.ErrVersionConflict),
		errors.Is(err, domcatalog.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.As(err, &transition),
		errors.Is(err, domphoto.ErrInUse),
		errors.Is(err, domphoto.ErrDeleted),
		errors.Is(err, domcatalog.ErrInactive),
		errors.Is(err, appfulfillment.ErrUnknownStatus):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, domcart.ErrNotFound),
		errors.Is(err, domcart.ErrItemNotFound),
		errors.Is(err, domphoto.ErrNotFound),
		errors.Is(err, domcatalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
