package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/status"
	"github.com/tair/payreto-reconciler/internal/reconciliation/usecase/command"
	"github.com/tair/payreto-reconciler/internal/reconciliation/usecase/query"
	"github.com/tair/payreto-reconciler/pkg/lock"
	"github.com/tair/payreto-reconciler/pkg/logger"
)

// ReconciliationHandler handles gateway webhooks and ledger queries using CQRS pattern
type ReconciliationHandler struct {
	// Command handlers
	notificationHandler *command.ProcessNotificationHandler
	refundHandler       *command.ProcessRefundHandler

	// Query handlers
	statusHandler  *query.GetOrderPaymentStatusHandler
	recordsHandler *query.ListTransactionRecordsHandler

	locker lock.Locker
}

// NewReconciliationHandler creates a new reconciliation handler. A nil locker disables locking.
func NewReconciliationHandler(
	notificationHandler *command.ProcessNotificationHandler,
	refundHandler *command.ProcessRefundHandler,
	statusHandler *query.GetOrderPaymentStatusHandler,
	recordsHandler *query.ListTransactionRecordsHandler,
	locker lock.Locker,
) *ReconciliationHandler {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &ReconciliationHandler{
		notificationHandler: notificationHandler,
		refundHandler:       refundHandler,
		statusHandler:       statusHandler,
		recordsHandler:      recordsHandler,
		locker:              locker,
	}
}

// Response is the JSON envelope of every endpoint
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type notificationResponse struct {
	RecordID  uint               `json:"record_id"`
	State     domain.LedgerState `json:"state"`
	StateName string             `json:"state_name"`
	Duplicate bool               `json:"duplicate"`
	Linked    bool               `json:"linked"`
	OrderID   uint               `json:"order_id,omitempty"`
	Anomaly   bool               `json:"anomaly"`
}

func toNotificationResponse(res *command.NotificationResult) notificationResponse {
	return notificationResponse{
		RecordID:  res.Record.ID,
		State:     res.Record.State,
		StateName: res.Record.State.String(),
		Duplicate: res.Duplicate,
		Linked:    res.Linked,
		OrderID:   res.OrderID,
		Anomaly:   res.Anomaly,
	}
}

// RegisterRoutes registers the reconciliation routes on router
func (h *ReconciliationHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/payreto").Subrouter()
	api.HandleFunc("/notifications", h.ReceiveNotification).Methods(http.MethodPost)
	api.HandleFunc("/checkout-results", h.ReceiveCheckoutResult).Methods(http.MethodPost)
	api.HandleFunc("/payments/{id:[0-9]+}/refunds", h.ReceiveRefund).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{transactionId}/status", h.GetPaymentStatus).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{transactionId}/records", h.ListRecords).Methods(http.MethodGet)
}

// ReceiveNotification godoc
// @Summary Receive a gateway status notification
// @Description Books a Payreto status notification on the ledger and links it to its order
// @Tags Notifications
// @Accept json
// @Produce json
// @Param request body domain.GatewayStatusPayload true "Gateway status notification"
// @Success 200 {object} object{success=bool,message=string,data=notificationResponse}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Failure 429 {object} object{success=bool,error=string}
// @Failure 500 {object} object{success=bool,error=string}
// @Router /api/payreto/notifications [post]
func (h *ReconciliationHandler) ReceiveNotification(w http.ResponseWriter, r *http.Request) {
	var payload domain.GatewayStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	res, err := h.ProcessNotification(r.Context(), payload)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: notificationMessage(res),
		Data:    toNotificationResponse(res),
	})
}

// ReceiveCheckoutResult godoc
// Shopper returns only carry a payment type code, the status is derived from it.
// @Summary Receive a shopper checkout result
// @Description Books a checkout result whose status is derived from its payment type
// @Tags Notifications
// @Accept json
// @Produce json
// @Param request body domain.GatewayStatusPayload true "Checkout result with payment_type"
// @Success 200 {object} object{success=bool,message=string,data=notificationResponse}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Failure 500 {object} object{success=bool,error=string}
// @Router /api/payreto/checkout-results [post]
func (h *ReconciliationHandler) ReceiveCheckoutResult(w http.ResponseWriter, r *http.Request) {
	var payload domain.GatewayStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	if payload.Status == "" {
		if payload.PaymentType == "" {
			respondError(r.Context(), w, &domain.ValidationError{Field: "payment_type", Reason: "is required"})
			return
		}
		payload.Status = status.CodeForPaymentType(payload.PaymentType)
		logger.ForNotification(r.Context(), payload.TransactionID, payload.OrderID).Debug().
			Str("payment_type", payload.PaymentType).
			Stringer("hinted_state", status.MapStatusHint(payload.PaymentType)).
			Msg("Status derived from payment type")
	}

	res, err := h.ProcessNotification(r.Context(), payload)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: notificationMessage(res),
		Data:    toNotificationResponse(res),
	})
}

// ReceiveRefund godoc
// @Summary Receive a refund notification
// @Description Books a refund as a debit record linked to the original payment's order
// @Tags Refunds
// @Accept json
// @Produce json
// @Param id path int true "Original payment record ID"
// @Param request body object{id=string,currency=string,amount=string,result=object{code=string}} true "Refund document"
// @Success 200 {object} object{success=bool,message=string,data=notificationResponse}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Failure 500 {object} object{success=bool,error=string}
// @Router /api/payreto/payments/{id}/refunds [post]
func (h *ReconciliationHandler) ReceiveRefund(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid payment ID",
		})
		return
	}

	// Refund documents come in more than one shape; numbers keep their literal form
	bag := domain.RefundBag{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&bag); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	res, err := h.ProcessRefund(r.Context(), uint(id), bag)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: notificationMessage(res),
		Data:    toNotificationResponse(res),
	})
}

// GetPaymentStatus godoc
// @Summary Get the payment status verdict of a transaction
// @Description Reports success or error for the latest payment record of a gateway transaction
// @Tags Transactions
// @Produce json
// @Param transactionId path string true "Gateway transaction ID"
// @Success 200 {object} object{success=bool,data=query.PaymentStatusVerdict}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/payreto/transactions/{transactionId}/status [get]
func (h *ReconciliationHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	verdict, err := h.statusHandler.Handle(r.Context(), query.GetOrderPaymentStatusQuery{
		TransactionID: mux.Vars(r)["transactionId"],
	})
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    verdict,
	})
}

// ListRecords godoc
// @Summary List ledger records of a transaction
// @Description Lists every payment record booked for a gateway transaction, oldest first
// @Tags Transactions
// @Produce json
// @Param transactionId path string true "Gateway transaction ID"
// @Success 200 {object} object{success=bool,data=array}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 500 {object} object{success=bool,error=string}
// @Router /api/payreto/transactions/{transactionId}/records [get]
func (h *ReconciliationHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.recordsHandler.Handle(r.Context(), query.ListTransactionRecordsQuery{
		TransactionID: mux.Vars(r)["transactionId"],
	})
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    records,
	})
}

// RegisterHealthCheck registers GET /health; db may be nil when running on memory storage
// @Summary Health check
// @Description Reports service health, pinging the database when one is configured
// @Tags Health
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /health [get]
func (h *ReconciliationHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				logger.Error(r.Context()).Err(err).Msg("Health check failed")
				respondJSON(w, http.StatusServiceUnavailable, Response{
					Success: false,
					Error:   "Database unavailable",
				})
				return
			}
		}
		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Payreto reconciler is healthy",
		})
	}).Methods(http.MethodGet)
}

// ProcessNotification books a status notification while holding the transaction lock
func (h *ReconciliationHandler) ProcessNotification(ctx context.Context, payload domain.GatewayStatusPayload) (*command.NotificationResult, error) {
	release, err := h.acquire(ctx, payload.TransactionID)
	if err != nil {
		return nil, err
	}
	defer release(ctx)

	return h.notificationHandler.Handle(ctx, command.NotificationCommand{Payload: payload})
}

// ProcessRefund books a refund notification while holding the refund lock
func (h *ReconciliationHandler) ProcessRefund(ctx context.Context, originalID uint, refund domain.RefundSource) (*command.NotificationResult, error) {
	var key string
	if refund != nil && strings.TrimSpace(refund.RefundID()) != "" {
		key = "refund:" + refund.RefundID()
	}
	release, err := h.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release(ctx)

	return h.refundHandler.Handle(ctx, command.RefundCommand{OriginalPaymentID: originalID, Refund: refund})
}

func (h *ReconciliationHandler) acquire(ctx context.Context, key string) (func(context.Context), error) {
	if strings.TrimSpace(key) == "" {
		return func(context.Context) {}, nil
	}

	release, err := h.locker.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) {
		// the request context may already be done; the lock must go regardless
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx).Err(err).Str("lock_key", key).Msg("Failed to release transaction lock")
		}
	}, nil
}

func notificationMessage(res *command.NotificationResult) string {
	switch {
	case res.Duplicate:
		return "Notification already booked"
	case !res.Linked:
		return "Payment record booked without order"
	default:
		return "Payment record booked"
	}
}

// statusFor maps handler errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIllegalTransition), errors.Is(err, lock.ErrLocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logger.Error(ctx).Err(err).Msg("Failed to process request")
		msg = "Internal server error"
	}
	respondJSON(w, code, Response{
		Success: false,
		Error:   msg,
	})
}

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
