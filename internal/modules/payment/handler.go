package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/crafty-backend/internal/modules/auth"
	"github.com/georgemunganga/crafty-backend/internal/modules/order"
)

// Handler exposes payment HTTP endpoints.
type Handler struct {
	service Service
	orders  Orders
}

func NewHandler(service Service, orders Orders) *Handler {
	return &Handler{service: service, orders: orders}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Get("/methods", h.methods)                                      // GET  /api/v1/payments/methods
		r.Post("/", h.createPayment)                                      // POST /api/v1/payments
		r.Post("/verify", h.verifyPayment)                                // POST /api/v1/payments/verify
		r.With(auth.RequireAdmin).Post("/refund", h.refundPayment)        // POST /api/v1/payments/refund
		r.With(auth.RequireAdmin).Post("/cod/confirm", h.confirmDelivery) // POST /api/v1/payments/cod/confirm
		r.Get("/order/{order_id}", h.getByOrder)                          // GET  /api/v1/payments/order/{order_id}
		r.Get("/{transaction_id}/link", h.getLink)                        // GET  /api/v1/payments/{transaction_id}/link
		r.Get("/{transaction_id}/instructions", h.getInstructions)        // GET  /api/v1/payments/{transaction_id}/instructions
	})
}

func (h *Handler) methods(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.service.Methods())
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.OrderID == "" || req.Method == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "order_id and method are required"})
		return
	}
	o, err := h.orders.GetOrder(r.Context(), req.OrderID)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := authorize(r, o); err != nil {
		respondErr(w, err)
		return
	}
	res, err := h.service.CreatePayment(r.Context(), req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, res)
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "transaction_id is required"})
		return
	}
	if err := h.authorizeTransaction(r, req.TransactionID); err != nil {
		respondErr(w, err)
		return
	}
	res, err := h.service.VerifyPayment(r.Context(), req.TransactionID, req.Method)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) refundPayment(w http.ResponseWriter, r *http.Request) {
	var req RefundPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "transaction_id is required"})
		return
	}
	res, err := h.service.RefundPayment(r.Context(), req.TransactionID, req.Method, req.Amount)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) confirmDelivery(w http.ResponseWriter, r *http.Request) {
	var req ConfirmDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" || req.DeliveryCode == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "transaction_id and delivery_code are required"})
		return
	}
	res, err := h.service.ConfirmDelivery(r.Context(), req.TransactionID, req.DeliveryCode)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) getByOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	o, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := authorize(r, o); err != nil {
		respondErr(w, err)
		return
	}
	p, err := h.service.GetPaymentByOrder(r.Context(), orderID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) getLink(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "transaction_id")
	if err := h.authorizeTransaction(r, txID); err != nil {
		respondErr(w, err)
		return
	}
	link, err := h.service.GetPaymentLink(r.Context(), txID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"transaction_id": txID, "url": link})
}

func (h *Handler) getInstructions(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "transaction_id")
	if err := h.authorizeTransaction(r, txID); err != nil {
		respondErr(w, err)
		return
	}
	instr, err := h.service.GetInstructions(r.Context(), txID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, instr)
}

// ── helpers ──────────────────────────────────────────────────────────────────

// authorize allows the order's owner and admins.
func authorize(r *http.Request, o *order.Order) error {
	if auth.IsAdmin(r.Context()) || o.UserID.String() == auth.UserID(r.Context()) {
		return nil
	}
	return order.ErrForbidden
}

func (h *Handler) authorizeTransaction(r *http.Request, txID string) error {
	if auth.IsAdmin(r.Context()) {
		return nil
	}
	p, err := h.service.GetPayment(r.Context(), txID)
	if err != nil {
		return err
	}
	o, err := h.orders.GetOrder(r.Context(), p.OrderID.String())
	if err != nil {
		return err
	}
	return authorize(r, o)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrPaymentNotFound), errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPaymentExists), errors.Is(err, ErrInvalidPaymentState),
		errors.Is(err, ErrOrderNotPayable), errors.Is(err, order.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, ErrUnsupportedPaymentMethod), errors.Is(err, ErrUnsupportedOperation),
		errors.Is(err, ErrMethodMismatch), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidDeliveryCode), errors.Is(err, ErrUnknownTransaction):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrGatewayFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondErr(w http.ResponseWriter, err error) {
	respond(w, statusFor(err), map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
