package order

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/crafty-backend/internal/modules/auth"
)

// Handler exposes order HTTP endpoints. Routes expect auth.Middleware upstream.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)                                      // POST  /api/v1/orders
		r.Get("/", h.listMyOrders)                                      // GET   /api/v1/orders
		r.With(auth.RequireAdmin).Get("/all", h.listAllOrders)          // GET   /api/v1/orders/all?page=1&limit=10
		r.Get("/number/{number}", h.getOrderByNumber)                   // GET   /api/v1/orders/number/{number}
		r.Get("/{id}", h.getOrder)                                      // GET   /api/v1/orders/{id}
		r.With(auth.RequireAdmin).Put("/{id}/status", h.updateStatus)   // PUT   /api/v1/orders/{id}/status
		r.With(auth.RequireAdmin).Patch("/{id}/status", h.updateStatus) // PATCH /api/v1/orders/{id}/status
		r.Post("/{id}/cancel", h.cancelOrder)                           // POST  /api/v1/orders/{id}/cancel
	})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	o, err := h.service.CreateOrder(r.Context(), auth.UserID(r.Context()), req.Notes)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, o)
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListUserOrders(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	p, err := h.service.ListOrders(r.Context(), page, limit)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err == nil {
		err = authorize(r, o)
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrderByNumber(r.Context(), chi.URLParam(r, "number"))
	if err == nil {
		err = authorize(r, o)
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		respondErr(w, err)
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, err := h.service.GetOrder(r.Context(), id)
	if err == nil {
		err = authorize(r, o)
	}
	if err == nil {
		o, err = h.service.UpdateStatus(r.Context(), id, StatusCancelled)
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

// ── helpers ──────────────────────────────────────────────────────────────────

// authorize allows the order's owner and admins.
func authorize(r *http.Request, o *Order) error {
	if auth.IsAdmin(r.Context()) || o.UserID.String() == auth.UserID(r.Context()) {
		return nil
	}
	return ErrForbidden
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrEmptyCart):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNoOpTransition),
		errors.Is(err, ErrConcurrentUpdate), errors.Is(err, ErrCartChanged):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidStatus):
		return http.StatusBadRequest
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
