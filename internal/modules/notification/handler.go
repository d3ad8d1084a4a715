package notification

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/crafty-backend/internal/modules/auth"
)

// Handler exposes queue visibility to admins.
type Handler struct{ queue Queue }

func NewHandler(queue Queue) *Handler { return &Handler{queue: queue} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Get("/stats", h.stats)   // GET /api/v1/notifications/stats
		r.Get("/failed", h.failed) // GET /api/v1/notifications/failed?limit=20
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.queue.Stats(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, s)
}

func (h *Handler) failed(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := h.queue.FailedJobs(r.Context(), limit)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, jobs)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
