package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/naileastudio/salonpos/internal/orders"
	"github.com/naileastudio/salonpos/internal/redisx"
)

type OrdersHandler struct {
	Engine *orders.Engine
	Redis  *redis.Client
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders/{kind}", h.createOrder)
	r.Get("/orders/{kind}", h.listOrders)
	r.Get("/orders/{kind}/{uid}", h.getOrder)
	r.Get("/orders/{kind}/{uid}/status", h.getOrderStatus)
	r.Put("/orders/{kind}/{uid}/status", h.transition)
}

type transitionReq struct {
	Status orders.Status `json:"status"`
	Note   *string       `json:"note"`
}

func orderKind(r *http.Request) (orders.Kind, bool) {
	k := orders.Kind(chi.URLParam(r, "kind"))
	return k, k.Valid()
}

// staffID comes from the auth gateway in front of this service.
func staffID(r *http.Request) (int64, error) {
	v := r.Header.Get("X-Staff-Id")
	if v == "" {
		return 0, errors.New("missing X-Staff-Id header")
	}
	return strconv.ParseInt(v, 10, 64)
}

func writeOrderError(w http.ResponseWriter, err error) {
	var invalid *orders.InvalidTransitionError
	var short *orders.InsufficientStockError
	var integrity *orders.DataIntegrityError
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusConflict, map[string]string{"error": invalid.Error()})
	case errors.Is(err, orders.ErrStatusConflict):
		// lost both rounds against a concurrent transition; the caller
		// should re-read and decide again
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &short):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "insufficient stock",
			"details": short.Details,
		})
	case errors.As(err, &integrity):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": integrity.Error()})
	case errors.Is(err, orders.ErrEntryNotFound), errors.Is(err, orders.ErrEntryInactive),
		errors.Is(err, orders.ErrCustomerNotFound):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	kind, ok := orderKind(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown order kind"})
		return
	}
	staff, err := staffID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req orders.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	req.StaffID = staff
	if req.CustomerID == 0 || len(req.Lines) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ord, err := h.Engine.Create(ctx, kind, req)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	h.cacheStatus(ctx, kind, ord.UID, ord.Status)
	writeJSON(w, http.StatusCreated, ord)
}

func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request) {
	kind, ok := orderKind(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown order kind"})
		return
	}
	uid := chi.URLParam(r, "uid")

	var req transitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if !req.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ord, err := h.Engine.Transition(ctx, kind, uid, req.Status, req.Note)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	h.cacheStatus(ctx, kind, uid, ord.Status)
	writeJSON(w, http.StatusOK, ord)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	kind, ok := orderKind(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown order kind"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ord, err := h.Engine.Get(ctx, kind, chi.URLParam(r, "uid"))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ord)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	kind, ok := orderKind(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown order kind"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Engine.List(ctx, kind)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// getOrderStatus serves the hot polling path from Redis, falling back to
// the store and repopulating the cache.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	kind, ok := orderKind(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown order kind"})
		return
	}
	uid := chi.URLParam(r, "uid")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, kind, uid)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	ord, err := h.Engine.Get(ctx, kind, uid)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	h.cacheStatus(ctx, kind, uid, ord.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": ord.Status})
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, kind orders.Kind, uid string, status orders.Status) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, kind, uid)
	body, _ := json.Marshal(map[string]any{"status": status})
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}
