package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/naileastudio/salonpos/internal/customers"
)

type CustomerStore interface {
	Create(ctx context.Context, in customers.Input) (*customers.Customer, error)
	Update(ctx context.Context, uid string, in customers.Input) (*customers.Customer, error)
	Delete(ctx context.Context, uid string) error
	Get(ctx context.Context, uid string) (*customers.Customer, error)
	List(ctx context.Context) ([]customers.Customer, error)
}

type CustomersHandler struct {
	Store CustomerStore
}

func (h *CustomersHandler) Register(r *chi.Mux) {
	r.Route("/admin/customers", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{uid}", h.get)
		r.Put("/{uid}", h.update)
		r.Delete("/{uid}", h.delete)
	})
}

func writeCustomerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, customers.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
	case errors.Is(err, customers.ErrReferenced):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "customer has orders on file"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *CustomersHandler) create(w http.ResponseWriter, r *http.Request) {
	var in customers.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if in.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Store.Create(ctx, in)
	if err != nil {
		writeCustomerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CustomersHandler) update(w http.ResponseWriter, r *http.Request) {
	var in customers.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if in.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Store.Update(ctx, chi.URLParam(r, "uid"), in)
	if err != nil {
		writeCustomerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CustomersHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.Delete(ctx, chi.URLParam(r, "uid")); err != nil {
		writeCustomerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "customer deleted"})
}

func (h *CustomersHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Store.Get(ctx, chi.URLParam(r, "uid"))
	if err != nil {
		writeCustomerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CustomersHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.List(ctx)
	if err != nil {
		writeCustomerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
