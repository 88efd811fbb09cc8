package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/naileastudio/salonpos/internal/catalog"
)

// CatalogStore is what the handlers need from the catalog repo.
type CatalogStore interface {
	CreateService(ctx context.Context, in catalog.ServiceInput) (*catalog.Service, error)
	UpdateService(ctx context.Context, uid string, in catalog.ServiceInput) (*catalog.Service, error)
	DeleteService(ctx context.Context, uid string) error
	GetService(ctx context.Context, uid string) (*catalog.Service, error)
	ListServices(ctx context.Context) ([]catalog.Service, error)
	ListActiveServicesGrouped(ctx context.Context) (catalog.GroupedServices, error)

	CreateGood(ctx context.Context, in catalog.GoodInput) (*catalog.Good, error)
	UpdateGood(ctx context.Context, uid string, in catalog.GoodInput) (*catalog.Good, error)
	Restock(ctx context.Context, uid string, delta int) (*catalog.Good, error)
	DeleteGood(ctx context.Context, uid string) error
	GetGood(ctx context.Context, uid string) (*catalog.Good, error)
	ListGoods(ctx context.Context) ([]catalog.Good, error)
}

type CatalogHandler struct {
	Store CatalogStore
	Cache *catalog.ServicesCache
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	// public price list, served through the cache
	r.Get("/services", h.listActiveServices)
	r.Get("/services/cache", h.cacheStatus)

	r.Route("/admin/services", func(r chi.Router) {
		r.Get("/", h.listServices)
		r.Post("/", h.createService)
		r.Get("/{uid}", h.getService)
		r.Put("/{uid}", h.updateService)
		r.Delete("/{uid}", h.deleteService)
	})
	r.Route("/admin/goods", func(r chi.Router) {
		r.Get("/", h.listGoods)
		r.Post("/", h.createGood)
		r.Get("/{uid}", h.getGood)
		r.Put("/{uid}", h.updateGood)
		r.Post("/{uid}/restock", h.restockGood)
		r.Delete("/{uid}", h.deleteGood)
	})
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, catalog.ErrReferenced):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "entry is referenced by an order; deactivate it instead"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// listActiveServices is the read-heavy public path. X-Cache reports
// HIT/MISS for observability.
func (h *CatalogHandler) listActiveServices(w http.ResponseWriter, r *http.Request) {
	if v, hit := h.Cache.Get(); hit {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, v)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.Store.ListActiveServicesGrouped(ctx)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	h.Cache.Populate(v)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, v)
}

func (h *CatalogHandler) cacheStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Cache.Status())
}

// --- services (every mutation invalidates the cache before responding) ---

func (h *CatalogHandler) createService(w http.ResponseWriter, r *http.Request) {
	var in catalog.ServiceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if in.Name == "" || in.Price.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required, price must be >= 0"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.Store.CreateService(ctx, in)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	h.Cache.Invalidate()
	writeJSON(w, http.StatusCreated, s)
}

func (h *CatalogHandler) updateService(w http.ResponseWriter, r *http.Request) {
	var in catalog.ServiceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if in.Name == "" || in.Price.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required, price must be >= 0"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.Store.UpdateService(ctx, chi.URLParam(r, "uid"), in)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	h.Cache.Invalidate()
	writeJSON(w, http.StatusOK, s)
}

func (h *CatalogHandler) deleteService(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.DeleteService(ctx, chi.URLParam(r, "uid")); err != nil {
		writeCatalogError(w, err)
		return
	}
	h.Cache.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"message": "service deleted"})
}

func (h *CatalogHandler) getService(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.Store.GetService(ctx, chi.URLParam(r, "uid"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *CatalogHandler) listServices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.ListServices(ctx)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// --- goods (no effect on the services cache) ---

func (h *CatalogHandler) createGood(w http.ResponseWriter, r *http.Request) {
	var in catalog.GoodInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if in.Name == "" || in.Price.IsNegative() || (in.Stock != nil && *in.Stock < 0) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required, price and stock must be >= 0"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	g, err := h.Store.CreateGood(ctx, in)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *CatalogHandler) updateGood(w http.ResponseWriter, r *http.Request) {
	var in catalog.GoodInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if in.Name == "" || in.Price.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required, price must be >= 0"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	g, err := h.Store.UpdateGood(ctx, chi.URLParam(r, "uid"), in)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type restockReq struct {
	Qty int `json:"qty"`
}

func (h *CatalogHandler) restockGood(w http.ResponseWriter, r *http.Request) {
	var req restockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Qty <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "qty must be > 0"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	g, err := h.Store.Restock(ctx, chi.URLParam(r, "uid"), req.Qty)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *CatalogHandler) deleteGood(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.DeleteGood(ctx, chi.URLParam(r, "uid")); err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "good deleted"})
}

func (h *CatalogHandler) getGood(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	g, err := h.Store.GetGood(ctx, chi.URLParam(r, "uid"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *CatalogHandler) listGoods(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.ListGoods(ctx)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
