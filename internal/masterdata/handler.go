package masterdata

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/packtrack/packtrack/internal/platform/httpx"
	"github.com/packtrack/packtrack/internal/shared"
)

// Handler manages master data endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Get("/{id}/bom", h.listBOMLines)
		r.Put("/{id}/bom", h.replaceBOMLines)
	})
	r.Route("/packaging-items", func(r chi.Router) {
		r.Get("/", h.listPackagingItems)
		r.Post("/", h.createPackagingItem)
		r.Get("/{id}", h.getPackagingItem)
		r.Put("/{id}", h.updatePackagingItem)
	})
	r.Route("/destinations", func(r chi.Router) {
		r.Get("/", h.listDestinations)
		r.Post("/", h.createDestination)
		r.Get("/{id}", h.getDestination)
		r.Put("/{id}", h.updateDestination)
	})
}

// Product endpoints

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), filtersFromQuery(r))
	if err != nil {
		h.respondError(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.respondError(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var product Product
	if err := httpx.DecodeJSON(r, &product); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	created, err := h.service.CreateProduct(r.Context(), product)
	if err != nil {
		h.respondError(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	var product Product
	if err := httpx.DecodeJSON(r, &product); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.service.UpdateProduct(r.Context(), id, product); err != nil {
		h.respondError(w, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

// Bill of materials endpoints

func (h *Handler) listBOMLines(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	lines, err := h.service.ListBOMLines(r.Context(), id)
	if err != nil {
		h.respondError(w, "list bom lines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lines": lines})
}

func (h *Handler) replaceBOMLines(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	var body struct {
		Lines []BOMLine `json:"lines"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.service.ReplaceBOMLines(r.Context(), id, body.Lines); err != nil {
		h.respondError(w, "replace bom lines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

// Packaging item endpoints

func (h *Handler) listPackagingItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPackagingItems(r.Context(), filtersFromQuery(r))
	if err != nil {
		h.respondError(w, "list packaging items", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"packaging_items": items})
}

func (h *Handler) getPackagingItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	item, err := h.service.GetPackagingItem(r.Context(), id)
	if err != nil {
		h.respondError(w, "get packaging item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) createPackagingItem(w http.ResponseWriter, r *http.Request) {
	var item PackagingItem
	if err := httpx.DecodeJSON(r, &item); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	created, err := h.service.CreatePackagingItem(r.Context(), item)
	if err != nil {
		h.respondError(w, "create packaging item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updatePackagingItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	var item PackagingItem
	if err := httpx.DecodeJSON(r, &item); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.service.UpdatePackagingItem(r.Context(), id, item); err != nil {
		h.respondError(w, "update packaging item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

// Destination endpoints

func (h *Handler) listDestinations(w http.ResponseWriter, r *http.Request) {
	destinations, err := h.service.ListDestinations(r.Context(), filtersFromQuery(r))
	if err != nil {
		h.respondError(w, "list destinations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"destinations": destinations})
}

func (h *Handler) getDestination(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	destination, err := h.service.GetDestination(r.Context(), id)
	if err != nil {
		h.respondError(w, "get destination", err)
		return
	}
	httpx.JSON(w, http.StatusOK, destination)
}

func (h *Handler) createDestination(w http.ResponseWriter, r *http.Request) {
	var destination Destination
	if err := httpx.DecodeJSON(r, &destination); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	created, err := h.service.CreateDestination(r.Context(), destination)
	if err != nil {
		h.respondError(w, "create destination", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateDestination(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	var destination Destination
	if err := httpx.DecodeJSON(r, &destination); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.service.UpdateDestination(r.Context(), id, destination); err != nil {
		h.respondError(w, "update destination", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrDuplicateCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func filtersFromQuery(r *http.Request) ListFilters {
	q := r.URL.Query()
	filters := ListFilters{Search: q.Get("search")}
	if v := q.Get("is_active"); v != "" {
		active := v == "true" || v == "1"
		filters.IsActive = &active
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			filters.Limit = limit
		}
	}
	return filters
}
