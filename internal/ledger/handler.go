package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/packtrack/packtrack/internal/platform/httpx"
)

// Handler exposes the derived-stock reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches stock reporting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/overview", h.overview)
	r.Get("/movements", h.movements)
	r.Get("/batch-items/available", h.availableBatchItems)
	r.Get("/batch-items/{id}/remaining", h.remainingStock)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.StockOverview(r.Context())
	if err != nil {
		h.logger.Error("stock overview", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	filter, err := movementFilterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	movements, err := h.service.Movements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func (h *Handler) availableBatchItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.AvailableBatchItems(r.Context())
	if err != nil {
		h.logger.Error("available batch items", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"batch_items": items})
}

func (h *Handler) remainingStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch item id")
		return
	}
	entry, err := h.service.BatchItemStock(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "batch item not found")
			return
		}
		h.logger.Error("remaining stock", slog.Any("error", err), slog.Int64("batch_item_id", id))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func movementFilterFromQuery(r *http.Request) (MovementFilter, error) {
	q := r.URL.Query()
	filter := MovementFilter{
		ItemKind:   ItemKind(q.Get("item_kind")),
		Direction:  Direction(q.Get("direction")),
		SourceType: SourceType(q.Get("source_type")),
	}
	if v := q.Get("item_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return MovementFilter{}, err
		}
		filter.ItemID = id
	}
	if v := q.Get("batch_item_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return MovementFilter{}, err
		}
		filter.BatchItemID = id
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return MovementFilter{}, err
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return MovementFilter{}, err
		}
		filter.To = t
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return MovementFilter{}, err
		}
		filter.Limit = limit
	}
	return filter, nil
}
