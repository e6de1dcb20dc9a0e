package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/confirmit/marketd/internal/geo"
	"github.com/confirmit/marketd/internal/middleware"
	"github.com/confirmit/marketd/internal/search"
	"github.com/confirmit/marketd/internal/validate"
)

// Search parameter bounds.
const (
	MaxRadiusKm = 500.0
)

// SearchHandlers holds dependencies for the marketplace search endpoint.
type SearchHandlers struct {
	svc             *search.Service
	defaultRadiusKm float64
	defaultPageSize int
	logger          *slog.Logger
}

// NewSearchHandlers creates a new SearchHandlers instance.
func NewSearchHandlers(svc *search.Service, defaultRadiusKm float64, defaultPageSize int, logger *slog.Logger) *SearchHandlers {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = search.DefaultRadiusKm
	}
	if defaultPageSize < 1 || defaultPageSize > search.MaxPageSize {
		defaultPageSize = search.DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandlers{
		svc:             svc,
		defaultRadiusKm: defaultRadiusKm,
		defaultPageSize: defaultPageSize,
		logger:          logger,
	}
}

// Search handles GET /marketplace/search.
func (h *SearchHandlers) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeValidation, "Method not allowed")
		return
	}

	params := r.URL.Query()

	text, err := validate.SearchText(params.Get("q"))
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "q must be at most 200 characters")
		return
	}

	q := search.Query{
		Text:     text,
		City:     strings.TrimSpace(params.Get("city")),
		RadiusKm: h.defaultRadiusKm,
		Page:     search.DefaultPage,
		PageSize: h.defaultPageSize,
	}

	latStr := params.Get("lat")
	lngStr := params.Get("lng")
	if (latStr == "") != (lngStr == "") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "lat and lng must be provided together")
		return
	}
	if latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid lat")
			return
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid lng")
			return
		}
		point := geo.Point{Lat: lat, Lng: lng}
		if !point.Valid() {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "lat must be in [-90,90] and lng in [-180,180]")
			return
		}
		q.UserLocation = &point
	}

	if radiusStr := params.Get("radius"); radiusStr != "" {
		radius, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil || radius <= 0 || radius > MaxRadiusKm {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "radius must be a number in (0, 500]")
			return
		}
		q.RadiusKm = radius
	}

	if trustStr := params.Get("minTrustScore"); trustStr != "" {
		trust, err := strconv.Atoi(trustStr)
		if err != nil || trust < 0 || trust > 100 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "minTrustScore must be an integer in [0, 100]")
			return
		}
		q.MinTrustScore = &trust
	}

	if pageStr := params.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "page must be an integer >= 1")
			return
		}
		q.Page = page
	}

	if sizeStr := params.Get("pageSize"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size < 1 || size > search.MaxPageSize {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "pageSize must be an integer in [1, 20]")
			return
		}
		q.PageSize = size
	}

	resp, err := h.svc.Search(r.Context(), q)
	if err != nil {
		h.logger.Error("search failed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Search is temporarily unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode search response", "error", err)
	}
}
