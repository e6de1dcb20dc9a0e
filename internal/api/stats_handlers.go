package api

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"github.com/confirmit/marketd/internal/listing"
	"github.com/confirmit/marketd/internal/middleware"
)

// StatsHandlers serves aggregate marketplace figures.
type StatsHandlers struct {
	repo   listing.Repository
	logger *slog.Logger
}

// NewStatsHandlers creates a new StatsHandlers instance.
func NewStatsHandlers(repo listing.Repository, logger *slog.Logger) *StatsHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandlers{repo: repo, logger: logger}
}

// StatsResponse is the body of GET /marketplace/stats. Figures are derived
// from a live scan of active listings and are approximate under concurrent
// writes.
type StatsResponse struct {
	ActiveListings int     `json:"activeListings"`
	AverageRating  float64 `json:"averageRating"`
	VerifiedShare  float64 `json:"verifiedShare"`
	TotalViews     int64   `json:"totalViews"`
}

// GetStats handles GET /marketplace/stats.
func (h *StatsHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeValidation, "Method not allowed")
		return
	}

	active, err := h.repo.FetchActive(r.Context(), "")
	if err != nil {
		h.logger.Error("failed to load listings for stats", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Stats are temporarily unavailable")
		return
	}

	resp := StatsResponse{ActiveListings: len(active)}

	var ratingSum float64
	var rated, verified int
	for _, l := range active {
		if l.Rating > 0 {
			ratingSum += l.Rating
			rated++
		}
		if l.Verification.Verified {
			verified++
		}
		resp.TotalViews += l.Marketplace.Analytics.Views
	}
	if rated > 0 {
		resp.AverageRating = math.Round(ratingSum/float64(rated)*10) / 10
	}
	if len(active) > 0 {
		resp.VerifiedShare = math.Round(float64(verified)/float64(len(active))*100) / 100
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode stats response", "error", err)
	}
}
