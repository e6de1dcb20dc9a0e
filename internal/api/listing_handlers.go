package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/confirmit/marketd/internal/analytics"
	"github.com/confirmit/marketd/internal/auth"
	"github.com/confirmit/marketd/internal/geo"
	"github.com/confirmit/marketd/internal/listing"
	"github.com/confirmit/marketd/internal/middleware"
	"github.com/confirmit/marketd/internal/validate"
)

// ListingHandlers holds dependencies for the per-business endpoints.
type ListingHandlers struct {
	repo    listing.Repository
	tracker *analytics.Tracker
	jwt     *auth.JWTService
	logger  *slog.Logger
}

// NewListingHandlers creates a new ListingHandlers instance.
func NewListingHandlers(repo listing.Repository, tracker *analytics.Tracker, jwt *auth.JWTService, logger *slog.Logger) *ListingHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingHandlers{
		repo:    repo,
		tracker: tracker,
		jwt:     jwt,
		logger:  logger,
	}
}

// BusinessResponse is a full listing plus derived display fields.
type BusinessResponse struct {
	*listing.Listing
	GeoCell string `json:"geoCell,omitempty"`
}

// TrackActionRequest is the body of POST /marketplace/business/{id}/action.
type TrackActionRequest struct {
	Action   string            `json:"action"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TrackActionResponse confirms a recorded action.
type TrackActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ServeHTTP dispatches /marketplace/business/{id} and
// /marketplace/business/{id}/action.
func (h *ListingHandlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/marketplace/business/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Business ID is required")
		return
	}
	id := pathParts[0]

	switch {
	case len(pathParts) == 1 && r.Method == http.MethodGet:
		h.getBusiness(w, r, id)
	case len(pathParts) == 1 && r.Method == http.MethodPatch:
		h.patchBusiness(w, r, id)
	case len(pathParts) == 2 && pathParts[1] == "action" && r.Method == http.MethodPost:
		h.trackAction(w, r, id)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Not found")
	}
}

// getBusiness handles GET /marketplace/business/{id}. The view counter
// increment is best effort and never fails the read.
func (h *ListingHandlers) getBusiness(w http.ResponseWriter, r *http.Request, id string) {
	l, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Business not found")
			return
		}
		h.logger.Error("failed to load business", "listing_id", id, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load business")
		return
	}

	h.tracker.RecordViewBestEffort(r.Context(), id)

	resp := BusinessResponse{Listing: l}
	if coords := l.Coordinates(); coords != nil {
		resp.GeoCell = geo.EncodeCell(*coords, geo.CellPrecision)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode business response", "error", err)
	}
}

// patchBusiness handles PATCH /marketplace/business/{id}. Requires a token
// whose subject owns the listing, or the admin scope.
func (h *ListingHandlers) patchBusiness(w http.ResponseWriter, r *http.Request, id string) {
	token, err := auth.BearerToken(r)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid token")
		return
	}

	l, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Business not found")
			return
		}
		h.logger.Error("failed to load business", "listing_id", id, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load business")
		return
	}

	if !claims.Admin() && (l.OwnerID == "" || claims.Subject != l.OwnerID) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "You do not own this business")
		return
	}

	var patch listing.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid JSON in request body")
		return
	}
	if patch.Empty() {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "At least one profile field is required")
		return
	}
	if patch.Location != nil && patch.Location.Coordinates != nil && !patch.Location.Coordinates.Valid() {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Coordinates out of range")
		return
	}
	if msg := sanitizePatch(&patch); msg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, msg)
		return
	}

	if err := h.repo.UpdateProfile(r.Context(), id, patch); err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Business not found")
			return
		}
		h.logger.Error("failed to update profile", "listing_id", id, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update profile")
		return
	}

	updated, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to reload business after update", "listing_id", id, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load updated business")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(updated); err != nil {
		h.logger.Error("failed to encode business response", "error", err)
	}
}

// sanitizePatch validates and sanitizes the free-text and link fields of a
// profile patch in place. Returns a user-facing message on failure, or ""
// when the patch is acceptable.
func sanitizePatch(patch *listing.ProfilePatch) string {
	if patch.Tagline != nil {
		tagline, err := validate.Tagline(*patch.Tagline)
		if err != nil {
			return "tagline must be at most 200 characters"
		}
		patch.Tagline = &tagline
	}
	if patch.Description != nil {
		desc, err := validate.Description(*patch.Description)
		if err != nil {
			return "description must be at most 5000 characters"
		}
		patch.Description = &desc
	}
	if website, ok := patch.Contact["website"]; ok && website != nil && *website != "" {
		checked, err := validate.WebsiteURL(*website)
		if err != nil {
			return "website must be a public http(s) URL"
		}
		patch.Contact["website"] = &checked
	}
	return ""
}

// trackAction handles POST /marketplace/business/{id}/action.
func (h *ListingHandlers) trackAction(w http.ResponseWriter, r *http.Request, id string) {
	var req TrackActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid JSON in request body")
		return
	}

	action, err := analytics.ParseAction(req.Action)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidAction)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidAction, "Unknown action kind")
		return
	}

	if err := h.tracker.Record(r.Context(), id, action); err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Business not found")
			return
		}
		h.logger.Error("failed to record action", "listing_id", id, "action", action, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record action")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	resp := TrackActionResponse{Success: true, Message: "Action recorded"}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode action response", "error", err)
	}
}
