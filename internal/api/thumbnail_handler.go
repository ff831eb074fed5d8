package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/api/shared"
	"github.com/framefoundry/thumbgen-api/internal/service"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// maxBatchStatusIDs bounds how many IDs a single batch-status request may
// name, keeping the IN clause behind it reasonable.
const maxBatchStatusIDs = 100

// ThumbnailHandler handles thumbnail-related HTTP requests
type ThumbnailHandler struct {
	thumbnailService service.ThumbnailService
	validator        *validator.Validate
}

// NewThumbnailHandler creates a new ThumbnailHandler
func NewThumbnailHandler(thumbnailService service.ThumbnailService) *ThumbnailHandler {
	return &ThumbnailHandler{
		thumbnailService: thumbnailService,
		validator:        validator.New(),
	}
}

// GenerateThumbnails handles POST /api/thumbnails/generate requests.
// It creates the batch synchronously and responds 202 Accepted; image
// rendering continues in the background.
func (h *ThumbnailHandler) GenerateThumbnails(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req GenerateThumbnailsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	thumbnailIDs, err := h.thumbnailService.GenerateBatch(r.Context(), req.TitleID, req.Quantity)
	if err != nil {
		slog.Error("failed to generate thumbnail batch",
			"error", err,
			"user_id", userID,
			"title_id", req.TitleID)
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	// An empty batch is still accepted: every concept attempt failed, but
	// the title remains intact and the client may simply retry.
	shared.RespondWithJSON(w, r, http.StatusAccepted, GenerateThumbnailsResponse{
		ThumbnailIDs: thumbnailIDs,
	})
}

// RegenerateThumbnail handles POST /api/thumbnails/regenerate requests.
// The existing row is re-rendered from its original concept; no new row
// is created.
func (h *ThumbnailHandler) RegenerateThumbnail(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req RegenerateThumbnailRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	receipt, err := h.thumbnailService.Regenerate(r.Context(), req.TitleID, req.ThumbnailID)
	if err != nil {
		slog.Error("failed to regenerate thumbnail",
			"error", err,
			"user_id", userID,
			"title_id", req.TitleID,
			"thumbnail_id", req.ThumbnailID)
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, RegenerateThumbnailResponse{
		ThumbnailID: receipt.ThumbnailID,
		TitleID:     receipt.TitleID,
		IdeaID:      receipt.IdeaID,
		Summary:     receipt.Summary,
	})
}

// GetThumbnails handles GET /api/thumbnails/{titleID} requests. Optional
// offset and limit query parameters restrict the newest-first listing to a
// window, which lets a client poll only the batch it just created.
func (h *ThumbnailHandler) GetThumbnails(w http.ResponseWriter, r *http.Request) {
	if _, ok := getUserIDFromContext(r); !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	titleID, err := getPathUUID(r, "titleID")
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), "Invalid title ID")
		return
	}

	window, err := parseWindow(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.thumbnailService.GetThumbnails(r.Context(), titleID, window)
	if err != nil {
		slog.Error("failed to fetch thumbnail statuses",
			"error", err,
			"title_id", titleID)
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

// GetThumbnailsBatch handles GET /api/thumbnails/batch/{ids} requests, where
// ids is a comma-separated list of thumbnail UUIDs.
func (h *ThumbnailHandler) GetThumbnailsBatch(w http.ResponseWriter, r *http.Request) {
	if _, ok := getUserIDFromContext(r); !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	rawIDs := chi.URLParam(r, "ids")
	ids, err := parseIDList(rawIDs)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.thumbnailService.GetThumbnailsByIDs(r.Context(), ids)
	if err != nil {
		slog.Error("failed to fetch thumbnail batch statuses",
			"error", err,
			"id_count", len(ids))
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

// parseWindow reads the optional offset/limit query parameters. Both must be
// present to form a window; a lone offset or limit is rejected rather than
// guessed at.
func parseWindow(r *http.Request) (*store.Window, error) {
	offsetRaw := r.URL.Query().Get("offset")
	limitRaw := r.URL.Query().Get("limit")
	if offsetRaw == "" && limitRaw == "" {
		return nil, nil
	}
	if offsetRaw == "" || limitRaw == "" {
		return nil, errInvalidWindow
	}

	offset, err := strconv.Atoi(offsetRaw)
	if err != nil || offset < 0 {
		return nil, errInvalidWindow
	}
	limit, err := strconv.Atoi(limitRaw)
	if err != nil || limit <= 0 {
		return nil, errInvalidWindow
	}

	return &store.Window{Offset: offset, Limit: limit}, nil
}

// parseIDList splits a comma-separated list of UUIDs, ignoring empty
// segments from trailing commas.
func parseIDList(raw string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, errInvalidIDList
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errInvalidIDList
	}
	if len(ids) > maxBatchStatusIDs {
		return nil, errTooManyIDs
	}
	return ids, nil
}
