package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// PromptDetails carries the generation context of one thumbnail so a client
// can show how the image came to be without extra round trips.
type PromptDetails struct {
	Summary         string      `json:"summary"`
	Title           string      `json:"title"`
	Instructions    string      `json:"instructions"`
	ReferenceCount  int         `json:"reference_count"`
	ReferenceImages []uuid.UUID `json:"reference_images"`
	FullPrompt      string      `json:"full_prompt"`
}

// ThumbnailStatus is the canonical status record the polling surface
// returns: one per thumbnail, every field always present.
type ThumbnailStatus struct {
	ID            uuid.UUID              `json:"id"`
	TitleID       uuid.UUID              `json:"title_id"`
	IdeaID        uuid.UUID              `json:"idea_id"`
	Status        domain.ThumbnailStatus `json:"status"`
	ImageURL      string                 `json:"image_url"`
	ErrorMessage  string                 `json:"error_message"`
	CreatedAt     time.Time              `json:"created_at"`
	Summary       string                 `json:"summary"`
	PromptDetails PromptDetails          `json:"prompt_details"`
}

// StatusPage is one status query result: the per-thumbnail records plus a
// side map from reference-image ID to image payload, resolved once per
// query so a reference shared by many thumbnails ships a single time.
type StatusPage struct {
	Items        []*ThumbnailStatus   `json:"items"`
	ReferenceMap map[uuid.UUID]string `json:"reference_map"`
}

// GetThumbnails implements ThumbnailService.GetThumbnails
func (s *thumbnailServiceImpl) GetThumbnails(
	ctx context.Context,
	titleID uuid.UUID,
	window *store.Window,
) (*StatusPage, error) {
	if _, err := s.titles.GetByID(ctx, titleID); err != nil {
		if errors.Is(err, store.ErrTitleNotFound) {
			return nil, ErrTitleNotFound
		}
		return nil, NewThumbnailServiceError("get_thumbnails", "failed to load title", err)
	}

	rows, err := s.thumbnails.ListByTitle(ctx, titleID, window)
	if err != nil {
		return nil, NewThumbnailServiceError("get_thumbnails", "failed to list thumbnails", err)
	}

	return s.buildStatusPage(ctx, rows), nil
}

// GetThumbnailsByIDs implements ThumbnailService.GetThumbnailsByIDs
// Unknown IDs are silently omitted from the result.
func (s *thumbnailServiceImpl) GetThumbnailsByIDs(
	ctx context.Context,
	ids []uuid.UUID,
) (*StatusPage, error) {
	rows, err := s.thumbnails.ListByIDs(ctx, ids)
	if err != nil {
		return nil, NewThumbnailServiceError("get_thumbnails_by_ids", "failed to list thumbnails", err)
	}

	return s.buildStatusPage(ctx, rows), nil
}

// buildStatusPage turns denormalized store rows into the response shape.
// Reference resolution is best-effort throughout: a malformed
// used_reference_ids column skips that row's references only, and a failed
// bulk reference fetch degrades to an empty map rather than failing the
// whole query.
func (s *thumbnailServiceImpl) buildStatusPage(
	ctx context.Context,
	rows []*store.ThumbnailStatusRow,
) *StatusPage {
	page := &StatusPage{
		Items:        make([]*ThumbnailStatus, 0, len(rows)),
		ReferenceMap: make(map[uuid.UUID]string),
	}
	if len(rows) == 0 {
		return page
	}

	rowRefIDs := make(map[uuid.UUID][]uuid.UUID, len(rows))
	seen := make(map[uuid.UUID]bool)
	unique := make([]uuid.UUID, 0)
	for _, row := range rows {
		refIDs, err := decodeRowReferenceIDs(row.RawReferenceIDs)
		if err != nil {
			s.logger.Warn("malformed used_reference_ids, skipping row's references",
				"thumbnail_id", row.ID,
				"error", err)
			continue
		}
		rowRefIDs[row.ID] = refIDs
		for _, id := range refIDs {
			if !seen[id] {
				seen[id] = true
				unique = append(unique, id)
			}
		}
	}

	if len(unique) > 0 {
		refs, err := s.references.GetByIDs(ctx, unique)
		if err != nil {
			s.logger.Error("failed to resolve reference images, proceeding without",
				"count", len(unique),
				"error", err)
		} else {
			for _, ref := range refs {
				page.ReferenceMap[ref.ID] = ref.ImageData
			}
		}
	}

	for _, row := range rows {
		// Only references that actually resolved count; a recorded ID whose
		// image has since been deleted drops out here.
		resolved := make([]uuid.UUID, 0, len(rowRefIDs[row.ID]))
		for _, id := range rowRefIDs[row.ID] {
			if _, ok := page.ReferenceMap[id]; ok {
				resolved = append(resolved, id)
			}
		}

		page.Items = append(page.Items, &ThumbnailStatus{
			ID:           row.ID,
			TitleID:      row.TitleID,
			IdeaID:       row.IdeaID,
			Status:       row.Status,
			ImageURL:     row.ImageURL,
			ErrorMessage: row.ErrorMessage,
			CreatedAt:    row.CreatedAt,
			Summary:      row.Summary,
			PromptDetails: PromptDetails{
				Summary:         row.Summary,
				Title:           row.TitleName,
				Instructions:    row.TitleInstructions,
				ReferenceCount:  len(resolved),
				ReferenceImages: resolved,
				FullPrompt:      row.FullPrompt,
			},
		})
	}

	return page
}

// decodeRowReferenceIDs parses a used_reference_ids column, dropping null
// entries the way older writers sometimes produced them.
func decodeRowReferenceIDs(raw []byte) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var parsed []*uuid.UUID
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(parsed))
	for _, id := range parsed {
		if id != nil && *id != uuid.Nil {
			ids = append(ids, *id)
		}
	}
	return ids, nil
}
