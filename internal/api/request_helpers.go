package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-review/internal/domain"
)

// Path and query parameter names.
const (
	learnerIDParam = "learnerID"
	itemIDParam    = "itemID"
	limitParam     = "limit"
	catalogParam   = "item"
)

var (
	errInvalidLearnerID = errors.New("learner ID must be a UUID")
	errInvalidLimit     = errors.New("limit must be a non-negative integer")
)

// getLearnerID parses the learner UUID from the URL path.
func getLearnerID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, learnerIDParam)
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, domain.NewValidationError(learnerIDParam, errInvalidLearnerID)
	}
	return id, nil
}

// getItemID returns the unescaped item ID from the URL path.
func getItemID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, itemIDParam)
	itemID, err := url.PathUnescape(raw)
	if err != nil {
		return "", domain.NewValidationError(itemIDParam, fmt.Errorf("%w: %v", domain.ErrEmptyItemID, err))
	}
	if itemID == "" {
		return "", domain.NewValidationError(itemIDParam, domain.ErrEmptyItemID)
	}
	return itemID, nil
}

// getLimit parses the optional limit query parameter; absent means 0 (all).
func getLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get(limitParam)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, domain.NewValidationError(limitParam, errInvalidLimit)
	}
	return limit, nil
}

// getCatalog returns the repeated item query parameters, skipping empty values.
func getCatalog(r *http.Request) []string {
	values := r.URL.Query()[catalogParam]
	catalog := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			catalog = append(catalog, v)
		}
	}
	return catalog
}
