package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// CategoryHandler serves category leaderboard pages.
type CategoryHandler struct {
	reader Reader
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(reader Reader) *CategoryHandler {
	return &CategoryHandler{reader: reader}
}

type categoryQuery struct {
	CategoryID string `validate:"required,max=128"`
	Page       int    `validate:"gte=1"`
	Limit      int    `validate:"gte=1"`
}

// HandleGetCategory handles GET /explore/categories/{categoryID}?page=P&limit=N.
func (h *CategoryHandler) HandleGetCategory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_category"
	q := categoryQuery{CategoryID: chi.URLParam(r, "categoryID"), Page: 1, Limit: h.reader.DefaultLimit()}

	var err error
	if v := r.URL.Query().Get("page"); v != "" {
		if q.Page, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("page: %w", err)))
			return
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("limit: %w", err)))
			return
		}
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validate.Var(q.Limit, "lte="+strconv.Itoa(h.reader.MaxLimit())); err != nil {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	writeJSON(w, http.StatusOK, h.reader.CategoryPage(r.Context(), q.CategoryID, q.Page, q.Limit))
}
