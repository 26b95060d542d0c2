package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dicilo-app/dicilo/internal/model"
	"github.com/dicilo-app/dicilo/internal/revalidate"
	"github.com/dicilo-app/dicilo/internal/store"
)

type BusinessHandler struct {
	businesses *store.BusinessStore
	categories *store.CategoryStore
	hub        *revalidate.Hub
	logger     *slog.Logger
}

func NewBusinessHandler(bs *store.BusinessStore, cs *store.CategoryStore, hub *revalidate.Hub, logger *slog.Logger) *BusinessHandler {
	return &BusinessHandler{businesses: bs, categories: cs, hub: hub, logger: logger}
}

func (h *BusinessHandler) broadcast(action, id string) {
	if h.hub != nil {
		h.hub.Broadcast(revalidate.Hint{
			Entity: "business",
			Action: action,
			ID:     id,
			Paths:  []string{"/", "/directory"},
		})
	}
}

type businessRequest struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	CategoryID  *string `json:"category_id"`
	City        string  `json:"city"`
	Address     string  `json:"address"`
	PostalCode  string  `json:"postal_code"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Website     string  `json:"website"`
	Active      bool    `json:"active"`
}

func (r businessRequest) input() store.BusinessInput {
	return store.BusinessInput{
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		CategoryID:  r.CategoryID,
		City:        r.City,
		Address:     r.Address,
		PostalCode:  r.PostalCode,
		Email:       r.Email,
		Phone:       r.Phone,
		Website:     r.Website,
		Active:      r.Active,
	}
}

// slugify derives a URL slug from a name when none was supplied.
func slugify(s string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func (h *BusinessHandler) validate(req *businessRequest, w http.ResponseWriter) bool {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return false
	}
	if req.Slug == "" {
		req.Slug = slugify(req.Name)
	}

	if req.CategoryID != nil {
		cat, err := h.categories.GetByID(*req.CategoryID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check category")
			return false
		}
		if cat == nil {
			writeError(w, http.StatusBadRequest, "category does not exist")
			return false
		}
	}
	return true
}

func (h *BusinessHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req businessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !h.validate(&req, w) {
		return
	}

	business, err := h.businesses.Create(req.input())
	if err != nil {
		h.logger.Error("create business", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create business")
		return
	}

	h.broadcast("created", business.ID)
	writeJSON(w, http.StatusCreated, business)
}

func (h *BusinessHandler) Get(w http.ResponseWriter, r *http.Request) {
	business, err := h.businesses.GetByID(pathID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get business")
		return
	}
	if business == nil {
		writeError(w, http.StatusNotFound, "business not found")
		return
	}
	writeJSON(w, http.StatusOK, business)
}

// List serves the public directory search.
func (h *BusinessHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.SearchFilter{
		Query:      q.Get("q"),
		CategoryID: q.Get("category"),
		City:       q.Get("city"),
		ActiveOnly: q.Get("include_inactive") != "true",
	}

	businesses, err := h.businesses.Search(filter)
	if err != nil {
		h.logger.Error("search businesses", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list businesses")
		return
	}
	if businesses == nil {
		businesses = []model.Business{}
	}
	writeJSON(w, http.StatusOK, businesses)
}

func (h *BusinessHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	existing, err := h.businesses.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get business")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "business not found")
		return
	}

	var req businessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !h.validate(&req, w) {
		return
	}

	business, err := h.businesses.Update(id, req.input())
	if err != nil {
		h.logger.Error("update business", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update business")
		return
	}

	h.broadcast("updated", id)
	writeJSON(w, http.StatusOK, business)
}

func (h *BusinessHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	existing, err := h.businesses.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get business")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "business not found")
		return
	}

	if err := h.businesses.Delete(id); err != nil {
		h.logger.Error("delete business", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete business")
		return
	}

	h.broadcast("deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
