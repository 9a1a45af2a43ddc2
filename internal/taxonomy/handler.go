// AngelaMos | 2026
// handler.go

package taxonomy

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the public listings and the admin mutations. The
// authenticator must already be installed on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/categories", h.ListCategories)
	r.Post("/categories", h.AddCategory)
	r.Put("/categories/{name}", h.RenameCategory)
	r.Delete("/categories/{name}", h.DeleteCategory)

	r.Get("/tags", h.ListTags)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, CategoryListResponse{Categories: categories})
}

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, TagListResponse{Tags: tags})
}

func (h *Handler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	actor := middleware.GetAccount(r.Context())
	categories, err := h.service.AddCategory(r.Context(), actor, req.Name)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.Created(w, CategoryListResponse{Categories: categories})
}

func (h *Handler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	name, ok := categoryParam(w, r)
	if !ok {
		return
	}

	var req RenameCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	actor := middleware.GetAccount(r.Context())
	categories, err := h.service.RenameCategory(r.Context(), actor, name, req.NewName)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, CategoryListResponse{Categories: categories})
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	name, ok := categoryParam(w, r)
	if !ok {
		return
	}

	actor := middleware.GetAccount(r.Context())
	categories, err := h.service.DeleteCategory(r.Context(), actor, name)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, CategoryListResponse{Categories: categories})
}

// categoryParam returns the {name} segment decoded exactly once. chi
// routes on r.URL.RawPath when it is set, and only then is the segment
// still escaped.
func categoryParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			core.BadRequest(w, "invalid category name")
			return "", false
		}
		name = unescaped
	}
	if name == "" {
		core.BadRequest(w, "invalid category name")
		return "", false
	}
	return name, true
}
