// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"net/http"
	"strconv"

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

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.List)
		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Patch("/role", h.ChangeRole)
			r.Patch("/profile", h.EditProfile)
		})
	})
}

// List pages through accounts, filtered by ?search= and ?role=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListUsersParams{
		Page:     queryInt(q.Get("page"), 1),
		PageSize: queryInt(q.Get("pageSize"), defaultPageSize),
		Search:   q.Get("search"),
		Role:     q.Get("role"),
	}

	accounts, total, err := h.service.ListUsers(r.Context(), middleware.GetAccount(r.Context()), params)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	params.Normalize()
	core.Paginated(w, ToUserResponseList(accounts), params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetUser(
		r.Context(),
		middleware.GetAccount(r.Context()),
		chi.URLParam(r, "userID"),
	)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, ToUserResponse(account))
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRoleRequest
	if !h.bind(w, r, &req) {
		return
	}

	account, err := h.service.UpdateUserRole(
		r.Context(),
		middleware.GetAccount(r.Context()),
		chi.URLParam(r, "userID"),
		req.Role,
	)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, ToUserResponse(account))
}

func (h *Handler) EditProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !h.bind(w, r, &req) {
		return
	}

	account, err := h.service.UpdateProfile(
		r.Context(),
		middleware.GetAccount(r.Context()),
		chi.URLParam(r, "userID"),
		req,
	)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, ToUserResponse(account))
}

// Delete removes the account record. Videos it uploaded stay in the
// catalog under the recorded uploader name.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteUser(
		r.Context(),
		middleware.GetAccount(r.Context()),
		chi.URLParam(r, "userID"),
	)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.NoContent(w)
}

// bind decodes and validates a JSON body, writing a 400 and returning
// false when either step fails.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
