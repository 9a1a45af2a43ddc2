// AngelaMos | 2026
// handler.go

package identity

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/middleware"
	"github.com/carterperez-dev/vidshelf/internal/model"
	"github.com/carterperez-dev/vidshelf/internal/store"
)

type Handler struct {
	repo        store.Repository
	tokenCookie string
	secure      bool
}

func NewHandler(repo store.Repository, tokenCookie string, secure bool) *Handler {
	return &Handler{repo: repo, tokenCookie: tokenCookie, secure: secure}
}

type MeResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type LogoutResponse struct {
	Message   string  `json:"message"`
	LogoutURL *string `json:"logoutUrl"`
}

func ToMeResponse(a *model.Account) MeResponse {
	return MeResponse{
		ID:          a.ID,
		Email:       a.Email,
		Username:    a.Username,
		Name:        a.Name,
		DisplayName: a.DisplayName,
		Role:        a.Role,
	}
}

// RegisterRoutes mounts /auth. Logout works without an identity so a
// client can always clear its cookie.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.With(authenticator).Get("/me", h.GetMe)
		r.Post("/logout", h.Logout)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		core.JSONError(w, core.UnauthorizedError("authentication required"))
		return
	}

	core.OK(w, ToMeResponse(account))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.tokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	resp := LogoutResponse{Message: "logged out"}

	doc, err := h.repo.Load(r.Context())
	if err != nil {
		core.HandleError(w, err)
		return
	}
	if url := doc.Settings.LogoutRedirectURL; url != "" {
		resp.LogoutURL = &url
	}

	core.OK(w, resp)
}
