// AngelaMos | 2026
// handler.go

package video

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/middleware"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to a temporary file.
const multipartMemory = 32 << 20

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

// RegisterRoutes mounts the catalog routes. uploadLimit wraps the upload
// endpoint only; every other route keeps the server wide body limit.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	uploadLimit func(http.Handler) http.Handler,
) {
	r.With(uploadLimit).Post("/upload", h.Upload)

	r.Route("/videos", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/trash", h.ListTrash)
		r.Get("/{videoID}", h.Get)
		r.Patch("/{videoID}", h.Update)
		r.Delete("/{videoID}", h.SoftDelete)
		r.Patch("/{videoID}/restore", h.Restore)
		r.Delete("/{videoID}/permanent", h.Purge)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		State:    StateActive,
		Uploader: q.Get("uploader"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
	}

	videos, err := h.service.List(r.Context(), middleware.GetAccount(r.Context()), filter)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, VideoListResponse{Videos: ToVideoResponseList(videos)})
}

func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	filter := Filter{State: StateTrashed}

	videos, err := h.service.List(r.Context(), middleware.GetAccount(r.Context()), filter)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, VideoListResponse{Videos: ToVideoResponseList(videos)})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "videoID")

	v, err := h.service.Get(r.Context(), middleware.GetAccount(r.Context()), id)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, ToVideoResponse(v))
}

// Upload accepts multipart/form-data with the file in "video" and the
// optional fields "title", "category" and "tags" (a JSON array).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			core.JSONError(w, core.PayloadTooLargeError("upload exceeds the size limit"))
			return
		}
		core.BadRequest(w, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("video")
	if err != nil {
		core.BadRequest(w, "no file uploaded")
		return
	}
	defer func() { _ = file.Close() }()

	tags, err := parseTags(r.FormValue("tags"))
	if err != nil {
		core.BadRequest(w, "tags must be a JSON array of strings")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	in := UploadInput{
		OriginalName: filepath.Base(header.Filename),
		ContentType:  contentType,
		Size:         header.Size,
		Body:         file,
		Title:        r.FormValue("title"),
		Category:     r.FormValue("category"),
		Tags:         tags,
	}

	v, err := h.service.Upload(r.Context(), middleware.GetAccount(r.Context()), in)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.Created(w, ToVideoResponse(v))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "videoID")

	var req UpdateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	v, err := h.service.Edit(r.Context(), middleware.GetAccount(r.Context()), id, req.Patch())
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, ToVideoResponse(v))
}

func (h *Handler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "videoID")

	if err := h.service.SoftDelete(r.Context(), middleware.GetAccount(r.Context()), id); err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "video moved to trash"})
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "videoID")

	v, err := h.service.Restore(r.Context(), middleware.GetAccount(r.Context()), id)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, ToVideoResponse(v))
}

func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "videoID")

	if err := h.service.Purge(r.Context(), middleware.GetAccount(r.Context()), id); err != nil {
		core.HandleError(w, err)
		return
	}

	core.NoContent(w)
}

func parseTags(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
