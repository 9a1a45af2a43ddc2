// AngelaMos | 2026
// dto.go

package video

import (
	"time"

	"github.com/carterperez-dev/vidshelf/internal/model"
)

type UpdateVideoRequest struct {
	Title    *string  `json:"title,omitempty"    validate:"omitempty,max=300"`
	Category *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	Tags     []string `json:"tags,omitempty"     validate:"omitempty,max=50,dive,max=50"`
}

func (r UpdateVideoRequest) Patch() Patch {
	return Patch{Title: r.Title, Category: r.Category, Tags: r.Tags}
}

type VideoResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Filename    string     `json:"filename"`
	Path        string     `json:"path"`
	Thumbnail   *string    `json:"thumbnail"`
	ContentType string     `json:"contentType,omitempty"`
	Size        int64      `json:"size,omitempty"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	UploadedBy  string     `json:"uploadedBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	Deleted     bool       `json:"deleted"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

type VideoListResponse struct {
	Videos []VideoResponse `json:"videos"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func ToVideoResponse(v *model.Video) VideoResponse {
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}

	return VideoResponse{
		ID:          v.ID,
		Title:       v.Title,
		Filename:    v.Filename,
		Path:        v.Path,
		Thumbnail:   v.Thumbnail,
		ContentType: v.ContentType,
		Size:        v.Size,
		Category:    v.Category,
		Tags:        tags,
		UploadedBy:  v.UploadedBy,
		CreatedAt:   v.CreatedAt,
		Deleted:     v.Deleted,
		DeletedAt:   v.DeletedAt,
	}
}

func ToVideoResponseList(videos []model.Video) []VideoResponse {
	responses := make([]VideoResponse, 0, len(videos))
	for i := range videos {
		responses = append(responses, ToVideoResponse(&videos[i]))
	}
	return responses
}
