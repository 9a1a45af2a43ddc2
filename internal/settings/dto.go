// AngelaMos | 2026
// dto.go

package settings

import "github.com/carterperez-dev/vidshelf/internal/model"

type UpdateSettingsRequest struct {
	RequireSSOAuthentication *bool   `json:"requireSsoAuthentication,omitempty"`
	LogoutRedirectURL        *string `json:"logoutRedirectUrl,omitempty" validate:"omitempty,max=2048"`
	AppTitle                 *string `json:"appTitle,omitempty"          validate:"omitempty,max=120"`
	MaxUploadSizeMB          *int    `json:"maxUploadSizeMB,omitempty"`
	DefaultCategory          *string `json:"defaultCategory,omitempty"   validate:"omitempty,max=100"`
}

func (r UpdateSettingsRequest) Patch() Patch {
	return Patch{
		RequireSSOAuthentication: r.RequireSSOAuthentication,
		LogoutRedirectURL:        r.LogoutRedirectURL,
		AppTitle:                 r.AppTitle,
		MaxUploadSizeMB:          r.MaxUploadSizeMB,
		DefaultCategory:          r.DefaultCategory,
	}
}

type SettingsResponse struct {
	RequireSSOAuthentication bool   `json:"requireSsoAuthentication"`
	LogoutRedirectURL        string `json:"logoutRedirectUrl"`
	AppTitle                 string `json:"appTitle"`
	MaxUploadSizeMB          int    `json:"maxUploadSizeMB"`
	DefaultCategory          string `json:"defaultCategory"`
}

// PublicConfigResponse is the subset the client UI may read anonymously.
type PublicConfigResponse struct {
	AppTitle        string `json:"appTitle"`
	MaxUploadSizeMB int    `json:"maxUploadSizeMB"`
	DefaultCategory string `json:"defaultCategory"`
}

func ToSettingsResponse(s model.Settings) SettingsResponse {
	return SettingsResponse{
		RequireSSOAuthentication: s.RequireSSOAuthentication,
		LogoutRedirectURL:        s.LogoutRedirectURL,
		AppTitle:                 s.AppTitle,
		MaxUploadSizeMB:          s.MaxUploadSizeMB,
		DefaultCategory:          s.DefaultCategory,
	}
}

func ToPublicConfig(s model.Settings) PublicConfigResponse {
	return PublicConfigResponse{
		AppTitle:        s.AppTitle,
		MaxUploadSizeMB: s.MaxUploadSizeMB,
		DefaultCategory: s.DefaultCategory,
	}
}
