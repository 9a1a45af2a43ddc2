// AngelaMos | 2026
// settings.go

package model

import "strings"

const (
	DefaultAppTitle        = "Video Hosting"
	DefaultMaxUploadSizeMB = 500
)

// Settings are the admin-editable runtime options kept inside the
// catalog document.
type Settings struct {
	RequireSSOAuthentication bool   `json:"requireSsoAuthentication"`
	LogoutRedirectURL        string `json:"logoutRedirectUrl"`
	AppTitle                 string `json:"appTitle"`
	MaxUploadSizeMB          int    `json:"maxUploadSizeMB"`
	DefaultCategory          string `json:"defaultCategory"`

	// Legacy keys written by earlier releases.
	EnableDevMock *bool  `json:"enableDevMock,omitempty"`
	LogoutURL     string `json:"logoutUrl,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		RequireSSOAuthentication: false,
		AppTitle:                 DefaultAppTitle,
		MaxUploadSizeMB:          DefaultMaxUploadSizeMB,
		DefaultCategory:          DefaultCategory,
	}
}

// Normalize migrates legacy keys and fills blanks with defaults.
func (s *Settings) Normalize() {
	if s.EnableDevMock != nil {
		s.RequireSSOAuthentication = !*s.EnableDevMock
		s.EnableDevMock = nil
	}
	if s.LogoutURL != "" {
		if s.LogoutRedirectURL == "" {
			s.LogoutRedirectURL = s.LogoutURL
		}
		s.LogoutURL = ""
	}
	if strings.TrimSpace(s.AppTitle) == "" {
		s.AppTitle = DefaultAppTitle
	}
	if s.MaxUploadSizeMB <= 0 {
		s.MaxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	if strings.TrimSpace(s.DefaultCategory) == "" {
		s.DefaultCategory = DefaultCategory
	}
}

func (s *Settings) MaxUploadBytes() int64 {
	return int64(s.MaxUploadSizeMB) << 20
}

func (s Settings) clone() Settings {
	c := s
	if s.EnableDevMock != nil {
		v := *s.EnableDevMock
		c.EnableDevMock = &v
	}
	return c
}
