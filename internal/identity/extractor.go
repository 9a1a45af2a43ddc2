// AngelaMos | 2026
// extractor.go

package identity

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/carterperez-dev/vidshelf/internal/config"
)

// Assertion is what the access proxy says about the caller. Name is a
// display name hint taken from the identity token, if any.
type Assertion struct {
	Email string
	Name  string
}

var nameClaims = []string{"name", "common_name", "given_name"}

type Extractor struct {
	emailHeader string
	tokenCookie string
	tokenHeader string
	decoder     TokenDecoder
	logger      *slog.Logger
}

func NewExtractor(cfg config.IdentityConfig, decoder TokenDecoder, logger *slog.Logger) *Extractor {
	if decoder == nil {
		decoder = InsecureDecoder{}
	}
	return &Extractor{
		emailHeader: cfg.EmailHeader,
		tokenCookie: cfg.TokenCookie,
		tokenHeader: cfg.TokenHeader,
		decoder:     decoder,
		logger:      logger,
	}
}

// Extract reads the email header and, when present, the identity token.
// The token fills in a missing email and supplies the name hint. A token
// that cannot be decoded is ignored.
func (e *Extractor) Extract(r *http.Request) Assertion {
	a := Assertion{Email: strings.TrimSpace(r.Header.Get(e.emailHeader))}

	raw := e.rawToken(r)
	if raw == "" {
		return a
	}

	token, err := e.decoder.Decode(r.Context(), raw)
	if err != nil {
		e.logger.Debug("ignoring identity token", "error", err)
		return a
	}

	email := strings.TrimSpace(stringClaim(token, "email"))
	if email == "" {
		return a
	}
	if a.Email == "" {
		a.Email = email
	}

	for _, claim := range nameClaims {
		if name := strings.TrimSpace(stringClaim(token, claim)); name != "" {
			a.Name = name
			break
		}
	}

	return a
}

func (e *Extractor) rawToken(r *http.Request) string {
	if e.tokenCookie != "" {
		if c, err := r.Cookie(e.tokenCookie); err == nil && c.Value != "" {
			return c.Value
		}
	}
	if e.tokenHeader != "" {
		return strings.TrimSpace(r.Header.Get(e.tokenHeader))
	}
	return ""
}
