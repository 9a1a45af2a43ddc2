// AngelaMos | 2026
// token.go

package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

var ErrTokenInvalid = errors.New("identity token invalid")

// TokenDecoder reads the identity token the access proxy attaches to
// each request.
type TokenDecoder interface {
	Decode(ctx context.Context, raw string) (jwt.Token, error)
}

// InsecureDecoder trusts the proxy to have verified the signature and
// only decodes the payload.
type InsecureDecoder struct{}

func (InsecureDecoder) Decode(_ context.Context, raw string) (jwt.Token, error) {
	token, err := jwt.ParseInsecure([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return token, nil
}

type KeySource interface {
	KeySet(ctx context.Context) (jwk.Set, error)
}

// RemoteKeys fetches the proxy's JWKS and keeps it for refresh. A failed
// refresh keeps serving the last good set.
type RemoteKeys struct {
	url     string
	refresh time.Duration
	client  *http.Client

	mu      sync.Mutex
	set     jwk.Set
	fetched time.Time
}

func NewRemoteKeys(url string, refresh time.Duration) *RemoteKeys {
	if refresh <= 0 {
		refresh = time.Hour
	}
	return &RemoteKeys{
		url:     url,
		refresh: refresh,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (k *RemoteKeys) KeySet(ctx context.Context) (jwk.Set, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.set != nil && time.Since(k.fetched) < k.refresh {
		return k.set, nil
	}

	set, err := jwk.Fetch(ctx, k.url, jwk.WithHTTPClient(k.client))
	if err != nil {
		if k.set != nil {
			return k.set, nil
		}
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	k.set = set
	k.fetched = time.Now()
	return set, nil
}

// Verifier checks the token signature against the proxy's keys and
// validates expiry and audience.
type Verifier struct {
	keys     KeySource
	audience string
}

func NewVerifier(keys KeySource, audience string) *Verifier {
	return &Verifier{keys: keys, audience: audience}
}

func (v *Verifier) Decode(ctx context.Context, raw string) (jwt.Token, error) {
	set, err := v.keys.KeySet(ctx)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKeySet(set, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(true),
		jwt.WithAudience(v.audience),
		jwt.WithAcceptableSkew(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	return token, nil
}

var (
	_ TokenDecoder = InsecureDecoder{}
	_ TokenDecoder = (*Verifier)(nil)
)

func stringClaim(token jwt.Token, name string) string {
	var v string
	if err := token.Get(name, &v); err != nil {
		return ""
	}
	return v
}
