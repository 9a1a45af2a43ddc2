// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/model"
)

const AccountKey contextKey = "account"

// IdentityResolver turns the identity asserted on a request into an
// account, provisioning it on first sight.
type IdentityResolver interface {
	ResolveRequest(r *http.Request) (*model.Account, error)
}

// Authenticator resolves the caller on every request and rejects the
// request with 401 when no identity can be established.
func Authenticator(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := resolver.ResolveRequest(r)
			if err != nil {
				core.HandleError(w, err)
				return
			}

			ctx := WithAccount(r.Context(), account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the account when one can be resolved. Requests
// without an identity continue anonymously; any other resolver failure,
// such as an unreadable catalog, is reported as is.
func OptionalAuth(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := resolver.ResolveRequest(r)
			switch {
			case err == nil:
				r = r.WithContext(WithAccount(r.Context(), account))
			case !errors.Is(err, core.ErrUnauthorized):
				core.HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func WithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, AccountKey, account)
}

func GetAccount(ctx context.Context) *model.Account {
	if account, ok := ctx.Value(AccountKey).(*model.Account); ok {
		return account
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if account := GetAccount(ctx); account != nil {
		return account.ID
	}
	return ""
}
