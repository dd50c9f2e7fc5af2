package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// SessionCart makes sure every request carries an opaque anonymous cart id,
// issuing a fresh cookie when the client has none or sent garbage.
func SessionCart(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	name := strings.TrimSpace(cfg.CartCookieName)
	if name == "" {
		name = "sessionCartId"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cookie, err := r.Cookie(name); err == nil {
				if _, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
					id = cookie.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    id,
					Path:     "/",
					MaxAge:   int(cfg.CartCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.SecureCookies,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := WithSessionCartID(r.Context(), id)
			if logg != nil {
				ctx = logg.WithField(ctx, "session_cart_id", id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
