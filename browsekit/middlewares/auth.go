// browsekit/middlewares/auth.go
package middlewares

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"browsekit/browsekit/config"
	httputils "browsekit/browsekit/utils/http"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// ClientIDKey holds who made the request: "api-key", a JWT subject, or "anonymous".
const ClientIDKey contextKey = "client_id"

// AuthMiddleware accepts the shared API key (X-API-Key header or apiKey query)
// or an HS256 bearer token signed with JWT_SECRET. With neither configured
// the API is open.
func AuthMiddleware(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.APIKey == "" && cfg.JWTSecret == "" {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClientIDKey, "anonymous")))
				return
			}

			if cfg.APIKey != "" {
				key := r.Header.Get("X-API-Key")
				if key == "" {
					key = r.URL.Query().Get("apiKey")
				}
				if key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) == 1 {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClientIDKey, "api-key")))
					return
				}
			}

			if cfg.JWTSecret != "" {
				if subject, ok := bearerSubject(r, cfg.JWTSecret); ok {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClientIDKey, subject)))
					return
				}
			}

			httputils.WriteError(w, http.StatusUnauthorized, "Invalid API key", nil)
		})
	}
}

func bearerSubject(r *http.Request, secret string) (string, bool) {
	auth := r.Header.Get("Authorization")
	parts := strings.Split(auth, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", false
	}
	return subject, true
}

// ClientID returns the authenticated caller recorded by AuthMiddleware.
func ClientID(ctx context.Context) string {
	id, _ := ctx.Value(ClientIDKey).(string)
	return id
}
