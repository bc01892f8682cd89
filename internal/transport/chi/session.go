package chi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labeldesk/internal/logger"
	annotationuc "github.com/kailas-cloud/labeldesk/internal/usecase/annotation"
)

type sessionKey struct{}

// SessionMiddleware attaches the caller's annotation session to the request
// context, issuing a fresh cookie when the presented id is unknown or absent.
func SessionMiddleware(reg *annotationuc.Registry, cookieName string, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(cookieName); err == nil {
				id = c.Value
			}

			sess, created := reg.GetOrCreate(id)
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sess.ID(),
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := logger.With(r.Context(), zap.String("session", sessionTag(sess.ID())))
			if created {
				logger.FromContext(ctx).Debug("session started")
			}
			ctx = context.WithValue(ctx, sessionKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionTag shortens a session id for logs; the full id is a bearer credential.
func sessionTag(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// sessionFrom returns the session placed by SessionMiddleware.
func sessionFrom(ctx context.Context) *annotationuc.Session {
	s, _ := ctx.Value(sessionKey{}).(*annotationuc.Session)
	return s
}
