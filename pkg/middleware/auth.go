package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"socialfeed/pkg/session"

	"go.uber.org/zap"
)

var authRoutes = map[string]string{
	"/api/logout": http.MethodPost,
}

// needsAuth reports whether the route mutates state. Reads and the push
// channel are public.
func needsAuth(r *http.Request) bool {
	if m, ok := authRoutes[r.URL.Path]; ok && m == r.Method {
		return true
	}

	isPosts := r.URL.Path == "/posts" || strings.HasPrefix(r.URL.Path, "/posts/")
	return isPosts && r.Method != http.MethodGet
}

func Auth(logger *zap.SugaredLogger, sm session.SessionManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !needsAuth(r) {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		sess, err := sm.Check(ctx, r)
		if err != nil {
			logger.Infow("request rejected", "method", r.Method, "url", r.URL.Path, "reason", err.Error())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			errorBody, _ := json.Marshal(map[string]string{"message": "unauthorized"})
			w.Write(errorBody)

			return
		}

		next.ServeHTTP(w, r.WithContext(session.ContextWithSession(r.Context(), sess)))
	})
}
