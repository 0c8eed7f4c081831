package middleware

import "net/http"

// SessionChecker reports whether a client session is established.
type SessionChecker interface {
	Established() bool
}

// RequireSession answers 401 until a session is established.
func RequireSession(sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions == nil || !sessions.Established() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"no active session"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
