package api

import (
	"net/http"

	"github.com/genlayer/glvault/pkg/auth"
)

// requireAdmin wraps a handler with the bearer token check. All three
// failure modes (missing header, wrong scheme, wrong token) yield 401 with
// their own reason; the token comparison is constant time.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rej := auth.VerifyAdmin(r.Header.Get("Authorization"), s.adminToken); rej != nil {
			s.logger.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).
				Str("reason", rej.Reason).Msg("admin request rejected")
			s.writeError(w, http.StatusUnauthorized, rej.Reason)
			return
		}
		next(w, r)
	}
}

// requireMethod rejects any verb but the one given with 405.
func (s *Server) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}
