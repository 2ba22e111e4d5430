package server

import (
	"net/http"
	"strings"

	"github.com/mkrallis/swapbook/internal/domain"
)

// identityMiddleware resolves the caller named by the X-User-Login header
// against reference data and attaches the resulting authorization context
// to the request. Requests without the header, or naming an unknown user,
// pass through unauthenticated; the handlers decide what that means.
//
// The header is trusted as-is: authentication is the perimeter's job, this
// service only does authorization.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		login := strings.TrimSpace(r.Header.Get("X-User-Login"))
		if login == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.deps.Identity.GetUserByLogin(login)
		if err != nil {
			s.log.Error().Err(err).Str("login", login).Msg("Failed to resolve caller")
			http.Error(w, "Failed to resolve caller identity", http.StatusInternalServerError)
			return
		}
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}

		privileges, err := s.deps.Identity.FindUserPrivileges(user.LoginID)
		if err != nil {
			s.log.Error().Err(err).Str("login", login).Msg("Failed to load caller privileges")
			http.Error(w, "Failed to resolve caller identity", http.StatusInternalServerError)
			return
		}

		auth := domain.AuthorizationContext{
			LoginID:    user.LoginID,
			Privileges: privileges,
		}
		if user.UserType != "" {
			auth.Roles = []string{strings.ToUpper(user.UserType)}
		}

		next.ServeHTTP(w, r.WithContext(domain.ContextWithAuth(r.Context(), auth)))
	})
}
