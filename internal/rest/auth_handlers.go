package rest

import (
	"errors"
	"net/http"

	"github.com/biblioteca/services/library/internal/auth"
	"github.com/biblioteca/services/library/internal/repo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type sessionInfo struct {
	NumeroCuenta string `json:"numeroCuenta"`
	FirstName    string `json:"firstName"`
	Tipo         int    `json:"tipo"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.GetUserByAccount(r.Context(), req.NumeroCuenta)
	if errors.Is(err, repo.ErrUserNotFound) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not log in")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.Enabled {
		respondError(w, http.StatusForbidden, "user is disabled")
		return
	}

	token, err := s.tokens.GenerateToken(user.Account, user.UserID, user.FirstName, user.UserType)
	if err != nil {
		s.log.Error("Failed to issue token", zap.String("account", user.Account), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not log in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.Timeout().Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	respondData(w, http.StatusOK, "login successful", sessionInfo{
		NumeroCuenta: user.Account,
		FirstName:    user.FirstName,
		Tipo:         user.UserType,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respondData(w, http.StatusOK, "logged out", nil)
}
