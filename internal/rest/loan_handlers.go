package rest

import (
	"errors"
	"net/http"

	"github.com/biblioteca/services/library/internal/aggregate"
	"github.com/biblioteca/services/library/internal/metrics"
	"github.com/biblioteca/services/library/internal/repo"
	"github.com/go-chi/chi/v5"
)

func (s *Server) myLoans(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	respondBlock(w, "loans", s.loans.ActiveLoans(r.Context(), claims.NumeroCuenta))
}

func (s *Server) loanHistory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	respondBlock(w, "history", s.loans.History(r.Context(), claims.NumeroCuenta))
}

func (s *Server) myHome(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	s.respondHome(w, s.home.Build(r.Context(), claims.NumeroCuenta, claims.FirstName))
}

func (s *Server) studentHome(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "numeroCuenta")

	user, err := s.store.GetUserByAccount(r.Context(), account)
	if errors.Is(err, repo.ErrUserNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not get loans information")
		return
	}

	s.respondHome(w, s.home.Build(r.Context(), user.Account, user.FirstName))
}

func (s *Server) respondHome(w http.ResponseWriter, home aggregate.Home) {
	for _, block := range home.Degraded {
		metrics.RecordDegraded(block)
	}
	respondData(w, http.StatusOK, "data handled successfully", home)
}
