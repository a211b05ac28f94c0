package rest

import (
	"net/http"

	"github.com/biblioteca/services/library/internal/aggregate"
	"github.com/biblioteca/services/library/internal/metrics"
)

// respondBlock serves a best-effort block. A failed block is still a 200 with
// an empty list.
func respondBlock[T any](w http.ResponseWriter, block string, result aggregate.Result[T]) {
	if result.Failed() {
		metrics.RecordDegraded(block)
		respondData(w, http.StatusOK, "data unavailable", result.Items)
		return
	}
	respondData(w, http.StatusOK, "data handled successfully", result.Items)
}

func (s *Server) personalRecommendations(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	respondBlock(w, "recommended", s.recommender.ByUserLoans(r.Context(), claims.NumeroCuenta))
}

func (s *Server) globalRecommendations(w http.ResponseWriter, r *http.Request) {
	respondBlock(w, "categoryMostRequested", s.recommender.ByAllLoans(r.Context()))
}

func (s *Server) popularBooks(w http.ResponseWriter, r *http.Request) {
	respondBlock(w, "popularBooks", s.recommender.Popular(r.Context()))
}

func (s *Server) recentBooks(w http.ResponseWriter, r *http.Request) {
	respondBlock(w, "newBooks", s.recommender.RecentlyAdded(r.Context()))
}
