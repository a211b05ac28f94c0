package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/biblioteca/services/library/internal/aggregate"
	"github.com/biblioteca/services/library/internal/metrics"
	"github.com/biblioteca/services/library/internal/repo"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not get categories")
		return
	}
	respondData(w, http.StatusOK, "data handled successfully", categories)
}

func (s *Server) categoryTree(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not get categories")
		return
	}
	respondData(w, http.StatusOK, "data handled successfully", aggregate.BuildCategoryTree(categories))
}

// idParam parses a positive numeric URL parameter
func idParam(r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (s *Server) categoryBooks(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := idParam(r, "categoryID")
	if !ok {
		respondError(w, http.StatusBadRequest, "categoryID must be a positive number")
		return
	}

	books, err := s.store.BooksByCategory(r.Context(), categoryID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not get books")
		return
	}
	respondData(w, http.StatusOK, "data handled successfully", books)
}

func (s *Server) bookDetail(w http.ResponseWriter, r *http.Request) {
	bookID, ok := idParam(r, "bookID")
	if !ok {
		respondError(w, http.StatusBadRequest, "bookID must be a positive number")
		return
	}

	detail, err := s.store.GetBookDetail(r.Context(), bookID)
	if errors.Is(err, repo.ErrBookNotFound) {
		respondError(w, http.StatusNotFound, "book not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not get book")
		return
	}
	respondData(w, http.StatusOK, "data handled successfully", detail)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	req := SearchRequest{Query: strings.TrimSpace(r.URL.Query().Get("query"))}
	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hits, err := s.searcher.Search(r.Context(), req.Query)
	if errors.Is(err, aggregate.ErrEmptyQuery) {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if err != nil {
		s.log.Error("Search failed", zap.String("query", req.Query), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not search")
		return
	}

	metrics.SearchHits.Observe(float64(len(hits)))
	respondData(w, http.StatusOK, "data handled successfully", hits)
}
