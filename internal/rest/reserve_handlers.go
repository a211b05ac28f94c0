package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/biblioteca/services/library/internal/db"
	"github.com/biblioteca/services/library/internal/events"
	"github.com/biblioteca/services/library/internal/metrics"
	"github.com/biblioteca/services/library/internal/repo"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

// NextCheckoutDate is the first working day after now at midnight. Requests on
// Friday and Saturday roll over to Monday.
func NextCheckoutDate(now time.Time) time.Time {
	days := 1
	switch now.Weekday() {
	case time.Friday:
		days = 3
	case time.Saturday:
		days = 2
	}
	y, m, d := now.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, now.Location())
}

func (s *Server) createReserve(w http.ResponseWriter, r *http.Request) {
	var req ReserveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := claimsFrom(r.Context())
	checkout := NextCheckoutDate(s.now())

	reserve, err := s.store.CreateReserve(r.Context(), claims.NumeroCuenta, req.IDBook, s.topTier, checkout)
	switch {
	case errors.Is(err, repo.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user not found")
		return
	case errors.Is(err, repo.ErrBookNotFound):
		respondError(w, http.StatusNotFound, "book not found")
		return
	case errors.Is(err, repo.ErrReputationTooLow):
		respondError(w, http.StatusForbidden, "your reputation does not allow reserves")
		return
	case errors.Is(err, repo.ErrBookUnavailable):
		respondError(w, http.StatusConflict, "no units available")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "could not make reserve")
		return
	}

	metrics.ReservesCreated.Inc()
	s.publishReserve(r.Context(), reserve, claims.NumeroCuenta)

	respondData(w, http.StatusCreated, "reserve created", reserve)
}

// publishReserve announces the reserve in the background; failures are logged
func (s *Server) publishReserve(ctx context.Context, reserve *db.Reserve, account string) {
	if s.publisher == nil {
		return
	}

	ctx = events.WithCorrelationID(context.WithoutCancel(ctx), middleware.GetReqID(ctx))
	checkout := *reserve.CheckoutDate

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := s.publisher.PublishReserveCreated(ctx, reserve.ReserveID, reserve.BookID, account, checkout); err != nil {
			s.log.Warn("Failed to publish reserve event",
				zap.Uint("reserve_id", reserve.ReserveID),
				zap.Error(err),
			)
		}
	}()
}
