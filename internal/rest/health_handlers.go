package rest

import "net/http"

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Healthy(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "unhealthy: "+err.Error())
			return
		}
	}
	respondData(w, http.StatusOK, "healthy", nil)
}
