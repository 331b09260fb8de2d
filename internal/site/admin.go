package site

import (
	"crypto/subtle"
	"log"
	"net/http"
)

type refreshStaleResponse struct {
	Enqueued int `json:"enqueued"`
}

// handleAdminRefreshStale enqueues refresh jobs for the least-recently-synced
// summoners, never-synced ones first. It is guarded by a shared admin key
// rather than a session so scheduled jobs can call it.
func (s *Server) handleAdminRefreshStale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.AdminKey == "" {
		http.Error(w, "admin endpoint is disabled", http.StatusNotFound)
		return
	}
	provided := r.Header.Get("X-Admin-Key")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.config.AdminKey)) != 1 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	stale, err := s.store.ListStaleSummoners(r.Context(), s.config.BulkUpdateBatchSize)
	if err != nil {
		writeError(w, err)
		return
	}
	enqueued := 0
	for _, sm := range stale {
		if err := s.queue.Enqueue(r.Context(), sm.PUUID); err != nil {
			log.Printf("enqueue stale refresh for %s: %v", sm.PUUID, err)
			continue
		}
		enqueued++
	}
	writeJSON(w, http.StatusOK, refreshStaleResponse{Enqueued: enqueued})
}
