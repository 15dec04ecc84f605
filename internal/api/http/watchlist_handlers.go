package apihttp

import (
	"net/http"
	"strings"

	"watchtrack/internal/domain"
	"watchtrack/internal/watchlist"
)

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, ok := s.watchlistUser(w, r)
	if !ok {
		return
	}
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}
	limit, err := parsePositiveInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	result, err := s.watchlist.List(r.Context(), userID, r.URL.Query().Get("status"), page, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleWatchlistRoutes serves /watchlist/bulk, /watchlist/{id} and
// /watchlist/{id}/status.
func (s *Server) handleWatchlistRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/watchlist/"), "/")
	parts := strings.Split(rest, "/")
	switch {
	case rest == "":
		http.NotFound(w, r)
	case len(parts) == 1 && parts[0] == "bulk":
		s.handleWatchlistBulk(w, r)
	case len(parts) == 1:
		s.handleWatchlistEntry(w, r, domain.CatalogID(parts[0]))
	case len(parts) == 2 && parts[1] == "status":
		s.handleWatchlistStatus(w, r, domain.CatalogID(parts[0]))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleWatchlistEntry(w http.ResponseWriter, r *http.Request, id domain.CatalogID) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, ok := s.watchlistUser(w, r)
	if !ok {
		return
	}
	if r.Method == http.MethodDelete {
		if err := s.watchlist.Remove(r.Context(), userID, id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	result, err := s.watchlist.QuickAdd(r.Context(), userID, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	status := http.StatusCreated
	if result.Restored {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (s *Server) handleWatchlistStatus(w http.ResponseWriter, r *http.Request, id domain.CatalogID) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, ok := s.watchlistUser(w, r)
	if !ok {
		return
	}
	var update watchlist.ProgressUpdate
	if err := decodeJSONBody(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	entry, err := s.watchlist.UpdateProgress(r.Context(), userID, id, update)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleWatchlistBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, ok := s.watchlistUser(w, r)
	if !ok {
		return
	}
	var request watchlist.BulkRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	result, err := s.watchlist.Bulk(r.Context(), userID, request)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) watchlistUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.watchlist == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", watchlist.ErrUnavailable.Error())
		return "", false
	}
	userID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing "+userIDHeader+" header")
		return "", false
	}
	return userID, true
}
