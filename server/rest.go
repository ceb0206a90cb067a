package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/heshaofu2/superviseInfo/pkg/domain"
	"github.com/heshaofu2/superviseInfo/pkg/store"
)

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}
	renderJSON(w, http.StatusOK, status)
}

// summariesHandler returns one summary per persisted source
func (s *Server) summariesHandler(w http.ResponseWriter, r *http.Request) {
	summaries := s.store.GetAllSummaries()
	if summaries == nil {
		summaries = []domain.Summary{}
	}
	renderJSON(w, http.StatusOK, summaries)
}

// itemsHandler returns the stored record set of a configured source
func (s *Server) itemsHandler(w http.ResponseWriter, r *http.Request) {
	src, ok := s.findSource(r.PathValue("key"))
	if !ok {
		renderError(w, fmt.Errorf("unknown source: %s", r.PathValue("key")), http.StatusNotFound)
		return
	}
	renderJSON(w, http.StatusOK, s.store.Load(src.URL, src.Name))
}

// historyHandler returns the discovery history of a configured source,
// newest entry last
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	src, ok := s.findSource(r.PathValue("key"))
	if !ok {
		renderError(w, fmt.Errorf("unknown source: %s", r.PathValue("key")), http.StatusNotFound)
		return
	}

	history := s.store.LoadHistory(src.URL, src.Name)
	if history == nil {
		history = []store.HistoryEntry{}
	}
	renderJSON(w, http.StatusOK, history)
}

// findSource looks a source up by its config key
func (s *Server) findSource(key string) (domain.Source, bool) {
	for _, src := range s.config.EnabledSources() {
		if src.Key == key {
			return src, true
		}
	}
	return domain.Source{}, false
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, code, map[string]string{"error": errMsg})
}
