package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lox/parkwait/internal/session"
)

type parkJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type attractionJSON struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	ParkID int64  `json:"park_id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, action string, err error) {
	log.Printf("api: %s: %v", action, err)
	msg, code := errorMessage(action, err)
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handleAPIParks(w http.ResponseWriter, r *http.Request) {
	parks, err := s.store.ListParks(r.Context())
	if err != nil {
		writeAPIError(w, "loading parks", err)
		return
	}
	out := make([]parkJSON, len(parks))
	for i, p := range parks {
		out[i] = parkJSON{ID: p.ID, Name: p.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIAttractions(w http.ResponseWriter, r *http.Request) {
	park := chi.URLParam(r, "park")
	attractions, err := s.store.ListRideAttractions(r.Context(), park)
	if err != nil {
		writeAPIError(w, "loading attractions", err)
		return
	}
	out := make([]attractionJSON, len(attractions))
	for i, a := range attractions {
		out[i] = attractionJSON{ID: a.ID, Name: a.Name, ParkID: a.ParkID}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIAssessment(w http.ResponseWriter, r *http.Request) {
	ids, skipped := session.ParseIDs(r.URL.Query().Get(session.ParamAttractions))
	if len(ids) == 0 {
		msg := "attractions must list at least one numeric id"
		if len(skipped) > 0 {
			msg += "; invalid: " + strings.Join(skipped, ", ")
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if len(ids) > session.MaxAttractions {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("attractions lists %d ids; at most %d are allowed", len(ids), session.MaxAttractions),
		})
		return
	}

	report, err := s.engine.Assess(r.Context(), ids)
	if err != nil {
		writeAPIError(w, "loading wait times", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
