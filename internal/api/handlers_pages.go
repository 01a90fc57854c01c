package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/lox/parkwait/internal/assess"
	"github.com/lox/parkwait/internal/models"
	"github.com/lox/parkwait/internal/session"
	"github.com/lox/parkwait/internal/store"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id, state := s.loadSession(w, r)

	var msgs pageMessages
	if q := r.URL.Query(); session.HasState(q) {
		var skipped []string
		state, skipped = session.Decode(q, state)
		if len(skipped) > 0 {
			msgs.Notice = "Ignored attraction ids: " + strings.Join(skipped, ", ")
		}
		s.saveSession(r, id, state)
	}

	s.renderPage(w, r, state, msgs, http.StatusOK)
}

// renderPage loads whatever the current page needs and executes the template.
// Store failures are shown as a banner on the same page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, state session.State, msgs pageMessages, status int) {
	data := PageData{
		State:        state,
		Query:        session.Encode(state),
		Title:        "Park Wait Times - " + string(state.Page),
		Selected:     make(map[int64]bool, len(state.Attractions)),
		Legend:       assess.Legend(),
		pageMessages: msgs,
	}
	for _, id := range state.Attractions {
		data.Selected[id] = true
	}

	var err error
	var action string
	switch state.Page {
	case session.PageParkSelection:
		action = "loading parks"
		data.Parks, err = s.store.ListParks(r.Context())
	case session.PageAttractionSelection:
		action = "loading attractions"
		data.Attractions, err = s.store.ListRideAttractions(r.Context(), state.Park)
	case session.PageWaitTimes:
		action = "loading wait times"
		now := s.now().In(s.loc)
		data.Day = models.DayOfWeek(now)
		data.HourLo, data.HourHi = store.HourBand(now.Hour())
		data.Report, err = s.engine.Assess(r.Context(), state.Attractions)
	}
	if err != nil {
		log.Printf("page %q: %s: %v", state.Page, action, err)
		msg, code := errorMessage(action, err)
		data.Error = msg
		status = code
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		log.Printf("template error: %v", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *Server) handleParkChosen(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	s.transition(w, r, session.ParkChosen{Park: strings.TrimSpace(r.PostForm.Get("park"))})
}

func (s *Server) handleAttractionsChosen(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	ids, _ := session.ParseIDs(strings.Join(r.PostForm["attraction"], ","))
	s.transition(w, r, session.AttractionsChosen{IDs: ids})
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, session.BackPressed{})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, session.Reset{})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
