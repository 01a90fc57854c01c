package api

import (
	"log"
	"net/http"

	"github.com/lox/parkwait/internal/metrics"
	"github.com/lox/parkwait/internal/session"
)

// loadSession returns the caller's session id and stored state, issuing a new
// id when the cookie is missing or malformed. Store errors fall back to a
// fresh state so a broken session backend never blocks the page.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (string, session.State) {
	id := ""
	if c, err := r.Cookie(sessionCookie); err == nil && session.ValidID(c.Value) {
		id = c.Value
	}
	if id == "" {
		id = session.NewID()
		s.setSessionCookie(w, id)
		return id, session.Initial()
	}

	state, ok, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		log.Printf("session: load %s: %v", id, err)
		return id, session.Initial()
	}
	if !ok {
		return id, session.Initial()
	}
	return id, state.Normalize()
}

func (s *Server) saveSession(r *http.Request, id string, state session.State) {
	if err := s.sessions.Save(r.Context(), id, state); err != nil {
		log.Printf("session: save %s: %v", id, err)
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	c := &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if s.opts.SessionTTL > 0 {
		c.MaxAge = int(s.opts.SessionTTL.Seconds())
	}
	http.SetCookie(w, c)
}

// transition applies ev to the caller's session. On success the new state is
// saved and the browser is redirected to its shareable URL; on failure the
// current page is re-rendered with the error.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, ev session.Event) {
	id, state := s.loadSession(w, r)

	next, err := state.Apply(ev)
	if err != nil {
		metrics.SessionTransitions.WithLabelValues(session.EventName(ev), "rejected").Inc()
		s.renderPage(w, r, state, pageMessages{Error: transitionMessage(err)}, http.StatusBadRequest)
		return
	}
	metrics.SessionTransitions.WithLabelValues(session.EventName(ev), "ok").Inc()

	s.saveSession(r, id, next)
	http.Redirect(w, r, "/?"+session.Encode(next).Encode(), http.StatusSeeOther)
}
