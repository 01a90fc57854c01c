package api

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/lox/parkwait/internal/assess"
	"github.com/lox/parkwait/internal/models"
	"github.com/lox/parkwait/internal/session"
	"github.com/lox/parkwait/internal/store"
)

// PageData is everything the wizard template needs for one render.
type PageData struct {
	State session.State
	Query url.Values
	Title string

	Parks []models.Park

	Attractions []models.Attraction
	Selected    map[int64]bool

	Report *assess.Report
	Legend []assess.LegendEntry
	Day    int
	HourLo int
	HourHi int

	pageMessages
}

type pageMessages struct {
	Error  string
	Notice string
}

// ShareURL is the query string that reconstructs this page.
func (p PageData) ShareURL() string {
	return "/?" + p.Query.Encode()
}

func (p PageData) OnParkSelection() bool {
	return p.State.Page == session.PageParkSelection
}

func (p PageData) OnAttractionSelection() bool {
	return p.State.Page == session.PageAttractionSelection
}

func (p PageData) OnWaitTimes() bool {
	return p.State.Page == session.PageWaitTimes
}

// errorMessage turns a store error into text for the page banner along with
// the HTTP status to send.
func errorMessage(action string, err error) (string, int) {
	if errors.Is(err, store.ErrUnavailable) {
		return "Could not reach the wait-time database while " + action + ". Please try again in a moment.", 503
	}
	return "Something went wrong while " + action + ". Please try again.", 500
}

func transitionMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNoPark):
		return "Choose a park to continue."
	case errors.Is(err, session.ErrNoAttractions):
		return "Choose at least one attraction to view wait times."
	case errors.Is(err, session.ErrTooManyAttractions):
		return fmt.Sprintf("Choose at most %d attractions.", session.MaxAttractions)
	default:
		return "That step is not available from here."
	}
}
