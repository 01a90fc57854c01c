// Package session models the planner wizard: which park and attractions are
// selected and which of the three pages is showing. State values are
// immutable; every transition returns a new State.
package session

import (
	"errors"
	"fmt"
	"slices"
)

type Page string

const (
	PageParkSelection       Page = "Park Selection"
	PageAttractionSelection Page = "Attraction Selection"
	PageWaitTimes           Page = "Wait Times"
)

func (p Page) Valid() bool {
	switch p {
	case PageParkSelection, PageAttractionSelection, PageWaitTimes:
		return true
	}
	return false
}

type State struct {
	Park        string  `json:"park,omitempty"`
	Attractions []int64 `json:"attractions,omitempty"`
	Page        Page    `json:"page"`
}

// Initial is the state of a fresh session.
func Initial() State {
	return State{Page: PageParkSelection}
}

// Event is a user action on the wizard.
type Event interface {
	name() string
}

type ParkChosen struct{ Park string }

type AttractionsChosen struct{ IDs []int64 }

type BackPressed struct{}

type Reset struct{}

func (ParkChosen) name() string        { return "park_chosen" }
func (AttractionsChosen) name() string { return "attractions_chosen" }
func (BackPressed) name() string       { return "back_pressed" }
func (Reset) name() string             { return "reset" }

// EventName returns a short identifier for logging and metrics.
func EventName(ev Event) string {
	return ev.name()
}

var (
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrNoPark             = errors.New("no park chosen")
	ErrNoAttractions      = errors.New("no attractions chosen")
	ErrTooManyAttractions = fmt.Errorf("more than %d attractions chosen", MaxAttractions)
)

// MaxAttractions bounds a selection. Every id becomes a bound query parameter.
const MaxAttractions = 200

// Apply returns the state after ev. The receiver is never modified.
func (s State) Apply(ev Event) (State, error) {
	if _, ok := ev.(Reset); ok {
		return Initial(), nil
	}

	switch s.Page {
	case PageParkSelection:
		if e, ok := ev.(ParkChosen); ok {
			if e.Park == "" {
				return s, ErrNoPark
			}
			next := s.clone()
			if next.Park != e.Park {
				next.Attractions = nil
			}
			next.Park = e.Park
			next.Page = PageAttractionSelection
			return next, nil
		}

	case PageAttractionSelection:
		switch e := ev.(type) {
		case AttractionsChosen:
			if len(e.IDs) == 0 {
				return s, ErrNoAttractions
			}
			if len(e.IDs) > MaxAttractions {
				return s, ErrTooManyAttractions
			}
			next := s.clone()
			next.Attractions = dedupe(e.IDs)
			next.Page = PageWaitTimes
			return next, nil
		case BackPressed:
			next := s.clone()
			next.Page = PageParkSelection
			return next, nil
		}

	case PageWaitTimes:
		if _, ok := ev.(BackPressed); ok {
			next := s.clone()
			next.Page = PageAttractionSelection
			return next, nil
		}
	}

	return s, fmt.Errorf("%w: %s on %q", ErrInvalidTransition, ev.name(), s.Page)
}

// Normalize repairs a state reconstructed from outside input so its page is
// reachable: a wait-times page needs attractions, and an attraction page
// needs a park.
func (s State) Normalize() State {
	next := s.clone()
	if !next.Page.Valid() {
		next.Page = PageParkSelection
	}
	if next.Page == PageWaitTimes && len(next.Attractions) == 0 {
		next.Page = PageAttractionSelection
	}
	if next.Page != PageParkSelection && next.Park == "" {
		next.Page = PageParkSelection
	}
	return next
}

func (s State) clone() State {
	s.Attractions = slices.Clone(s.Attractions)
	return s
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
