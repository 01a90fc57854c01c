package models

import (
	"database/sql"
	"strings"
	"time"
)

// WalkOn is the stand-by value posted when an attraction has no line.
const WalkOn = -1

const (
	StatusOperating     = "Operating"
	StatusDown          = "Down"
	StatusRefurbishment = "Refurbishment"
	StatusClosed        = "Closed"
)

// NonOperatingStatuses lists status codes that take an attraction out of the
// operating group. Comparison is case-insensitive.
var NonOperatingStatuses = []string{StatusDown, StatusRefurbishment, StatusClosed}

// IsOperating reports whether status is not one of NonOperatingStatuses.
func IsOperating(status string) bool {
	for _, s := range NonOperatingStatuses {
		if strings.EqualFold(status, s) {
			return false
		}
	}
	return true
}

type Park struct {
	ID   int64
	Name string
}

type AttractionType struct {
	ID       int64
	TypeName string
}

type Attraction struct {
	ID     int64
	Name   string
	ParkID int64
	TypeID sql.NullInt64
}

type AttractionStatus struct {
	ID     int64
	Status string
}

type WaitObservation struct {
	AttractionID int64
	Timestamp    time.Time
	StandBy      sql.NullInt64 // minutes, WalkOn, or NULL for no data
	StatusID     int64
}

// CurrentObservation is the latest wait row for an attraction joined with its
// name and status. DayOfWeek runs 0=Monday..6=Sunday and, like HourOfDay, is
// taken in the park's time zone.
type CurrentObservation struct {
	AttractionID int64
	Name         string
	StandBy      sql.NullInt64
	Timestamp    time.Time
	Status       string
	DayOfWeek    int
	HourOfDay    int
}

// WaitSample is one historical stand-by value used for baselines.
type WaitSample struct {
	StandBy   int64
	Timestamp time.Time
}

// DayOfWeek converts t to 0=Monday..6=Sunday.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// DayName returns the English name for a Monday-based day index.
func DayName(day int) string {
	return time.Weekday((day + 1) % 7).String()
}
