package assess

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Tone is a presentation hint for the assessment badge.
type Tone string

const (
	ToneNone     Tone = "none"
	ToneVeryGood Tone = "very-good"
	ToneGood     Tone = "good"
	ToneAverage  Tone = "average"
	ToneBusy     Tone = "busy"
	ToneVeryBusy Tone = "very-busy"
	ToneDown     Tone = "down"
)

var categoryTones = map[Category]Tone{
	CategoryVeryGood: ToneVeryGood,
	CategoryGood:     ToneGood,
	CategoryAverage:  ToneAverage,
	CategoryBusy:     ToneBusy,
	CategoryVeryBusy: ToneVeryBusy,
}

// Result is one assessed attraction, ready to render. Nil pointers mean the
// value is unavailable.
type Result struct {
	AttractionID     int64     `json:"attraction_id"`
	Name             string    `json:"name"`
	Status           string    `json:"status"`
	Operating        bool      `json:"operating"`
	CurrentWait      *int64    `json:"current_wait"`
	WalkOn           bool      `json:"walk_on"`
	AverageWait      *float64  `json:"average_wait"`       // rounded to 1dp
	PercentOfAverage *float64  `json:"percent_of_average"` // rounded to 1dp
	Category         Category  `json:"category,omitempty"`
	Label            string    `json:"label"`
	Tone             Tone      `json:"tone"`
	Samples          int       `json:"samples"`
	LastUpdated      time.Time `json:"last_updated"`

	rankPercent *float64
}

// ShowWait reports whether the current wait should be displayed at all.
func (r Result) ShowWait() bool {
	return r.Operating
}

// WaitText formats the current wait for display.
func (r Result) WaitText() string {
	switch {
	case r.CurrentWait == nil:
		return NotAvailable
	case r.WalkOn:
		return "Walk on"
	default:
		return fmt.Sprintf("%d min", *r.CurrentWait)
	}
}

// AverageText formats the baseline, truncated to whole minutes.
func (r Result) AverageText() string {
	if r.AverageWait == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%d min", int(*r.AverageWait))
}

func (r Result) PercentText() string {
	if r.PercentOfAverage == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f%%", *r.PercentOfAverage)
}

func (r Result) group() int {
	if r.Operating {
		return 1
	}
	return 2
}

func (r Result) sortPercent() float64 {
	pct := r.PercentOfAverage
	if pct == nil {
		pct = r.rankPercent
	}
	if pct == nil {
		return math.Inf(1)
	}
	return *pct
}

// Rank orders results in place: operating before non-operating, then by
// percent of average ascending with missing percentages last. Equal keys keep
// their incoming order.
func Rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		gi, gj := results[i].group(), results[j].group()
		if gi != gj {
			return gi < gj
		}
		return results[i].sortPercent() < results[j].sortPercent()
	})
}

// Outcome distinguishes a ranked report from one with no current data.
type Outcome string

const (
	OutcomeRanked Outcome = "ranked"
	OutcomeNoData Outcome = "no_data"
)

// Report is the engine's answer for one request.
type Report struct {
	Outcome     Outcome   `json:"outcome"`
	Results     []Result  `json:"results"`
	Degraded    []int64   `json:"degraded,omitempty"` // attractions whose baseline could not be fetched
	GeneratedAt time.Time `json:"generated_at"`
}

func (r *Report) NoData() bool {
	return r.Outcome == OutcomeNoData
}
