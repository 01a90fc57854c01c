package assess

import (
	"math"

	"github.com/lox/parkwait/internal/models"
)

// Category rates a current wait against its baseline.
type Category string

const (
	CategoryNone     Category = ""
	CategoryVeryGood Category = "Very Good"
	CategoryGood     Category = "Good"
	CategoryAverage  Category = "Average"
	CategoryBusy     Category = "Busy"
	CategoryVeryBusy Category = "Very Busy"
)

// WalkOnLabel is shown instead of a category when the posted wait is the
// walk-on sentinel.
const WalkOnLabel = "No line, always walk-on"

// NotAvailable is displayed for missing averages, percentages and categories.
const NotAvailable = "N/A"

// Upper bounds (inclusive) of current/average for each category.
var thresholds = []struct {
	ratio    float64
	category Category
}{
	{0.70, CategoryVeryGood},
	{0.90, CategoryGood},
	{1.10, CategoryAverage},
	{1.30, CategoryBusy},
}

// Categorize compares current directly against avg * threshold so boundary
// values land in the lower category. avg must be positive.
func Categorize(current, avg float64) Category {
	for _, t := range thresholds {
		if current <= avg*t.ratio {
			return t.category
		}
	}
	return CategoryVeryBusy
}

func (c Category) String() string {
	if c == CategoryNone {
		return NotAvailable
	}
	return string(c)
}

// Baseline is the historical mean for a day/hour window.
type Baseline struct {
	Mean    float64 // unrounded
	Samples int
}

// ComputeBaseline returns the mean of samples, or false when there are none.
func ComputeBaseline(samples []models.WaitSample) (Baseline, bool) {
	if len(samples) == 0 {
		return Baseline{}, false
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s.StandBy)
	}
	return Baseline{Mean: sum / float64(len(samples)), Samples: len(samples)}, true
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// LegendEntry describes a category for display.
type LegendEntry struct {
	Category    Category
	Description string
	Tone        Tone
}

// Legend lists the categories from best to worst.
func Legend() []LegendEntry {
	return []LegendEntry{
		{CategoryVeryGood, "Current wait is at least 30% below the average", ToneVeryGood},
		{CategoryGood, "Current wait is 10-30% below the average", ToneGood},
		{CategoryAverage, "Current wait is within 10% of the average", ToneAverage},
		{CategoryBusy, "Current wait is 10-30% above the average", ToneBusy},
		{CategoryVeryBusy, "Current wait is more than 30% above the average", ToneVeryBusy},
	}
}
