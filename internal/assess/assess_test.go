package assess

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/lox/parkwait/internal/models"
	"github.com/lox/parkwait/internal/store"
)

func wait(n int64) sql.NullInt64 { return sql.NullInt64{Int64: n, Valid: true} }

func samples(values ...int64) []models.WaitSample {
	out := make([]models.WaitSample, len(values))
	for i, v := range values {
		out[i] = models.WaitSample{StandBy: v}
	}
	return out
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		avg     float64
		want    Category
	}{
		{"well below", 10, 60, CategoryVeryGood},
		{"at 0.70 boundary", 42, 60, CategoryVeryGood},
		{"just above 0.70", 42.1, 60, CategoryGood},
		{"at 0.90 boundary", 54, 60, CategoryGood},
		{"just above 0.90", 55, 60, CategoryAverage},
		{"at 1.10 boundary", 66, 60, CategoryAverage},
		{"at 1.30 boundary", 78, 60, CategoryBusy},
		{"above 1.30", 79, 60, CategoryVeryBusy},
		{"zero wait", 0, 60, CategoryVeryGood},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.current, tt.avg); got != tt.want {
				t.Errorf("Categorize(%v, %v) = %q, want %q", tt.current, tt.avg, got, tt.want)
			}
		})
	}
}

func TestCategorize_ScaleInvariant(t *testing.T) {
	for _, avg := range []float64{10, 20, 45, 60, 100} {
		for _, ratio := range []float64{0.5, 0.7, 0.8, 0.9, 1.0, 1.1, 1.2, 1.3, 1.5} {
			want := Categorize(ratio*100, 100)
			if got := Categorize(ratio*avg, avg); got != want {
				t.Errorf("ratio %v avg %v: got %q, want %q", ratio, avg, got, want)
			}
		}
	}
}

func TestComputeBaseline(t *testing.T) {
	if _, ok := ComputeBaseline(nil); ok {
		t.Error("expected no baseline for empty samples")
	}
	b, ok := ComputeBaseline(samples(50, 60, 70))
	if !ok {
		t.Fatal("expected baseline")
	}
	if b.Mean != 60 || b.Samples != 3 {
		t.Errorf("baseline = %+v, want mean 60 over 3", b)
	}
	b, _ = ComputeBaseline(samples(10, 15, 15))
	if got := round1(b.Mean); got != 13.3 {
		t.Errorf("rounded mean = %v, want 13.3", got)
	}
}

func TestEvaluate_Scenarios(t *testing.T) {
	avg60 := &Baseline{Mean: 60, Samples: 3}

	tests := []struct {
		name      string
		obs       models.CurrentObservation
		baseline  *Baseline
		wantLabel string
		wantPct   *float64
		wantAvg   *float64
		operating bool
	}{
		{
			name:      "A very good",
			obs:       models.CurrentObservation{StandBy: wait(40), Status: "Operating"},
			baseline:  avg60,
			wantLabel: "Very Good",
			wantPct:   ptr(66.7),
			wantAvg:   ptr(60.0),
			operating: true,
		},
		{
			name:      "B average",
			obs:       models.CurrentObservation{StandBy: wait(55), Status: "Operating"},
			baseline:  avg60,
			wantLabel: "Average",
			wantPct:   ptr(91.7),
			wantAvg:   ptr(60.0),
			operating: true,
		},
		{
			name:      "C walk-on",
			obs:       models.CurrentObservation{StandBy: wait(-1), Status: "Operating"},
			baseline:  avg60,
			wantLabel: WalkOnLabel,
			wantPct:   ptr(-1.7),
			wantAvg:   ptr(60.0),
			operating: true,
		},
		{
			name:      "C walk-on without history",
			obs:       models.CurrentObservation{StandBy: wait(-1), Status: "Operating"},
			wantLabel: WalkOnLabel,
			operating: true,
		},
		{
			name:      "D down",
			obs:       models.CurrentObservation{StandBy: wait(10), Status: "Down"},
			baseline:  avg60,
			wantLabel: "Down",
			wantAvg:   ptr(60.0),
		},
		{
			name:      "closed lowercase",
			obs:       models.CurrentObservation{Status: "closed"},
			wantLabel: "closed",
		},
		{
			name:      "E no history",
			obs:       models.CurrentObservation{StandBy: wait(30), Status: "Operating"},
			wantLabel: NotAvailable,
			operating: true,
		},
		{
			name:      "null current wait",
			obs:       models.CurrentObservation{Status: "Operating"},
			baseline:  avg60,
			wantLabel: NotAvailable,
			wantAvg:   ptr(60.0),
			operating: true,
		},
		{
			name:      "zero baseline",
			obs:       models.CurrentObservation{StandBy: wait(5), Status: "Operating"},
			baseline:  &Baseline{Mean: 0, Samples: 2},
			wantLabel: NotAvailable,
			wantAvg:   ptr(0.0),
			operating: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Evaluate(tt.obs, tt.baseline)
			if r.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", r.Label, tt.wantLabel)
			}
			if r.Operating != tt.operating {
				t.Errorf("Operating = %v, want %v", r.Operating, tt.operating)
			}
			if r.ShowWait() != tt.operating {
				t.Errorf("ShowWait = %v, want %v", r.ShowWait(), tt.operating)
			}
			assertFloatPtr(t, "PercentOfAverage", r.PercentOfAverage, tt.wantPct)
			assertFloatPtr(t, "AverageWait", r.AverageWait, tt.wantAvg)
		})
	}
}

func TestEvaluate_WalkOnTone(t *testing.T) {
	r := Evaluate(models.CurrentObservation{StandBy: wait(-1), Status: "Operating"}, &Baseline{Mean: 5, Samples: 1})
	if !r.WalkOn || r.Tone != ToneVeryGood {
		t.Errorf("walk-on result = %+v, want WalkOn with very-good tone", r)
	}
	if r.WaitText() != "Walk on" {
		t.Errorf("WaitText = %q, want Walk on", r.WaitText())
	}
}

func TestEvaluate_NonOperatingSuppressesCategory(t *testing.T) {
	for _, status := range []string{"Down", "Refurbishment", "Closed", "DOWN"} {
		r := Evaluate(models.CurrentObservation{StandBy: wait(5), Status: status}, &Baseline{Mean: 60, Samples: 4})
		if r.Label != status {
			t.Errorf("%s: Label = %q", status, r.Label)
		}
		if r.Tone != ToneDown {
			t.Errorf("%s: Tone = %q, want down", status, r.Tone)
		}
		if r.ShowWait() {
			t.Errorf("%s: wait should be hidden", status)
		}
	}
}

func TestEvaluate_NonOperatingJSON(t *testing.T) {
	r := Evaluate(models.CurrentObservation{StandBy: wait(40), Status: "Down"}, &Baseline{Mean: 60, Samples: 3})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if _, ok := got["category"]; ok {
		t.Errorf("category present in %s", data)
	}
	if got["current_wait"] != nil {
		t.Errorf("current_wait = %v, want null", got["current_wait"])
	}
	if got["percent_of_average"] != nil {
		t.Errorf("percent_of_average = %v, want null", got["percent_of_average"])
	}
	if got["label"] != "Down" {
		t.Errorf("label = %v, want Down", got["label"])
	}
}

func TestRank_NonOperatingKeepsPercentOrder(t *testing.T) {
	base := &Baseline{Mean: 60, Samples: 3}
	results := []Result{
		Evaluate(models.CurrentObservation{Name: "high", StandBy: wait(50), Status: "Down"}, base),
		Evaluate(models.CurrentObservation{Name: "none", Status: "Closed"}, base),
		Evaluate(models.CurrentObservation{Name: "low", StandBy: wait(10), Status: "Down"}, base),
	}
	Rank(results)

	want := []string{"low", "high", "none"}
	for i, r := range results {
		if r.Name != want[i] {
			t.Errorf("results[%d] = %s, want %s", i, r.Name, want[i])
		}
	}
}

func TestResultText(t *testing.T) {
	r := Evaluate(models.CurrentObservation{StandBy: wait(40), Status: "Operating"}, &Baseline{Mean: 59.96, Samples: 3})
	if got := r.WaitText(); got != "40 min" {
		t.Errorf("WaitText = %q", got)
	}
	if got := r.AverageText(); got != "60 min" {
		t.Errorf("AverageText = %q", got)
	}
	if got := r.PercentText(); got != "66.7%" {
		t.Errorf("PercentText = %q", got)
	}

	empty := Evaluate(models.CurrentObservation{Status: "Operating"}, nil)
	if empty.WaitText() != NotAvailable || empty.AverageText() != NotAvailable || empty.PercentText() != NotAvailable {
		t.Errorf("empty result text = %q/%q/%q", empty.WaitText(), empty.AverageText(), empty.PercentText())
	}
}

func TestRank(t *testing.T) {
	results := []Result{
		{Name: "down-low", Operating: false, PercentOfAverage: ptr(10)},
		{Name: "no-pct-1", Operating: true},
		{Name: "busy", Operating: true, PercentOfAverage: ptr(120)},
		{Name: "down-none", Operating: false},
		{Name: "good", Operating: true, PercentOfAverage: ptr(80)},
		{Name: "no-pct-2", Operating: true},
		{Name: "tie-1", Operating: true, PercentOfAverage: ptr(100)},
		{Name: "tie-2", Operating: true, PercentOfAverage: ptr(100)},
		{Name: "walk-on", Operating: true, PercentOfAverage: ptr(-2)},
	}
	Rank(results)

	want := []string{"walk-on", "good", "tie-1", "tie-2", "busy", "no-pct-1", "no-pct-2", "down-low", "down-none"}
	for i, r := range results {
		if r.Name != want[i] {
			t.Errorf("results[%d] = %s, want %s", i, r.Name, want[i])
		}
	}
}

type fakeSource struct {
	current    []models.CurrentObservation
	currentErr error
	history    map[int64][]models.WaitSample
	historyErr map[int64]error
	batchErr   error
	calls      int
	batchCalls int
	since      time.Time
}

func (f *fakeSource) LatestStatus(ctx context.Context, ids []int64) ([]models.CurrentObservation, error) {
	return f.current, f.currentErr
}

func (f *fakeSource) HistoricalWindow(ctx context.Context, id int64, since time.Time, dow, hour int) ([]models.WaitSample, error) {
	f.calls++
	f.since = since
	if err := f.historyErr[id]; err != nil {
		return nil, err
	}
	return f.history[id], nil
}

type fakeBatchSource struct {
	*fakeSource
}

func (f fakeBatchSource) HistoricalWindows(ctx context.Context, since time.Time, keys []store.WindowKey) (map[int64][]models.WaitSample, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return f.history, nil
}

func fixedClock() time.Time {
	return time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)
}

func scenarioSource() *fakeSource {
	return &fakeSource{
		current: []models.CurrentObservation{
			{AttractionID: 4, Name: "D", StandBy: wait(5), Status: "Down"},
			{AttractionID: 3, Name: "C", StandBy: wait(-1), Status: "Operating"},
			{AttractionID: 1, Name: "A", StandBy: wait(40), Status: "Operating"},
			{AttractionID: 2, Name: "B", StandBy: wait(55), Status: "Operating"},
			{AttractionID: 5, Name: "E", StandBy: wait(20), Status: "Operating"},
		},
		history: map[int64][]models.WaitSample{
			1: samples(50, 60, 70),
			2: samples(50, 60, 70),
			3: samples(30),
			4: samples(50, 60, 70),
		},
	}
}

func TestEngine_Assess(t *testing.T) {
	src := scenarioSource()
	engine := NewEngine(src, WithClock(fixedClock))

	report, err := engine.Assess(context.Background(), []int64{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if report.Outcome != OutcomeRanked || report.NoData() {
		t.Errorf("Outcome = %q, want ranked", report.Outcome)
	}
	if src.calls != 5 {
		t.Errorf("history calls = %d, want 5", src.calls)
	}
	if want := fixedClock().Add(-60 * 24 * time.Hour); !src.since.Equal(want) {
		t.Errorf("since = %v, want %v", src.since, want)
	}

	wantOrder := []string{"C", "A", "B", "E", "D"}
	wantLabels := []string{WalkOnLabel, "Very Good", "Average", NotAvailable, "Down"}
	if len(report.Results) != len(wantOrder) {
		t.Fatalf("len(results) = %d, want %d", len(report.Results), len(wantOrder))
	}
	for i, r := range report.Results {
		if r.Name != wantOrder[i] {
			t.Errorf("results[%d] = %s, want %s", i, r.Name, wantOrder[i])
		}
		if r.Label != wantLabels[i] {
			t.Errorf("results[%d] label = %q, want %q", i, r.Label, wantLabels[i])
		}
	}
	if len(report.Degraded) != 0 {
		t.Errorf("Degraded = %v, want none", report.Degraded)
	}
}

func TestEngine_NoData(t *testing.T) {
	engine := NewEngine(&fakeSource{}, WithClock(fixedClock))
	report, err := engine.Assess(context.Background(), []int64{1, 2})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if !report.NoData() {
		t.Errorf("Outcome = %q, want no_data", report.Outcome)
	}
	if len(report.Results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(report.Results))
	}
}

func TestEngine_CurrentErrorAborts(t *testing.T) {
	src := scenarioSource()
	src.currentErr = store.ErrUnavailable
	engine := NewEngine(src, WithClock(fixedClock))

	report, err := engine.Assess(context.Background(), []int64{1})
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if report != nil {
		t.Errorf("report = %+v, want nil", report)
	}
}

func TestEngine_HistoryErrorIsolated(t *testing.T) {
	src := scenarioSource()
	src.historyErr = map[int64]error{1: store.ErrQuery}
	engine := NewEngine(src, WithClock(fixedClock))

	report, err := engine.Assess(context.Background(), []int64{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if len(report.Results) != 5 {
		t.Fatalf("len(results) = %d, want 5", len(report.Results))
	}
	if len(report.Degraded) != 1 || report.Degraded[0] != 1 {
		t.Errorf("Degraded = %v, want [1]", report.Degraded)
	}
	for _, r := range report.Results {
		if r.AttractionID == 1 && r.Label != NotAvailable {
			t.Errorf("attraction 1 label = %q, want N/A", r.Label)
		}
		if r.AttractionID == 2 && r.Label != "Average" {
			t.Errorf("attraction 2 label = %q, want Average", r.Label)
		}
	}
}

func TestEngine_BatchHistory(t *testing.T) {
	src := fakeBatchSource{scenarioSource()}
	engine := NewEngine(src, WithClock(fixedClock), WithBatchHistory(true))

	report, err := engine.Assess(context.Background(), []int64{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if src.calls != 0 {
		t.Errorf("per-attraction calls = %d, want 0", src.calls)
	}
	if report.Results[1].Label != "Very Good" {
		t.Errorf("results[1] label = %q, want Very Good", report.Results[1].Label)
	}
}

func TestEngine_BatchFallsBack(t *testing.T) {
	src := fakeBatchSource{scenarioSource()}
	src.batchErr = errors.New("too many parameters")
	engine := NewEngine(src, WithClock(fixedClock), WithBatchHistory(true))

	report, err := engine.Assess(context.Background(), []int64{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if src.calls != 5 {
		t.Errorf("per-attraction calls = %d, want 5", src.calls)
	}
	if len(report.Results) != 5 {
		t.Errorf("len(results) = %d, want 5", len(report.Results))
	}
}

func TestLegend(t *testing.T) {
	legend := Legend()
	if len(legend) != 5 {
		t.Fatalf("len(legend) = %d, want 5", len(legend))
	}
	if legend[0].Category != CategoryVeryGood || legend[4].Category != CategoryVeryBusy {
		t.Errorf("legend order = %v..%v", legend[0].Category, legend[4].Category)
	}
}

func ptr(f float64) *float64 { return &f }

func assertFloatPtr(t *testing.T, name string, got, want *float64) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil:
		t.Errorf("%s = nil, want %v", name, *want)
	case want == nil:
		t.Errorf("%s = %v, want nil", name, *got)
	case *got != *want:
		t.Errorf("%s = %v, want %v", name, *got, *want)
	}
}
