package forecast

import (
	"time"
)

// Engine computes forecasts. The zero value is not usable; call NewEngine.
// An Engine holds only configuration and is safe for concurrent use.
type Engine struct {
	window   int
	alpha    float64
	horizon  int
	location *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the timezone used to derive calendar years.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// NewEngine creates an engine with the package defaults.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		window:   DefaultWindow,
		alpha:    DefaultAlpha,
		horizon:  DefaultHorizon,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report is the outcome of Analyze.
type Report struct {
	Results map[string]Result
	Skipped int
}

// Compute maps every base event name in records to its Result.
func (e *Engine) Compute(records []Record) map[string]Result {
	return e.Analyze(records).Results
}

// Analyze is Compute plus grouping statistics.
func (e *Engine) Analyze(records []Record) Report {
	g := Group(records, e.location)
	results := make(map[string]Result, len(g.Series))
	for name, s := range g.Series {
		results[name] = e.forSeries(s)
	}
	return Report{Results: results, Skipped: g.Skipped}
}

func (e *Engine) forSeries(s *YearlySeries) Result {
	if len(s.Years) < MinYears {
		return Result{Insufficient: &Insufficient{
			Message:        InsufficientDataMessage,
			AvailableYears: len(s.Years),
		}}
	}

	movingAvg := MovingAverage(s.Counts, e.window)
	smoothed := ExponentialSmoothing(s.Counts, e.alpha)

	forecastExp := Extrapolate(smoothed, e.horizon)
	forecastMA := Extrapolate(Present(movingAvg), e.horizon)

	last := s.Years[len(s.Years)-1]
	future := make([]int, e.horizon)
	for k := range future {
		future[k] = last + k + 1
	}

	return Result{Forecast: &Forecast{
		Years:                 yearStrings(s.Years),
		Actual:                append([]int(nil), s.Counts...),
		MovingAverage:         movingAvg,
		ExponentialSmoothing:  smoothed,
		ForecastYears:         yearStrings(future),
		ForecastExponential:   forecastExp,
		ForecastMovingAverage: forecastMA,
		Analysis:              Classify(s.Counts, forecastExp),
	}}
}
