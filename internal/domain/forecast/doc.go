// Package forecast turns a participation snapshot into per-event attendance
// forecasts.
//
// The pipeline is pure and stateless:
//
//	records ──Group──▶ YearlySeries ──▶ MovingAverage / ExponentialSmoothing
//	                                     │
//	                                     ▼
//	                          Extrapolate (3 years ahead) ──▶ Classify
//
// Recurring events are merged by BaseName ("Tech Fest 2023" and
// "Tech Fest 2024" both feed "Tech Fest"). A series with fewer than two
// distinct years yields the insufficient-data Result variant instead of an
// error.
package forecast

// Pipeline constants. Alpha is fixed at 0.4; changing it materially changes
// every published forecast.
const (
	DefaultWindow  = 3
	DefaultAlpha   = 0.4
	DefaultHorizon = 3

	// MinYears is the shortest history that produces a forecast.
	MinYears = 2
)
