package forecast

import (
	"encoding/json"
	"errors"
	"strconv"
)

// InsufficientDataMessage is reported for series shorter than MinYears.
const InsufficientDataMessage = "Insufficient historical data (Needs 2+ years)."

// Result is the forecast of one base event. Exactly one of Forecast and
// Insufficient is set, and the JSON form is the corresponding shape.
type Result struct {
	Forecast     *Forecast
	Insufficient *Insufficient
}

// Forecast is the full variant.
type Forecast struct {
	Years                 []string  `json:"years"`
	Actual                []int     `json:"actual"`
	MovingAverage         []Point   `json:"moving_average"`
	ExponentialSmoothing  []float64 `json:"exponential_smoothing"`
	ForecastYears         []string  `json:"forecast_years"`
	ForecastExponential   []float64 `json:"forecast_exponential"`
	ForecastMovingAverage []float64 `json:"forecast_moving_average"`
	Analysis              Analysis  `json:"analysis"`
}

// Insufficient is the variant for short histories.
type Insufficient struct {
	Message        string `json:"message"`
	AvailableYears int    `json:"available_years"`
}

// IsInsufficient reports whether the result is the short-history variant.
func (r Result) IsInsufficient() bool {
	return r.Insufficient != nil
}

// MarshalJSON emits the active variant.
func (r Result) MarshalJSON() ([]byte, error) {
	switch {
	case r.Forecast != nil:
		return json.Marshal(r.Forecast)
	case r.Insufficient != nil:
		return json.Marshal(r.Insufficient)
	default:
		return nil, errors.New("forecast: empty result")
	}
}

// UnmarshalJSON detects the variant by the presence of "message".
func (r *Result) UnmarshalJSON(data []byte) error {
	var shape struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}
	if shape.Message != nil {
		var ins Insufficient
		if err := json.Unmarshal(data, &ins); err != nil {
			return err
		}
		*r = Result{Insufficient: &ins}
		return nil
	}
	var f Forecast
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Result{Forecast: &f}
	return nil
}

func yearStrings(years []int) []string {
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = strconv.Itoa(y)
	}
	return out
}
