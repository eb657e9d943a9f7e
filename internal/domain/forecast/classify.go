package forecast

import (
	"fmt"
	"strconv"
)

// Trend types and labels.
const (
	TypePositive = "positive"
	TypeNegative = "negative"
	TypeNeutral  = "neutral"

	LabelGrowth  = "Growth"
	LabelDecline = "Decline"
	LabelStable  = "Stable"
	LabelUnknown = "Unknown"
)

// Thresholds on the percent change between recent actuals and the forecast.
const (
	GrowthThreshold  = 10.0
	DeclineThreshold = -5.0

	// recentWindow is how many trailing actual values form the baseline.
	recentWindow = 3
)

// Analysis is the qualitative narrative attached to a forecast.
type Analysis struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Classify compares the mean of the last three actual counts with the mean
// of the forecast values.
func Classify(actual []int, forecast []float64) Analysis {
	if len(actual) == 0 || len(forecast) == 0 {
		return Analysis{Type: TypeNeutral, Label: LabelUnknown, Text: "Insufficient data."}
	}

	recent := actual
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	meanActual := 0.0
	for _, c := range recent {
		meanActual += float64(c)
	}
	meanActual /= float64(len(recent))

	if meanActual == 0 {
		return Analysis{Type: TypeNeutral, Label: LabelStable, Text: "No recent activity."}
	}

	meanForecast := 0.0
	for _, f := range forecast {
		meanForecast += f
	}
	meanForecast /= float64(len(forecast))

	delta := (meanForecast - meanActual) / meanActual * 100
	pct := formatPercent(delta)

	switch {
	case delta > GrowthThreshold:
		return Analysis{
			Type:  TypePositive,
			Label: LabelGrowth,
			Text:  fmt.Sprintf("ISUVentra predicts a +%s%% surge based on trends.", pct),
		}
	case delta < DeclineThreshold:
		return Analysis{
			Type:  TypeNegative,
			Label: LabelDecline,
			Text:  fmt.Sprintf("ISUVentra predicts a %s%% drop. Considerations needed.", pct),
		}
	default:
		sign := ""
		if delta >= 0 {
			sign = "+"
		}
		return Analysis{
			Type:  TypeNeutral,
			Label: LabelStable,
			Text:  fmt.Sprintf("Attendance is expected to remain consistent with previous years (%s%s%%).", sign, pct),
		}
	}
}

// formatPercent rounds to one decimal and drops a trailing ".0".
func formatPercent(v float64) string {
	r := round(v, 1)
	if r == 0 {
		r = 0 // normalize -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
