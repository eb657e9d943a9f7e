package forecast

import (
	"encoding/json"
	"strconv"
)

// Point is a series value that may be absent. Absent points are encoded as
// JSON null.
type Point struct {
	Value float64
	Valid bool
}

// Some returns a present point.
func Some(v float64) Point { return Point{Value: v, Valid: true} }

// MarshalJSON implements json.Marshaler.
func (p Point) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Point) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Point{}
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*p = Some(v)
	return nil
}

// MovingAverage returns one point per count. Indexes with fewer than window
// trailing values are absent; the rest hold the mean of the trailing window.
func MovingAverage(counts []int, window int) []Point {
	out := make([]Point, len(counts))
	if window < 1 {
		return out
	}
	sum := 0
	for i, c := range counts {
		sum += c
		if i >= window {
			sum -= counts[i-window]
		}
		if i < window-1 {
			continue
		}
		out[i] = Some(float64(sum) / float64(window))
	}
	return out
}

// ExponentialSmoothing applies S0 = c0, Si = alpha*ci + (1-alpha)*S(i-1).
func ExponentialSmoothing(counts []int, alpha float64) []float64 {
	if len(counts) == 0 {
		return []float64{}
	}
	out := make([]float64, len(counts))
	out[0] = float64(counts[0])
	for i := 1; i < len(counts); i++ {
		out[i] = alpha*float64(counts[i]) + (1-alpha)*out[i-1]
	}
	return out
}

// Present drops absent points. Extrapolation must only ever see its output.
func Present(points []Point) []float64 {
	out := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Valid {
			out = append(out, p.Value)
		}
	}
	return out
}
