package forecast

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 9, 0, 0, 0, time.UTC)
}

func repeat(title string, ts time.Time, n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{EventTitle: title, TimeIn: ts}
	}
	return out
}

func TestBaseName(t *testing.T) {
	Convey("Given event titles", t, func() {
		Convey("A trailing year is stripped", func() {
			So(BaseName("Tech Fest 2023"), ShouldEqual, "Tech Fest")
		})
		Convey("Titles without a year are unchanged", func() {
			So(BaseName("Open Forum"), ShouldEqual, "Open Forum")
		})
		Convey("Only an exact four digit token counts", func() {
			So(BaseName("Batch 202"), ShouldEqual, "Batch 202")
			So(BaseName("Summit 20245"), ShouldEqual, "Summit 20245")
			So(BaseName("Expo 2023a"), ShouldEqual, "Expo 2023a")
		})
		Convey("A year in the middle is kept", func() {
			So(BaseName("Class 2023 Reunion"), ShouldEqual, "Class 2023 Reunion")
		})
	})
}

func TestMovingAverage(t *testing.T) {
	Convey("Given counts [4,6,5] and window 3", t, func() {
		got := MovingAverage([]int{4, 6, 5}, 3)

		Convey("The first two points are absent and the third is the mean", func() {
			So(got, ShouldHaveLength, 3)
			So(got[0].Valid, ShouldBeFalse)
			So(got[1].Valid, ShouldBeFalse)
			So(got[2], ShouldResemble, Some(5))
		})

		Convey("Absent points encode as null", func() {
			data, err := json.Marshal(got)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "[null,null,5]")
		})
	})

	Convey("Given a longer series the window slides", t, func() {
		got := Present(MovingAverage([]int{3, 6, 9, 12}, 3))
		So(got, ShouldResemble, []float64{6, 9})
	})
}

func TestExponentialSmoothing(t *testing.T) {
	Convey("Given counts [10,20] and alpha 0.4", t, func() {
		got := ExponentialSmoothing([]int{10, 20}, DefaultAlpha)

		So(got, ShouldHaveLength, 2)
		So(got[0], ShouldEqual, 10)
		So(got[1], ShouldAlmostEqual, 14, 1e-9)
	})

	Convey("Given no counts", t, func() {
		So(ExponentialSmoothing(nil, DefaultAlpha), ShouldBeEmpty)
	})
}

func TestExtrapolate(t *testing.T) {
	Convey("Given a rising series [10,14]", t, func() {
		So(Extrapolate([]float64{10, 14}, 3), ShouldResemble, []float64{18, 22, 26})
	})

	Convey("Given a falling series the forecast clamps at zero", t, func() {
		So(Extrapolate([]float64{10, 7}, 3), ShouldResemble, []float64{4, 1, 0})
		So(Extrapolate([]float64{10, 4}, 3), ShouldResemble, []float64{0, 0, 0})
	})

	Convey("Given fewer than two points the forecast is zeros", t, func() {
		So(Extrapolate([]float64{5}, 3), ShouldResemble, []float64{0, 0, 0})
		So(Extrapolate(nil, 3), ShouldResemble, []float64{0, 0, 0})
	})

	Convey("Values are rounded to two decimals", t, func() {
		got := Extrapolate([]float64{1, 1.333}, 1)
		So(got[0], ShouldEqual, 1.67)
	})
}

func TestClassify(t *testing.T) {
	Convey("Given recent actuals [8,10,9] and forecast [20,22,24]", t, func() {
		a := Classify([]int{8, 10, 9}, []float64{20, 22, 24})

		So(a.Type, ShouldEqual, TypePositive)
		So(a.Label, ShouldEqual, LabelGrowth)
		So(a.Text, ShouldEqual, "ISUVentra predicts a +144.4% surge based on trends.")
	})

	Convey("Given a forecast well below recent actuals", t, func() {
		a := Classify([]int{10, 10, 10}, []float64{8, 8, 8})

		So(a.Type, ShouldEqual, TypeNegative)
		So(a.Label, ShouldEqual, LabelDecline)
		So(a.Text, ShouldEqual, "ISUVentra predicts a -20% drop. Considerations needed.")
	})

	Convey("Given a small change", t, func() {
		a := Classify([]int{10, 10, 10}, []float64{10.5, 10.5, 10.5})

		So(a.Type, ShouldEqual, TypeNeutral)
		So(a.Label, ShouldEqual, LabelStable)
		So(a.Text, ShouldContainSubstring, "+5%")
	})

	Convey("Only the last three actuals form the baseline", t, func() {
		a := Classify([]int{1000, 10, 10, 10}, []float64{10, 10, 10})
		So(a.Label, ShouldEqual, LabelStable)
	})

	Convey("Given no recent activity", t, func() {
		a := Classify([]int{0, 0}, []float64{0, 0, 0})
		So(a, ShouldResemble, Analysis{Type: TypeNeutral, Label: LabelStable, Text: "No recent activity."})
	})

	Convey("Given empty input", t, func() {
		So(Classify(nil, []float64{1}).Label, ShouldEqual, LabelUnknown)
		So(Classify([]int{1}, nil).Label, ShouldEqual, LabelUnknown)
	})
}

func TestGroup(t *testing.T) {
	Convey("Given records across years and titles", t, func() {
		var records []Record
		records = append(records, repeat("Tech Fest 2022", at(2022, 3, 1), 2)...)
		records = append(records, repeat("Tech Fest 2023", at(2023, 3, 1), 3)...)
		records = append(records, repeat("Tech Fest", at(2023, 9, 1), 1)...)
		records = append(records, Record{EventTitle: "", TimeIn: at(2023, 1, 1)})
		records = append(records, Record{EventTitle: "Open Forum"})

		g := Group(records, time.UTC)

		Convey("Yearly instances merge into one ascending series", func() {
			s := g.Series["Tech Fest"]
			So(s, ShouldNotBeNil)
			So(s.Years, ShouldResemble, []int{2022, 2023})
			So(s.Counts, ShouldResemble, []int{2, 4})
		})

		Convey("Unusable records are skipped, not fatal", func() {
			So(g.Skipped, ShouldEqual, 2)
			So(g.Names(), ShouldResemble, []string{"Tech Fest"})
		})
	})

	Convey("Given a timestamp near new year", t, func() {
		manila := time.FixedZone("Asia/Manila", 8*60*60)
		records := []Record{{EventTitle: "Countdown", TimeIn: time.Date(2023, 12, 31, 20, 0, 0, 0, time.UTC)}}

		Convey("The year follows the configured location", func() {
			So(Group(records, manila).Series["Countdown"].Years, ShouldResemble, []int{2024})
			So(Group(records, nil).Series["Countdown"].Years, ShouldResemble, []int{2023})
		})
	})
}

func TestEngine(t *testing.T) {
	Convey("Given a snapshot with one recurring and one single-year event", t, func() {
		var records []Record
		records = append(records, repeat("Tech Fest 2022", at(2022, 5, 1), 4)...)
		records = append(records, repeat("Tech Fest 2023", at(2023, 5, 1), 6)...)
		records = append(records, repeat("Tech Fest 2024", at(2024, 5, 1), 5)...)
		records = append(records, repeat("Open Forum", at(2024, 2, 1), 2)...)
		records = append(records, Record{TimeIn: at(2024, 1, 1)})

		report := NewEngine().Analyze(records)

		Convey("The recurring event gets the full forecast", func() {
			res := report.Results["Tech Fest"]
			So(res.IsInsufficient(), ShouldBeFalse)

			f := res.Forecast
			So(f.Years, ShouldResemble, []string{"2022", "2023", "2024"})
			So(f.Actual, ShouldResemble, []int{4, 6, 5})
			So(f.MovingAverage[2], ShouldResemble, Some(5))
			So(f.ExponentialSmoothing[1], ShouldAlmostEqual, 4.8, 1e-9)
			So(f.ExponentialSmoothing[2], ShouldAlmostEqual, 4.88, 1e-9)
			So(f.ForecastYears, ShouldResemble, []string{"2025", "2026", "2027"})
			So(f.ForecastExponential[0], ShouldAlmostEqual, 4.96, 1e-9)
			So(f.ForecastExponential[2], ShouldAlmostEqual, 5.12, 1e-9)
			So(f.ForecastMovingAverage, ShouldResemble, []float64{0, 0, 0})
			So(f.Analysis.Label, ShouldEqual, LabelStable)
		})

		Convey("The single-year event gets the insufficient variant", func() {
			res := report.Results["Open Forum"]
			So(res.IsInsufficient(), ShouldBeTrue)

			data, err := json.Marshal(res)
			So(err, ShouldBeNil)

			var shape map[string]any
			So(json.Unmarshal(data, &shape), ShouldBeNil)
			So(shape, ShouldHaveLength, 2)
			So(shape["message"], ShouldEqual, InsufficientDataMessage)
			So(shape["available_years"], ShouldEqual, float64(1))
			So(shape, ShouldNotContainKey, "forecast_exponential")
		})

		Convey("Skipped records are reported", func() {
			So(report.Skipped, ShouldEqual, 1)
		})

		Convey("Compute returns the same mapping", func() {
			So(NewEngine().Compute(records), ShouldHaveLength, 2)
		})
	})

	Convey("Given an empty snapshot", t, func() {
		So(NewEngine().Compute(nil), ShouldBeEmpty)
	})
}

func TestResultJSON(t *testing.T) {
	Convey("Given a full forecast result", t, func() {
		res := NewEngine().Compute(append(
			repeat("Hackathon 2023", at(2023, 1, 1), 10),
			repeat("Hackathon 2024", at(2024, 1, 1), 20)...,
		))["Hackathon"]

		data, err := json.Marshal(res)
		So(err, ShouldBeNil)

		Convey("It decodes back into the forecast variant", func() {
			var back Result
			So(json.Unmarshal(data, &back), ShouldBeNil)
			So(back.Forecast, ShouldNotBeNil)
			So(back.Insufficient, ShouldBeNil)
			So(back.Forecast.ForecastExponential, ShouldResemble, []float64{18, 22, 26})
			So(back.Forecast.MovingAverage[0].Valid, ShouldBeFalse)
		})
	})

	Convey("An empty result refuses to marshal", t, func() {
		_, err := json.Marshal(Result{})
		So(err, ShouldNotBeNil)
	})
}
