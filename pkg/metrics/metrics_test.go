package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a custom registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered on that registry", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Registry(), ShouldEqual, registry)

				manager.RecordScan("scan_in", "joined")
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_scans_total")
			})
		})

		Convey("When creating with defaults", func() {
			manager := NewManager()

			Convey("Then a private registry is used", func() {
				So(manager.Registry(), ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given an enabled manager", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When recording scans", func() {
			manager.RecordScan("scan_in", "joined")
			manager.RecordScan("scan_in", "joined")
			manager.RecordScan("scan_in", "already_in")

			Convey("Then counters are labelled by outcome", func() {
				So(testutil.ToFloat64(manager.scans.WithLabelValues("scan_in", "joined")), ShouldEqual, 2)
				So(testutil.ToFloat64(manager.scans.WithLabelValues("scan_in", "already_in")), ShouldEqual, 1)
			})
		})

		Convey("When recording cache lookups", func() {
			manager.RecordCacheHit()
			manager.RecordCacheMiss()
			manager.RecordCacheMiss()

			Convey("Then hits and misses are split", func() {
				So(testutil.ToFloat64(manager.cacheLookups.WithLabelValues("hit")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.cacheLookups.WithLabelValues("miss")), ShouldEqual, 2)
			})
		})

		Convey("When recording a forecast", func() {
			manager.ObserveForecast(15*time.Millisecond, 4, 2)

			Convey("Then the series gauge and skipped counter move", func() {
				So(testutil.ToFloat64(manager.forecastSeries), ShouldEqual, 4)
				So(testutil.ToFloat64(manager.skippedRecords), ShouldEqual, 2)
			})
		})

		Convey("When recording event handlers", func() {
			manager.ObserveEventHandler("participation.joined", time.Millisecond, nil)
			manager.ObserveEventHandler("participation.joined", time.Millisecond, errors.New("boom"))

			Convey("Then success and failure are separate series", func() {
				So(testutil.CollectAndCount(manager.eventHandlers), ShouldEqual, 2)
			})
		})

		Convey("When recording job runs", func() {
			manager.RecordJobRun("warm", nil)
			manager.RecordJobRun("warm", errors.New("boom"))

			Convey("Then success and failure are counted", func() {
				So(testutil.ToFloat64(manager.jobRuns.WithLabelValues("warm", "success")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.jobRuns.WithLabelValues("warm", "failure")), ShouldEqual, 1)
			})
		})

		Convey("When scraping the handler", func() {
			manager.RecordHTTPRequest("GET /health", "GET", 200, time.Millisecond)
			rec := httptest.NewRecorder()
			manager.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

			Convey("Then the exposition contains the request counter", func() {
				So(rec.Code, ShouldEqual, 200)
				So(strings.Contains(rec.Body.String(), "attendance_hub_http_requests_total"), ShouldBeTrue)
			})
		})
	})

	Convey("Given a disabled manager", t, func() {
		manager := Nop()

		Convey("When recording", func() {
			manager.RecordScan("scan_out", "timed_out")
			manager.RecordTxRetry()

			Convey("Then nothing is counted", func() {
				So(testutil.ToFloat64(manager.scans.WithLabelValues("scan_out", "timed_out")), ShouldEqual, 0)
				So(testutil.ToFloat64(manager.txRetries), ShouldEqual, 0)
			})
		})
	})
}
