package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it registers under the rehab_chat namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.tableRows.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "rehab_chat_table_rows")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithMetricPrefix("x_"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.parseCacheHits.Inc()

			Convey("Then names and constant labels follow the options", func() {
				expected := `
# HELP test_sub_x_parse_cache_hits_total Parsed questions served from the cache
# TYPE test_sub_x_parse_cache_hits_total counter
test_sub_x_parse_cache_hits_total{env="test"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_sub_x_parse_cache_hits_total")
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording chat metrics", func() {
			before := testutil.ToFloat64(globalManager.turns.WithLabelValues("point"))
			RecordTurn("point")
			RecordTurnLatency(12)

			Convey("Then the turn counter moves", func() {
				So(testutil.ToFloat64(globalManager.turns.WithLabelValues("point")), ShouldEqual, before+1)
			})
		})

		Convey("When recording parser and fallback metrics", func() {
			hits := testutil.ToFloat64(globalManager.parseCacheHits)
			So(func() {
				RecordParseLatency("rules", 0.4)
				RecordParseCacheHit()
				RecordParseCacheMiss()
				RecordFallback("ok")
				RecordFallbackLatency(2500)
				RecordFallbackUpload()
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.parseCacheHits), ShouldEqual, hits+1)
		})

		Convey("When recording interpreter and table metrics", func() {
			UpdateTableRows(120)
			UpdateTableUnparseableDates(2)
			UpdateTableInvalidCells(5)
			So(func() {
				RecordQuery("point", "ok")
				RecordInterpretLatency("point", 0.2)
				RecordTableQueryLatency(0.05)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.tableRows), ShouldEqual, 120)
			So(testutil.ToFloat64(globalManager.tableInvalidCells), ShouldEqual, 5)
		})

		Convey("When recording HTTP, error and system metrics", func() {
			So(func() {
				RecordHTTPRequest("/chat", "POST", "200")
				RecordHTTPRequestDuration("/chat", "POST", "200", 0.02)
				RecordErrorByComponent("interpreter", "no_data")
				RecordErrorByEndpoint("/chat", "POST", "bad_request")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given a manager configured with a clinic namespace", t, func() {
		Configure(WithNamespace("clinic"), WithCustomLabels(map[string]string{"site": "lab"}))
		defer Configure()

		UpdateTableRows(4)

		Convey("Then the global recorders write to the new registry", func() {
			expected := `
# HELP clinic_chat_table_rows Rows loaded into the metrics table
# TYPE clinic_chat_table_rows gauge
clinic_chat_table_rows{site="lab"} 4
`
			err := testutil.GatherAndCompare(GetRegistry(), strings.NewReader(expected), "clinic_chat_table_rows")
			So(err, ShouldBeNil)
		})
	})
}
