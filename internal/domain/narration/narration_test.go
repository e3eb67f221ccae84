package narration

import (
	"testing"

	"github.com/okian/rehabchat/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func pct(v float64) *float64 { return &v }

func TestPoint(t *testing.T) {
	Convey("Given a single-row point result", t, func() {
		p := &model.PointResult{PatientID: "45", Metric: "area", Game: "game0", Date: "2022-03-10", Session: "session_1", Value: 37.5, N: 1}

		Convey("Then the value is printed with six decimals", func() {
			So(Point(p), ShouldEqual,
				"For patient 45, the range of motion (area) value is 37.500000 in game0, session_1 on 2022-03-10.")
		})
	})

	Convey("Given an averaged duration", t, func() {
		p := &model.PointResult{PatientID: "45", Metric: "timestampms", Game: "game0", Date: "2022-03-12", Value: 3723000, N: 2, Skipped: 1}
		So(Point(p), ShouldEqual,
			"For patient 45, the session duration is 1h 2m 3s in game0 on 2022-03-12 (mean of 2 records)."+
				" 1 record with a missing or invalid value was skipped.")
	})
}

func TestTimeseries(t *testing.T) {
	Convey("Given a rising series with a baseline note", t, func() {
		ts := &model.TimeseriesResult{
			Metric:            "area",
			FirstDate:         "2022-03-10",
			LastDate:          "2022-03-25",
			Change:            6.5,
			RelativeChangePct: pct(17.3333),
			Classification:    &model.TrendClass{Label: "variable"},
			BaselineNote:      "No data on requested start date 2022-03-01; using first available date 2022-03-10 as baseline.",
		}
		got := Timeseries(ts)

		So(got, ShouldStartWith, "I found patient records from 2022-03-10 to 2022-03-25. ")
		So(got, ShouldContainSubstring, "the average range of motion increased by 6.5000, which corresponds to a 17.33% change from the baseline.")
		So(got, ShouldContainSubstring, "using first available date 2022-03-10 as baseline.")
		So(got, ShouldContainSubstring, "This change suggests increased range of motion.")
		So(got, ShouldEndWith, "but it increased overall from the first to the last date.")
	})

	Convey("Given a falling duration without a baseline", t, func() {
		ts := &model.TimeseriesResult{
			Metric:         "timestampms",
			FirstDate:      "2022-03-10",
			LastDate:       "2022-03-12",
			Change:         -65000,
			Classification: &model.TrendClass{Label: "worsening", Reason: "values generally worsened from session to session"},
		}
		got := Timeseries(ts)
		So(got, ShouldContainSubstring, "the average session duration decreased by 1m 5s.")
		So(got, ShouldContainSubstring, "This change is consistent with shorter session duration.")
		So(got, ShouldEndWith, "Values generally worsened from session to session.")
	})
}

func TestSessionRange(t *testing.T) {
	Convey("Given a session range summary", t, func() {
		sr := &model.SessionRangeResult{
			Metric:            "average_sparc",
			FirstSession:      "session_1",
			LastSession:       "session_4",
			Change:            0.1,
			RelativeChangePct: pct(4),
			Count:             4,
			Min:               -1.8,
			Max:               -1.5,
			Mean:              -1.65,
			Classification:    &model.TrendClass{Label: "improving", Reason: "values generally improved from session to session"},
		}
		got := SessionRange(sr)
		So(got, ShouldContainSubstring, "Over this session range, the average movement smoothness increased by 0.1000")
		So(got, ShouldContainSubstring, "This change may indicate smoother, more continuous, better-coordinated movement.")
		So(got, ShouldContainSubstring, "Values generally improved from session to session.")
		So(got, ShouldEndWith, "Across 4 records the values ranged from -1.8000 to -1.5000 (mean -1.6500).")
	})
}

func TestCompare(t *testing.T) {
	Convey("Given two sessions", t, func() {
		c := &model.CompareResult{
			PatientID:         "45",
			Metric:            "area",
			Game:              "game0",
			A:                 model.CompareSide{Label: "session_5"},
			B:                 model.CompareSide{Label: "session_1"},
			ValueA:            44,
			ValueB:            37.5,
			Difference:        6.5,
			RelativeChangePct: pct(17.3333),
		}
		So(Compare(c), ShouldEqual,
			"For patient 45 in game0, the average range of motion was 44.0000 for session_5 and 37.5000 for session_1."+
				" The difference (session_5 - session_1) is 6.5000."+
				" This corresponds to a 17.33% change relative to session_1."+
				" Compared with session_1, this suggests increased range of motion.")
	})
}

func TestHelpers(t *testing.T) {
	Convey("Hedges follow the effect size", t, func() {
		So(Hedge(nil), ShouldEqual, "is consistent with")
		So(Hedge(pct(0)), ShouldEqual, "is consistent with")
		So(Hedge(pct(-3)), ShouldEqual, "may indicate")
		So(Hedge(pct(10)), ShouldEqual, "is consistent with")
		So(Hedge(pct(-40)), ShouldEqual, "suggests")
	})

	Convey("Durations drop leading zero units", t, func() {
		So(Duration(3723000), ShouldEqual, "1h 2m 3s")
		So(Duration(65000), ShouldEqual, "1m 5s")
		So(Duration(4400), ShouldEqual, "4s")
		So(Duration(-65000), ShouldEqual, "-1m 5s")
	})

	Convey("Definitions exist for every default metric", t, func() {
		for _, m := range []string{"area", "average_sparc", "avg_efficiency", "avg_f_patient", "timestampms"} {
			d, ok := Define(m)
			So(ok, ShouldBeTrue)
			So(d.Explanation, ShouldNotBeEmpty)
		}
		_, ok := Define("pulse")
		So(ok, ShouldBeFalse)
	})

	Convey("Unknown metrics keep their column name", t, func() {
		So(DisplayName("avg_path_ratio"), ShouldEqual, "avg_path_ratio")
		So(Interpretation("avg_path_ratio", 1), ShouldBeEmpty)
	})

	Convey("Fallback answers carry warnings", t, func() {
		So(Fallback(model.FallbackResult{Answer: " 42 sessions ", Warnings: []string{"3 rows dropped"}}),
			ShouldEqual, "42 sessions Warnings: 3 rows dropped.")
	})
}
