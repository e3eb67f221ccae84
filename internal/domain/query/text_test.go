package query_test

import (
	"testing"

	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/internal/domain/query"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseDate(t *testing.T) {
	Convey("Given dates in the accepted layouts", t, func() {
		cases := map[string]string{
			"2022-03-10":              "2022-03-10",
			"2022-11-07T09:51:02.000": "2022-11-07",
			"10/3/22":                 "2022-03-10",
			"10-03-2022":              "2022-03-10",
			"7th November 2022":       "2022-11-07",
			"November 7, 2022":        "2022-11-07",
			"1 feb 2023":              "2023-02-01",
		}

		Convey("Then they normalize day first to ISO", func() {
			for in, want := range cases {
				got, err := query.ParseDate(in)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})
	})

	Convey("Given impossible or unknown dates", t, func() {
		for _, in := range []string{"31/2/22", "2022-13-01", "yesterday", "13/13/2022"} {
			_, err := query.ParseDate(in)
			So(err, ShouldNotBeNil)
		}
	})

	Convey("Dates are found in text order without overlaps", t, func() {
		got := query.DatesInText("from 2022-11-07T09:51:02.000 until 24/3/23 and 2023-04-01")
		So(got, ShouldResemble, []string{"2022-11-07T09:51:02.000", "24/3/23", "2023-04-01"})
		So(query.MentionsDates("no dates here"), ShouldBeFalse)
	})
}

func TestTextCues(t *testing.T) {
	Convey("Reset commands are exact", t, func() {
		So(query.IsReset(" Reset Context "), ShouldBeTrue)
		So(query.IsReset("new question"), ShouldBeTrue)
		So(query.IsReset("reset the chart"), ShouldBeFalse)
	})

	Convey("Definition questions are recognized", t, func() {
		So(query.IsDefinitionQuestion("What is sparc"), ShouldBeTrue)
		So(query.IsDefinitionQuestion("explain range of motion"), ShouldBeTrue)
		So(query.IsDefinitionQuestion("area for patient 45"), ShouldBeFalse)
	})

	Convey("Patients, games and sessions are extracted", t, func() {
		p, ok := query.PatientInText("show 45_M please")
		So(ok, ShouldBeTrue)
		So(p, ShouldEqual, "45")
		p, ok = query.PatientInText("patient id 46 in game0")
		So(ok, ShouldBeTrue)
		So(p, ShouldEqual, "46")
		_, ok = query.PatientInText("game0 session 2")
		So(ok, ShouldBeFalse)

		So(query.GamesInText("Game 1 vs game02"), ShouldResemble, []string{"game1", "game2"})
		So(query.SessionsInText("session 2 and Session_10"), ShouldResemble, []string{"session_2", "session_10"})
	})

	Convey("Relative session phrases map to references", t, func() {
		cases := map[string]string{
			"the first session":       model.SessionFirst,
			"most recent session":     model.SessionLatest,
			"the session before that": model.SessionPrevious,
			"the following session":   model.SessionNext,
		}
		for in, want := range cases {
			got, ok := query.RelativeSessionInText(in)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, want)
		}
		_, ok := query.RelativeSessionInText("session 3")
		So(ok, ShouldBeFalse)
	})

	Convey("Metrics are found by column name or alias", t, func() {
		m, ok := query.MetricInText("how smooth was it, sparc wise", query.DefaultMetrics)
		So(ok, ShouldBeTrue)
		So(m, ShouldEqual, "average_sparc")
		m, ok = query.MetricInText("Range-of-Motion trend", query.DefaultMetrics)
		So(ok, ShouldBeTrue)
		So(m, ShouldEqual, "area")
		_, ok = query.MetricInText("from session 1", query.DefaultMetrics)
		So(ok, ShouldBeFalse)

		So(query.CanonicalMetric("ROM", query.DefaultMetrics), ShouldEqual, "area")
		So(query.CanonicalMetric("strength", query.DefaultMetrics), ShouldEqual, "avg_f_patient")
		So(query.CanonicalMetric("pulse", query.DefaultMetrics), ShouldEqual, "pulse")
	})
}
