package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/rehabchat/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSessionLabels(t *testing.T) {
	Convey("Given session labels in different spellings", t, func() {
		cases := map[string]string{
			"session_2":   "session_2",
			"Session 2":   "session_2",
			"session 02":  "session_2",
			"SESSION_14":  "session_14",
			"in session3": "session_3",
		}

		Convey("Then they normalize to session_N", func() {
			for in, want := range cases {
				got, ok := model.NormalizeSession(in)
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, want)
			}
		})

		Convey("And text without a number is rejected", func() {
			_, ok := model.NormalizeSession("latest session")
			So(ok, ShouldBeFalse)
			_, ok = model.SessionNumber("")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given an observation", t, func() {
		o := model.Observation{Session: "session_7", Values: map[string]float64{"area": 1.5}}

		Convey("Then its session number and values are exposed", func() {
			n, ok := o.SessionNumber()
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, 7)

			v, ok := o.Value("area")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 1.5)

			_, ok = o.Value("avg_efficiency")
			So(ok, ShouldBeFalse)
			So(o.HasDate(), ShouldBeFalse)
		})
	})
}

func TestDescriptor(t *testing.T) {
	Convey("Given a compare descriptor", t, func() {
		d := model.Descriptor{
			QueryType: model.QueryCompare,
			PatientID: "45",
			Metric:    "area",
			Game:      "game0",
			DateRange: &model.DateRange{Start: "2022-03-10", End: "2022-03-25"},
			CompareTo: &model.Selector{DateRange: &model.DateRange{Start: "2022-04-01", End: "2022-04-10"}},
		}

		Convey("When cloning it", func() {
			c := d.Clone()
			c.DateRange.Start = "2000-01-01"
			c.CompareTo.DateRange.End = "2000-01-02"

			Convey("Then the original is untouched", func() {
				So(d.DateRange.Start, ShouldEqual, "2022-03-10")
				So(d.CompareTo.DateRange.End, ShouldEqual, "2022-04-10")
			})
		})

		Convey("When deriving the conversation context", func() {
			ctx := model.ContextFrom(d)

			Convey("Then patient, metric, game and range carry forward", func() {
				So(ctx.PatientID, ShouldEqual, "45")
				So(ctx.Metric, ShouldEqual, "area")
				So(ctx.Game, ShouldEqual, "game0")
				So(*ctx.DateRange, ShouldResemble, model.DateRange{Start: "2022-03-10", End: "2022-03-25"})
				So(ctx.IsZero(), ShouldBeFalse)
			})
		})

		Convey("Then its primary selector is the date range", func() {
			s := d.Selector()
			So(s.Empty(), ShouldBeFalse)
			So(s.DateRange, ShouldNotBeNil)
		})
	})

	Convey("Given a point descriptor on a single date", t, func() {
		ctx := model.ContextFrom(model.Descriptor{QueryType: model.QueryPoint, Date: "2022-03-10"})
		So(*ctx.DateRange, ShouldResemble, model.DateRange{Start: "2022-03-10", End: "2022-03-10"})
	})

	Convey("Query types are closed", t, func() {
		So(model.QueryPoint.Known(), ShouldBeTrue)
		So(model.QuerySessionRange.Known(), ShouldBeTrue)
		So(model.QueryType("histogram").Known(), ShouldBeFalse)
		So(model.QueryType("").Known(), ShouldBeFalse)
	})
}

func TestEnvelopeJSON(t *testing.T) {
	Convey("Given a point envelope", t, func() {
		env := model.Envelope{
			Type:   model.ResponsePoint,
			Answer: "ok",
			Data:   model.PointResult{Value: 37.5, N: 1},
		}
		raw, err := json.Marshal(env)
		So(err, ShouldBeNil)

		var back map[string]any
		So(json.Unmarshal(raw, &back), ShouldBeNil)

		Convey("Then the wire shape is {type, answer, data, context}", func() {
			So(back["type"], ShouldEqual, "point")
			So(back["data"].(map[string]any)["value"], ShouldEqual, 37.5)
			So(back["context"], ShouldResemble, map[string]any{})
		})
	})

	Convey("Directions follow the sign of the change", t, func() {
		So(model.DirectionOf(1.2), ShouldEqual, model.DirectionIncrease)
		So(model.DirectionOf(-0.1), ShouldEqual, model.DirectionDecrease)
		So(model.DirectionOf(0), ShouldEqual, model.DirectionNoChange)
	})
}
