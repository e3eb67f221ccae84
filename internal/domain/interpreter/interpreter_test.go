package interpreter

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/rehabchat/internal/adapters/repository"
	"github.com/okian/rehabchat/internal/domain/errs"
	"github.com/okian/rehabchat/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const testCSV = `patient,date,game,session,area,average_sparc
45,10/3/22,game0,session_1,37.5,-1.8
45,2022-03-12,game0,session_2,40,-1.7
45,2022-03-12,game0,session_3,42,-1.6
45,2022-03-18,game0,session_4,39,-1.5
45,2022-03-25,game0,session_5,44,inf
45,2022-03-25,game1,session_1,10,-2
46,2022-03-10,game0,session_1,inf,-2
`

// Same game0 rows for patient 45 as testCSV, in file order unrelated to date.
const shuffledCSV = `patient,date,game,session,area,average_sparc
45,2022-03-25,game0,session_5,44,-1.4
45,2022-03-12,game0,session_3,42,-1.6
45,10/3/22,game0,session_1,37.5,-1.8
45,2022-03-18,game0,session_4,39,-1.5
45,2022-03-12,game0,session_2,40,-1.7
`

func newTestInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	return newInterpreterFrom(t, testCSV)
}

func newInterpreterFrom(t *testing.T, csv string) *Interpreter {
	t.Helper()
	table, err := repository.NewTable(context.Background(), []byte(csv))
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	return New(table)
}

func base(qt model.QueryType) model.Descriptor {
	return model.Descriptor{QueryType: qt, PatientID: "45", Metric: "area", Game: "game0"}
}

func TestPoint(t *testing.T) {
	ctx := context.Background()
	in := newTestInterpreter(t)

	Convey("Given a point query on a date with a single row", t, func() {
		d := base(model.QueryPoint)
		d.Date = "2022-03-10"
		res, err := in.Interpret(ctx, d)

		Convey("Then the exact value is returned", func() {
			So(err, ShouldBeNil)
			So(res.Type(), ShouldEqual, model.ResponsePoint)
			So(res.Point.Value, ShouldEqual, 37.5)
			So(res.Point.N, ShouldEqual, 1)
			So(res.Point.Rows[0].Session, ShouldEqual, "session_1")
		})
	})

	Convey("Given a point query on a date with several rows", t, func() {
		d := base(model.QueryPoint)
		d.Date = "2022-03-12"
		res, err := in.Interpret(ctx, d)
		So(err, ShouldBeNil)
		So(res.Point.Value, ShouldEqual, 41)
		So(res.Point.N, ShouldEqual, 2)
	})

	Convey("Given a point query on the latest session", t, func() {
		d := base(model.QueryPoint)
		d.Session = model.SessionLatest
		res, err := in.Interpret(ctx, d)

		Convey("Then the session is resolved against the table", func() {
			So(err, ShouldBeNil)
			So(res.Descriptor.Session, ShouldEqual, "session_5")
			So(res.Point.Value, ShouldEqual, 44)
			So(res.Point.Date, ShouldEqual, "2022-03-25")
		})
	})

	Convey("Given a previous session anchored on session_3", t, func() {
		d := base(model.QueryPoint)
		d.Session = model.SessionPrevious
		d.Anchor = "session_3"
		res, err := in.Interpret(ctx, d)
		So(err, ShouldBeNil)
		So(res.Descriptor.Session, ShouldEqual, "session_2")
		So(res.Point.Value, ShouldEqual, 40)
	})

	Convey("Given a previous session without an anchor", t, func() {
		d := base(model.QueryPoint)
		d.Session = model.SessionPrevious
		_, err := in.Interpret(ctx, d)
		So(errors.Is(err, errs.ErrParse), ShouldBeTrue)
	})

	Convey("Given a next session after the last one", t, func() {
		d := base(model.QueryPoint)
		d.Session = model.SessionNext
		d.Anchor = "session_5"
		_, err := in.Interpret(ctx, d)
		So(errors.Is(err, errs.ErrNoData), ShouldBeTrue)
	})

	Convey("Given a point query with a one-day range", t, func() {
		d := base(model.QueryPoint)
		d.DateRange = &model.DateRange{Start: "2022-03-18", End: "2022-03-18"}
		res, err := in.Interpret(ctx, d)
		So(err, ShouldBeNil)
		So(res.Point.Value, ShouldEqual, 39)
		So(d.DateRange, ShouldNotBeNil)
	})

	Convey("Given a point query without a selection", t, func() {
		_, err := in.Interpret(ctx, base(model.QueryPoint))
		So(errors.Is(err, errs.ErrParse), ShouldBeTrue)
	})
}

func TestTimeseries(t *testing.T) {
	ctx := context.Background()
	in := newTestInterpreter(t)

	Convey("Given a table whose rows are not in date order", t, func() {
		d := base(model.QueryTimeseries)
		d.DateRange = &model.DateRange{Start: "2022-03-10", End: "2022-03-25"}
		res, err := newInterpreterFrom(t, shuffledCSV).Interpret(ctx, d)
		So(err, ShouldBeNil)
		points := res.Timeseries.Points

		Convey("Then the points come back ascending by date", func() {
			So(len(points), ShouldEqual, 5)
			for i := 0; i+1 < len(points); i++ {
				So(points[i].Date, ShouldBeLessThanOrEqualTo, points[i+1].Date)
			}
			So(points[0].Date, ShouldEqual, "2022-03-10")
			So(points[4].Date, ShouldEqual, "2022-03-25")
		})

		Convey("Then rows sharing a date are ordered by session", func() {
			So(points[1].Session, ShouldEqual, "session_2")
			So(points[2].Session, ShouldEqual, "session_3")
		})

		Convey("Then the change runs from the earliest to the latest date", func() {
			So(res.Timeseries.FirstDate, ShouldEqual, "2022-03-10")
			So(res.Timeseries.Change, ShouldAlmostEqual, 6.5)
		})
	})

	Convey("Given a timeseries over March 2022", t, func() {
		d := base(model.QueryTimeseries)
		d.DateRange = &model.DateRange{Start: "2022-03-10", End: "2022-03-25"}
		res, err := in.Interpret(ctx, d)
		So(err, ShouldBeNil)
		ts := res.Timeseries

		Convey("Then points are ordered by date and averaged per date", func() {
			So(len(ts.Points), ShouldEqual, 5)
			So(len(ts.PerDate), ShouldEqual, 4)
			So(ts.PerDate[1].Key, ShouldEqual, "2022-03-12")
			So(ts.PerDate[1].Mean, ShouldEqual, 41)
			So(ts.PerDate[1].N, ShouldEqual, 2)
		})

		Convey("Then the change is last minus first", func() {
			So(ts.FirstDate, ShouldEqual, "2022-03-10")
			So(ts.LastDate, ShouldEqual, "2022-03-25")
			So(ts.Change, ShouldAlmostEqual, 6.5)
			So(*ts.RelativeChangePct, ShouldAlmostEqual, 6.5/37.5*100)
			So(ts.Trend, ShouldEqual, model.DirectionIncrease)
			So(ts.Classification.Label, ShouldEqual, TrendVariable)
			So(ts.BaselineNote, ShouldBeEmpty)
		})
	})

	Convey("Given a range starting before the first data point", t, func() {
		d := base(model.QueryTimeseries)
		d.DateRange = &model.DateRange{Start: "2022-03-01", End: "2022-03-12"}
		res, err := in.Interpret(ctx, d)
		So(err, ShouldBeNil)
		So(res.Timeseries.BaselineNote, ShouldEqual,
			"No data on requested start date 2022-03-01; using first available date 2022-03-10 as baseline.")
	})

	Convey("Given a metric with an invalid value in range", t, func() {
		d := base(model.QueryTimeseries)
		d.Metric = "average_sparc"
		d.DateRange = &model.DateRange{Start: "2022-03-10", End: "2022-03-25"}
		res, err := in.Interpret(ctx, d)
		So(err, ShouldBeNil)
		So(res.Timeseries.Skipped, ShouldEqual, 1)
		So(res.Timeseries.LastDate, ShouldEqual, "2022-03-18")
		So(res.Timeseries.Classification.Label, ShouldEqual, TrendImproving)
	})

	Convey("Given a range with no rows", t, func() {
		d := base(model.QueryTimeseries)
		d.DateRange = &model.DateRange{Start: "2023-01-01", End: "2023-02-01"}
		_, err := in.Interpret(ctx, d)
		So(errors.Is(err, errs.ErrNoData), ShouldBeTrue)
		So(errs.Message(err), ShouldContainSubstring, "no matching rows found for patient 45")
	})
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	in := newTestInterpreter(t)

	Convey("Given two sessions", t, func() {
		d := base(model.QueryCompare)
		d.Session = "session_5"
		d.CompareTo = &model.Selector{Session: "session_1"}
		res, err := in.Interpret(ctx, d)

		Convey("Then the difference is A minus B", func() {
			So(err, ShouldBeNil)
			c := res.Compare
			So(c.ValueA, ShouldEqual, 44)
			So(c.ValueB, ShouldEqual, 37.5)
			So(c.Difference, ShouldAlmostEqual, 6.5)
			So(*c.RelativeChangePct, ShouldAlmostEqual, 6.5/37.5*100)
			So(c.A.Label, ShouldEqual, "session_5")
		})
	})

	Convey("Given a session against the previous one", t, func() {
		d := base(model.QueryCompare)
		d.Session = "session_3"
		d.CompareTo = &model.Selector{Session: model.SessionPrevious}
		res, err := in.Interpret(ctx, d)
		So(err, ShouldBeNil)
		So(res.Compare.B.Selector.Session, ShouldEqual, "session_2")
		So(res.Compare.Difference, ShouldAlmostEqual, 2)
	})

	Convey("Given two date ranges", t, func() {
		d := base(model.QueryCompare)
		d.DateRange = &model.DateRange{Start: "2022-03-18", End: "2022-03-25"}
		d.CompareTo = &model.Selector{DateRange: &model.DateRange{Start: "2022-03-10", End: "2022-03-12"}}
		res, err := in.Interpret(ctx, d)
		So(err, ShouldBeNil)
		So(res.Compare.ValueA, ShouldAlmostEqual, 41.5)
		So(res.Compare.B.N, ShouldEqual, 3)
		So(res.Compare.B.Label, ShouldEqual, "2022-03-10 to 2022-03-12")
	})

	Convey("Given a comparison with one side only", t, func() {
		d := base(model.QueryCompare)
		d.Session = "session_1"
		_, err := in.Interpret(ctx, d)
		So(errors.Is(err, errs.ErrParse), ShouldBeTrue)
	})
}

func TestSessionRange(t *testing.T) {
	ctx := context.Background()
	in := newTestInterpreter(t)

	Convey("Given sessions one through five", t, func() {
		d := base(model.QuerySessionRange)
		d.SessionRange = &model.SessionRange{Start: "session_1", End: "session_5"}
		res, err := in.Interpret(ctx, d)
		So(err, ShouldBeNil)
		sr := res.SessionRange

		Convey("Then per-session buckets are ordered by number", func() {
			So(len(sr.PerSession), ShouldEqual, 5)
			So(sr.PerSession[0].Key, ShouldEqual, "session_1")
			So(sr.PerSession[4].Key, ShouldEqual, "session_5")
		})

		Convey("Then overall statistics cover every valid value", func() {
			So(sr.Count, ShouldEqual, 5)
			So(sr.Min, ShouldEqual, 37.5)
			So(sr.Max, ShouldEqual, 44)
			So(sr.Mean, ShouldAlmostEqual, 40.5)
			So(sr.Change, ShouldAlmostEqual, 6.5)
			So(sr.BaselineNote, ShouldBeEmpty)
		})
	})

	Convey("Given a date window instead of sessions", t, func() {
		d := base(model.QuerySessionRange)
		d.DateRange = &model.DateRange{Start: "2022-03-01", End: "2022-03-31"}
		res, err := in.Interpret(ctx, d)
		So(err, ShouldBeNil)
		So(res.SessionRange.FirstSession, ShouldEqual, "session_1")
		So(res.SessionRange.BaselineNote, ShouldEqual,
			"No data on requested start date 2022-03-01; using first available date 2022-03-10 as baseline.")
	})

	Convey("Given a range starting before the first recorded session", t, func() {
		d := base(model.QuerySessionRange)
		d.Game = "game1"
		d.SessionRange = &model.SessionRange{Start: "session_0", End: "session_3"}
		res, err := in.Interpret(ctx, d)
		So(err, ShouldBeNil)
		So(res.SessionRange.Classification, ShouldBeNil)
		So(res.SessionRange.BaselineNote, ShouldContainSubstring, "using first available session session_1")
	})
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	in := newTestInterpreter(t)

	Convey("Given an unknown query type", t, func() {
		d := base("histogram")
		d.Date = "2022-03-10"
		_, err := in.Interpret(ctx, d)
		So(errors.Is(err, errs.ErrUnsupportedQuery), ShouldBeTrue)
	})

	Convey("Given no query type", t, func() {
		d := base("")
		d.Date = "2022-03-10"
		_, err := in.Interpret(ctx, d)
		So(errors.Is(err, errs.ErrParse), ShouldBeTrue)
	})

	Convey("Given missing patient and metric", t, func() {
		_, err := in.Interpret(ctx, model.Descriptor{QueryType: model.QueryPoint, Game: "game0"})
		So(errs.Message(err), ShouldEqual, "missing required info: patient_id, metric")
	})

	Convey("Given no game", t, func() {
		d := base(model.QueryPoint)
		d.Game = ""
		d.Date = "2022-03-10"
		_, err := in.Interpret(ctx, d)
		So(errors.Is(err, errs.ErrParse), ShouldBeTrue)
	})

	Convey("Given a metric the table does not carry", t, func() {
		d := base(model.QueryPoint)
		d.Metric = "avg_f_patient"
		d.Date = "2022-03-10"
		_, err := in.Interpret(ctx, d)
		So(errors.Is(err, errs.ErrParse), ShouldBeTrue)
	})

	Convey("Given a patient whose values are all invalid", t, func() {
		d := base(model.QueryPoint)
		d.PatientID = "46"
		d.Date = "2022-03-10"
		_, err := in.Interpret(ctx, d)
		So(errors.Is(err, errs.ErrNoData), ShouldBeTrue)
		So(errs.Message(err), ShouldContainSubstring, "no valid numeric values")
	})
}

func TestClassify(t *testing.T) {
	Convey("Given short series", t, func() {
		So(Classify(nil), ShouldBeNil)
		So(Classify([]float64{1}), ShouldBeNil)
	})

	Convey("Given steadily rising values", t, func() {
		So(Classify([]float64{1, 2, 3, 4}).Label, ShouldEqual, TrendImproving)
	})

	Convey("Given steadily falling values", t, func() {
		So(Classify([]float64{4, 3, 2, 1}).Label, ShouldEqual, TrendWorsening)
	})

	Convey("Given values within noise", t, func() {
		So(Classify([]float64{100, 100.5, 100.2}).Label, ShouldEqual, TrendFlat)
	})

	Convey("Given alternating values", t, func() {
		So(Classify([]float64{1, 3, 1, 3}).Label, ShouldEqual, TrendVariable)
	})
}
