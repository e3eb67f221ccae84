package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/rehabchat/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleCSV = `patient,date,game,session,gender,area,average_sparc,avg_efficiency,timestampms
45,10/3/22,game0,session_1,M,37.5,-1.8,0.61,61000
45,2022-03-10,game0,session_2,M,39.5,-1.7,0.63,62000
45,24/03/2022,game0,Session 3,M,41,-1.6,#NAME?,63000
45,2022-03-25T09:51:02.000,game0,session_10,M,inf,-1.5,0.7,64000
45,not a date,game0,session_11,M,40,-1.4,0.71,65000
46_F,10/3/22,game 1,session_1,,12,-2.1,0.4,30000
`

func TestNewTable(t *testing.T) {
	ctx := context.Background()

	Convey("Given a CSV with mixed date layouts and invalid cells", t, func() {
		table, err := NewTable(ctx, []byte(sampleCSV), WithName("sample.csv"))
		So(err, ShouldBeNil)

		Convey("Then every row is loaded and normalized", func() {
			So(table.Count(ctx), ShouldEqual, 6)
			So(table.Metrics(), ShouldResemble, []string{"area", "average_sparc", "avg_efficiency", "timestampms"})
			So(table.HasMetric("area"), ShouldBeTrue)
			So(table.HasMetric("avg_f_patient"), ShouldBeFalse)
		})

		Convey("Then stats count unparseable dates and invalid cells", func() {
			s := table.Stats(ctx)
			So(s.Source, ShouldEqual, "sample.csv")
			So(s.Rows, ShouldEqual, 6)
			So(s.Patients, ShouldEqual, 2)
			So(s.Games, ShouldResemble, []string{"game0", "game1"})
			So(s.FirstDate, ShouldEqual, "2022-03-10")
			So(s.LastDate, ShouldEqual, "2022-03-25")
			So(s.UnparseableDates, ShouldEqual, 1)
			So(s.InvalidCells, ShouldEqual, 2)
			So(s.Checksum, ShouldHaveLength, 64)
		})

		Convey("When querying a date range", func() {
			rows := table.Query(ctx, Filter{
				PatientID: "45",
				Game:      "game0",
				DateRange: &model.DateRange{Start: "2022-03-10", End: "2022-03-25"},
			})

			Convey("Then rows are ordered by date then session number", func() {
				So(len(rows), ShouldEqual, 4)
				So(rows[0].Session, ShouldEqual, "session_1")
				So(rows[1].Session, ShouldEqual, "session_2")
				So(rows[2].Date, ShouldEqual, "2022-03-24")
				So(rows[2].Session, ShouldEqual, "session_3")
				So(rows[3].Date, ShouldEqual, "2022-03-25")
			})

			Convey("Then invalid cells are missing values", func() {
				_, ok := rows[2].Value("avg_efficiency")
				So(ok, ShouldBeFalse)
				_, ok = rows[3].Value("area")
				So(ok, ShouldBeFalse)
				v, ok := rows[0].Value("area")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 37.5)
			})
		})

		Convey("When querying without a date filter", func() {
			rows := table.Query(ctx, Filter{PatientID: "45", Game: "game0"})

			Convey("Then the undated row is kept and sorted last", func() {
				So(len(rows), ShouldEqual, 5)
				So(rows[4].Date, ShouldBeEmpty)
				So(rows[4].DateRaw, ShouldEqual, "not a date")
			})
		})

		Convey("When querying a session range", func() {
			rows := table.Query(ctx, Filter{
				PatientID:    "45",
				Game:         "game0",
				SessionRange: &model.SessionRange{Start: "session_2", End: "session_10"},
			})
			So(len(rows), ShouldEqual, 3)
		})

		Convey("Then patient tags and spaced game names are normalized", func() {
			rows := table.Query(ctx, Filter{PatientID: "46", Game: "game1", Session: "session_1"})
			So(len(rows), ShouldEqual, 1)
			So(rows[0].Gender, ShouldEqual, "F")
		})

		Convey("Then sessions are listed by number", func() {
			So(table.Sessions(ctx, "45", "game0"), ShouldResemble,
				[]string{"session_1", "session_2", "session_3", "session_10", "session_11"})
			So(table.Sessions(ctx, "99", "game0"), ShouldBeEmpty)
		})

		Convey("Then the raw dataset is preserved", func() {
			d := table.Dataset()
			So(d.Name, ShouldEqual, "sample.csv")
			So(string(d.Content), ShouldEqual, sampleCSV)
		})
	})

	Convey("Given a CSV without a date column", t, func() {
		_, err := NewTable(ctx, []byte("patient,game,area\n45,game0,1\n"))
		So(errors.Is(err, ErrMissingColumn), ShouldBeTrue)
	})

	Convey("Given a CSV without any known metric", t, func() {
		_, err := NewTable(ctx, []byte("patient,date,game,pulse\n45,2022-03-10,game0,1\n"))
		So(errors.Is(err, ErrMissingColumn), ShouldBeTrue)
	})

	Convey("Given a restricted metric list", t, func() {
		table, err := NewTable(ctx, []byte(sampleCSV), WithMetrics([]string{"area"}))
		So(err, ShouldBeNil)
		So(table.Metrics(), ShouldResemble, []string{"area"})
	})
}

func TestLoadCSV(t *testing.T) {
	ctx := context.Background()

	Convey("Given a CSV file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "Combined_AllMetrics.csv")
		So(os.WriteFile(path, []byte(sampleCSV), 0o600), ShouldBeNil)

		table, err := LoadCSV(ctx, path)
		So(err, ShouldBeNil)
		So(table.Dataset().Name, ShouldEqual, "Combined_AllMetrics.csv")
	})

	Convey("Given a missing file", t, func() {
		_, err := LoadCSV(ctx, filepath.Join(t.TempDir(), "nope.csv"))
		So(errors.Is(err, ErrLoad), ShouldBeTrue)
	})
}
