package model_test

import (
	"os"
	"path/filepath"
	"testing"

	model "github.com/okian/kata/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDatasetPaths(t *testing.T) {
	Convey("Given a dataset under a data root", t, func() {
		d := model.NewDataset("/data", "swing_007")

		Convey("Then every file sits in the aligned data directory", func() {
			So(d.DataDir(), ShouldEqual, filepath.Join("/data", "swing_007", "aligned", "data"))
			So(d.StudentPath(), ShouldEqual, filepath.Join(d.DataDir(), "student.json"))
			So(d.CoachPath(), ShouldEqual, filepath.Join(d.DataDir(), "coach.json"))
			So(d.EventsPath(), ShouldEqual, filepath.Join(d.DataDir(), "events.json"))
		})
	})
}

func TestLoadEvents(t *testing.T) {
	Convey("Given a dataset directory on disk", t, func() {
		root := t.TempDir()
		d := model.NewDataset(root, "swing_007")
		So(os.MkdirAll(d.DataDir(), 0o755), ShouldBeNil)

		Convey("When the event table mixes bare frames and timestamps", func() {
			content := `{"impact": 90, "lift_off": {"ts_ms": 1200}, "plant": {"frame": 42}}`
			So(os.WriteFile(d.EventsPath(), []byte(content), 0o644), ShouldBeNil)

			events, err := d.LoadEvents()

			Convey("Then all three wire forms decode", func() {
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 3)

				frame, err := events["impact"].ResolveFrame(30)
				So(err, ShouldBeNil)
				So(frame, ShouldEqual, 90)

				frame, err = events["lift_off"].ResolveFrame(30)
				So(err, ShouldBeNil)
				So(frame, ShouldEqual, 36)

				frame, err = events["plant"].ResolveFrame(30)
				So(err, ShouldBeNil)
				So(frame, ShouldEqual, 42)
			})
		})

		Convey("When no event table exists", func() {
			events, err := d.LoadEvents()

			Convey("Then the table is empty, not an error", func() {
				So(err, ShouldBeNil)
				So(events, ShouldBeEmpty)
			})
		})

		Convey("When the event table is malformed", func() {
			So(os.WriteFile(d.EventsPath(), []byte(`{"impact": []}`), 0o644), ShouldBeNil)
			_, err := d.LoadEvents()

			Convey("Then loading fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestRunSummaries(t *testing.T) {
	Convey("Given per-phase scores", t, func() {
		Convey("Then the overall score is the truncated mean", func() {
			So(model.OverallScore(map[string]int{"a": 100, "b": 65}), ShouldEqual, 82)
			So(model.OverallScore(nil), ShouldEqual, 0)
		})
	})

	Convey("Given per-phase classifications", t, func() {
		Convey("Then the summary follows the all/none/mixed rule", func() {
			So(model.SummarizeClassification(map[string]string{"a": "correct", "b": "correct"}), ShouldEqual, "correct")
			So(model.SummarizeClassification(map[string]string{"a": "wrong", "b": "wrong"}), ShouldEqual, "wrong")
			So(model.SummarizeClassification(map[string]string{"a": "correct", "b": "wrong"}), ShouldEqual, "mid")
			So(model.SummarizeClassification(map[string]string{"a": "mid"}), ShouldEqual, "mid")
			So(model.SummarizeClassification(nil), ShouldEqual, "mid")
		})
	})
}
