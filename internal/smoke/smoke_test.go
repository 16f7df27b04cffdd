package smoke_test

import (
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/kata/internal/smoke"
)

func TestRun(t *testing.T) {
	convey.Convey("Given the built-in smoke check", t, func() {
		convey.Convey("It passes with the default run count", func() {
			report, err := smoke.Run(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(report.Runs, convey.ShouldEqual, 8)
			convey.So(report.Checks, convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("It honors WithRuns", func() {
			report, err := smoke.Run(context.Background(), smoke.WithRuns(2))
			convey.So(err, convey.ShouldBeNil)
			convey.So(report.Runs, convey.ShouldEqual, 2)
		})

		convey.Convey("A non-positive run count falls back to the default", func() {
			report, err := smoke.Run(context.Background(), smoke.WithRuns(0))
			convey.So(err, convey.ShouldBeNil)
			convey.So(report.Runs, convey.ShouldEqual, 8)
		})

		convey.Convey("A cancelled context aborts the check", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := smoke.Run(ctx)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestErrCheckFailed(t *testing.T) {
	convey.Convey("Check failures wrap the sentinel", t, func() {
		wrapped := errors.New("wrapped")
		convey.So(errors.Is(wrapped, smoke.ErrCheckFailed), convey.ShouldBeFalse)
		convey.So(errors.Is(smoke.ErrCheckFailed, smoke.ErrCheckFailed), convey.ShouldBeTrue)
	})
}
