package service_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/slate/internal/app"
	"github.com/okian/slate/internal/config"
	"github.com/okian/slate/internal/domain/types"
	"github.com/okian/slate/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.EventQueueSize = 128
	cfg.TerminalEventTypes = []string{"report.ready"}
	cfg.WorkerDeadlineMS = 500
	cfg.TaskTimeoutMS = 5_000
	return cfg
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a configured service", t, func() {
		svc := service.New(service.WithConfig(testConfig()))
		ctx := context.Background()

		Convey("When starting it twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then the second start is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
			})
		})

		Convey("When stopping without starting", func() {
			Convey("Then nothing happens", func() {
				So(svc.Stop, ShouldNotPanic)
			})
		})
	})
}

func TestServiceSubmit(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc := service.New(service.WithConfig(testConfig()))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When submitting without an event type", func() {
			_, err := svc.Submit(ctx, types.Submission{})

			Convey("Then the submission is rejected", func() {
				So(errors.Is(err, service.ErrMissingEventType), ShouldBeTrue)
			})
		})

		Convey("When submitting without a task id", func() {
			res, err := svc.Submit(ctx, types.Submission{EventType: "task.request"})

			Convey("Then a task id is generated", func() {
				So(err, ShouldBeNil)
				So(res.TaskID, ShouldNotBeEmpty)
				So(res.EventID, ShouldNotBeEmpty)
				So(res.Duplicate, ShouldBeFalse)
			})
		})

		Convey("Then backpressure errors carry the shared sentinel", func() {
			// The HTTP layer classifies 429 with errors.Is against
			// types.ErrQueueFull.
			So(errors.Is(service.ErrQueueFull, types.ErrQueueFull), ShouldBeTrue)
		})

		Convey("When retrying with the same submission id", func() {
			req := types.Submission{
				TaskID:       "t-dup",
				EventType:    "task.request",
				SubmissionID: "sub-42",
			}
			first, err := svc.Submit(ctx, req)
			So(err, ShouldBeNil)

			second, err := svc.Submit(ctx, req)

			Convey("Then the retry is acknowledged as a duplicate", func() {
				So(err, ShouldBeNil)
				So(second.Duplicate, ShouldBeTrue)
				So(second.TaskID, ShouldEqual, first.TaskID)
				So(second.EventID, ShouldBeEmpty)
			})
		})
	})
}
