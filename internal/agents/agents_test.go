package agents_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/slate/internal/agents"
	"github.com/okian/slate/internal/domain/model"
)

func TestScriptedReactions(t *testing.T) {
	Convey("Given a scripted agent with a reaction table", t, func() {
		agent := agents.New("planner",
			agents.WithoutLatency(),
			agents.WithReaction("task.request", agents.Reaction{
				EmitType: "plan.created",
				Payload:  map[string]any{"steps": 3},
			}),
			agents.WithReaction("task.cancel", agents.Reaction{
				FailWith: "cancel not supported",
			}),
		)
		ctx := context.Background()

		Convey("When handling a scripted event type", func() {
			ev := model.NewEvent("t1", "task.request", model.OriginExternal, nil)
			out := agent.Handle(ctx, ev, model.Snapshot{})

			Convey("Then it emits the follow-up with attribution", func() {
				So(out.Kind, ShouldEqual, model.OutcomeEmitted)
				So(out.Events, ShouldHaveLength, 1)
				So(out.Events[0].Type, ShouldEqual, "plan.created")
				So(out.Events[0].TaskID, ShouldEqual, "t1")
				So(out.Events[0].Origin, ShouldEqual, "planner")
				So(out.Events[0].CausalParentID, ShouldEqual, ev.ID)
				So(out.Events[0].Payload["steps"], ShouldEqual, 3)
				So(out.Events[0].Payload["produced_by"], ShouldEqual, "planner")
			})

			Convey("And payloads are not shared between emissions", func() {
				second := agent.Handle(ctx, ev, model.Snapshot{})
				out.Events[0].Payload["steps"] = 99
				So(second.Events[0].Payload["steps"], ShouldEqual, 3)
			})
		})

		Convey("When handling a failure-scripted event type", func() {
			ev := model.NewEvent("t1", "task.cancel", model.OriginExternal, nil)
			out := agent.Handle(ctx, ev, model.Snapshot{})

			Convey("Then the outcome is a failure with the scripted reason", func() {
				So(out.Kind, ShouldEqual, model.OutcomeFailure)
				So(out.Reason, ShouldEqual, "cancel not supported")
			})
		})

		Convey("When handling an unscripted event type", func() {
			out := agent.Handle(ctx, model.NewEvent("t1", "unknown", model.OriginExternal, nil), model.Snapshot{})

			Convey("Then the agent contributes nothing", func() {
				So(out.Kind, ShouldEqual, model.OutcomeNoOp)
			})
		})
	})
}

func TestScriptedFailEvery(t *testing.T) {
	Convey("Given an agent that fails every second call", t, func() {
		agent := agents.New("flaky",
			agents.WithoutLatency(),
			agents.WithFailEvery(2),
			agents.WithReaction("work", agents.Reaction{EmitType: "work.done"}),
		)
		ctx := context.Background()
		ev := model.NewEvent("t1", "work", model.OriginExternal, nil)

		Convey("When invoked four times", func() {
			kinds := make([]model.OutcomeKind, 0, 4)
			for i := 0; i < 4; i++ {
				kinds = append(kinds, agent.Handle(ctx, ev, model.Snapshot{}).Kind)
			}

			Convey("Then calls two and four fail", func() {
				So(kinds[0], ShouldEqual, model.OutcomeEmitted)
				So(kinds[1], ShouldEqual, model.OutcomeFailure)
				So(kinds[2], ShouldEqual, model.OutcomeEmitted)
				So(kinds[3], ShouldEqual, model.OutcomeFailure)
			})
		})
	})
}

func TestScriptedLatency(t *testing.T) {
	Convey("Given an agent with simulated latency", t, func() {
		agent := agents.New("slow",
			agents.WithLatencyRange(20*time.Millisecond, 40*time.Millisecond),
			agents.WithSeed(1),
		)

		Convey("When the invocation context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			out := agent.Handle(ctx, model.NewEvent("t1", "work", model.OriginExternal, nil), model.Snapshot{})

			Convey("Then the agent reports a failure instead of sleeping", func() {
				So(out.Kind, ShouldEqual, model.OutcomeFailure)
				So(out.Reason, ShouldContainSubstring, "cancelled")
			})
		})

		Convey("When the context allows it", func() {
			start := time.Now()
			out := agent.Handle(context.Background(), model.NewEvent("t1", "work", model.OriginExternal, nil), model.Snapshot{})

			Convey("Then handling takes at least the minimum latency", func() {
				So(out.Kind, ShouldEqual, model.OutcomeNoOp)
				So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 20*time.Millisecond)
			})
		})
	})
}
