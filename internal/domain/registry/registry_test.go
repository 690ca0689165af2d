package registry_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/slate/internal/domain/model"
	"github.com/okian/slate/internal/domain/registry"
)

func stub(id string) model.Worker {
	return model.WorkerFunc{
		WorkerID: id,
		Fn: func(ctx context.Context, event model.Event, snapshot model.Snapshot) model.Outcome {
			return model.NoOp()
		},
	}
}

func ids(workers []model.Worker) []string {
	out := make([]string, len(workers))
	for i, w := range workers {
		out[i] = w.ID()
	}
	return out
}

func TestResolveOrdering(t *testing.T) {
	Convey("Given a registry with three subscribers to one type", t, func() {
		reg := registry.New()
		reg.Subscribe("request", stub("w1"), 0)
		reg.Subscribe("request", stub("w2"), 5)
		reg.Subscribe("request", stub("w3"), 0)

		Convey("Then Resolve orders by priority, then registration order", func() {
			So(ids(reg.Resolve("request")), ShouldResemble, []string{"w2", "w1", "w3"})
		})

		Convey("And resolution is deterministic across calls", func() {
			first := ids(reg.Resolve("request"))
			second := ids(reg.Resolve("request"))
			So(second, ShouldResemble, first)
		})
	})
}

func TestResolveUnknownType(t *testing.T) {
	Convey("Given a registry", t, func() {
		reg := registry.New()
		reg.Subscribe("request", stub("w1"), 0)

		Convey("Then an unknown type resolves to an empty set", func() {
			So(reg.Resolve("unheard-of"), ShouldBeEmpty)
		})
	})
}

func TestSubscribeIdempotent(t *testing.T) {
	Convey("Given a worker subscribed twice to the same type", t, func() {
		reg := registry.New()
		reg.Subscribe("request", stub("w1"), 0)
		reg.Subscribe("request", stub("w2"), 0)
		reg.Subscribe("request", stub("w1"), 9)

		Convey("Then there is no duplicate and the priority is updated", func() {
			So(ids(reg.Resolve("request")), ShouldResemble, []string{"w1", "w2"})
		})
	})
}

func TestUnsubscribe(t *testing.T) {
	Convey("Given two subscribers", t, func() {
		reg := registry.New()
		reg.Subscribe("request", stub("w1"), 0)
		reg.Subscribe("request", stub("w2"), 0)

		Convey("When one unsubscribes", func() {
			reg.Unsubscribe("request", "w1")

			Convey("Then only the other remains", func() {
				So(ids(reg.Resolve("request")), ShouldResemble, []string{"w2"})
			})
		})

		Convey("When an unknown worker unsubscribes", func() {
			reg.Unsubscribe("request", "ghost")

			Convey("Then nothing changes", func() {
				So(len(reg.Resolve("request")), ShouldEqual, 2)
			})
		})
	})
}

func TestIntrospection(t *testing.T) {
	Convey("Given subscriptions across two types", t, func() {
		reg := registry.New()
		reg.Subscribe("request", stub("w1"), 0)
		reg.Subscribe("plan", stub("w2"), 0)
		reg.Subscribe("plan", stub("w1"), 0)

		Convey("Then EventTypes and Workers report the table", func() {
			So(reg.EventTypes(), ShouldResemble, []string{"plan", "request"})
			So(reg.Workers(), ShouldResemble, []string{"w1", "w2"})
		})
	})
}
