package repository_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/slate/internal/adapters/audit"
	"github.com/okian/slate/internal/adapters/repository"
	"github.com/okian/slate/internal/domain/model"
)

func TestBoardVersioning(t *testing.T) {
	Convey("Given an empty board", t, func() {
		ctx := context.Background()
		board := repository.NewMemBoard(ctx)
		meta := repository.WriteMeta{Writer: "w1"}

		Convey("When writing the same key three times", func() {
			v1, err1 := board.Write(ctx, "t1", "plan", "a", meta)
			v2, err2 := board.Write(ctx, "t1", "plan", "b", meta)
			v3, err3 := board.Write(ctx, "t1", "plan", "c", meta)

			Convey("Then versions are strictly increasing from one", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(err3, ShouldBeNil)
				So(v1, ShouldEqual, 1)
				So(v2, ShouldEqual, 2)
				So(v3, ShouldEqual, 3)
			})

			Convey("And Read returns only the latest version", func() {
				entry, err := board.Read(ctx, "t1", "plan")
				So(err, ShouldBeNil)
				So(entry.Value, ShouldEqual, "c")
				So(entry.Version, ShouldEqual, 3)
			})

			Convey("And History preserves write order", func() {
				history, err := board.History(ctx, "t1", "plan")
				So(err, ShouldBeNil)
				So(len(history), ShouldEqual, 3)
				So(history[0].Value, ShouldEqual, "a")
				So(history[2].Value, ShouldEqual, "c")
			})

			Convey("And Count reflects every version", func() {
				So(board.Count(ctx), ShouldEqual, 3)
			})
		})

		Convey("When reading an unknown key", func() {
			_, err := board.Read(ctx, "t1", "missing")

			Convey("Then it should report not found", func() {
				So(err, ShouldEqual, repository.ErrNotFound)
			})
		})

		Convey("When keys are written across tasks", func() {
			_, _ = board.Write(ctx, "t1", "plan", "a", meta)
			_, _ = board.Write(ctx, "t2", "plan", "x", meta)
			v, err := board.Write(ctx, "t2", "plan", "y", meta)

			Convey("Then version sequences are independent per task", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 2)

				entry, err := board.Read(ctx, "t1", "plan")
				So(err, ShouldBeNil)
				So(entry.Version, ShouldEqual, 1)
			})
		})
	})
}

func TestBoardSnapshot(t *testing.T) {
	Convey("Given a board with facts for one task", t, func() {
		ctx := context.Background()
		board := repository.NewMemBoard(ctx)
		meta := repository.WriteMeta{Writer: "w1"}
		_, _ = board.Write(ctx, "t1", "plan", "a", meta)
		_, _ = board.Write(ctx, "t1", "plan", "b", meta)
		_, _ = board.Write(ctx, "t1", "report", "r", meta)

		Convey("When taking a snapshot", func() {
			snap := board.Snapshot(ctx, "t1")

			Convey("Then it holds the latest value per key", func() {
				So(len(snap), ShouldEqual, 2)
				So(snap["plan"], ShouldEqual, "b")
				So(snap["report"], ShouldEqual, "r")
			})

			Convey("And later writes do not leak into the snapshot", func() {
				_, _ = board.Write(ctx, "t1", "plan", "c", meta)
				So(snap["plan"], ShouldEqual, "b")
			})

			Convey("And mutating the snapshot does not touch the board", func() {
				snap["plan"] = "mutated"
				entry, err := board.Read(ctx, "t1", "plan")
				So(err, ShouldBeNil)
				So(entry.Value, ShouldEqual, "b")
			})
		})

		Convey("When snapshotting an unknown task", func() {
			snap := board.Snapshot(ctx, "missing")

			Convey("Then the snapshot is empty, not nil", func() {
				So(snap, ShouldNotBeNil)
				So(len(snap), ShouldEqual, 0)
			})
		})
	})
}

func TestBoardTerminality(t *testing.T) {
	Convey("Given a board with one fact", t, func() {
		ctx := context.Background()
		board := repository.NewMemBoard(ctx)
		meta := repository.WriteMeta{Writer: "w1"}
		_, _ = board.Write(ctx, "t1", "plan", "a", meta)

		Convey("When the task is marked terminal", func() {
			board.MarkTerminal(ctx, "t1")

			Convey("Then further writes fail with ErrStaleTaskWrite", func() {
				_, err := board.Write(ctx, "t1", "plan", "late", meta)
				So(err, ShouldEqual, repository.ErrStaleTaskWrite)
			})

			Convey("And reads still serve the last consistent state", func() {
				entry, err := board.Read(ctx, "t1", "plan")
				So(err, ShouldBeNil)
				So(entry.Value, ShouldEqual, "a")
			})

			Convey("And other tasks are unaffected", func() {
				_, err := board.Write(ctx, "t2", "plan", "fresh", meta)
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestBoardRevocation(t *testing.T) {
	Convey("Given a board", t, func() {
		ctx := context.Background()
		board := repository.NewMemBoard(ctx)

		Convey("When an invocation is revoked", func() {
			board.RevokeInvocation(ctx, "t1", "inv-1")

			Convey("Then writes tagged with it are rejected", func() {
				_, err := board.Write(ctx, "t1", "plan", "late", repository.WriteMeta{Writer: "w1", InvocationID: "inv-1"})
				So(err, ShouldEqual, repository.ErrRevokedWriter)
			})

			Convey("And writes from other invocations still succeed", func() {
				_, err := board.Write(ctx, "t1", "plan", "ok", repository.WriteMeta{Writer: "w1", InvocationID: "inv-2"})
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestBoardSideEffects(t *testing.T) {
	Convey("Given a board wired to an audit log and a notifier", t, func() {
		ctx := context.Background()
		var notified []model.Message
		log := audit.NewMemoryLog()
		board := repository.NewMemBoard(ctx,
			repository.WithAuditLog(log),
			repository.WithNotifier(func(msg model.Message) {
				notified = append(notified, msg)
			}),
		)

		Convey("When writing two entries", func() {
			_, _ = board.Write(ctx, "t1", "plan", "a", repository.WriteMeta{Writer: "w1"})
			_, _ = board.Write(ctx, "t1", "report", "r", repository.WriteMeta{Writer: "w2"})

			Convey("Then the notifier sees both in mutation order", func() {
				So(len(notified), ShouldEqual, 2)
				So(notified[0].Kind, ShouldEqual, model.KindBoardWrite)
				So(notified[0].Payload["key"], ShouldEqual, "plan")
				So(notified[1].Payload["key"], ShouldEqual, "report")
			})

			Convey("And the audit trace replays both in order", func() {
				trace, err := log.Replay(ctx, "t1")
				So(err, ShouldBeNil)
				So(len(trace), ShouldEqual, 2)
				So(trace[0].Detail["key"], ShouldEqual, "plan")
				So(trace[1].Detail["key"], ShouldEqual, "report")
			})
		})
	})
}
