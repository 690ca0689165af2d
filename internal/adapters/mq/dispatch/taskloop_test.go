package dispatch

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/slate/internal/domain/model"
	"github.com/okian/slate/internal/domain/tracker"
	"github.com/okian/slate/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestTaskLoopLateSubmit(t *testing.T) {
	Convey("Given a loop whose task just reached a terminal phase", t, func() {
		tr := tracker.New()
		_, err := tr.Create("t-late")
		So(err, ShouldBeNil)
		So(tr.Transition("t-late", model.PhaseFailed), ShouldBeNil)

		d := New(nil, nil, nil, tr)
		l := newTaskLoop(d, "t-late")

		Convey("When an event arrives through a stale loop reference", func() {
			l.submit(context.Background(), model.NewEvent("t-late", "task.request", model.OriginExternal, nil))

			Convey("Then it is dropped without parking on the dead loop", func() {
				tk, err := tr.Get("t-late")
				So(err, ShouldBeNil)
				So(tk.PendingEvents, ShouldEqual, 0)
				So(len(l.events), ShouldEqual, 0)
			})
		})
	})
}
