package types_test

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	types "github.com/okian/slate/internal/domain/types"
)

func TestTaskStatusShape(t *testing.T) {
	Convey("Given a task status for an in-flight task", t, func() {
		status := types.TaskStatus{
			TaskID:        "t1",
			Phase:         "awaiting_workers",
			CreatedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			Workers:       []string{"planner", "reporter"},
			PendingEvents: 2,
		}

		Convey("When marshalled for an API response", func() {
			raw, err := json.Marshal(status)
			So(err, ShouldBeNil)

			Convey("Then terminal-only fields are omitted", func() {
				So(string(raw), ShouldContainSubstring, `"task_id":"t1"`)
				So(string(raw), ShouldContainSubstring, `"pending_events":2`)
				So(string(raw), ShouldNotContainSubstring, "result")
				So(string(raw), ShouldNotContainSubstring, "failure_reason")
			})
		})

		Convey("When the task has failed", func() {
			status.Phase = "failed"
			status.FailureReason = "task deadline exceeded"
			raw, err := json.Marshal(status)
			So(err, ShouldBeNil)

			Convey("Then the reason is part of the response", func() {
				So(string(raw), ShouldContainSubstring, `"failure_reason":"task deadline exceeded"`)
			})
		})
	})
}

func TestHistoryEntryShape(t *testing.T) {
	Convey("Given a board history entry", t, func() {
		entry := types.HistoryEntry{
			Key:       "plan.created",
			Value:     map[string]any{"steps": 3},
			Writer:    "planner",
			Version:   2,
			Timestamp: time.Date(2026, 8, 1, 12, 0, 1, 0, time.UTC),
		}

		Convey("When marshalled", func() {
			raw, err := json.Marshal(entry)
			So(err, ShouldBeNil)

			Convey("Then key, writer, and version survive the round trip", func() {
				var got types.HistoryEntry
				So(json.Unmarshal(raw, &got), ShouldBeNil)
				So(got.Key, ShouldEqual, "plan.created")
				So(got.Writer, ShouldEqual, "planner")
				So(got.Version, ShouldEqual, 2)
			})
		})
	})
}
