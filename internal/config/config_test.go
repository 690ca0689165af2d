package config_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/slate/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 500_000)
			convey.So(cfg.ShardCount, convey.ShouldEqual, 8)
			convey.So(cfg.WorkerDeadlineMS, convey.ShouldEqual, 5_000)
			convey.So(cfg.TaskTimeoutMS, convey.ShouldEqual, 60_000)
			convey.So(cfg.MaxRetries, convey.ShouldEqual, 1)
			convey.So(cfg.TerminalEventTypes, convey.ShouldResemble, []string{"task.result"})
			convey.So(cfg.DemoAgents, convey.ShouldBeTrue)
			convey.So(cfg.AuditBackend, convey.ShouldEqual, config.AuditBackendMemory)
		})
	})
}
