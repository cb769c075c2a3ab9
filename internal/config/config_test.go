package config_test

import (
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			convey.So(cfg.TickIntervalMS, convey.ShouldEqual, 700)
			convey.So(cfg.MQTTTopic, convey.ShouldEqual, "vigil/violations")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then its settings match the session defaults", func() {
			convey.So(cfg.Settings(), convey.ShouldResemble, app.DefaultSettings())
		})
	})

	convey.Convey("Given overridden detection keys", t, func() {
		cfg := config.New()
		cfg.TickIntervalMS = 500
		cfg.NoBlinkTimeoutMS = 8000
		cfg.DevtoolsDetection = true
		cfg.SnapshotsEnabled = false

		s := cfg.Settings()

		convey.Convey("Then durations are converted from milliseconds", func() {
			convey.So(s.TickInterval, convey.ShouldEqual, 500*time.Millisecond)
			convey.So(s.Classifier.TickInterval, convey.ShouldEqual, 500*time.Millisecond)
			convey.So(s.Classifier.NoBlinkTimeout, convey.ShouldEqual, 8*time.Second)
			convey.So(s.DevtoolsDetection, convey.ShouldBeTrue)
			convey.So(s.Snapshots, convey.ShouldBeFalse)
		})
	})
}
