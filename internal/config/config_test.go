package config_test

import (
	"runtime"
	"testing"

	"github.com/okian/huddle/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.QuorumSize, convey.ShouldEqual, 0)
			convey.So(cfg.ConsensusTimeoutMS, convey.ShouldEqual, 5_000)
			convey.So(cfg.SpreadAgreementThreshold, convey.ShouldEqual, 3.0)
			convey.So(cfg.HighConfidenceThreshold, convey.ShouldEqual, 0.75)
			convey.So(cfg.PeerDampening, convey.ShouldEqual, 0.25)
			convey.So(cfg.MemoryTopK, convey.ShouldEqual, 5)
			convey.So(cfg.EmbeddingDim, convey.ShouldEqual, 16)
			convey.So(cfg.TrendWindow, convey.ShouldEqual, 10)
			convey.So(cfg.MaxErrorMagnitude, convey.ShouldEqual, 1.0)
			convey.So(cfg.PeerQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.BrokerWorkers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MaxGenerationRetries, convey.ShouldEqual, 3)
		})
	})
}
