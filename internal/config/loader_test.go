package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/okian/huddle/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			// Clear any existing environment variables
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QuorumSize, convey.ShouldEqual, 0)
				convey.So(cfg.ConsensusTimeoutMS, convey.ShouldEqual, 5_000)
				convey.So(cfg.PeerDampening, convey.ShouldEqual, 0.25)
				convey.So(cfg.MemoryTopK, convey.ShouldEqual, 5)
				convey.So(cfg.EmbeddingDim, convey.ShouldEqual, 16)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("HUDDLE_ADDR", ":8080")
			_ = os.Setenv("HUDDLE_QUORUM_SIZE", "12")
			_ = os.Setenv("HUDDLE_CONSENSUS_TIMEOUT_MS", "250")
			_ = os.Setenv("HUDDLE_PEER_DAMPENING", "0.5")
			_ = os.Setenv("HUDDLE_MEMORY_TOP_K", "8")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QuorumSize, convey.ShouldEqual, 12)
				convey.So(cfg.ConsensusTimeoutMS, convey.ShouldEqual, 250)
				convey.So(cfg.PeerDampening, convey.ShouldEqual, 0.5)
				convey.So(cfg.MemoryTopK, convey.ShouldEqual, 8)
				convey.So(cfg.EmbeddingDim, convey.ShouldEqual, 16) // From defaults
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":7070"
quorum_size: 10
high_confidence_threshold: 0.8
trend_window: 20
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HUDDLE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.QuorumSize, convey.ShouldEqual, 10)
				convey.So(cfg.HighConfidenceThreshold, convey.ShouldEqual, 0.8)
				convey.So(cfg.TrendWindow, convey.ShouldEqual, 20)
				convey.So(cfg.PeerDampening, convey.ShouldEqual, 0.25) // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":7070"
quorum_size: 10
trend_window: 20
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HUDDLE_CONFIG", tmpFile)
			_ = os.Setenv("HUDDLE_ADDR", ":8080") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")   // Overridden by env
				convey.So(cfg.QuorumSize, convey.ShouldEqual, 10)  // From file
				convey.So(cfg.TrendWindow, convey.ShouldEqual, 20) // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HUDDLE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("HUDDLE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("HUDDLE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigLoaderValidation(t *testing.T) {
	convey.Convey("Given configurations that break ensemble invariants", t, func() {
		ctx := context.Background()

		convey.Convey("When peer dampening would amplify peer lessons", func() {
			_ = os.Setenv("HUDDLE_PEER_DAMPENING", "1.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "peer_dampening")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the confidence threshold leaves the unit interval", func() {
			_ = os.Setenv("HUDDLE_HIGH_CONFIDENCE_THRESHOLD", "1.2")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "high_confidence_threshold")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the quorum size is negative", func() {
			_ = os.Setenv("HUDDLE_QUORUM_SIZE", "-1")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the embedding dimension is zero", func() {
			_ = os.Setenv("HUDDLE_EMBEDDING_DIM", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "embedding_dim")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When numeric environment variables are not numbers", func() {
			_ = os.Setenv("HUDDLE_QUORUM_SIZE", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"HUDDLE_CONFIG",
		"HUDDLE_ADDR",
		"HUDDLE_QUORUM_SIZE",
		"HUDDLE_CONSENSUS_TIMEOUT_MS",
		"HUDDLE_PEER_DAMPENING",
		"HUDDLE_HIGH_CONFIDENCE_THRESHOLD",
		"HUDDLE_MEMORY_TOP_K",
		"HUDDLE_EMBEDDING_DIM",
		"HUDDLE_TREND_WINDOW",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "huddle-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
