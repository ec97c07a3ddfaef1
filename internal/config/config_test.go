package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/i474232898/weatheriq/internal/config"
)

var configEnvVars = []string{
	config.EnvConfigFile,
	"WEATHERIQ_ADDR",
	"WEATHERIQ_LOG_LEVEL",
	"WEATHERIQ_OPENWEATHER_API_KEY",
	"WEATHERIQ_BATCH_SIZE",
	"WEATHERIQ_HTTP_TIMEOUT",
	"WEATHERIQ_EMBED_ON_INGEST",
	"WEATHERIQ_STORE_DRIVER",
	"WEATHERIQ_DATABASE_DSN",
	"WEATHERIQ_EMBEDDER",
	"WEATHERIQ_EMBEDDING_URL",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.BatchSize, convey.ShouldEqual, 20)
			convey.So(cfg.CityLimit, convey.ShouldEqual, 50)
			convey.So(cfg.QueryTopK, convey.ShouldEqual, 3)
			convey.So(cfg.EmbeddingDim, convey.ShouldEqual, 384)
			convey.So(cfg.HTTPTimeout, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.MaxRetries, convey.ShouldEqual, 0)
		})

		convey.Convey("Then it fails validation without an API key", func() {
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		t.Setenv("WEATHERIQ_OPENWEATHER_API_KEY", "secret")
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load()

			convey.Convey("Then it loads successfully", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.OpenWeatherAPIKey, convey.ShouldEqual, "secret")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.Embedder, convey.ShouldEqual, "hash")
			})
		})

		convey.Convey("When loading with environment variables", func() {
			_ = os.Setenv("WEATHERIQ_ADDR", ":9090")
			_ = os.Setenv("WEATHERIQ_BATCH_SIZE", "10")
			_ = os.Setenv("WEATHERIQ_HTTP_TIMEOUT", "3s")
			_ = os.Setenv("WEATHERIQ_EMBED_ON_INGEST", "false")

			cfg, err := config.Load()

			convey.Convey("Then env overrides defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.BatchSize, convey.ShouldEqual, 10)
				convey.So(cfg.HTTPTimeout, convey.ShouldEqual, 3*time.Second)
				convey.So(cfg.EmbedOnIngest, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading with a YAML file", func() {
			path := filepath.Join(t.TempDir(), "weatheriq.yaml")
			yaml := "addr: \":7070\"\nstore_driver: memory\ndatabase_dsn: \"\"\nquery_top_k: 5\ningest_interval: 30m\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			_ = os.Setenv(config.EnvConfigFile, path)
			_ = os.Setenv("WEATHERIQ_ADDR", ":6060")

			cfg, err := config.Load()

			convey.Convey("Then file values apply and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
				convey.So(cfg.QueryTopK, convey.ShouldEqual, 5)
				convey.So(cfg.IngestInterval, convey.ShouldEqual, 30*time.Minute)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv(config.EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load()

			convey.Convey("Then it returns an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When values fail validation", func() {
			_ = os.Setenv("WEATHERIQ_STORE_DRIVER", "mongo")

			_, err := config.Load()

			convey.Convey("Then it returns an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the http embedder has no URL", func() {
			_ = os.Setenv("WEATHERIQ_EMBEDDER", "http")

			_, err := config.Load()

			convey.Convey("Then it returns an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When postgres is selected without a DSN", func() {
			_ = os.Setenv("WEATHERIQ_STORE_DRIVER", "postgres")
			_ = os.Setenv("WEATHERIQ_DATABASE_DSN", "")

			_, err := config.Load()

			convey.Convey("Then it returns an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
