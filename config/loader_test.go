package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attendance.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ATTENDANCE_STORAGE__DRIVER", "memory")

	Convey("Given only defaults and a memory store", t, func() {
		cfg, err := Load()

		Convey("Then the defaults survive", func() {
			So(err, ShouldBeNil)
			So(cfg.HTTP.Addr, ShouldEqual, ":8080")
			So(cfg.App.Timezone, ShouldEqual, "Asia/Manila")
			So(cfg.App.Location, ShouldNotBeNil)
			So(cfg.Forecast.CacheTTL, ShouldEqual, 10*time.Minute)
			So(cfg.Redis.Disabled, ShouldBeTrue)
			So(cfg.Storage.Driver, ShouldEqual, StorageMemory)
		})
	})
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfigFile(t, `
app:
  environment: staging
http:
  addr: ":9090"
  rate_limit_rps: 5
database:
  url: postgres://file/db
  max_conns: 4
forecast:
  cache_ttl: 1m
`)
	t.Setenv("ATTENDANCE_CONFIG", path)
	t.Setenv("ATTENDANCE_HTTP__ADDR", ":7070")
	t.Setenv("ATTENDANCE_DATABASE__QUERY_TIMEOUT", "3s")

	Convey("Given a YAML file and environment overrides", t, func() {
		cfg, err := Load()

		Convey("Then env beats file and file beats defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.HTTP.Addr, ShouldEqual, ":7070")
			So(cfg.HTTP.RateLimitRPS, ShouldEqual, 5)
			So(cfg.HTTP.RateLimitBurst, ShouldEqual, 40)
			So(cfg.App.Environment, ShouldEqual, EnvStaging)
			So(cfg.Database.URL, ShouldEqual, "postgres://file/db")
			So(cfg.Database.MaxConns, ShouldEqual, 4)
			So(cfg.Database.QueryTimeout, ShouldEqual, 3*time.Second)
			So(cfg.Forecast.CacheTTL, ShouldEqual, time.Minute)
		})
	})
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("ATTENDANCE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	Convey("Given a config path that does not exist", t, func() {
		_, err := Load()

		Convey("Then loading fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given default configuration", t, func() {
		cfg := Defaults()

		Convey("When postgres has no URL", func() {
			err := cfg.Validate()

			Convey("Then validation reports it", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "database.url")
			})
		})

		Convey("When the storage driver is unknown", func() {
			cfg.Storage.Driver = "sqlite"
			err := cfg.Validate()

			Convey("Then validation reports the driver", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "storage.driver")
			})
		})

		Convey("When the memory store is used in production", func() {
			cfg.Storage.Driver = StorageMemory
			cfg.App.Environment = EnvProduction
			err := cfg.Validate()

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the timezone is unknown", func() {
			cfg.Storage.Driver = StorageMemory
			cfg.App.Timezone = "Mars/Olympus"
			err := cfg.Validate()

			Convey("Then the timezone is reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "app.timezone")
			})
		})

		Convey("When everything is consistent", func() {
			cfg.Database.URL = "postgres://localhost/attendance"
			err := cfg.Validate()

			Convey("Then it passes and resolves the location", func() {
				So(err, ShouldBeNil)
				So(cfg.App.Location, ShouldNotBeNil)
				So(cfg.App.Location.String(), ShouldEqual, "Asia/Manila")
			})
		})
	})
}

func TestEnvKey(t *testing.T) {
	Convey("Given environment variable names", t, func() {
		So(envKey("ATTENDANCE_HTTP__RATE_LIMIT_RPS"), ShouldEqual, "http.rate_limit_rps")
		So(envKey("ATTENDANCE_STORAGE__DRIVER"), ShouldEqual, "storage.driver")
		So(envKey("ATTENDANCE_CONFIG"), ShouldEqual, "")
	})
}
