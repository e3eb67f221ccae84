package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/rehabchat/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.LoadFiles(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.ParserBackend, convey.ShouldEqual, config.BackendLMStudio)
				convey.So(cfg.FallbackContainerMemory, convey.ShouldEqual, "1g")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("REHAB_ADDR", ":8080")
			_ = os.Setenv("REHAB_CSV_PATH", "/data/metrics.csv")
			_ = os.Setenv("REHAB_PARSER_BACKEND", "Rules")
			_ = os.Setenv("REHAB_PARSE_CACHE_SIZE", "32")
			_ = os.Setenv("REHAB_FALLBACK_ENABLED", "true")
			_ = os.Setenv("REHAB_OPENAI_API_KEY", "sk-test")
			_ = os.Setenv("REHAB_METRICS", "area,average_sparc")

			cfg, err := config.LoadFiles(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.CSVPath, convey.ShouldEqual, "/data/metrics.csv")
				convey.So(cfg.ParserBackend, convey.ShouldEqual, config.BackendRules)
				convey.So(cfg.ParseCacheSize, convey.ShouldEqual, 32)
				convey.So(cfg.FallbackEnabled, convey.ShouldBeTrue)
				convey.So(cfg.MetricColumns(), convey.ShouldResemble, []string{"area", "average_sparc"})
			})
		})

		convey.Convey("When only the provider variables carry the keys", func() {
			_ = os.Setenv("OPENAI_API_KEY", "sk-plain")
			_ = os.Setenv("GEMINI_API_KEY", "g-plain")
			_ = os.Setenv("REHAB_PARSER_BACKEND", "gemini")

			cfg, err := config.LoadFiles(ctx)

			convey.Convey("Then they are picked up", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.OpenAIAPIKey, convey.ShouldEqual, "sk-plain")
				convey.So(cfg.GeminiAPIKey, convey.ShouldEqual, "g-plain")
			})
		})

		convey.Convey("When both a provider variable and a REHAB_ key are set", func() {
			_ = os.Setenv("OPENAI_API_KEY", "sk-plain")
			_ = os.Setenv("REHAB_OPENAI_API_KEY", "sk-rehab")

			cfg, err := config.LoadFiles(ctx)

			convey.Convey("Then the REHAB_ key wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.OpenAIAPIKey, convey.ShouldEqual, "sk-rehab")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(t, `
# local setup
addr: ":9090"
parser_backend: gemini
gemini_api_key: g-key
request_timeout_ms: 5000
`)
			_ = os.Setenv("REHAB_CONFIG", tmpFile)

			cfg, err := config.LoadFiles(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ParserBackend, convey.ShouldEqual, config.BackendGemini)
				convey.So(cfg.RequestTimeoutMS, convey.ShouldEqual, 5000)
				convey.So(cfg.CSVPath, convey.ShouldEqual, "Combined_AllMetrics.csv")
			})

			convey.Convey("And an env var sets the same key", func() {
				_ = os.Setenv("REHAB_ADDR", ":7070")
				cfg, err := config.LoadFiles(ctx)

				convey.Convey("Then the env var wins", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				})
			})
		})

		convey.Convey("When loading a .env file", func() {
			dotenv := filepath.Join(t.TempDir(), ".env")
			content := "REHAB_PARSER_BACKEND=rules\nREHAB_LOG_LEVEL=debug\n"
			convey.So(os.WriteFile(dotenv, []byte(content), 0o600), convey.ShouldBeNil)

			cfg, err := config.LoadFiles(ctx, dotenv, filepath.Join(t.TempDir(), "missing.env"))

			convey.Convey("Then its variables are applied and missing files are skipped", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ParserBackend, convey.ShouldEqual, config.BackendRules)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, "addr: [unclosed")
			_ = os.Setenv("REHAB_CONFIG", tmpFile)

			_, err := config.LoadFiles(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("REHAB_CONFIG", "/non/existent/config.yaml")

			_, err := config.LoadFiles(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("REHAB_PARSE_CACHE_SIZE", "lots")

			_, err := config.LoadFiles(ctx)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When loading config that fails validation", func() {
			_ = os.Setenv("REHAB_PARSER_BACKEND", "openai")

			_, err := config.LoadFiles(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
	_ = os.Unsetenv("OPENAI_API_KEY")
	_ = os.Unsetenv("GEMINI_API_KEY")
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
