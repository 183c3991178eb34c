// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lambdaapi provides the base config and run loop for serving
// declaratively registered HTTP APIs.
package lambdaapi

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"syscall"

	"github.com/davidsoendoro/go-lambda-api/api"
	"github.com/davidsoendoro/go-lambda-api/config"
	"github.com/davidsoendoro/go-lambda-api/internal/httpserver"
	"github.com/davidsoendoro/go-lambda-api/internal/otel"

	"github.com/z5labs/bedrock"
	"github.com/z5labs/bedrock/app"
	"github.com/z5labs/bedrock/appbuilder"
	bedrockcfg "github.com/z5labs/bedrock/config"
	"github.com/z5labs/bedrock/lifecycle"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//go:embed default_config.yaml
var defaultConfig []byte

// Logger returns a [slog.Logger] bridged to the globally registered
// OTel log provider.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// LogHandler returns a [slog.Handler] bridged to the globally registered
// OTel log provider.
func LogHandler(name string) slog.Handler {
	return otelslog.NewHandler(name)
}

// ConfigSource standardizes the configuration template for apps built
// on this module. The [io.Reader] is expected to be YAML with support
// for Go templating. Two template functions are supported:
//   - env - substitutes an environment variable into the YAML
//   - default - defines a default value in case the original value is nil
func ConfigSource(r io.Reader) bedrockcfg.Source {
	return bedrockcfg.FromYaml(
		bedrockcfg.RenderTextTemplate(
			r,
			bedrockcfg.TemplateFunc("env", func(key string) any {
				v, ok := os.LookupEnv(key)
				if ok {
					return v
				}
				return nil
			}),
			bedrockcfg.TemplateFunc("default", func(def, v any) any {
				if v == nil {
					return def
				}
				return v
			}),
		),
	)
}

// DefaultConfig returns the embedded default config source which
// corresponds to the [Config] type.
func DefaultConfig() bedrockcfg.Source {
	return ConfigSource(bytes.NewReader(defaultConfig))
}

// Configer constrains custom config types into supporting the
// initialization behaviour required by [Run].
type Configer interface {
	appbuilder.OTelInitializer

	ApiConfig() api.Config
	Listener(context.Context) (net.Listener, error)
	HttpServer(context.Context, http.Handler) (*http.Server, error)
}

// Config is the default config which can be embedded into a more
// app specific config.
type Config struct {
	OTel config.OTel `config:"otel"`

	HTTP struct {
		Port uint `config:"port"`
	} `config:"http"`

	Api struct {
		Title    string `config:"title"`
		Version  string `config:"version"`
		BasePath string `config:"base_path"`
		Produces string `config:"produces"`

		OpenApi struct {
			Enabled bool `config:"enabled"`
			Auth    bool `config:"auth"`
		} `config:"openapi"`
	} `config:"api"`
}

// InitializeOTel implements the [appbuilder.OTelInitializer] interface.
func (c Config) InitializeOTel(ctx context.Context) error {
	return otel.Initialize(ctx, c.OTel)
}

// ApiConfig implements the [Configer] interface.
func (c Config) ApiConfig() api.Config {
	return api.Config{
		Title:           c.Api.Title,
		Version:         c.Api.Version,
		BasePath:        c.Api.BasePath,
		DefaultProduces: c.Api.Produces,
		OpenApi: api.OpenApiConfig{
			Enabled: c.Api.OpenApi.Enabled,
			Auth:    c.Api.OpenApi.Auth,
		},
	}
}

// Listener implements the [Configer] interface.
func (c Config) Listener(ctx context.Context) (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf(":%d", c.HTTP.Port))
}

// HttpServer implements the [Configer] interface.
func (c Config) HttpServer(ctx context.Context, h http.Handler) (*http.Server, error) {
	s := &http.Server{
		Handler:  h,
		ErrorLog: slog.NewLogLogger(LogHandler("lambdaapi"), slog.LevelError),
	}
	return s, nil
}

// Run begins by reading, parsing and unmarshaling your custom config
// into the type T. Then it calls the providing function to initialize
// your [api.Api]. Once it has the [api.Api], it begins serving it over
// HTTP. Panic recovery, OTel SDK initialization and OS signal based
// shutdown are applied for your convenience.
func Run[T Configer](r io.Reader, f func(context.Context, T) (*api.Api, error)) {
	cfg := bedrockcfg.MultiSource(
		DefaultConfig(),
		ConfigSource(r),
	)

	builder := appbuilder.FromConfig(
		appbuilder.LifecycleContext(
			appbuilder.OTel(
				appbuilder.Recover(
					bedrock.AppBuilderFunc[T](func(ctx context.Context, cfg T) (bedrock.App, error) {
						a, err := f(ctx, cfg)
						if err != nil {
							return nil, err
						}

						ls, err := cfg.Listener(ctx)
						if err != nil {
							return nil, err
						}

						s, err := cfg.HttpServer(ctx, otelhttp.NewHandler(
							a,
							"lambdaapi",
							otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
						))
						if err != nil {
							return nil, err
						}
						lc, _ := lifecycle.FromContext(ctx)
						lc.OnPostRun(lifecycle.HookFunc(func(ctx context.Context) error {
							return s.Shutdown(ctx)
						}))

						var base bedrock.App = httpserver.NewApp(ls, s)
						base = app.Recover(base)
						base = app.InterruptOn(base, os.Kill, os.Interrupt, syscall.SIGTERM)
						return base, nil
					}),
				),
			),
			&lifecycle.Context{},
		),
	)

	err := run(context.Background(), cfg, builder)
	if err == nil {
		return
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))
	log.Error("failed to run api", slog.String("error", err.Error()))
}

func run(ctx context.Context, cfg bedrockcfg.Source, builder bedrock.AppBuilder[bedrockcfg.Source]) error {
	a, err := builder.Build(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
