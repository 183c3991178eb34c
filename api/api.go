// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/davidsoendoro/go-lambda-api/health"

	"github.com/go-chi/chi/v5"
	"github.com/z5labs/sdk-go/ptr"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

// OpenApiConfig controls the generated specification routes.
type OpenApiConfig struct {
	// Enabled mounts GET <base>/open-api.json and <base>/open-api.yml.
	Enabled bool

	// Auth gates the specification routes through the auth pipeline.
	Auth bool
}

// Config is the configuration surface recognized by the core.
type Config struct {
	Title   string
	Version string

	// BasePath is prefixed to every controller base path and to the
	// specification routes.
	BasePath string

	// DefaultProduces is the content type used when neither endpoint
	// nor controller declares one. Defaults to "application/json".
	DefaultProduces string

	OpenApi OpenApiConfig
}

// Options holds configuration values used when constructing an [Api].
type Options struct {
	controllers  []Controller
	interceptors []manualInterceptor
	dispatch     []DispatcherOption
	filter       AuthFilter
	readiness    health.Monitor
	liveness     health.Monitor
}

type manualInterceptor struct {
	target      string
	interceptor ErrorInterceptor
}

// Option configures an [Api].
type Option interface {
	ApplyOption(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) ApplyOption(o *Options) {
	f(o)
}

// RegisterController registers one controller declaration with the
// [Api]'s registry.
func RegisterController(c Controller) Option {
	return optionFunc(func(o *Options) {
		o.controllers = append(o.controllers, c)
	})
}

// Intercept imperatively attaches an error interceptor to an explicit
// "ControllerName" or "ControllerName::methodName" target.
func Intercept(target string, i ErrorInterceptor) Option {
	return optionFunc(func(o *Options) {
		o.interceptors = append(o.interceptors, manualInterceptor{
			target:      target,
			interceptor: i,
		})
	})
}

// WithAuthFilter configures the single active [AuthFilter].
func WithAuthFilter(f AuthFilter) Option {
	return optionFunc(func(o *Options) {
		o.filter = f
		o.dispatch = append(o.dispatch, AuthFilterOpt(f))
	})
}

// WithAuthorizer configures the single active [Authorizer].
func WithAuthorizer(a Authorizer) Option {
	return optionFunc(func(o *Options) {
		o.dispatch = append(o.dispatch, AuthorizerOpt(a))
	})
}

// WithInstantiator configures the instantiation collaborator used to
// obtain handler instances.
func WithInstantiator(i Instantiator) Option {
	return optionFunc(func(o *Options) {
		o.dispatch = append(o.dispatch, InstantiatorOpt(i))
	})
}

// Readiness registers the given [health.Monitor] to back the
// readiness probe endpoint at GET /health/readiness.
func Readiness(m health.Monitor) Option {
	return optionFunc(func(o *Options) {
		o.readiness = m
	})
}

// Liveness registers the given [health.Monitor] to back the liveness
// probe endpoint at GET /health/liveness.
func Liveness(m health.Monitor) Option {
	return optionFunc(func(o *Options) {
		o.liveness = m
	})
}

// Api is an [http.Handler] serving declaratively registered endpoints
// along with their generated OpenAPI document and health probes.
type Api struct {
	router *chi.Mux
}

// New registers all declared controllers, finalizes the registry and
// wires the dispatch pipeline. Registration errors (route collisions,
// undeclared path parameters, undocumentable shapes, invalid
// interceptor targets) abort construction entirely.
func New(cfg Config, opts ...Option) (*Api, error) {
	if cfg.DefaultProduces == "" {
		cfg.DefaultProduces = "application/json"
	}
	if !strings.HasPrefix(cfg.BasePath, "/") {
		cfg.BasePath = "/" + cfg.BasePath
	}

	o := &Options{}
	for _, opt := range opts {
		opt.ApplyOption(o)
	}

	registry := NewRegistry(cfg.BasePath)
	for _, c := range o.controllers {
		err := registry.Register(c)
		if err != nil {
			return nil, err
		}
	}
	for _, mi := range o.interceptors {
		err := registry.Intercept(mi.target, mi.interceptor)
		if err != nil {
			return nil, err
		}
	}
	err := registry.Finalize()
	if err != nil {
		return nil, err
	}

	dispatchOpts := append([]DispatcherOption{
		DefaultProducesOpt(cfg.DefaultProduces),
		LogHandlerOpt(otelslog.NewHandler("github.com/davidsoendoro/go-lambda-api/api")),
	}, o.dispatch...)
	dispatcher := NewDispatcher(registry, dispatchOpts...)

	mux := chi.NewMux()
	mux.Get("/health/liveness", healthHandler(o.liveness))
	mux.Get("/health/readiness", healthHandler(o.readiness))

	if cfg.OpenApi.Enabled {
		gen := NewSpecGenerator(registry, cfg.Title, cfg.Version, cfg.DefaultProduces, o.filter)

		jsonHandler := specHandler(gen.JSON, "application/json")
		yamlHandler := specHandler(gen.YAML, "application/yaml")
		if cfg.OpenApi.Auth {
			guard := specGuard(dispatcher)
			jsonHandler = guard(jsonHandler)
			yamlHandler = guard(yamlHandler)
		}

		mux.Get(path.Join(cfg.BasePath, "open-api.json"), jsonHandler)
		mux.Get(path.Join(cfg.BasePath, "open-api.yml"), yamlHandler)
	}

	mux.Mount("/", dispatcher)

	return &Api{router: mux}, nil
}

// ServeHTTP implements the [http.Handler] interface.
func (a *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func healthHandler(m health.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		healthy, err := m.Healthy(r.Context())
		if !healthy || err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func specHandler(generate func() ([]byte, error), contentType string) http.HandlerFunc {
	log := otelslog.NewLogger("github.com/davidsoendoro/go-lambda-api/api")

	return func(w http.ResponseWriter, r *http.Request) {
		b, err := generate()
		if err != nil {
			log.ErrorContext(r.Context(), "failed to generate openapi document", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, err = w.Write(b)
		if err != nil {
			log.ErrorContext(r.Context(), "failed to write openapi document", slog.Any("error", err))
		}
	}
}

// specGuard runs the auth pipeline against a synthetic endpoint so
// the specification routes honor the same authentication rules as
// ordinary routes when spec auth is enabled.
func specGuard(d *Dispatcher) func(http.HandlerFunc) http.HandlerFunc {
	specEndpoint := &EndpointDescriptor{
		controller: &ControllerDescriptor{name: "OpenApi"},
		name:       "document",
		noAuth:     ptr.Ref(false),
	}
	tracer := otel.Tracer("github.com/davidsoendoro/go-lambda-api/api")

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			spanCtx, span := tracer.Start(r.Context(), "specGuard")
			defer span.End()

			_, err := d.auth.run(spanCtx, specEndpoint, r)
			if err != nil {
				span.RecordError(err)

				var cfgErr ConfigurationError
				if errors.As(err, &cfgErr) {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r.WithContext(spanCtx))
		}
	}
}
