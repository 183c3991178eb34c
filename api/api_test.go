// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/davidsoendoro/go-lambda-api/health"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Run("will fail", func(t *testing.T) {
		t.Run("if a controller registration is invalid", func(t *testing.T) {
			_, err := New(
				Config{Title: "petstore", Version: "1.0.0"},
				RegisterController(Controller{}),
			)
			assert.ErrorAs(t, err, &ConfigurationError{})
		})

		t.Run("if finalization detects a route collision", func(t *testing.T) {
			_, err := New(
				Config{Title: "petstore", Version: "1.0.0"},
				RegisterController(Controller{
					Name:     "Pets",
					BasePath: "/pets",
					Endpoints: []Endpoint{
						{Name: "get", Method: http.MethodGet, Path: "/:id", Invoke: noopInvoke},
						{Name: "featured", Method: http.MethodGet, Path: "/featured", Invoke: noopInvoke},
					},
				}),
			)
			assert.ErrorAs(t, err, &RouteCollisionError{})
		})

		t.Run("if an interceptor targets an unregistered controller", func(t *testing.T) {
			_, err := New(
				Config{Title: "petstore", Version: "1.0.0"},
				Intercept("Ghost", ErrorInterceptorFunc(func(ctx context.Context, apiErr *ApiError) (any, error) {
					return nil, nil
				})),
			)
			assert.ErrorAs(t, err, &ConfigurationError{})
		})
	})

	t.Run("will dispatch registered routes", func(t *testing.T) {
		t.Run("if the request matches a declared endpoint", func(t *testing.T) {
			a, err := New(
				Config{Title: "petstore", Version: "1.0.0", BasePath: "/v1"},
				RegisterController(Controller{
					Name:     "Pets",
					BasePath: "/pets",
					NoAuth:   true,
					New:      func() any { return nil },
					Endpoints: []Endpoint{
						{
							Name:   "get",
							Method: http.MethodGet,
							Path:   "/:id",
							Params: []Param{{Source: FromPath, Key: "id"}},
							Invoke: func(ctx context.Context, target any, args []any) (any, error) {
								return map[string]any{"id": args[0]}, nil
							},
						},
					},
				}),
			)
			if !assert.Nil(t, err) {
				return
			}

			w := httptest.NewRecorder()
			a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/pets/42", nil))

			resp := w.Result()
			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}

			var body map[string]string
			if !assert.Nil(t, json.NewDecoder(resp.Body).Decode(&body)) {
				return
			}
			assert.Equal(t, "42", body["id"])
		})
	})

	t.Run("will serve health probes", func(t *testing.T) {
		t.Run("if no monitors are registered they default healthy", func(t *testing.T) {
			a, err := New(Config{Title: "petstore", Version: "1.0.0"})
			if !assert.Nil(t, err) {
				return
			}

			for _, path := range []string{"/health/liveness", "/health/readiness"} {
				w := httptest.NewRecorder()
				a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				assert.Equal(t, http.StatusOK, w.Result().StatusCode)
			}
		})

		t.Run("if the readiness monitor reports unhealthy", func(t *testing.T) {
			var m health.Binary
			m.MarkUnhealthy()

			a, err := New(
				Config{Title: "petstore", Version: "1.0.0"},
				Readiness(&m),
			)
			if !assert.Nil(t, err) {
				return
			}

			w := httptest.NewRecorder()
			a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))
			assert.Equal(t, http.StatusServiceUnavailable, w.Result().StatusCode)

			w = httptest.NewRecorder()
			a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/liveness", nil))
			assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		})
	})

	t.Run("will serve the generated document", func(t *testing.T) {
		t.Run("if the open api routes are enabled", func(t *testing.T) {
			a, err := New(
				Config{
					Title:    "petstore",
					Version:  "1.2.3",
					BasePath: "/v1",
					OpenApi:  OpenApiConfig{Enabled: true},
				},
				RegisterController(Controller{
					Name:     "Pets",
					BasePath: "/pets",
					NoAuth:   true,
					New:      func() any { return nil },
					Endpoints: []Endpoint{
						{Name: "get", Method: http.MethodGet, Path: "/:id", Invoke: noopInvoke},
					},
				}),
			)
			if !assert.Nil(t, err) {
				return
			}

			w := httptest.NewRecorder()
			a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/open-api.json", nil))

			resp := w.Result()
			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			var doc struct {
				Openapi string `json:"openapi"`
				Info    struct {
					Title   string `json:"title"`
					Version string `json:"version"`
				} `json:"info"`
			}
			if !assert.Nil(t, json.NewDecoder(resp.Body).Decode(&doc)) {
				return
			}
			assert.Equal(t, "3.0.0", doc.Openapi)
			assert.Equal(t, "petstore", doc.Info.Title)
			assert.Equal(t, "1.2.3", doc.Info.Version)

			w = httptest.NewRecorder()
			a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/open-api.yml", nil))
			assert.Equal(t, http.StatusOK, w.Result().StatusCode)
			assert.Equal(t, "application/yaml", w.Result().Header.Get("Content-Type"))
		})

		t.Run("if the routes are disabled they respond 404", func(t *testing.T) {
			a, err := New(Config{Title: "petstore", Version: "1.0.0", BasePath: "/v1"})
			if !assert.Nil(t, err) {
				return
			}

			w := httptest.NewRecorder()
			a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/open-api.json", nil))
			assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
		})
	})

	t.Run("will gate the generated document behind authentication", func(t *testing.T) {
		t.Run("if spec auth is enabled and no credentials are presented", func(t *testing.T) {
			a, err := New(
				Config{
					Title:   "petstore",
					Version: "1.0.0",
					OpenApi: OpenApiConfig{Enabled: true, Auth: true},
				},
				WithAuthFilter(&staticFilter{}),
			)
			if !assert.Nil(t, err) {
				return
			}

			w := httptest.NewRecorder()
			a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open-api.json", nil))
			assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
		})

		t.Run("if the credentials authenticate the document is served", func(t *testing.T) {
			a, err := New(
				Config{
					Title:   "petstore",
					Version: "1.0.0",
					OpenApi: OpenApiConfig{Enabled: true, Auth: true},
				},
				WithAuthFilter(&staticFilter{
					extracted: "creds",
					principal: &Principal{Name: "alice"},
				}),
			)
			if !assert.Nil(t, err) {
				return
			}

			w := httptest.NewRecorder()
			a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open-api.json", nil))
			assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		})
	})
}
