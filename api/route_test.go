// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func noopInvoke(ctx context.Context, target any, args []any) (any, error) {
	return nil, nil
}

func TestSplitPattern(t *testing.T) {
	t.Run("will compile placeholders", func(t *testing.T) {
		t.Run("if segments use the colon form", func(t *testing.T) {
			segs := splitPattern("/store/:storeId/item/:id")

			if !assert.Len(t, segs, 4) {
				return
			}
			assert.Equal(t, "store", segs[0].literal)
			assert.Equal(t, "storeId", segs[1].param)
			assert.Equal(t, "item", segs[2].literal)
			assert.Equal(t, "id", segs[3].param)
		})
	})

	t.Run("will drop empty segments", func(t *testing.T) {
		t.Run("if the pattern has doubled or trailing slashes", func(t *testing.T) {
			segs := splitPattern("//pet//:id/")

			if !assert.Len(t, segs, 2) {
				return
			}
			assert.Equal(t, "/pet/:id", patternString(segs))
		})
	})
}

func TestRegistryResolve(t *testing.T) {
	t.Run("will capture placeholder values", func(t *testing.T) {
		t.Run("if the path binds multiple placeholders", func(t *testing.T) {
			r := NewRegistry("/")
			err := r.Register(Controller{
				Name:     "Store",
				BasePath: "/store/:storeId",
				New:      func() any { return nil },
				Endpoints: []Endpoint{
					{
						Name:   "getItem",
						Method: http.MethodGet,
						Path:   "/item/:id",
						Invoke: noopInvoke,
					},
				},
			})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Nil(t, r.Finalize()) {
				return
			}

			e, values, err := r.Resolve(http.MethodGet, "/store/42/item/99")
			if !assert.Nil(t, err) {
				return
			}
			assert.Equal(t, "getItem", e.Name())
			assert.Equal(t, "42", values["storeId"])
			assert.Equal(t, "99", values["id"])
		})
	})

	t.Run("will treat a trailing slash as the same route", func(t *testing.T) {
		t.Run("if the request path ends in a slash", func(t *testing.T) {
			r := NewRegistry("/")
			err := r.Register(Controller{
				Name:     "Pets",
				BasePath: "/pets",
				New:      func() any { return nil },
				Endpoints: []Endpoint{
					{Name: "list", Method: http.MethodGet, Path: "/", Invoke: noopInvoke},
				},
			})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Nil(t, r.Finalize()) {
				return
			}

			e, _, err := r.Resolve(http.MethodGet, "/pets/")
			if !assert.Nil(t, err) {
				return
			}
			assert.Equal(t, "list", e.Name())
		})
	})

	t.Run("will return a RouteNotFoundError", func(t *testing.T) {
		t.Run("if no pattern matches the path", func(t *testing.T) {
			r := NewRegistry("/")
			err := r.Register(Controller{
				Name:     "Pets",
				BasePath: "/pets",
				New:      func() any { return nil },
				Endpoints: []Endpoint{
					{Name: "get", Method: http.MethodGet, Path: "/:id", Invoke: noopInvoke},
				},
			})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Nil(t, r.Finalize()) {
				return
			}

			_, _, err = r.Resolve(http.MethodGet, "/pets/1/extra")

			var notFound RouteNotFoundError
			if !assert.ErrorAs(t, err, &notFound) {
				return
			}
			assert.Equal(t, http.MethodGet, notFound.Method)
		})

		t.Run("if the method differs from every registered route", func(t *testing.T) {
			r := NewRegistry("/")
			err := r.Register(Controller{
				Name:     "Pets",
				BasePath: "/pets",
				New:      func() any { return nil },
				Endpoints: []Endpoint{
					{Name: "get", Method: http.MethodGet, Path: "/:id", Invoke: noopInvoke},
				},
			})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Nil(t, r.Finalize()) {
				return
			}

			_, _, err = r.Resolve(http.MethodDelete, "/pets/1")
			assert.ErrorAs(t, err, &RouteNotFoundError{})
		})
	})

	t.Run("will not match an empty placeholder value", func(t *testing.T) {
		t.Run("if a doubled slash leaves the segment empty", func(t *testing.T) {
			segs := splitPattern("/pets/:id")

			_, ok := match(segs, []string{"pets", ""})
			assert.False(t, ok)
		})
	})
}

func TestBuildRouteTable(t *testing.T) {
	t.Run("will fail with a RouteCollisionError", func(t *testing.T) {
		t.Run("if a placeholder route overlaps a literal route", func(t *testing.T) {
			r := NewRegistry("/")
			err := r.Register(Controller{
				Name:     "Pets",
				BasePath: "/pets",
				New:      func() any { return nil },
				Endpoints: []Endpoint{
					{Name: "get", Method: http.MethodGet, Path: "/:id", Invoke: noopInvoke},
					{Name: "featured", Method: http.MethodGet, Path: "/featured", Invoke: noopInvoke},
				},
			})
			if !assert.Nil(t, err) {
				return
			}

			err = r.Finalize()

			var collision RouteCollisionError
			if !assert.ErrorAs(t, err, &collision) {
				return
			}
			assert.Equal(t, http.MethodGet, collision.Method)
			assert.Equal(t, "/pets/featured", collision.Pattern)
			assert.Equal(t, "/pets/:id", collision.Existing)
		})

		t.Run("if two controllers register the same normalized pattern", func(t *testing.T) {
			r := NewRegistry("/")
			err := r.Register(Controller{
				Name:     "A",
				BasePath: "/pets",
				New:      func() any { return nil },
				Endpoints: []Endpoint{
					{Name: "get", Method: http.MethodGet, Path: "/:id", Invoke: noopInvoke},
				},
			})
			if !assert.Nil(t, err) {
				return
			}
			err = r.Register(Controller{
				Name:     "B",
				BasePath: "/pets/",
				New:      func() any { return nil },
				Endpoints: []Endpoint{
					{Name: "fetch", Method: http.MethodGet, Path: ":petId", Invoke: noopInvoke},
				},
			})
			if !assert.Nil(t, err) {
				return
			}

			err = r.Finalize()
			assert.ErrorAs(t, err, &RouteCollisionError{})
		})
	})

	t.Run("will allow equal shapes on different methods", func(t *testing.T) {
		t.Run("if only the HTTP method differs", func(t *testing.T) {
			r := NewRegistry("/")
			err := r.Register(Controller{
				Name:     "Pets",
				BasePath: "/pets",
				New:      func() any { return nil },
				Endpoints: []Endpoint{
					{Name: "get", Method: http.MethodGet, Path: "/:id", Invoke: noopInvoke},
					{Name: "delete", Method: http.MethodDelete, Path: "/:id", Invoke: noopInvoke},
				},
			})
			if !assert.Nil(t, err) {
				return
			}

			assert.Nil(t, r.Finalize())
		})
	})
}
