// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package api

import (
	"context"
)

// ParamSource identifies where a bound argument value is read from.
type ParamSource int

const (
	// FromPath binds the captured value of a named path placeholder.
	// The value is always a string; coercion is left to the handler.
	FromPath ParamSource = iota

	// FromQuery binds the first value of a query key, or nil if the
	// key is absent.
	FromQuery

	// FromHeader binds the first value of a header, looked up case
	// insensitively, or nil if the header is absent.
	FromHeader

	// FromBody binds the request body: decoded JSON when the request
	// content type indicates JSON, the raw body string otherwise.
	FromBody

	// FromPrincipal binds the authenticated [Principal], which is nil
	// on a no-auth endpoint.
	FromPrincipal

	// FromRequest binds the raw [*http.Request].
	FromRequest

	// FromResponse binds the raw [http.ResponseWriter].
	FromResponse
)

// String returns the lowercase name of the source kind.
func (s ParamSource) String() string {
	switch s {
	case FromPath:
		return "path"
	case FromQuery:
		return "query"
	case FromHeader:
		return "header"
	case FromBody:
		return "body"
	case FromPrincipal:
		return "principal"
	case FromRequest:
		return "request"
	case FromResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Param declares a single positional argument binding for an endpoint.
// The positional index is the element's position in [Endpoint.Params].
type Param struct {
	Source ParamSource

	// Key is the lookup name for path, query and header kinds. It is
	// ignored for the other kinds.
	Key string

	// Type is a declared type hint used for documentation, e.g.
	// "string", "integer", "number", "boolean". Defaults to "string".
	Type string
}

// Field declares the name and type of one field of a documented [Shape].
type Field struct {
	Name string
	Type string
}

// Shape is an author supplied descriptor for a documented request or
// response body. Example takes precedence when set; otherwise Fields
// describe the shape. A Shape with neither, or a [Field] with an empty
// Type, fails registration with a [ConfigurationError].
type Shape struct {
	Name    string
	Example any
	Fields  []Field
}

// InvokeFunc applies the bound argument list to a handler method on
// the instantiated controller value.
type InvokeFunc func(ctx context.Context, target any, args []any) (any, error)

// Endpoint declares one HTTP-method-and-path-bound handler operation.
//
// The zero value of each cross-cutting field means "inherit from the
// controller": a nil NoAuth, a nil Roles slice, an empty Produces and
// a nil ErrorInterceptor all fall back to the controller declaration.
// A set value overrides the controller's entirely; values are never
// merged.
type Endpoint struct {
	// Name identifies the endpoint within its controller. It doubles
	// as the generated operation id and as the method part of a
	// "Controller::method" interceptor target.
	Name string

	Method string

	// Path is the sub-path pattern relative to the controller base
	// path. Placeholders use the ":name" form, e.g. "/pet/:id".
	Path string

	Description string

	// Produces overrides the controller's produced content type.
	Produces string

	// NoAuth overrides the controller's no-auth flag when non-nil.
	NoAuth *bool

	// Roles overrides the controller's allowed roles when non-nil.
	// All listed roles must pass authorization independently.
	Roles []string

	// ErrorInterceptor overrides the controller's interceptor.
	ErrorInterceptor ErrorInterceptor

	// Params are the ordered argument bindings for Invoke.
	Params []Param

	// Request documents the request body shape.
	Request *Shape

	// Responses documents response body shapes by status code.
	Responses map[int]*Shape

	Invoke InvokeFunc
}

// Controller declares a logical grouping of endpoints sharing a base
// path and default cross-cutting metadata.
type Controller struct {
	// Name identifies the controller. It is the controller part of
	// interceptor targets and the default API group name.
	Name string

	// BasePath is prefixed to every endpoint sub-path. It may contain
	// ":name" placeholders.
	BasePath string

	// Group and GroupDescription name the API group the controller's
	// operations are documented under. Group defaults to Name.
	Group            string
	GroupDescription string

	// Produces is the default produced content type for all endpoints
	// of this controller.
	Produces string

	// NoAuth disables the auth pipeline for all endpoints unless an
	// endpoint overrides it.
	NoAuth bool

	// Roles are the default allowed roles for all endpoints.
	Roles []string

	// ErrorInterceptor is the default interceptor for all endpoints.
	ErrorInterceptor ErrorInterceptor

	// New constructs a handler instance. It is consumed by the
	// default [Instantiator]; a custom Instantiator may ignore it.
	New func() any

	Endpoints []Endpoint
}

// Instantiator is the narrow contract through which the [Dispatcher]
// obtains handler instances. Implementations typically delegate to a
// dependency injection container; the pipeline has no opinion on how
// constructor dependencies are resolved.
type Instantiator interface {
	Instantiate(ctx context.Context, c *ControllerDescriptor) (any, error)
}

// InstantiatorFunc is an adapter to allow the use of ordinary
// functions as [Instantiator]s.
type InstantiatorFunc func(ctx context.Context, c *ControllerDescriptor) (any, error)

// Instantiate implements the [Instantiator] interface.
func (f InstantiatorFunc) Instantiate(ctx context.Context, c *ControllerDescriptor) (any, error) {
	return f(ctx, c)
}

type constructorInstantiator struct{}

func (constructorInstantiator) Instantiate(ctx context.Context, c *ControllerDescriptor) (any, error) {
	if c.factory == nil {
		return nil, ConfigurationError{
			Detail: "controller " + c.Name() + " has no constructor and no custom instantiator is configured",
		}
	}
	return c.factory(), nil
}
