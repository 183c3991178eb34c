// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package api

import (
	"errors"
	"fmt"
)

// ErrFinalized is returned when registering into a [Registry] after
// [Registry.Finalize] has been called.
var ErrFinalized = errors.New("api: registry is finalized")

// ErrNotFinalized is returned when resolving against a [Registry]
// before [Registry.Finalize] has been called.
var ErrNotFinalized = errors.New("api: registry is not finalized")

// RouteNotFoundError is returned when no registered endpoint matches
// an incoming request. It always results in a 404 response and is
// never routed through the interceptor chain.
type RouteNotFoundError struct {
	Method string
	Path   string
}

func (e RouteNotFoundError) Error() string {
	return fmt.Sprintf("no route matches %s %s", e.Method, e.Path)
}

// RouteCollisionError is returned by [Registry.Finalize] when two
// endpoints register patterns that could both match the same request.
type RouteCollisionError struct {
	Method   string
	Pattern  string
	Existing string
}

func (e RouteCollisionError) Error() string {
	return fmt.Sprintf("route %s %s collides with already registered %s %s", e.Method, e.Pattern, e.Method, e.Existing)
}

// MissingPathParamError is returned by [Registry.Finalize] when a
// path-kind [Param] names a placeholder that appears in neither the
// controller base path nor the endpoint sub-path.
type MissingPathParamError struct {
	Controller string
	Endpoint   string
	Param      string
}

func (e MissingPathParamError) Error() string {
	return fmt.Sprintf("endpoint %s::%s binds path parameter %q which is not declared in its path pattern", e.Controller, e.Endpoint, e.Param)
}

// UnauthenticatedError terminates the auth pipeline with a fixed 401
// response. It is never routed through the interceptor chain.
type UnauthenticatedError struct {
	Cause error
}

func (e UnauthenticatedError) Error() string {
	if e.Cause == nil {
		return "unauthenticated"
	}
	return fmt.Sprintf("unauthenticated: %v", e.Cause)
}

// Unwrap returns the underlying cause, if any.
func (e UnauthenticatedError) Unwrap() error {
	return e.Cause
}

// UnauthorizedError terminates the auth pipeline with a fixed 403
// response. It is never routed through the interceptor chain.
type UnauthorizedError struct {
	Role string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("principal does not hold required role %q", e.Role)
}

// BadRequestError wraps a parameter binding failure. It is routed
// through the interceptor chain and defaults to a 400 response when
// left unhandled.
type BadRequestError struct {
	Cause error
}

func (e BadRequestError) Error() string {
	return fmt.Sprintf("bad request: %v", e.Cause)
}

// Unwrap returns the underlying cause of the bad request.
func (e BadRequestError) Unwrap() error {
	return e.Cause
}

// ConfigurationError reports a fatal misconfiguration, e.g. a missing
// auth filter for a protected endpoint or an undocumentable shape. It
// is raised at registration or first use and is not recoverable on a
// per-request basis.
type ConfigurationError struct {
	Detail string
}

func (e ConfigurationError) Error() string {
	return "configuration error: " + e.Detail
}
