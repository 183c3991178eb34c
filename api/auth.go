// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package api

import (
	"context"
	"net/http"

	"github.com/swaggest/openapi-go/openapi3"
	"go.opentelemetry.io/otel/trace"
)

// Principal is an authenticated identity produced by an [AuthFilter].
// It lives for the duration of one request and is never persisted.
type Principal struct {
	// Name is the identity's display name.
	Name string

	// Attributes carries extension fields for authorization checks.
	Attributes map[string]any
}

// AuthFilter extracts scheme specific credential data from a request
// and authenticates it into a [Principal]. Exactly one filter is
// active per application instance.
type AuthFilter interface {
	// Name identifies the filter, and names its security scheme in
	// the generated specification.
	Name() string

	// Scheme names the authentication scheme, e.g. "Basic".
	Scheme() string

	// Extract reads the credential data its scheme needs from the
	// request. Returning nil data reports that no credentials were
	// presented; Authenticate is not called in that case.
	Extract(ctx context.Context, r *http.Request) (any, error)

	// Authenticate turns extracted credential data into a Principal.
	// Returning a nil Principal or an error rejects the request.
	Authenticate(ctx context.Context, data any) (*Principal, error)
}

// SecuritySchemer may be implemented by an [AuthFilter] with a scheme
// other than Basic to describe itself in the generated specification.
type SecuritySchemer interface {
	SecurityScheme() openapi3.SecurityScheme
}

// Authorizer decides whether a [Principal] holds a named role. Exactly
// one authorizer is active per application instance.
type Authorizer interface {
	Authorize(ctx context.Context, p *Principal, role string) (bool, error)
}

// AuthorizerFunc is an adapter to allow the use of ordinary functions
// as [Authorizer]s.
type AuthorizerFunc func(ctx context.Context, p *Principal, role string) (bool, error)

// Authorize implements the [Authorizer] interface.
func (f AuthorizerFunc) Authorize(ctx context.Context, p *Principal, role string) (bool, error) {
	return f(ctx, p, role)
}

type authPipeline struct {
	filter     AuthFilter
	authorizer Authorizer
	tracer     trace.Tracer
}

// run executes the per-request auth state machine. It returns the
// authenticated Principal, or nil when the endpoint's effective
// no-auth flag short-circuits the pipeline. Failure is reported as
// [UnauthenticatedError], [UnauthorizedError] or [ConfigurationError];
// none of these are routed through the interceptor chain.
func (p authPipeline) run(ctx context.Context, e *EndpointDescriptor, r *http.Request) (*Principal, error) {
	if e.NoAuth() {
		return nil, nil
	}

	spanCtx, span := p.tracer.Start(ctx, "authPipeline.run")
	defer span.End()

	if p.filter == nil {
		return nil, ConfigurationError{
			Detail: "endpoint " + e.target() + " requires authentication but no auth filter is configured",
		}
	}

	data, err := p.filter.Extract(spanCtx, r)
	if err != nil {
		return nil, UnauthenticatedError{Cause: err}
	}
	if data == nil {
		return nil, UnauthenticatedError{}
	}

	principal, err := p.filter.Authenticate(spanCtx, data)
	if err != nil {
		return nil, UnauthenticatedError{Cause: err}
	}
	if principal == nil {
		return nil, UnauthenticatedError{}
	}

	roles := e.Roles()
	if len(roles) == 0 {
		return principal, nil
	}

	if p.authorizer == nil {
		return nil, ConfigurationError{
			Detail: "endpoint " + e.target() + " requires roles but no authorizer is configured",
		}
	}

	// Every required role must pass independently.
	for _, role := range roles {
		ok, err := p.authorizer.Authorize(spanCtx, principal, role)
		if err != nil || !ok {
			span.RecordError(err)
			return nil, UnauthorizedError{Role: role}
		}
	}
	return principal, nil
}
