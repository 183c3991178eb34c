// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package api

import (
	"context"
	"net/http"
)

// ApiError is the contextual failure object passed to an
// [ErrorInterceptor]. It is created by the [Dispatcher] before
// interceptor invocation and lives for the duration of one request.
type ApiError struct {
	// Err is the triggering failure.
	Err error

	// Request and Response are the raw collaborator objects. An
	// interceptor may write the response status directly; any body it
	// wants sent should be returned from Intercept instead.
	Request  *http.Request
	Response http.ResponseWriter

	// Controller and Endpoint identify where the failure was raised.
	Controller *ControllerDescriptor
	Endpoint   *EndpointDescriptor
}

// ErrorInterceptor customizes the response for failures raised from
// parameter binding or handler invocation. The returned value is
// serialized as the response body. An error returned from Intercept is
// an unrecoverable dispatch failure: the framework responds 500 and
// attempts no further interception.
type ErrorInterceptor interface {
	Intercept(ctx context.Context, apiErr *ApiError) (any, error)
}

// ErrorInterceptorFunc is an adapter to allow the use of ordinary
// functions as [ErrorInterceptor]s.
type ErrorInterceptorFunc func(ctx context.Context, apiErr *ApiError) (any, error)

// Intercept implements the [ErrorInterceptor] interface.
func (f ErrorInterceptorFunc) Intercept(ctx context.Context, apiErr *ApiError) (any, error) {
	return f(ctx, apiErr)
}
