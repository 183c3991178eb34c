// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DispatcherOptions holds configuration values used when constructing
// a [Dispatcher].
type DispatcherOptions struct {
	filter          AuthFilter
	authorizer      Authorizer
	instantiator    Instantiator
	defaultProduces string
	logHandler      slog.Handler
}

// DispatcherOption sets values on [DispatcherOptions].
type DispatcherOption func(*DispatcherOptions)

// AuthFilterOpt configures the single active [AuthFilter].
func AuthFilterOpt(f AuthFilter) DispatcherOption {
	return func(do *DispatcherOptions) {
		do.filter = f
	}
}

// AuthorizerOpt configures the single active [Authorizer].
func AuthorizerOpt(a Authorizer) DispatcherOption {
	return func(do *DispatcherOptions) {
		do.authorizer = a
	}
}

// InstantiatorOpt configures the instantiation collaborator. The
// default calls the controller declaration's New func.
func InstantiatorOpt(i Instantiator) DispatcherOption {
	return func(do *DispatcherOptions) {
		do.instantiator = i
	}
}

// DefaultProducesOpt configures the content type used when neither
// endpoint nor controller declares one.
func DefaultProducesOpt(contentType string) DispatcherOption {
	return func(do *DispatcherOptions) {
		do.defaultProduces = contentType
	}
}

// LogHandlerOpt configures the handler dispatch errors are logged to.
func LogHandlerOpt(h slog.Handler) DispatcherOption {
	return func(do *DispatcherOptions) {
		do.logHandler = h
	}
}

// Dispatcher orchestrates one pipeline invocation per inbound request:
// resolve route, run the auth pipeline, bind parameters, invoke the
// handler through the [Instantiator], and serialize the return value.
// It holds no per-request mutable state; everything a request needs is
// threaded through the call chain.
type Dispatcher struct {
	registry        *Registry
	auth            authPipeline
	instantiator    Instantiator
	defaultProduces string
	log             *slog.Logger
	tracer          trace.Tracer
}

// NewDispatcher initializes a [Dispatcher] over a finalized [Registry].
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	do := &DispatcherOptions{
		instantiator:    constructorInstantiator{},
		defaultProduces: "application/json",
		logHandler:      slog.DiscardHandler,
	}
	for _, opt := range opts {
		opt(do)
	}

	tracer := otel.Tracer("github.com/davidsoendoro/go-lambda-api/api")

	return &Dispatcher{
		registry: registry,
		auth: authPipeline{
			filter:     do.filter,
			authorizer: do.authorizer,
			tracer:     tracer,
		},
		instantiator:    do.instantiator,
		defaultProduces: do.defaultProduces,
		log:             slog.New(do.logHandler),
		tracer:          tracer,
	}
}

// ServeHTTP implements the [http.Handler] interface.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	spanCtx, span := d.tracer.Start(r.Context(), "Dispatcher.ServeHTTP")
	defer span.End()

	log := d.log.With(slog.String("request_id", uuid.NewString()))
	rw := &responseWriter{inner: w}

	e, pathValues, err := d.registry.Resolve(r.Method, r.URL.Path)
	if errors.Is(err, ErrNotFinalized) {
		span.RecordError(err)
		log.ErrorContext(spanCtx, "dispatcher registry was never finalized", slog.Any("error", err))
		writeStatusBody(rw, http.StatusInternalServerError, d.defaultProduces, map[string]string{"error": http.StatusText(http.StatusInternalServerError)})
		return
	}
	if err != nil {
		span.RecordError(err)
		writeStatusBody(rw, http.StatusNotFound, d.defaultProduces, map[string]string{"error": err.Error()})
		return
	}

	principal, err := d.auth.run(spanCtx, e, r)
	if err != nil {
		d.writeAuthFailure(spanCtx, log, rw, err)
		return
	}

	out, err := d.invoke(spanCtx, e, pathValues, r, rw, principal)
	if err != nil {
		d.handleError(spanCtx, log, rw, r, e, err)
		return
	}

	d.writeResponse(spanCtx, log, rw, e, out)
}

// invoke binds arguments, instantiates the controller and calls the
// handler. A handler panic is captured and surfaced as the returned
// error.
func (d *Dispatcher) invoke(ctx context.Context, e *EndpointDescriptor, pathValues map[string]string, r *http.Request, rw *responseWriter, principal *Principal) (out any, err error) {
	spanCtx, span := d.tracer.Start(ctx, "Dispatcher.invoke")
	defer span.End()
	defer try.Recover(&err)

	args, err := bindArgs(e, pathValues, r.WithContext(spanCtx), rw, principal)
	if err != nil {
		return nil, err
	}

	target, err := d.instantiator.Instantiate(spanCtx, e.controller)
	if err != nil {
		return nil, err
	}

	return e.invoke(spanCtx, target, args)
}

// writeAuthFailure maps terminal auth pipeline outcomes onto their
// fixed status codes. These never reach the interceptor chain.
func (d *Dispatcher) writeAuthFailure(ctx context.Context, log *slog.Logger, rw *responseWriter, err error) {
	var status int
	switch {
	case errors.As(err, &UnauthenticatedError{}):
		status = http.StatusUnauthorized
	case errors.As(err, &UnauthorizedError{}):
		status = http.StatusForbidden
	default:
		// Missing filter/authorizer is a fatal configuration error,
		// surfaced loudly rather than silently ignored.
		log.ErrorContext(ctx, "auth pipeline is misconfigured", slog.Any("error", err))
		status = http.StatusInternalServerError
	}
	writeStatusBody(rw, status, d.defaultProduces, map[string]string{"error": http.StatusText(status)})
}

// handleError routes a binding or handler failure through the most
// specific configured interceptor, falling back to the framework
// default response.
func (d *Dispatcher) handleError(ctx context.Context, log *slog.Logger, rw *responseWriter, r *http.Request, e *EndpointDescriptor, cause error) {
	spanCtx, span := d.tracer.Start(ctx, "Dispatcher.handleError")
	defer span.End()
	span.RecordError(cause)

	log.ErrorContext(spanCtx, "request failed",
		slog.String("endpoint", e.target()),
		slog.Any("error", cause),
	)

	interceptor := d.registry.interceptorFor(e)
	if interceptor == nil {
		// Framework default: a generic body embedding the failure,
		// with the status left untouched if already set.
		contentType := e.Produces(d.defaultProduces)
		if isJsonContentType(contentType) {
			d.writeBody(log, rw, defaultStatusFor(cause), contentType, map[string]string{"error": cause.Error()})
			return
		}
		d.writeBody(log, rw, defaultStatusFor(cause), contentType, cause.Error())
		return
	}

	apiErr := &ApiError{
		Err:        cause,
		Request:    r,
		Response:   rw,
		Controller: e.controller,
		Endpoint:   e,
	}

	body, err := interceptor.Intercept(spanCtx, apiErr)
	if err != nil {
		// Secondary failure: unrecoverable, no further interception.
		span.RecordError(err)
		log.ErrorContext(spanCtx, "error interceptor failed",
			slog.String("endpoint", e.target()),
			slog.Any("error", err),
		)
		if !rw.Written() {
			writeStatusBody(rw, http.StatusInternalServerError, d.defaultProduces, map[string]string{"error": http.StatusText(http.StatusInternalServerError)})
		}
		return
	}

	if body == nil {
		if !rw.Written() {
			rw.WriteHeader(defaultStatusFor(cause))
		}
		return
	}
	d.writeBody(log, rw, defaultStatusFor(cause), e.Produces(d.defaultProduces), body)
}

func defaultStatusFor(err error) int {
	if errors.As(err, &BadRequestError{}) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeResponse serializes the handler return value unless the
// handler already wrote to the raw response explicitly.
func (d *Dispatcher) writeResponse(ctx context.Context, log *slog.Logger, rw *responseWriter, e *EndpointDescriptor, out any) {
	_, span := d.tracer.Start(ctx, "Dispatcher.writeResponse")
	defer span.End()

	if rw.Written() {
		return
	}
	if out == nil {
		rw.WriteHeader(http.StatusOK)
		return
	}
	d.writeBody(log, rw, http.StatusOK, e.Produces(d.defaultProduces), out)
}

// writeBody serializes v per the effective produced content type:
// JSON for JSON content types, the plain string representation for
// anything else. The Content-Type header is set before the status
// since headers mutated after the status is flushed are never sent.
// The status is a no-op when the handler already wrote one.
func (d *Dispatcher) writeBody(log *slog.Logger, rw *responseWriter, status int, contentType string, v any) {
	if !isJsonContentType(contentType) {
		rw.Header().Set("Content-Type", contentType)
		rw.WriteHeader(status)
		_, err := fmt.Fprint(rw, v)
		if err != nil {
			log.Error("failed to write response body", slog.Any("error", err))
		}
		return
	}

	b, err := json.Marshal(v)
	if err != nil {
		log.Error("failed to encode response body to json", slog.Any("error", err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", contentType)
	rw.WriteHeader(status)
	_, err = rw.Write(b)
	if err != nil {
		log.Error("failed to write response body", slog.Any("error", err))
	}
}

func writeStatusBody(rw *responseWriter, status int, contentType string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		rw.WriteHeader(status)
		return
	}
	if isJsonContentType(contentType) {
		rw.Header().Set("Content-Type", contentType)
	} else {
		rw.Header().Set("Content-Type", "application/json")
	}
	rw.WriteHeader(status)
	_, _ = rw.Write(b)
}

// responseWriter tracks whether the handler explicitly wrote to the
// response so the serializer can stay out of the way.
type responseWriter struct {
	inner       http.ResponseWriter
	wroteHeader bool
}

var _ http.ResponseWriter = (*responseWriter)(nil)

func (w *responseWriter) Header() http.Header {
	return w.inner.Header()
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.inner.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.inner.Write(b)
}

// Written reports whether a status or body has been explicitly
// written.
func (w *responseWriter) Written() bool {
	return w.wroteHeader
}
