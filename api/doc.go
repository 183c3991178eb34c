// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package api turns declarative controller and endpoint descriptions
// into a working request processing pipeline and an OpenAPI v3 document.
//
// # Declarations
//
// API surface is declared as plain data instead of code annotations. A
// [Controller] groups endpoints under a shared base path and default
// cross-cutting metadata. Each [Endpoint] binds one HTTP method and path
// pattern to a handler invocation along with its ordered parameter
// bindings:
//
//	pets := api.Controller{
//	    Name:     "PetController",
//	    BasePath: "/store/:storeId",
//	    New:      func() any { return &PetController{} },
//	    Endpoints: []api.Endpoint{
//	        {
//	            Name:   "getPet",
//	            Method: http.MethodGet,
//	            Path:   "/pet/:id",
//	            Params: []api.Param{
//	                {Source: api.FromPath, Key: "storeId"},
//	                {Source: api.FromPath, Key: "id"},
//	            },
//	            Invoke: func(ctx context.Context, target any, args []any) (any, error) {
//	                return target.(*PetController).GetPet(ctx, args[0].(string), args[1].(string))
//	            },
//	        },
//	    },
//	}
//
// # Pipeline
//
// [New] registers all declared controllers into a [Registry], finalizes
// it into an immutable route table, and mounts a [Dispatcher] which, per
// request: resolves the route, runs the authentication/authorization
// pipeline, binds parameters, invokes the handler through an
// [Instantiator], and serializes the return value. Failures from binding
// or handler logic are routed through the configured [ErrorInterceptor]
// chain.
//
// # Specification
//
// The same registry metadata is walked, without ever invoking a handler,
// to serve the generated OpenAPI document as JSON and YAML.
package api
