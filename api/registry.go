// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package api

import (
	"fmt"
	"strings"
	"sync"
)

// ControllerDescriptor is the immutable registered form of a
// [Controller] declaration.
type ControllerDescriptor struct {
	name             string
	basePath         string
	group            string
	groupDescription string
	produces         string
	noAuth           bool
	roles            []string
	interceptor      ErrorInterceptor
	factory          func() any
	endpoints        []*EndpointDescriptor
}

// Name returns the declared controller name.
func (c *ControllerDescriptor) Name() string {
	return c.name
}

// BasePath returns the declared base path pattern.
func (c *ControllerDescriptor) BasePath() string {
	return c.basePath
}

// Group returns the declared API group name, defaulting to the
// controller name.
func (c *ControllerDescriptor) Group() string {
	if c.group != "" {
		return c.group
	}
	return c.name
}

// GroupDescription returns the declared API group description.
func (c *ControllerDescriptor) GroupDescription() string {
	return c.groupDescription
}

// Endpoints returns the controller's endpoint descriptors in
// declaration order. The returned slice must not be mutated.
func (c *ControllerDescriptor) Endpoints() []*EndpointDescriptor {
	return c.endpoints
}

// EndpointDescriptor is the immutable registered form of an [Endpoint]
// declaration, with its full path pattern compiled against the app and
// controller base paths.
type EndpointDescriptor struct {
	controller  *ControllerDescriptor
	name        string
	method      string
	path        string
	description string
	produces    string
	noAuth      *bool
	roles       []string
	interceptor ErrorInterceptor
	params      []Param
	request     *Shape
	responses   map[int]*Shape
	invoke      InvokeFunc

	pattern    []segment
	paramNames []string
}

// Controller returns the owning controller descriptor.
func (e *EndpointDescriptor) Controller() *ControllerDescriptor {
	return e.controller
}

// Name returns the declared endpoint name.
func (e *EndpointDescriptor) Name() string {
	return e.name
}

// Method returns the endpoint's HTTP method.
func (e *EndpointDescriptor) Method() string {
	return e.method
}

// Pattern returns the full normalized path pattern in ":name" form.
func (e *EndpointDescriptor) Pattern() string {
	return patternString(e.pattern)
}

// PathParams returns the placeholder names of the full pattern in
// declaration order.
func (e *EndpointDescriptor) PathParams() []string {
	return e.paramNames
}

// Params returns the endpoint's ordered parameter bindings.
func (e *EndpointDescriptor) Params() []Param {
	return e.params
}

// NoAuth resolves the effective no-auth flag, endpoint first.
func (e *EndpointDescriptor) NoAuth() bool {
	if e.noAuth != nil {
		return *e.noAuth
	}
	return e.controller.noAuth
}

// Roles resolves the effective allowed-roles set, endpoint first. The
// sets are never merged.
func (e *EndpointDescriptor) Roles() []string {
	if e.roles != nil {
		return e.roles
	}
	return e.controller.roles
}

// Produces resolves the effective produced content type, endpoint
// first, then controller, then the given default.
func (e *EndpointDescriptor) Produces(def string) string {
	if e.produces != "" {
		return e.produces
	}
	if e.controller.produces != "" {
		return e.controller.produces
	}
	return def
}

func (e *EndpointDescriptor) target() string {
	return e.controller.name + "::" + e.name
}

// Registry accumulates controller declarations and builds the
// immutable route table. All registration must complete before
// [Registry.Finalize]; afterwards the registry is read-only and safe
// for lock-free concurrent resolution.
type Registry struct {
	mu        sync.Mutex
	finalized bool

	basePath    string
	controllers []*ControllerDescriptor
	byName      map[string]*ControllerDescriptor
	manual      map[string]ErrorInterceptor
	routes      *routeTable
}

// NewRegistry initializes a [Registry]. All registered patterns are
// prefixed with basePath.
func NewRegistry(basePath string) *Registry {
	return &Registry{
		basePath: basePath,
		byName:   make(map[string]*ControllerDescriptor),
		manual:   make(map[string]ErrorInterceptor),
	}
}

// Register scans one controller declaration into descriptors. It fails
// on duplicate controller names, endpoints without a method, path or
// invoke func, and after finalization.
func (r *Registry) Register(c Controller) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return ErrFinalized
	}
	if c.Name == "" {
		return ConfigurationError{Detail: "controller name must not be empty"}
	}
	if _, ok := r.byName[c.Name]; ok {
		return ConfigurationError{Detail: "controller " + c.Name + " is already registered"}
	}

	cd := &ControllerDescriptor{
		name:             c.Name,
		basePath:         c.BasePath,
		group:            c.Group,
		groupDescription: c.GroupDescription,
		produces:         c.Produces,
		noAuth:           c.NoAuth,
		roles:            c.Roles,
		interceptor:      c.ErrorInterceptor,
		factory:          c.New,
	}

	for _, e := range c.Endpoints {
		ed, err := r.describeEndpoint(cd, e)
		if err != nil {
			return err
		}
		cd.endpoints = append(cd.endpoints, ed)
	}

	r.controllers = append(r.controllers, cd)
	r.byName[c.Name] = cd
	return nil
}

func (r *Registry) describeEndpoint(cd *ControllerDescriptor, e Endpoint) (*EndpointDescriptor, error) {
	switch {
	case e.Name == "":
		return nil, ConfigurationError{Detail: "controller " + cd.name + " declares an endpoint without a name"}
	case e.Method == "":
		return nil, ConfigurationError{Detail: "endpoint " + cd.name + "::" + e.Name + " declares no HTTP method"}
	case e.Invoke == nil:
		return nil, ConfigurationError{Detail: "endpoint " + cd.name + "::" + e.Name + " declares no invoke func"}
	}

	pattern := splitPattern(r.basePath + "/" + cd.basePath + "/" + e.Path)

	var paramNames []string
	for _, seg := range pattern {
		if seg.param == "" {
			continue
		}
		for _, name := range paramNames {
			if name == seg.param {
				return nil, ConfigurationError{
					Detail: fmt.Sprintf("endpoint %s::%s declares duplicate path parameter %q", cd.name, e.Name, seg.param),
				}
			}
		}
		paramNames = append(paramNames, seg.param)
	}

	return &EndpointDescriptor{
		controller:  cd,
		name:        e.Name,
		method:      strings.ToUpper(e.Method),
		path:        e.Path,
		description: e.Description,
		produces:    e.Produces,
		noAuth:      e.NoAuth,
		roles:       e.Roles,
		interceptor: e.ErrorInterceptor,
		params:      e.Params,
		request:     e.Request,
		responses:   e.Responses,
		invoke:      e.Invoke,
		pattern:     pattern,
		paramNames:  paramNames,
	}, nil
}

// Intercept imperatively attaches an interceptor to an explicit
// "ControllerName" or "ControllerName::methodName" target. The target
// is validated against registered controllers at finalization.
func (r *Registry) Intercept(target string, i ErrorInterceptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return ErrFinalized
	}
	if target == "" {
		return ConfigurationError{Detail: "interceptor target must not be empty"}
	}
	if i == nil {
		return ConfigurationError{Detail: "interceptor for target " + target + " must not be nil"}
	}
	if _, ok := r.manual[target]; ok {
		return ConfigurationError{Detail: "interceptor target " + target + " is already registered"}
	}

	r.manual[target] = i
	return nil
}

// Finalize builds the immutable route table. It fails fast with a
// [RouteCollisionError] when two endpoints could match the same
// request, with a [MissingPathParamError] when a path binding names an
// undeclared placeholder, and with a [ConfigurationError] for invalid
// interceptor targets or undocumentable shapes. After a successful
// return the registry is read-only for the remainder of the process
// lifetime.
func (r *Registry) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return ErrFinalized
	}

	for _, c := range r.controllers {
		for _, e := range c.endpoints {
			err := r.verifyEndpoint(c, e)
			if err != nil {
				return err
			}
		}
	}

	for target := range r.manual {
		err := r.verifyTarget(target)
		if err != nil {
			return err
		}
	}

	routes, err := buildRouteTable(r.controllers)
	if err != nil {
		return err
	}

	r.routes = routes
	r.finalized = true
	return nil
}

func (r *Registry) verifyEndpoint(c *ControllerDescriptor, e *EndpointDescriptor) error {
	for _, p := range e.params {
		if p.Source != FromPath {
			continue
		}
		declared := false
		for _, name := range e.paramNames {
			if name == p.Key {
				declared = true
				break
			}
		}
		if !declared {
			return MissingPathParamError{
				Controller: c.name,
				Endpoint:   e.name,
				Param:      p.Key,
			}
		}
	}

	err := verifyShape(e.target(), "request", e.request)
	if err != nil {
		return err
	}
	for status, shape := range e.responses {
		err := verifyShape(e.target(), fmt.Sprintf("response %d", status), shape)
		if err != nil {
			return err
		}
	}
	return nil
}

func verifyShape(target, kind string, s *Shape) error {
	if s == nil {
		return nil
	}
	if s.Example != nil {
		return nil
	}
	if len(s.Fields) == 0 {
		return ConfigurationError{
			Detail: fmt.Sprintf("%s %s shape %q declares neither an example nor fields", target, kind, s.Name),
		}
	}
	for _, f := range s.Fields {
		if f.Type == "" {
			return ConfigurationError{
				Detail: fmt.Sprintf("%s %s shape %q leaves field %q without a declared type", target, kind, s.Name, f.Name),
			}
		}
	}
	return nil
}

func (r *Registry) verifyTarget(target string) error {
	name, method, hasMethod := strings.Cut(target, "::")
	c, ok := r.byName[name]
	if !ok {
		return ConfigurationError{Detail: "interceptor target " + target + " names an unregistered controller"}
	}
	if !hasMethod {
		return nil
	}
	for _, e := range c.endpoints {
		if e.name == method {
			return nil
		}
	}
	return ConfigurationError{Detail: "interceptor target " + target + " names an unknown endpoint"}
}

// Finalized reports whether [Registry.Finalize] has completed.
func (r *Registry) Finalized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}

// Controllers returns all registered controller descriptors in
// registration order. The returned slice must not be mutated.
func (r *Registry) Controllers() []*ControllerDescriptor {
	return r.controllers
}

// Resolve matches an incoming (method, path) pair against the route
// table built by [Registry.Finalize].
func (r *Registry) Resolve(method, path string) (*EndpointDescriptor, map[string]string, error) {
	// routes is immutable once set so no locking is required on the
	// request path.
	t := r.routes
	if t == nil {
		return nil, nil, ErrNotFinalized
	}
	return t.resolve(method, path)
}

// interceptorFor selects the most specific interceptor configured for
// an endpoint: endpoint-declared, controller-declared, manual endpoint
// target, manual controller target, then none.
func (r *Registry) interceptorFor(e *EndpointDescriptor) ErrorInterceptor {
	if e == nil {
		return nil
	}
	if e.interceptor != nil {
		return e.interceptor
	}
	if e.controller.interceptor != nil {
		return e.controller.interceptor
	}
	if i, ok := r.manual[e.target()]; ok {
		return i
	}
	return r.manual[e.controller.name]
}
