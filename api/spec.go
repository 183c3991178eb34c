// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/swaggest/jsonschema-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
	"gopkg.in/yaml.v3"
)

// SpecGenerator walks a finalized [Registry] and derives an OpenAPI
// v3 document from the same metadata the [Dispatcher] serves from. It
// never instantiates or invokes handler classes. Since the registry is
// immutable post-finalize, the generated document is built once and
// cached; repeated calls yield byte-identical output.
type SpecGenerator struct {
	registry        *Registry
	title           string
	version         string
	defaultProduces string
	filter          AuthFilter

	once      sync.Once
	jsonBytes []byte
	yamlBytes []byte
	err       error
}

// NewSpecGenerator initializes a [SpecGenerator]. The filter may be
// nil, in which case no security schemes are emitted.
func NewSpecGenerator(registry *Registry, title, version, defaultProduces string, filter AuthFilter) *SpecGenerator {
	return &SpecGenerator{
		registry:        registry,
		title:           title,
		version:         version,
		defaultProduces: defaultProduces,
		filter:          filter,
	}
}

// JSON returns the generated document in JSON form.
func (g *SpecGenerator) JSON() ([]byte, error) {
	g.generate()
	return g.jsonBytes, g.err
}

// YAML returns the generated document in YAML form.
func (g *SpecGenerator) YAML() ([]byte, error) {
	g.generate()
	return g.yamlBytes, g.err
}

func (g *SpecGenerator) generate() {
	g.once.Do(func() {
		spec, err := g.document()
		if err != nil {
			g.err = err
			return
		}

		b, err := json.Marshal(spec)
		if err != nil {
			g.err = err
			return
		}
		g.jsonBytes = b

		// JSON is valid YAML, so round-tripping through a yaml.Node
		// re-emits the document in block form with key order intact.
		var node yaml.Node
		err = yaml.Unmarshal(b, &node)
		if err != nil {
			g.err = err
			return
		}
		g.yamlBytes, g.err = yaml.Marshal(&node)
	})
}

func (g *SpecGenerator) document() (*openapi3.Spec, error) {
	spec := &openapi3.Spec{
		Openapi: "3.0.0",
		Info: openapi3.Info{
			Title:   g.title,
			Version: g.version,
		},
	}

	securityName := g.securityScheme(spec)

	// Controllers are walked in name order so output does not depend
	// on registration order.
	controllers := make([]*ControllerDescriptor, len(g.registry.Controllers()))
	copy(controllers, g.registry.Controllers())
	sort.Slice(controllers, func(i, j int) bool {
		return controllers[i].name < controllers[j].name
	})

	seenGroups := make(map[string]bool)
	for _, c := range controllers {
		if !seenGroups[c.Group()] {
			seenGroups[c.Group()] = true
			tag := openapi3.Tag{Name: c.Group()}
			if c.groupDescription != "" {
				tag.Description = ptr.Ref(c.groupDescription)
			}
			spec.Tags = append(spec.Tags, tag)
		}

		for _, e := range c.endpoints {
			op, err := g.operation(c, e, securityName)
			if err != nil {
				return nil, err
			}

			err = spec.AddOperation(e.method, openApiPath(e.pattern), op)
			if err != nil {
				return nil, err
			}
		}
	}
	return spec, nil
}

// securityScheme registers the single configured filter's scheme in
// the components section and returns its name. Basic is described
// automatically; other schemes must describe themselves via
// [SecuritySchemer].
func (g *SpecGenerator) securityScheme(spec *openapi3.Spec) string {
	if g.filter == nil {
		return ""
	}

	var scheme openapi3.SecurityScheme
	switch {
	case strings.EqualFold(g.filter.Scheme(), "basic"):
		scheme = openapi3.SecurityScheme{
			HTTPSecurityScheme: &openapi3.HTTPSecurityScheme{
				Scheme: "basic",
			},
		}
	default:
		ss, ok := g.filter.(SecuritySchemer)
		if !ok {
			return ""
		}
		scheme = ss.SecurityScheme()
	}

	spec.ComponentsEns().SecuritySchemesEns().WithMapOfSecuritySchemeOrRefValuesItem(
		g.filter.Name(),
		openapi3.SecuritySchemeOrRef{
			SecurityScheme: &scheme,
		},
	)
	return g.filter.Name()
}

func (g *SpecGenerator) operation(c *ControllerDescriptor, e *EndpointDescriptor, securityName string) (openapi3.Operation, error) {
	op := openapi3.Operation{
		ID:   ptr.Ref(e.name),
		Tags: []string{c.Group()},
	}
	if e.description != "" {
		op.Description = ptr.Ref(e.description)
	}

	for _, p := range e.params {
		in, ok := parameterIn(p.Source)
		if !ok {
			continue
		}

		param := openapi3.Parameter{
			Name:   p.Key,
			In:     in,
			Schema: typeHintSchema(p.Type),
		}
		if in == openapi3.ParameterInPath {
			param.Required = ptr.Ref(true)
		}
		op.Parameters = append(op.Parameters, openapi3.ParameterOrRef{
			Parameter: &param,
		})
	}

	contentType := e.Produces(g.defaultProduces)

	if e.request != nil {
		schema, err := shapeSchema(e.request)
		if err != nil {
			return op, err
		}
		op.RequestBody = &openapi3.RequestBodyOrRef{
			RequestBody: &openapi3.RequestBody{
				Content: map[string]openapi3.MediaType{
					"application/json": {Schema: schema},
				},
			},
		}
	}

	responses := make(map[string]openapi3.ResponseOrRef)
	for status, shape := range e.responses {
		schema, err := shapeSchema(shape)
		if err != nil {
			return op, err
		}
		responses[strconv.Itoa(status)] = openapi3.ResponseOrRef{
			Response: &openapi3.Response{
				Description: http.StatusText(status),
				Content: map[string]openapi3.MediaType{
					contentType: {Schema: schema},
				},
			},
		}
	}
	if len(responses) == 0 {
		responses[strconv.Itoa(http.StatusOK)] = openapi3.ResponseOrRef{
			Response: &openapi3.Response{
				Description: http.StatusText(http.StatusOK),
			},
		}
	}
	op.Responses = openapi3.Responses{
		MapOfResponseOrRefValues: responses,
	}

	if securityName != "" && !e.NoAuth() {
		op.Security = []map[string][]string{
			{securityName: {}},
		}
	}
	return op, nil
}

// shapeSchema derives a schema from an author supplied [Shape]: the
// static example value takes precedence, otherwise the declared field
// descriptors are used. Shapes were verified at finalization so both
// branches are total here.
func shapeSchema(s *Shape) (*openapi3.SchemaOrRef, error) {
	if s.Example != nil {
		var reflector jsonschema.Reflector
		jsonSchema, err := reflector.Reflect(s.Example, jsonschema.InlineRefs)
		if err != nil {
			return nil, err
		}

		var schemaOrRef openapi3.SchemaOrRef
		schemaOrRef.FromJSONSchema(jsonSchema.ToSchemaOrBool())
		return &schemaOrRef, nil
	}

	properties := make(map[string]openapi3.SchemaOrRef, len(s.Fields))
	for _, f := range s.Fields {
		properties[f.Name] = *typeHintSchema(f.Type)
	}

	objectType := openapi3.SchemaTypeObject
	return &openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			Type:       &objectType,
			Properties: properties,
		},
	}, nil
}

func typeHintSchema(hint string) *openapi3.SchemaOrRef {
	t := openapi3.SchemaTypeString
	switch hint {
	case "integer", "int":
		t = openapi3.SchemaTypeInteger
	case "number", "float", "double":
		t = openapi3.SchemaTypeNumber
	case "boolean", "bool":
		t = openapi3.SchemaTypeBoolean
	case "array":
		t = openapi3.SchemaTypeArray
	case "object":
		t = openapi3.SchemaTypeObject
	}
	return &openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			Type: &t,
		},
	}
}

func parameterIn(s ParamSource) (openapi3.ParameterIn, bool) {
	switch s {
	case FromPath:
		return openapi3.ParameterInPath, true
	case FromQuery:
		return openapi3.ParameterInQuery, true
	case FromHeader:
		return openapi3.ParameterInHeader, true
	default:
		return "", false
	}
}

// openApiPath renders a compiled pattern with "{name}" placeholders.
func openApiPath(segs []segment) string {
	var sb strings.Builder
	for _, seg := range segs {
		sb.WriteByte('/')
		if seg.param != "" {
			sb.WriteByte('{')
			sb.WriteString(seg.param)
			sb.WriteByte('}')
			continue
		}
		sb.WriteString(seg.literal)
	}
	if sb.Len() == 0 {
		return "/"
	}
	return sb.String()
}
