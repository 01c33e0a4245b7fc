// Package openapi describes module APIs as OpenAPI 3 documents.
//
// Each service of a module becomes a path and each request verb an
// operation. Parameters of get and delete requests are query parameters;
// those of post and put requests form a JSON request body.
package openapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/getkin/kin-openapi/openapi3"
)

// Version is the OpenAPI version of generated documents.
const Version = "3.0.3"

// Module builds the document of a single module. version is the version of
// the modules document it came from.
func Module(name string, m domain.Module, version string) (*openapi3.T, error) {
	if version == "" {
		version = "0.0.0"
	}
	title := m.Info.Name
	if title == "" {
		title = name
	}

	doc := &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:       title,
			Description: m.Info.Description,
			Version:     version,
		},
		Paths: openapi3.NewPaths(),
	}
	if m.Info.Kind != "" {
		doc.Info.Extensions = map[string]any{"x-module-type": m.Info.Kind}
	}
	if m.API.Endpoint != "" {
		doc.Servers = openapi3.Servers{server(m.API)}
	}

	services := make([]string, 0, len(m.API.Services))
	for s := range m.API.Services {
		services = append(services, s)
	}
	sort.Strings(services)

	for _, service := range services {
		item := &openapi3.PathItem{}
		for verb, req := range m.API.Services[service] {
			op := operation(name, service, verb, req)
			switch verb {
			case domain.RequestGet:
				item.Get = op
			case domain.RequestPost:
				item.Post = op
			case domain.RequestPut:
				item.Put = op
			case domain.RequestDelete:
				item.Delete = op
			default:
				return nil, fmt.Errorf("module %s service %s: unsupported request type %q", name, service, verb)
			}
		}
		doc.Paths.Set("/"+service, item)
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("module %s: %w", name, err)
	}
	return doc, nil
}

// Library builds the documents of every module, keyed by module name.
func Library(lib *domain.Library) (map[string]*openapi3.T, error) {
	mods := lib.Modules()
	docs := make(map[string]*openapi3.T, len(mods.Content))
	for _, name := range lib.ModuleNames() {
		doc, err := Module(name, mods.Content[name], mods.Version)
		if err != nil {
			return nil, err
		}
		docs[name] = doc
	}
	return docs, nil
}

func server(api domain.API) *openapi3.Server {
	s := &openapi3.Server{URL: api.Endpoint}
	if len(api.Variables) == 0 {
		return s
	}
	// Only variables the endpoint actually templates are declared.
	for name, def := range api.Variables {
		if !strings.Contains(api.Endpoint, "{"+name+"}") {
			continue
		}
		if s.Variables == nil {
			s.Variables = make(map[string]*openapi3.ServerVariable)
		}
		s.Variables[name] = &openapi3.ServerVariable{Default: def}
	}
	return s
}

func operation(module, service string, verb domain.RequestType, req domain.RequestSchema) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = strings.Join([]string{module, service, string(verb)}, "_")
	op.Summary = req.Summary
	op.Extensions = map[string]any{"x-timeout": req.Timeout}

	switch verb {
	case domain.RequestGet, domain.RequestDelete:
		for _, p := range req.Parameters {
			param := openapi3.NewQueryParameter(p.Name).WithSchema(valueSchema(p))
			param.Description = p.Description
			op.AddParameter(param)
		}
	default:
		if len(req.Parameters) > 0 {
			op.RequestBody = &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(objectSchema(req.Parameters)),
			}
		}
	}

	resp := openapi3.NewResponse().WithDescription(responseDescription(req))
	if len(req.Response) > 0 {
		resp = resp.WithJSONSchema(objectSchema(req.Response))
	}
	op.Responses = openapi3.NewResponses(openapi3.WithStatus(200, &openapi3.ResponseRef{Value: resp}))
	return op
}

func responseDescription(req domain.RequestSchema) string {
	if req.Summary != "" {
		return req.Summary
	}
	return "OK"
}

func objectSchema(fields []domain.ValueSchema) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	for _, f := range fields {
		s.WithProperty(f.Name, valueSchema(f))
		s.Required = append(s.Required, f.Name)
	}
	return s
}

// valueSchema maps the type names used in module documents (f64, u32, bool,
// string) to OpenAPI schemas.
func valueSchema(v domain.ValueSchema) *openapi3.Schema {
	t := strings.ToLower(v.Type)
	var s *openapi3.Schema
	switch {
	case t == "bool" || t == "boolean":
		s = openapi3.NewBoolSchema()
	case strings.HasPrefix(t, "f") || t == "number" || t == "double":
		s = openapi3.NewFloat64Schema()
	case strings.HasPrefix(t, "u"):
		s = openapi3.NewIntegerSchema().WithMin(0)
	case strings.HasPrefix(t, "i"):
		s = openapi3.NewIntegerSchema()
	default:
		s = openapi3.NewStringSchema()
	}
	s.Description = v.Description
	if v.Unit != nil {
		s.Extensions = map[string]any{"x-unit": string(*v.Unit)}
	}
	return s
}
