// Package schema generates JSON Schemas for the library document kinds.
//
// The schemas mirror the strict decoding done by the loader: unknown fields
// are rejected and required fields follow the validate tags of the domain
// types, so editors can flag mistakes before a library is ever loaded.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/invopop/jsonschema"
)

// BaseID is the prefix of every generated schema $id.
const BaseID = "https://github.com/aretw0/arbor/schemas/"

// Kind names a document kind.
type Kind string

const (
	KindModules  Kind = "modules"
	KindTools    Kind = "tools"
	KindNodes    Kind = "nodes"
	KindTree     Kind = "tree"
	KindWorkflow Kind = "workflow"
)

// Kinds lists every document kind in a stable order.
var Kinds = []Kind{KindModules, KindTools, KindNodes, KindTree, KindWorkflow}

var roots = map[Kind]any{
	KindModules:  domain.ModuleFile{},
	KindTools:    domain.ToolFile{},
	KindNodes:    domain.KnownNodesFile{},
	KindTree:     domain.BehaviorTreeFile{},
	KindWorkflow: domain.WorkflowFile{},
}

// ParseKind maps a name to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(s))
	if _, ok := roots[k]; !ok {
		return "", fmt.Errorf("unknown document kind %q", s)
	}
	return k, nil
}

// Generate returns the schema of a document kind.
func Generate(kind Kind) (*jsonschema.Schema, error) {
	root, ok := roots[kind]
	if !ok {
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}

	r := &jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
		Mapper:                     mapper,
	}
	s := r.Reflect(root)
	s.ID = jsonschema.ID(BaseID + string(kind) + ".json")
	s.Title = string(kind)

	types := make(map[string]reflect.Type)
	collect(reflect.TypeOf(root), types)
	for name, def := range s.Definitions {
		t, ok := types[name]
		if !ok {
			continue
		}
		if req := required(t); len(req) > 0 {
			def.Required = req
		}
		// FileName is filled in by the loader, never written by hand.
		if def.Properties != nil {
			def.Properties.Delete("file_name")
		}
	}
	return s, nil
}

// Marshal renders the schema of a document kind as indented JSON.
func Marshal(kind Kind) ([]byte, error) {
	s, err := Generate(kind)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(s, "", "  ")
}

var (
	sequenceType  = reflect.TypeOf(domain.Sequence{})
	nodeTypeType  = reflect.TypeOf(domain.NodeType(""))
	replyModeType = reflect.TypeOf(domain.ReplyMode(""))
	unitType      = reflect.TypeOf(domain.Unit(""))
)

func mapper(t reflect.Type) *jsonschema.Schema {
	switch t {
	case sequenceType:
		return sequenceSchema()
	case nodeTypeType:
		return enum(domain.NodeTypeCondition, domain.NodeTypeAction, domain.NodeTypeSequence, domain.NodeTypeError)
	case replyModeType:
		return enum(domain.ReplyAny, domain.ReplyAll, domain.ReplyOne)
	case unitType:
		return enum(domain.UnitCelsius, domain.UnitMilliseconds, domain.UnitSeconds, domain.UnitMinutes)
	}
	return nil
}

// sequenceSchema is the single-key mapping form of domain.Sequence.
func sequenceSchema() *jsonschema.Schema {
	branch := func(key string) *jsonschema.Schema {
		props := jsonschema.NewProperties()
		props.Set(key, &jsonschema.Schema{
			Type:  "array",
			Items: &jsonschema.Schema{Ref: "#/$defs/Node"},
		})
		return &jsonschema.Schema{
			Type:                 "object",
			Properties:           props,
			Required:             []string{key},
			AdditionalProperties: jsonschema.FalseSchema,
		}
	}
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			branch(domain.SequenceChildren.String()),
			branch(domain.SequenceFallback.String()),
		},
	}
}

func enum[T ~string](values ...T) *jsonschema.Schema {
	s := &jsonschema.Schema{Type: "string"}
	for _, v := range values {
		s.Enum = append(s.Enum, string(v))
	}
	return s
}

// collect indexes the domain struct types reachable from t by name, which
// is how the reflector names its definitions.
func collect(t reflect.Type, seen map[string]reflect.Type) {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Map {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t.PkgPath() != sequenceType.PkgPath() {
		return
	}
	if _, ok := seen[t.Name()]; ok {
		return
	}
	seen[t.Name()] = t
	for i := range t.NumField() {
		collect(t.Field(i).Type, seen)
	}
}

// required lists the document names of the fields validated as required.
func required(t reflect.Type) []string {
	var names []string
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if f.Anonymous && name == "" {
			names = append(names, required(f.Type)...)
			continue
		}
		if name == "" || name == "-" {
			continue
		}
		for _, rule := range strings.Split(f.Tag.Get("validate"), ",") {
			if rule == "required" {
				names = append(names, name)
				break
			}
		}
	}
	return names
}
