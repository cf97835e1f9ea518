package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"bizcards/pkg/domain"
)

const defaultSpecPath = "api/openapi.yaml"

type openAPIDoc struct {
	Paths      map[string]map[string]any `yaml:"paths"`
	Components struct {
		Schemas map[string]schema `yaml:"schemas"`
	} `yaml:"components"`
}

type schema struct {
	Type       string            `yaml:"type"`
	Ref        string            `yaml:"$ref"`
	Properties map[string]schema `yaml:"properties"`
	Required   []string          `yaml:"required"`
	Items      *schema           `yaml:"items"`
}

type schemaShape struct {
	Type       string
	Properties map[string]string
}

// modelSchemas pairs each documented schema with the Go type the service
// encodes for it.
var modelSchemas = map[string]reflect.Type{
	"Card":          reflect.TypeOf(domain.Card{}),
	"CardFields":    reflect.TypeOf(domain.CardFields{}),
	"ExtractedCard": reflect.TypeOf(domain.ExtractedCard{}),
}

// routes lists every path and method the card service serves.
var routes = map[string][]string{
	"/":                      {"get"},
	"/healthz":               {"get"},
	"/cards":                 {"get", "post", "delete"},
	"/cards/{id}":            {"get", "put", "delete"},
	"/uploads/images/{name}": {"get"},
	"/api/extract":           {"post"},
	"/api/gemini-key":        {"get", "post"},
}

func main() {
	if len(os.Args) > 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [openapi.yaml]\n", os.Args[0])
		os.Exit(2)
	}
	path := defaultSpecPath
	if len(os.Args) == 2 {
		path = os.Args[1]
	}

	doc, err := loadDoc(path)
	if err != nil {
		exitErr(err)
	}
	if err := check(doc); err != nil {
		exitErr(err)
	}
	fmt.Println("OpenAPI consistency check passed.")
}

// check validates the error envelope, the model schemas and the route table.
func check(doc openAPIDoc) error {
	errSchema, err := getSchema(doc, "ErrorResponse")
	if err != nil {
		return err
	}
	if err := validateErrorResponse(errSchema); err != nil {
		return err
	}

	names := make([]string, 0, len(modelSchemas))
	for name := range modelSchemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s, err := getSchema(doc, name)
		if err != nil {
			return err
		}
		if err := ensureSameShape(name, shapeFromSchema(s), shapeFromType(modelSchemas[name])); err != nil {
			return err
		}
	}
	return validateRoutes(doc)
}

func loadDoc(path string) (openAPIDoc, error) {
	var doc openAPIDoc
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func getSchema(doc openAPIDoc, name string) (schema, error) {
	if doc.Components.Schemas == nil {
		return schema{}, errors.New("components.schemas missing")
	}
	s, ok := doc.Components.Schemas[name]
	if !ok {
		return schema{}, fmt.Errorf("schema %q missing", name)
	}
	return s, nil
}

func validateErrorResponse(s schema) error {
	if s.Type != "object" {
		return errors.New("ErrorResponse must be object")
	}
	required := makeSet(s.Required)
	for _, field := range []string{"error", "code"} {
		if !required[field] {
			return fmt.Errorf("ErrorResponse.required must include %q", field)
		}
	}
	for _, field := range []string{"error", "code", "requestId"} {
		prop, ok := s.Properties[field]
		if !ok || prop.Type != "string" {
			return fmt.Errorf("ErrorResponse.%s must be string", field)
		}
	}
	return nil
}

func validateRoutes(doc openAPIDoc) error {
	paths := make([]string, 0, len(routes))
	for path := range routes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		item, ok := doc.Paths[path]
		if !ok {
			return fmt.Errorf("path %q missing", path)
		}
		for _, method := range routes[path] {
			if _, ok := item[method]; !ok {
				return fmt.Errorf("path %q missing method %s", path, strings.ToUpper(method))
			}
		}
	}
	return nil
}

func shapeFromSchema(s schema) schemaShape {
	out := schemaShape{
		Type:       s.Type,
		Properties: make(map[string]string, len(s.Properties)),
	}
	for name, prop := range s.Properties {
		out.Properties[name] = prop.Type
	}
	return out
}

// shapeFromType derives the JSON shape encoding/json produces for a struct.
func shapeFromType(t reflect.Type) schemaShape {
	out := schemaShape{Type: "object", Properties: map[string]string{}}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		out.Properties[name] = jsonType(field.Type)
	}
	return out
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

func ensureSameShape(name string, doc, model schemaShape) error {
	if doc.Type != model.Type {
		return fmt.Errorf("%s type mismatch: %q vs %q", name, doc.Type, model.Type)
	}
	for key, modelType := range model.Properties {
		docType, ok := doc.Properties[key]
		if !ok {
			return fmt.Errorf("%s missing property %q in openapi schema", name, key)
		}
		if docType != modelType {
			return fmt.Errorf("%s property %q type mismatch: %q vs %q", name, key, docType, modelType)
		}
	}
	for key := range doc.Properties {
		if _, ok := model.Properties[key]; !ok {
			return fmt.Errorf("%s documents property %q the service does not send", name, key)
		}
	}
	return nil
}

func makeSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = true
	}
	return out
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
