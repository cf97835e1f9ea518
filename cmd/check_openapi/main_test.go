package main

import (
	"reflect"
	"strings"
	"testing"
)

func TestRepositorySpecPasses(t *testing.T) {
	doc, err := loadDoc("../../" + defaultSpecPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := check(doc); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestCheckRejectsDrift(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*openAPIDoc)
		want   string
	}{
		{
			name: "missing card property",
			mutate: func(doc *openAPIDoc) {
				delete(doc.Components.Schemas["Card"].Properties, "imageUrl")
			},
			want: `Card missing property "imageUrl"`,
		},
		{
			name: "extra card property",
			mutate: func(doc *openAPIDoc) {
				doc.Components.Schemas["Card"].Properties["notes"] = schema{Type: "string"}
			},
			want: `property "notes"`,
		},
		{
			name: "wrong property type",
			mutate: func(doc *openAPIDoc) {
				doc.Components.Schemas["ExtractedCard"].Properties["phone"] = schema{Type: "integer"}
			},
			want: `ExtractedCard property "phone" type mismatch`,
		},
		{
			name: "error code optional",
			mutate: func(doc *openAPIDoc) {
				s := doc.Components.Schemas["ErrorResponse"]
				s.Required = []string{"error"}
				doc.Components.Schemas["ErrorResponse"] = s
			},
			want: `ErrorResponse.required must include "code"`,
		},
		{
			name: "missing route method",
			mutate: func(doc *openAPIDoc) {
				delete(doc.Paths["/cards/{id}"], "put")
			},
			want: `path "/cards/{id}" missing method PUT`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := loadDoc("../../" + defaultSpecPath)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tc.mutate(&doc)
			err = check(doc)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("check error = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestShapeFromTypeUsesJSONNames(t *testing.T) {
	type sample struct {
		ID      string `json:"id"`
		Count   int    `json:"count,omitempty"`
		Skip    string `json:"-"`
		Enabled bool
	}
	shape := shapeFromType(reflect.TypeOf(sample{}))
	want := map[string]string{"id": "string", "count": "integer", "Enabled": "boolean"}
	if len(shape.Properties) != len(want) {
		t.Fatalf("properties = %v, want %v", shape.Properties, want)
	}
	for k, v := range want {
		if shape.Properties[k] != v {
			t.Errorf("property %q = %q, want %q", k, shape.Properties[k], v)
		}
	}
}
