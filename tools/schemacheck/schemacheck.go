// Package main checks the embedded run export schema against the persist
// structs that produce the documents, and exits nonzero on drift. Run it
// after changing either side.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"maps"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/benchfang/pkg/persist"
)

// objectShape is the comparable view of one JSON object: its property names
// with their expected schema types, and which of them are required.
type objectShape struct {
	properties map[string]string
	required   map[string]bool
}

// schemaNode is the subset of JSON Schema the run schema uses.
type schemaNode struct {
	Type        string                 `json:"type"`
	Properties  map[string]*schemaNode `json:"properties"`
	Required    []string               `json:"required"`
	Items       *schemaNode            `json:"items"`
	Ref         string                 `json:"$ref"`
	Definitions map[string]*schemaNode `json:"definitions"`
}

func main() {
	verbose := flag.Bool("v", false, "Print every checked object path")
	flag.Parse()

	raw, err := persist.RunSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading run schema: %v\n", err)
		os.Exit(1)
	}

	var root schemaNode
	if err := json.Unmarshal(raw, &root); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing run schema: %v\n", err)
		os.Exit(1)
	}

	want := make(map[string]objectShape)
	collectStructShapes(reflect.TypeOf(persist.RunExport{}), "", want)

	got := make(map[string]objectShape)
	if err := collectSchemaShapes(&root, &root, "", got); err != nil {
		fmt.Fprintf(os.Stderr, "Error walking run schema: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		for _, path := range slices.Sorted(maps.Keys(want)) {
			fmt.Printf("checked %s (%d properties)\n", label(path), len(want[path].properties))
		}
	}

	findings := diffShapes(want, got)
	if len(findings) > 0 {
		for _, f := range findings {
			fmt.Fprintf(os.Stderr, "drift: %s\n", f)
		}

		os.Exit(1)
	}

	total := 0
	for _, shape := range want {
		total += len(shape.properties)
	}

	fmt.Printf("run schema in sync: %d objects, %d properties\n", len(want), total)
}

// collectStructShapes records the object shape of t at path and recurses
// into struct-valued fields the way encoding/json would marshal them.
func collectStructShapes(t reflect.Type, path string, out map[string]objectShape) {
	shape := objectShape{
		properties: make(map[string]string),
		required:   make(map[string]bool),
	}

	for i := range t.NumField() {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}

		name, omitempty, skip := jsonField(field)
		if skip {
			continue
		}

		shape.properties[name] = jsonType(field.Type)

		if !omitempty {
			shape.required[name] = true
		}

		if child, childPath := childStruct(field.Type, join(path, name)); child != nil {
			collectStructShapes(child, childPath, out)
		}
	}

	out[path] = shape
}

// jsonField resolves the marshaled name of a struct field.
func jsonField(field reflect.StructField) (name string, omitempty, skip bool) {
	tag := field.Tag.Get("json")

	parts := strings.Split(tag, ",")
	name = parts[0]

	if name == "-" {
		return "", false, true
	}

	if name == "" {
		name = field.Name
	}

	return name, slices.Contains(parts[1:], "omitempty"), false
}

// childStruct returns the struct type a field recurses into, if any.
// Slices of structs recurse under a path suffixed with [].
func childStruct(t reflect.Type, path string) (reflect.Type, string) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return nil, ""
		}

		return t, path
	case reflect.Slice:
		elem := t.Elem()
		for elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}

		if elem.Kind() == reflect.Struct && elem != reflect.TypeOf(time.Time{}) {
			return elem, path + "[]"
		}
	}

	return nil, ""
}

// jsonType maps a Go type onto the schema type naming a property of that
// type should carry. time.Time marshals as an RFC 3339 string.
func jsonType(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice:
		return "array"
	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return "string"
		}

		return "object"
	default:
		return "object"
	}
}

// collectSchemaShapes records the object shape of node at path, resolving
// definition refs against root, and recurses into object-valued properties.
func collectSchemaShapes(node, root *schemaNode, path string, out map[string]objectShape) error {
	node, err := resolve(node, root)
	if err != nil {
		return err
	}

	if node.Properties == nil {
		return nil
	}

	shape := objectShape{
		properties: make(map[string]string),
		required:   make(map[string]bool),
	}

	for _, name := range node.Required {
		shape.required[name] = true
	}

	for name, child := range node.Properties {
		resolved, rerr := resolve(child, root)
		if rerr != nil {
			return rerr
		}

		shape.properties[name] = resolved.Type

		childPath := join(path, name)

		if resolved.Type == "array" && resolved.Items != nil {
			resolved, rerr = resolve(resolved.Items, root)
			if rerr != nil {
				return rerr
			}

			childPath += "[]"
		}

		if resolved.Properties != nil {
			if werr := collectSchemaShapes(resolved, root, childPath, out); werr != nil {
				return werr
			}
		}
	}

	out[path] = shape

	return nil
}

// resolve follows $ref chains into the root definitions.
func resolve(node, root *schemaNode) (*schemaNode, error) {
	for node.Ref != "" {
		name, ok := strings.CutPrefix(node.Ref, "#/definitions/")
		if !ok {
			return nil, fmt.Errorf("unsupported ref %q", node.Ref)
		}

		next, found := root.Definitions[name]
		if !found {
			return nil, fmt.Errorf("ref %q has no definition", node.Ref)
		}

		node = next
	}

	return node, nil
}

// diffShapes compares the struct view against the schema view and describes
// every disagreement.
func diffShapes(want, got map[string]objectShape) []string {
	var findings []string

	for _, path := range slices.Sorted(maps.Keys(want)) {
		structShape := want[path]

		schemaShape, ok := got[path]
		if !ok {
			findings = append(findings, fmt.Sprintf("schema is missing object %s", label(path)))

			continue
		}

		findings = append(findings, diffObject(path, structShape, schemaShape)...)
	}

	for _, path := range slices.Sorted(maps.Keys(got)) {
		if _, ok := want[path]; !ok {
			findings = append(findings, fmt.Sprintf("schema describes object %s the export never writes", label(path)))
		}
	}

	return findings
}

func diffObject(path string, structShape, schemaShape objectShape) []string {
	var findings []string

	for _, name := range slices.Sorted(maps.Keys(structShape.properties)) {
		wantType := structShape.properties[name]

		gotType, ok := schemaShape.properties[name]
		if !ok {
			findings = append(findings, fmt.Sprintf("schema is missing property %s", label(join(path, name))))

			continue
		}

		if gotType != "" && gotType != wantType {
			findings = append(findings, fmt.Sprintf("property %s: export writes %s, schema expects %s",
				label(join(path, name)), wantType, gotType))
		}

		switch {
		case structShape.required[name] && !schemaShape.required[name]:
			findings = append(findings, fmt.Sprintf("property %s should be required", label(join(path, name))))
		case !structShape.required[name] && schemaShape.required[name]:
			findings = append(findings, fmt.Sprintf("property %s is optional in the export", label(join(path, name))))
		}
	}

	for _, name := range slices.Sorted(maps.Keys(schemaShape.properties)) {
		if _, ok := structShape.properties[name]; !ok {
			findings = append(findings, fmt.Sprintf("schema lists property %s the export never writes", label(join(path, name))))
		}
	}

	return findings
}

func join(path, name string) string {
	if path == "" {
		return name
	}

	return path + "." + name
}

func label(path string) string {
	if path == "" {
		return "the run export"
	}

	return path
}
