// cmd/tools/worker-generator/generate.go
package main

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"interview-prep-workers/pkg/registry"
)

// WorkerData feeds the scaffold templates.
type WorkerData struct {
	Name        string
	PackageName string
	WorkerName  string
	TaskType    string
	Description string
	Timeout     time.Duration
	Input       []Field
	Output      []Field
	Required    []string
}

// Field is one schema property rendered as a struct field.
type Field struct {
	GoName      string
	JSONName    string
	GoType      string
	SchemaType  string
	Description string
}

func newWorkerData(a registry.Activity) WorkerData {
	timeout, err := time.ParseDuration(a.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}
	return WorkerData{
		Name:        a.DisplayName,
		PackageName: strings.ReplaceAll(a.ID, "-", ""),
		WorkerName:  a.ID,
		TaskType:    a.TaskType,
		Description: a.Description,
		Timeout:     timeout,
		Input:       fieldsFromSchema(a.InputSchema),
		Output:      fieldsFromSchema(a.OutputSchema),
		Required:    requiredFromSchema(a.InputSchema),
	}
}

func fieldsFromSchema(schema map[string]interface{}) []Field {
	props, _ := schema["properties"].(map[string]interface{})
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		schemaType, _ := details["type"].(string)
		desc, _ := details["description"].(string)
		fields = append(fields, Field{
			GoName:      upperFirst(name),
			JSONName:    name,
			GoType:      goTypeFromJSONType(schemaType),
			SchemaType:  schemaType,
			Description: desc,
		})
	}
	return fields
}

func requiredFromSchema(schema map[string]interface{}) []string {
	raw, _ := schema["required"].([]interface{})
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// goTypeFromJSONType maps JSON schema types to Go types; untyped properties stay interface{}.
func goTypeFromJSONType(jsonType string) string {
	switch jsonType {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var scaffold = map[string]string{
	"config.go":     configTemplate,
	"models.go":     modelsTemplate,
	"validation.go": validationTemplate,
	"service.go":    serviceTemplate,
	"handler.go":    handlerTemplate,
}

// generate renders the scaffold into dir and returns the written paths in name order.
// Existing files are left alone unless force is set.
func generate(data WorkerData, dir string, force bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	names := make([]string, 0, len(scaffold))
	for name := range scaffold {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil && !force {
			return written, fmt.Errorf("%s exists; use --force to overwrite", path)
		}

		tmpl, err := template.New(name).Funcs(template.FuncMap{"quote": quote}).Parse(scaffold[name])
		if err != nil {
			return written, fmt.Errorf("parsing %s template: %w", name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return written, fmt.Errorf("rendering %s: %w", name, err)
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return written, fmt.Errorf("formatting %s: %w", name, err)
		}
		if err := os.WriteFile(path, src, 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
