//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

// Package schema reflects Go types into the JSON-schema subset tool
// declarations use.
package schema

import (
	"reflect"
	"strings"

	"trpc.group/trpc-go/trpc-workflow-go/tool"
)

// Generate builds a JSON schema from a reflect.Type. Struct fields follow
// their json tags; fields tagged "-" are skipped. A field is required unless
// it is a pointer or carries omitempty.
func Generate(t reflect.Type) *tool.Schema {
	if t == nil {
		return &tool.Schema{Type: "object"}
	}

	switch t.Kind() {
	case reflect.Struct:
		schema := &tool.Schema{Type: "object"}
		properties := map[string]*tool.Schema{}
		required := make([]string, 0)

		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name, omitEmpty, skip := fieldName(field)
			if skip {
				continue
			}

			fieldSchema := generateField(field.Type)
			if desc := field.Tag.Get("description"); desc != "" {
				fieldSchema.Description = desc
			}
			properties[name] = fieldSchema

			if field.Type.Kind() != reflect.Ptr && !omitEmpty {
				required = append(required, name)
			}
		}

		schema.Properties = properties
		if len(required) > 0 {
			schema.Required = required
		}
		return schema

	case reflect.Ptr:
		elemSchema := generateField(t.Elem())
		elemSchema.Type = elemSchema.Type + ",null"
		return elemSchema

	default:
		return generateField(t)
	}
}

func fieldName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	jsonTag := field.Tag.Get("json")
	if jsonTag == "-" {
		return "", false, true
	}
	name = field.Name
	if jsonTag != "" {
		if commaIdx := strings.Index(jsonTag, ","); commaIdx != -1 {
			if jsonTag[:commaIdx] != "" {
				name = jsonTag[:commaIdx]
			}
			omitEmpty = strings.Contains(jsonTag[commaIdx:], "omitempty")
		} else {
			name = jsonTag
		}
	}
	return name, omitEmpty, false
}

func generateField(t reflect.Type) *tool.Schema {
	switch t.Kind() {
	case reflect.String:
		return &tool.Schema{Type: "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &tool.Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &tool.Schema{Type: "number"}
	case reflect.Bool:
		return &tool.Schema{Type: "boolean"}
	case reflect.Slice, reflect.Array:
		// encoding/json renders byte slices as base64 strings.
		if t.Elem().Kind() == reflect.Uint8 {
			return &tool.Schema{Type: "string"}
		}
		return &tool.Schema{Type: "array", Items: generateField(t.Elem())}
	case reflect.Map:
		return &tool.Schema{Type: "object", AdditionalProperties: generateField(t.Elem())}
	case reflect.Ptr:
		elemSchema := generateField(t.Elem())
		elemSchema.Type = elemSchema.Type + ",null"
		return elemSchema
	case reflect.Struct:
		nested := &tool.Schema{Type: "object", Properties: map[string]*tool.Schema{}}
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name, _, skip := fieldName(field)
			if skip {
				continue
			}
			fieldSchema := generateField(field.Type)
			if desc := field.Tag.Get("description"); desc != "" {
				fieldSchema.Description = desc
			}
			nested.Properties[name] = fieldSchema
		}
		return nested
	default:
		return &tool.Schema{Type: "object"}
	}
}
