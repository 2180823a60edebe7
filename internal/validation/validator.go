package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vyrodovalexey/items-api/internal/model"
)

const (
	createSchemaURL = "mem://items/create.json"
	updateSchemaURL = "mem://items/update.json"
)

// Validator checks item request bodies against JSON Schemas derived from the
// model limits.
type Validator struct {
	create *jsonschema.Schema
	update *jsonschema.Schema
}

// NewValidator compiles the item schemas.
func NewValidator() (*Validator, error) {
	create, err := compileSchema(createSchemaURL, CreateSchema())
	if err != nil {
		return nil, fmt.Errorf("compiling create schema: %w", err)
	}

	update, err := compileSchema(updateSchemaURL, UpdateSchema())
	if err != nil {
		return nil, fmt.Errorf("compiling update schema: %w", err)
	}

	return &Validator{create: create, update: update}, nil
}

// CreateSchema returns the JSON Schema for a create request body.
func CreateSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": itemProperties(),
		"required":   []string{"name", "price"},
	}
}

// UpdateSchema returns the JSON Schema for an update request body.
// Every property is optional; name and price may not be null.
func UpdateSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": itemProperties(),
	}
}

func itemProperties() map[string]any {
	return map[string]any{
		"name": map[string]any{
			"type":      "string",
			"minLength": model.MinNameLength,
			"maxLength": model.MaxNameLength,
		},
		"description": map[string]any{
			"type":      []string{"string", "null"},
			"maxLength": model.MaxDescriptionLength,
		},
		"price": map[string]any{
			"type":             "number",
			"exclusiveMinimum": 0,
		},
	}
}

// ValidateCreate checks a create request body and decodes it.
func (v *Validator) ValidateCreate(body []byte) (model.NewItem, error) {
	doc, err := v.validate(v.create, body)
	if err != nil {
		return model.NewItem{}, err
	}

	// The schema guarantees the types and the required keys.
	candidate := model.NewItem{
		Name:  doc["name"].(string),
		Price: doc["price"].(float64),
	}
	if raw, ok := doc["description"].(string); ok {
		candidate.Description = &raw
	}
	return candidate, nil
}

// ValidateUpdate checks an update request body and decodes it into a Patch.
func (v *Validator) ValidateUpdate(body []byte) (model.Patch, error) {
	doc, err := v.validate(v.update, body)
	if err != nil {
		return model.Patch{}, err
	}

	var patch model.Patch
	if raw, ok := doc["name"]; ok {
		patch.Name = model.Some(raw.(string))
	}
	if raw, ok := doc["description"]; ok {
		patch.Description = model.Field[*string]{Set: true}
		if s, isString := raw.(string); isString {
			patch.Description.Value = &s
		}
	}
	if raw, ok := doc["price"]; ok {
		patch.Price = model.Some(raw.(float64))
	}
	return patch, nil
}

// validate decodes body once and checks it against schema. Values are read
// from the returned document by exact key so that only properties the schema
// has seen can reach the item.
func (v *Validator) validate(schema *jsonschema.Schema, body []byte) (map[string]any, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, newError(LocationBody, "", CodeInvalidJSON, "request body is not valid JSON")
	}

	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			result := &Error{}
			collectSchemaErrors(verr, result)
			return nil, result
		}
		return nil, newError(LocationBody, "", CodeSchema, err.Error())
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, newError(LocationBody, "", CodeSchema, "request body must be a JSON object")
	}
	return obj, nil
}

// ParseID parses a path id; only positive base-10 integers are accepted.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, newError(LocationPath, "id", CodeInvalidID, "id must be a positive integer")
	}
	return id, nil
}

func compileSchema(url string, schema map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	return compiler.Compile(url)
}

// collectSchemaErrors flattens the leaves of a schema validation error tree.
func collectSchemaErrors(err *jsonschema.ValidationError, result *Error) {
	if len(err.Causes) == 0 {
		result.Fields = append(result.Fields, model.FieldError{
			Field:    fieldFromPointer(err.InstanceLocation),
			Location: LocationBody,
			Code:     CodeSchema,
			Message:  err.Message,
		})
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(cause, result)
	}
}

// fieldFromPointer converts a JSON Pointer to dot notation.
func fieldFromPointer(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	return strings.ReplaceAll(pointer, "/", ".")
}
