// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 1 << 20

const schemaBaseURL = "https://tasklane.dev/schemas/"

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	FirstName string `json:"firstName" jsonschema:"minLength=1,maxLength=64"`
	LastName  string `json:"lastName" jsonschema:"minLength=1,maxLength=64"`
	Username  string `json:"username" jsonschema:"minLength=1,maxLength=64"`
	Email     string `json:"email" jsonschema:"minLength=1,maxLength=320"`
	Password  string `json:"password" jsonschema:"maxLength=128"`
}

// LoginRequest is the body of POST /auth/login. Identifier is a username or
// an email address.
type LoginRequest struct {
	Identifier string `json:"identifier" jsonschema:"minLength=1,maxLength=320"`
	Password   string `json:"password" jsonschema:"minLength=1,maxLength=128"`
}

// TodoRequest is the body of the todo create and rename routes. Fields other
// than title, such as a client-supplied owner, are ignored.
type TodoRequest struct {
	Title string `json:"title" jsonschema:"minLength=1,maxLength=256"`
}

type requestSchema struct {
	name        string
	title       string
	description string
	value       any
}

var requestSchemas = []requestSchema{
	{"register", "Register request", "Body of POST /auth/register", &RegisterRequest{}},
	{"login", "Login request", "Body of POST /auth/login", &LoginRequest{}},
	{"todo", "Todo request", "Body of POST /todo/create and /todo/update/{id}", &TodoRequest{}},
}

func schemaID(name string) string {
	return schemaBaseURL + name + ".schema.json"
}

// GenerateSchemas reflects the JSON Schema of every request body, keyed by
// file name (e.g. "login.schema.json").
func GenerateSchemas() (map[string][]byte, error) {
	out := make(map[string][]byte, len(requestSchemas))
	for _, rs := range requestSchemas {
		data, err := generateSchema(rs)
		if err != nil {
			return nil, err
		}
		out[rs.name+".schema.json"] = data
	}
	return out, nil
}

func generateSchema(rs requestSchema) ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(rs.value)
	schema.ID = jsonschema.ID(schemaID(rs.name))
	schema.Title = rs.title
	schema.Description = rs.description

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.With("schema", rs.name).Wrapf(err, "marshal schema")
	}
	return data, nil
}

var compiledSchemas = sync.OnceValues(compileSchemas)

func compileSchemas() (map[string]*jschema.Schema, error) {
	c := jschema.NewCompiler()
	for _, rs := range requestSchemas {
		data, err := generateSchema(rs)
		if err != nil {
			return nil, err
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, oops.With("schema", rs.name).Wrapf(err, "parse schema")
		}
		if err := c.AddResource(schemaID(rs.name), doc); err != nil {
			return nil, oops.With("schema", rs.name).Wrapf(err, "add schema resource")
		}
	}

	out := make(map[string]*jschema.Schema, len(requestSchemas))
	for _, rs := range requestSchemas {
		sch, err := c.Compile(schemaID(rs.name))
		if err != nil {
			return nil, oops.With("schema", rs.name).Wrapf(err, "compile schema")
		}
		out[rs.name] = sch
	}
	return out, nil
}

// decodeBody reads a size-capped body, validates it against the named schema
// and decodes it into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, schemaName string, dst any) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}
	sch, ok := schemas[schemaName]
	if !ok {
		return oops.With("schema", schemaName).Errorf("unknown request schema")
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return oops.Code(CodeRequestTooLarge).
				With("limit", tooLarge.Limit).
				Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return oops.Code(CodeRequestMalformed).Wrapf(err, "read request body")
	}

	instance, err := jschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return oops.Code(CodeRequestMalformed).Errorf("request body is not valid JSON")
	}

	if err := sch.Validate(instance); err != nil {
		var ve *jschema.ValidationError
		if errors.As(err, &ve) {
			return schemaViolation(ve)
		}
		return oops.Code(CodeRequestInvalid).Wrapf(err, "request body is invalid")
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return oops.Code(CodeRequestMalformed).Errorf("request body is not valid JSON")
	}
	return nil
}

// schemaViolation reports the first leaf failure of a validation error as a
// REQUEST_INVALID error naming the offending field.
func schemaViolation(ve *jschema.ValidationError) error {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	field := strings.Join(leaf.InstanceLocation, ".")
	var msg string
	switch k := leaf.ErrorKind.(type) {
	case *kind.Required:
		if len(k.Missing) > 0 {
			field = joinField(field, k.Missing[0])
		}
		msg = fmt.Sprintf("%s is required", field)
	case *kind.Type:
		msg = fmt.Sprintf("%s must be of type %s", describeField(field), strings.Join(k.Want, " or "))
	case *kind.MinLength:
		msg = fmt.Sprintf("%s must be at least %d characters", describeField(field), k.Want)
	case *kind.MaxLength:
		msg = fmt.Sprintf("%s must be at most %d characters", describeField(field), k.Want)
	default:
		msg = fmt.Sprintf("%s is invalid", describeField(field))
	}

	return oops.Code(CodeRequestInvalid).With("field", field).Errorf("%s", msg)
}

func joinField(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func describeField(field string) string {
	if field == "" {
		return "request body"
	}
	return field
}
