package wp

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// PHP encodes empty associative arrays as [], so object-valued fields also
// accept arrays and null.

const authResponseSchema = `{
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "message": {"type": "string"},
    "data": {
      "anyOf": [
        {
          "type": "object",
          "properties": {
            "jwt": {"type": "string"},
            "message": {"type": "string"}
          }
        },
        {"type": "array"},
        {"type": "null"}
      ]
    }
  }
}`

const validateResponseSchema = `{
  "type": "object",
  "required": ["success"],
  "definitions": {
    "user": {
      "type": "object",
      "properties": {
        "ID": {"type": ["integer", "string"]},
        "user_email": {"type": "string"},
        "display_name": {"type": "string"}
      }
    }
  },
  "properties": {
    "success": {"type": "boolean"},
    "data": {
      "anyOf": [
        {
          "type": "object",
          "properties": {
            "user": {"$ref": "#/definitions/user"},
            "ID": {"type": ["integer", "string"]}
          }
        },
        {"type": "array"},
        {"type": "null"}
      ]
    }
  }
}`

const userDataResponseSchema = `{
  "type": "object",
  "properties": {
    "customer": {
      "anyOf": [
        {
          "type": "object",
          "properties": {
            "email": {"type": ["string", "null"]},
            "first_name": {"type": ["string", "null"]},
            "last_name": {"type": ["string", "null"]}
          }
        },
        {"type": "array"},
        {"type": "null"}
      ]
    },
    "meta": {"type": ["object", "array", "null"]}
  }
}`

const customerResponseSchema = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "integer"},
    "email": {"type": "string"},
    "first_name": {"type": "string"},
    "last_name": {"type": "string"},
    "meta_data": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["key"],
        "properties": {"key": {"type": "string"}}
      }
    }
  }
}`

const cpfExistsResponseSchema = `{
  "type": "object",
  "required": ["exists"],
  "properties": {"exists": {"type": "boolean"}}
}`

var (
	authSchema      = mustSchema("auth", authResponseSchema)
	validateSchema  = mustSchema("validate", validateResponseSchema)
	userDataSchema  = mustSchema("user data", userDataResponseSchema)
	customerSchema  = mustSchema("customer", customerResponseSchema)
	cpfExistsSchema = mustSchema("cpf exists", cpfExistsResponseSchema)
)

func mustSchema(name, src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compiling %s response schema: %v", name, err))
	}
	return s
}
