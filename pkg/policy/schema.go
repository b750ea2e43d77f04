package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the shape every persisted policy must satisfy. An
// existing file that fails this check is surfaced as a fatal setup
// error instead of being rewritten.
const documentSchema = `{
  "type": "object",
  "required": ["version", "sandbox", "permissions"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "sandbox": {
      "type": "object",
      "required": ["enabled"],
      "properties": {
        "enabled": {"type": "boolean"},
        "auto_allow_bash_if_sandboxed": {"type": "boolean"}
      }
    },
    "permissions": {
      "type": "object",
      "required": ["default_mode", "allow"],
      "properties": {
        "default_mode": {"type": "string", "minLength": 1},
        "allow": {
          "type": "array",
          "items": {"type": "string", "minLength": 1}
        }
      }
    },
    "tool_servers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "command": {"type": "string"},
          "args": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// ValidateDocument checks raw policy JSON against the schema.
func ValidateDocument(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return errors.New(strings.Join(details, "; "))
}
