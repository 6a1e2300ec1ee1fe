package task

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Task ids are 22-character URL-safe base64 slugs.
var taskIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{22}$`)

// ValidTaskID returns id unchanged when it is a well-formed task id slug.
func ValidTaskID(id string) (string, error) {
	if !taskIDPattern.MatchString(id) {
		return "", &VerificationError{TaskID: id, Reason: ReasonBadTaskID}
	}
	return id, nil
}

// ValidateDefinition validates a raw task document against the worker's
// JSON schema. The schema itself is supplied by the deployment, not this
// package; resolver code may assume payloads it receives already passed.
func ValidateDefinition(schemaPath string, data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("task document: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaPath)
	if err != nil {
		return fmt.Errorf("task schema %q: %w", schemaPath, err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("task validation: %w", err)
	}
	return nil
}
