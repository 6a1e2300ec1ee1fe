package task

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode unmarshals a task definition from JSON, detecting duplicate
// path keys inside artifact map entries that encoding/json would
// silently collapse. A duplicated path key means two conflicting
// destination records for the same file, which must not pass silently.
func Decode(data []byte) (Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("task definition: %w", err)
	}

	var raw struct {
		Payload struct {
			ArtifactMap []json.RawMessage `json:"artifactMap"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Definition{}, fmt.Errorf("task definition: %w", err)
	}

	for i, entryData := range raw.Payload.ArtifactMap {
		if err := checkDuplicateKeys(entryData, "paths"); err != nil {
			return Definition{}, fmt.Errorf("artifact map entry %d: %w", i, err)
		}
	}

	return def, nil
}

// checkDuplicateKeys checks whether the JSON object at the given field
// name contains duplicate keys. Returns an error if duplicates are found.
func checkDuplicateKeys(data []byte, field string) error {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(data, &outer); err != nil {
		return nil // not a JSON object — let standard unmarshal report it
	}

	fieldData, ok := outer[field]
	if !ok {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(fieldData))
	return checkObjectDuplicates(dec, field)
}

func checkObjectDuplicates(dec *json.Decoder, field string) error {
	t, err := dec.Token()
	if err != nil {
		return nil
	}
	delim, ok := t.(json.Delim)
	if !ok || delim != '{' {
		return nil // not an object
	}

	seen := make(map[string]bool)
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := t.(string)
		if !ok {
			return nil
		}
		if seen[key] {
			return fmt.Errorf("duplicate %s key: %q", field, key)
		}
		seen[key] = true

		// Skip the value, which may be an arbitrarily nested document.
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil
		}
	}

	return nil
}
