package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/askdba/langsec/schema"
)

// LoadSchemaFile reads a SecuritySchema definition from a YAML or JSON file
// and builds it through schema.NewFromDefinition, so a file's contents go
// through the exact same validation a programmatically-built schema does.
// Unknown fields are rejected (spec §6's construction interface
// requirement) rather than silently ignored — a typo'd policy key should
// fail loudly, not fall back to an unintended default.
func LoadSchemaFile(path string) (*schema.SecuritySchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read schema file: %w", err)
	}

	var def schema.Definition
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := decodeYAMLStrict(data, &def); err != nil {
			return nil, fmt.Errorf("config: failed to parse YAML schema: %w", err)
		}
	case ".json":
		if err := decodeJSONStrict(data, &def); err != nil {
			return nil, fmt.Errorf("config: failed to parse JSON schema: %w", err)
		}
	default:
		// Unrecognized extension: try YAML first (a superset of JSON for our
		// purposes), then JSON, using separate targets so a partially
		// successful YAML decode can't contaminate the JSON retry.
		var yamlDef schema.Definition
		if err := decodeYAMLStrict(data, &yamlDef); err == nil {
			def = yamlDef
			break
		}
		var jsonDef schema.Definition
		if err := decodeJSONStrict(data, &jsonDef); err != nil {
			return nil, fmt.Errorf("config: failed to parse schema file (tried YAML and JSON): %w", err)
		}
		def = jsonDef
	}

	s, err := schema.NewFromDefinition(def)
	if err != nil {
		return nil, fmt.Errorf("config: invalid schema: %w", err)
	}
	return s, nil
}

func decodeYAMLStrict(data []byte, def *schema.Definition) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(def)
}

func decodeJSONStrict(data []byte, def *schema.Definition) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(def)
}
