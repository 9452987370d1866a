package confbase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FromFile reads an override map from a TOML, JSON, or YAML file and merges
// it over cls's defaults. The format is detected from the extension, then by
// content. A missing file returns ErrConfigNotFound.
func (s *Schema) FromFile(cls *Class, path string, strict bool) (*Instance, error) {
	overrides, err := loadOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return s.FromNested(cls, overrides, strict)
}

// loadOverrideFile parses a configuration file into a nested override map.
func loadOverrideFile(path string) (map[string]any, error) {
	fileData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	format := detectFileFormat(path)
	if format == "" {
		format = detectFormatFromContent(fileData)
		if format == "" {
			return nil, fmt.Errorf("unable to determine config format for file '%s'", path)
		}
	}

	overrides := make(map[string]any)
	switch format {
	case "toml":
		if err := toml.Unmarshal(fileData, &overrides); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config file '%s': %w", path, err)
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(fileData))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&overrides); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config file '%s': %w", path, err)
		}
		normalizeJSONNumbers(overrides)
	case "yaml":
		if err := yaml.Unmarshal(fileData, &overrides); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file '%s': %w", path, err)
		}
	}
	return overrides, nil
}

// normalizeJSONNumbers converts json.Number leaves to their textual form so
// the coercer parses them against declared types like any other token.
func normalizeJSONNumbers(m map[string]any) {
	for k, v := range m {
		switch v := v.(type) {
		case json.Number:
			m[k] = v.String()
		case map[string]any:
			normalizeJSONNumbers(v)
		case []any:
			for i, e := range v {
				if n, ok := e.(json.Number); ok {
					v[i] = n.String()
				}
			}
		}
	}
}

// detectFileFormat determines format from file extension.
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing.
func detectFormatFromContent(data []byte) string {
	// Try JSON first (strict format)
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return "json"
	}

	// YAML is a superset of JSON, so check after JSON
	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return "yaml"
	}

	var tomlTest any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return "toml"
	}

	return ""
}
