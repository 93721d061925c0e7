package apibridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfigFile reads a ClientConfig from a YAML or JSON file, applying
// defaults for fields the file omits, and validates the result.
func LoadConfigFile(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("apibridge: read config file: %w", err)
	}

	cfg := DefaultClientConfig("")
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("apibridge: parse YAML config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("apibridge: parse JSON config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("apibridge: unsupported config extension %q (want .yaml, .yml or .json)", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("apibridge: invalid config %s: %w", path, err)
	}
	return &cfg, nil
}
