package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ReadConfigurationFile imports a configuration. The format follows the file
// extension: .yaml/.yml is YAML, anything else JSON.
func ReadConfigurationFile(path string) (TestConfiguration, error) {
	var config TestConfiguration

	byteValue, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(byteValue, &config)
	} else {
		err = json.Unmarshal(byteValue, &config)
	}
	if err != nil {
		return config, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

func WriteConfigurationFile(config TestConfiguration, path string) error {
	var (
		byteValue []byte
		err       error
	)

	if isYAML(path) {
		byteValue, err = yaml.Marshal(config)
	} else {
		byteValue, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, byteValue, 0644)
}
