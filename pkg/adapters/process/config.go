package process

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LeafConfig represents the configuration of a leaf backed by an external command.
type LeafConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of leaves.yaml.
type ConfigFile struct {
	Leaves []LeafConfig `yaml:"leaves" json:"leaves"`
}

// LoadLeaves reads a configuration file (YAML or JSON) and returns a map of
// leaf names to configs. A missing file yields an empty map.
func LoadLeaves(path string) (map[string]LeafConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]LeafConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read leaves config: %w", err)
	}
	return ParseLeaves(data)
}

// ParseLeaves decodes a leaves document. JSON is accepted as YAML.
func ParseLeaves(data []byte) (map[string]LeafConfig, error) {
	var cfg ConfigFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse leaves config: %w", err)
	}

	leaves := make(map[string]LeafConfig, len(cfg.Leaves))
	for _, leaf := range cfg.Leaves {
		if leaf.Name == "" {
			continue
		}
		if leaf.Command == "" {
			return nil, fmt.Errorf("leaf %q has no command", leaf.Name)
		}
		leaves[leaf.Name] = leaf
	}
	return leaves, nil
}
