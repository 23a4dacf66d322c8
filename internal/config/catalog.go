package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk form of a source list.
type Catalog struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadCatalog reads a YAML source catalog. Unknown keys are rejected so a
// misspelled rule field fails loudly instead of silently matching nothing.
func LoadCatalog(path string) ([]SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(bytes.NewReader(data))
}

// ParseCatalog decodes a YAML source catalog and applies rule defaults.
func ParseCatalog(r io.Reader) ([]SourceConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cat Catalog
	if err := dec.Decode(&cat); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("catalog is empty")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	for i := range cat.Sources {
		cat.Sources[i].ApplyDefaults()
	}
	return cat.Sources, nil
}

// ResolveSources returns the configured catalog: the YAML file when one is
// set, otherwise the built-in sources.
func ResolveSources(cfg *Config) ([]SourceConfig, error) {
	if cfg.SourcesFile == "" {
		return DefaultSources(), nil
	}
	return LoadCatalog(cfg.SourcesFile)
}

// MarshalCatalog renders sources as YAML, e.g. to seed a custom catalog.
func MarshalCatalog(sources []SourceConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Catalog{Sources: sources}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
