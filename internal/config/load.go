package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file on top of the defaults.
//
// Fields missing from the file keep their default values. Durations use Go
// duration syntax ("30s", "1m30s"). Unknown keys are rejected so typos do not
// silently fall back to defaults.
func Load(path string) (*Options, error) {
	opts := Default()

	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := Decode(data, opts); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return opts, nil
}

// Decode applies YAML data onto opts.
func Decode(data []byte, opts *Options) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(opts); err != nil {
		return err
	}

	return nil
}
