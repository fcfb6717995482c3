// Copyright (c) 2025 proxykit
// SPDX-License-Identifier: Apache-2.0
// This file is part of the dynamic-proxy library.

package dynproxy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSpecValues parses a YAML document of named spec values, suitable for
// NewProxyFactory.
func LoadSpecValues(data []byte) (map[string]any, error) {
	specs := map[string]any{}
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse spec values: %w", err)
	}
	return specs, nil
}

// LoadSpecValuesFile reads and parses a YAML spec value file.
func LoadSpecValuesFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec value file: %w", err)
	}
	return LoadSpecValues(data)
}
