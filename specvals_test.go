// Copyright (c) 2025 proxykit
// SPDX-License-Identifier: Apache-2.0
// This file is part of the dynamic-proxy library.

package dynproxy

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetSpecValue(t *testing.T) {
	factory := NewProxyFactory(map[string]any{
		"MAX_PROXY_COUNT": uint64(42),
		"BASE":            float64(8),
	})

	t.Run("PlainValue", func(t *testing.T) {
		ok, value, err := factory.getSpecValue("MAX_PROXY_COUNT")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok || value != 42 {
			t.Errorf("expected resolved value 42, got %d (ok=%v)", value, ok)
		}
	})

	t.Run("Expression", func(t *testing.T) {
		ok, value, err := factory.getSpecValue("BASE / 4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok || value != 2 {
			t.Errorf("expected resolved value 2, got %d (ok=%v)", value, ok)
		}
	})

	t.Run("UnknownName", func(t *testing.T) {
		ok, _, err := factory.getSpecValue("NOT_A_SPEC")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected unresolved for unknown name")
		}
	})

	t.Run("CachedResolution", func(t *testing.T) {
		ok1, v1, _ := factory.getSpecValue("BASE / 4")
		ok2, v2, _ := factory.getSpecValue("BASE / 4")
		if ok1 != ok2 || v1 != v2 {
			t.Error("expected identical results from cached resolution")
		}
	})
}

func TestNewProxyFactory_SpecLimit(t *testing.T) {
	factory := NewProxyFactory(map[string]any{"MAX_PROXY_COUNT": uint64(3)})
	if got := factory.MaxProxyCount(); got != 3 {
		t.Errorf("expected limit 3, got %d", got)
	}

	factory = NewProxyFactory(nil)
	if got := factory.MaxProxyCount(); got != DefaultMaxProxyCount {
		t.Errorf("expected default limit %d, got %d", DefaultMaxProxyCount, got)
	}
}

func TestNewProxyFactory_UnresolvableSpecLimit(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	factory := NewProxyFactory(map[string]any{"MAX_PROXY_COUNT": "not a number"})
	if got := factory.MaxProxyCount(); got != DefaultMaxProxyCount {
		t.Errorf("expected fallback to default limit, got %d", got)
	}
	if logs.FilterMessage("MAX_PROXY_COUNT spec value is not a positive number, using default").Len() != 1 {
		t.Errorf("expected a warning about the unresolvable limit, got %v", logs.All())
	}
}

func TestLoadSpecValues(t *testing.T) {
	specs, err := LoadSpecValues([]byte("MAX_PROXY_COUNT: 5\nBASE: 8\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 spec values, got %d", len(specs))
	}

	factory := NewProxyFactory(specs)
	if got := factory.MaxProxyCount(); got != 5 {
		t.Errorf("expected limit 5 from YAML specs, got %d", got)
	}

	if _, err := LoadSpecValues([]byte("{invalid")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadSpecValuesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specs.yaml")
	if err := os.WriteFile(path, []byte("MAX_PROXY_COUNT: 9\n"), 0644); err != nil {
		t.Fatalf("failed to write spec file: %v", err)
	}

	specs, err := LoadSpecValuesFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if NewProxyFactory(specs).MaxProxyCount() != 9 {
		t.Error("expected limit 9 from spec file")
	}

	if _, err := LoadSpecValuesFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
