package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const shippedConfigDir = "../../config"

func copyShipped(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(shippedConfigDir, name))
		if err != nil {
			t.Fatalf("failed to read shipped %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(shippedConfigDir)
	if err != nil {
		t.Fatalf("shipped configuration must load: %v", err)
	}

	for _, id := range []string{"transactional", "consultative"} {
		if _, ok := cfg.Flows[id]; !ok {
			t.Errorf("expected flow %q", id)
		}
	}
	if cfg.DefaultProduct == "" {
		t.Error("expected a default product")
	}
	if _, ok := cfg.Products[cfg.DefaultProduct]; !ok {
		t.Errorf("default product %q not defined", cfg.DefaultProduct)
	}
	for id, product := range cfg.Products {
		if _, ok := cfg.Flows[product.Flow]; !ok {
			t.Errorf("product %q references unknown flow %q", id, product.Flow)
		}
	}
	if len(cfg.NoTrailingQuestion) == 0 {
		t.Error("expected no_trailing_question stages")
	}
	if cfg.Catalog == nil {
		t.Fatal("expected a loaded catalog")
	}
	if cfg.Catalog.Thresholds().ChatWindow <= 0 {
		t.Error("expected positive chat window threshold")
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing config directory")
	}
}

func TestLoad_MalformedSignals(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SignalsFile, "categories: [not, a, map]")

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for malformed signals document")
	}
	if !strings.Contains(err.Error(), SignalsFile) {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestLoad_FlowWithUnknownRule(t *testing.T) {
	dir := t.TempDir()
	copyShipped(t, dir, SignalsFile)
	writeFile(t, dir, FlowsFile, `
flows:
  - id: broken
    stages:
      - name: intent
        next: close
        rule: not_a_rule
        turn_caps: { low: 3, high: 1 }
      - name: close
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for unknown advancement rule")
	}
	if !strings.Contains(err.Error(), "not_a_rule") {
		t.Errorf("error should name the rule: %v", err)
	}
}

func TestLoad_DuplicateFlowID(t *testing.T) {
	dir := t.TempDir()
	copyShipped(t, dir, SignalsFile)
	writeFile(t, dir, FlowsFile, `
flows:
  - id: twin
    stages:
      - name: intent
        next: close
        rule: clear_intent
        turn_caps: { low: 3, high: 1 }
      - name: close
  - id: twin
    stages:
      - name: close
`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for duplicate flow id")
	}
}

func TestLoad_ProductWithUnknownFlow(t *testing.T) {
	dir := t.TempDir()
	copyShipped(t, dir, SignalsFile, FlowsFile)
	writeFile(t, dir, ProductsFile, `
default: widget
products:
  widget:
    flow: imaginary
    context: A widget.
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for product referencing unknown flow")
	}
	if !strings.Contains(err.Error(), "imaginary") {
		t.Errorf("error should name the flow: %v", err)
	}
}

func TestLoad_UndefinedDefaultProduct(t *testing.T) {
	dir := t.TempDir()
	copyShipped(t, dir, SignalsFile, FlowsFile)
	writeFile(t, dir, ProductsFile, `
default: ghost
products:
  widget:
    flow: transactional
    context: A widget.
`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for undefined default product")
	}
}

func TestLoad_ProductWithoutContext(t *testing.T) {
	dir := t.TempDir()
	copyShipped(t, dir, SignalsFile, FlowsFile)
	writeFile(t, dir, ProductsFile, `
default: widget
products:
  widget:
    flow: transactional
`)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for product without context text")
	}
}

func TestLoad_UnknownNoTrailingStage(t *testing.T) {
	dir := t.TempDir()
	copyShipped(t, dir, SignalsFile, ProductsFile)
	writeFile(t, dir, FlowsFile, `
no_trailing_question:
  - pitch
  - nonexistent
flows:
  - id: consultative
    stages:
      - name: intent
        next: pitch
        rule: clear_intent
        turn_caps: { low: 3, high: 1 }
      - name: pitch
        next: close
        rule: commitment_or_objection
        turn_caps: { low: 3, high: 2 }
      - name: close
  - id: transactional
    stages:
      - name: intent
        next: pitch
        rule: clear_intent
        turn_caps: { low: 3, high: 1 }
      - name: pitch
        next: close
        rule: commitment_or_objection
        turn_caps: { low: 3, high: 2 }
      - name: close
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for no_trailing_question stage defined in no flow")
	}
	if !strings.Contains(err.Error(), "nonexistent") {
		t.Errorf("error should name the stage: %v", err)
	}
}
