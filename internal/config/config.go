// Package config loads and validates the structured configuration
// documents at startup: signal categories and thresholds, flow
// definitions, and the product-to-flow mapping. Any missing or malformed
// required key aborts startup; a broken keyword category must be caught
// here, never mid-conversation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shaf-aston/salestrainer/internal/engine"
	"github.com/shaf-aston/salestrainer/internal/signals"
)

// File names expected inside the configuration directory.
const (
	SignalsFile  = "signals.yaml"
	FlowsFile    = "flows.yaml"
	ProductsFile = "products.yaml"
)

// flowsDocument is the decoded form of flows.yaml.
type flowsDocument struct {
	NoTrailingQuestion []string  `yaml:"no_trailing_question"`
	Flows              []flowDoc `yaml:"flows"`
}

type flowDoc struct {
	ID     string             `yaml:"id"`
	Stages []engine.StageSpec `yaml:"stages"`
}

// Product maps a practice product to its conversation flow and free-text
// domain context injected into prompts.
type Product struct {
	Flow    string `yaml:"flow"`
	Context string `yaml:"context"`
}

// productsDocument is the decoded form of products.yaml.
type productsDocument struct {
	Default  string             `yaml:"default"`
	Products map[string]Product `yaml:"products"`
}

// Config is everything loaded at startup. All fields are immutable after
// Load returns.
type Config struct {
	Catalog            *signals.Catalog
	Flows              map[string]*engine.FlowDefinition
	Products           map[string]Product
	DefaultProduct     string
	NoTrailingQuestion []string
}

// Load reads and validates the three configuration documents from dir.
func Load(dir string) (*Config, error) {
	catalog, err := loadCatalog(filepath.Join(dir, SignalsFile))
	if err != nil {
		return nil, err
	}

	flows, noTrailing, err := loadFlows(filepath.Join(dir, FlowsFile))
	if err != nil {
		return nil, err
	}

	products, defaultProduct, err := loadProducts(filepath.Join(dir, ProductsFile), flows)
	if err != nil {
		return nil, err
	}

	for _, stage := range noTrailing {
		found := false
		for _, flow := range flows {
			if flow.HasStage(stage) {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("config: no_trailing_question stage %q not defined in any flow", stage)
		}
	}

	slog.Info("config.Load: configuration loaded",
		"dir", dir, "flows", len(flows), "products", len(products))
	return &Config{
		Catalog:            catalog,
		Flows:              flows,
		Products:           products,
		DefaultProduct:     defaultProduct,
		NoTrailingQuestion: noTrailing,
	}, nil
}

func loadCatalog(path string) (*signals.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read signals document: %w", err)
	}
	var spec signals.CatalogSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", filepath.Base(path), err)
	}
	catalog, err := signals.NewCatalog(spec)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return catalog, nil
}

func loadFlows(path string) (map[string]*engine.FlowDefinition, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: failed to read flows document: %w", err)
	}
	var doc flowsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("config: failed to parse %s: %w", filepath.Base(path), err)
	}
	if len(doc.Flows) == 0 {
		return nil, nil, fmt.Errorf("config: flows document defines no flows")
	}

	flows := make(map[string]*engine.FlowDefinition, len(doc.Flows))
	for _, fd := range doc.Flows {
		if _, dup := flows[fd.ID]; dup {
			return nil, nil, fmt.Errorf("config: duplicate flow id %q", fd.ID)
		}
		flow, err := engine.NewFlowDefinition(fd.ID, fd.Stages)
		if err != nil {
			return nil, nil, fmt.Errorf("config: %w", err)
		}
		flows[fd.ID] = flow
	}
	return flows, doc.NoTrailingQuestion, nil
}

func loadProducts(path string, flows map[string]*engine.FlowDefinition) (map[string]Product, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("config: failed to read products document: %w", err)
	}
	var doc productsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("config: failed to parse %s: %w", filepath.Base(path), err)
	}
	if len(doc.Products) == 0 {
		return nil, "", fmt.Errorf("config: products document defines no products")
	}

	for id, product := range doc.Products {
		if product.Flow == "" {
			return nil, "", fmt.Errorf("config: product %q has no flow", id)
		}
		if _, ok := flows[product.Flow]; !ok {
			return nil, "", fmt.Errorf("config: product %q references unknown flow %q", id, product.Flow)
		}
		if product.Context == "" {
			return nil, "", fmt.Errorf("config: product %q has no context text", id)
		}
	}

	if doc.Default != "" {
		if _, ok := doc.Products[doc.Default]; !ok {
			return nil, "", fmt.Errorf("config: default product %q is not defined", doc.Default)
		}
	}
	return doc.Products, doc.Default, nil
}
