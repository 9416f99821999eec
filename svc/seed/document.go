// Package seed loads tenants, features and flags from a YAML document.
//
// Seeding is idempotent: a tenant that exists by slug, a feature that exists
// by key and a flag that exists for its environment are left untouched. All
// writes go through the tenants and flags services, so seeded data is
// validated and audited like any other change.
package seed

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/flagkit/pkg/feature"
)

//go:embed default.yaml
var defaultDocument []byte

// Document is the root of a seed file.
type Document struct {
	Tenants []Tenant `yaml:"tenants"`
}

type Tenant struct {
	Name           string    `yaml:"name"`
	Slug           string    `yaml:"slug"`
	QuotaBurst     *int      `yaml:"quotaBurst"`
	QuotaSustained *int      `yaml:"quotaSustained"`
	Features       []Feature `yaml:"features"`
}

type Feature struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Flags       []Flag `yaml:"flags"`
}

// Flag is the seed form of a flag. StrategyConfig holds the same structure
// the HTTP API accepts as JSON.
type Flag struct {
	Env            feature.Environment  `yaml:"env"`
	Enabled        bool                 `yaml:"enabled"`
	StrategyType   feature.StrategyType `yaml:"strategyType"`
	StrategyConfig map[string]any       `yaml:"strategyConfig"`
}

// ConfigJSON returns the strategy config in its JSON form, or nil when the
// flag has none.
func (f Flag) ConfigJSON() (json.RawMessage, error) {
	if f.StrategyConfig == nil {
		return nil, nil
	}
	return json.Marshal(f.StrategyConfig)
}

// ErrInvalidDocument is returned for documents that cannot be parsed.
var ErrInvalidDocument = errors.New("invalid seed document")

// Parse decodes a document. Unknown fields are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, errors.Join(ErrInvalidDocument, err)
	}
	return &doc, nil
}

// LoadFile parses the document at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Default returns the built-in sample data.
func Default() *Document {
	doc, err := Parse(bytes.NewReader(defaultDocument))
	if err != nil {
		panic(fmt.Sprintf("seed: built-in document: %v", err))
	}
	return doc
}
