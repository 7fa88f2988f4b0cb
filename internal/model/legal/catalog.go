package legal

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var seedFS embed.FS

// Template is a fill-in-the-blanks legal document.
type Template struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`
	Body        string `yaml:"template" json:"template,omitempty"`
}

// Summary drops the template body for listings.
func (t Template) Summary() Template {
	t.Body = ""
	return t
}

// Term is a plain-language glossary entry.
type Term struct {
	ID         string `yaml:"id" json:"id"`
	Term       string `yaml:"term" json:"term"`
	Definition string `yaml:"definition" json:"definition"`
	Example    string `yaml:"example" json:"example"`
}

// CategoryInfo is the catalog view of a legal category.
type CategoryInfo struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// Catalog bundles the static reference material served to clients.
type Catalog struct {
	Templates  []Template
	Glossary   []Term
	Categories []CategoryInfo
}

// Seed decodes the embedded catalog.
func Seed() (Catalog, error) {
	var catalog Catalog
	if err := decodeSeed("data/templates.yaml", &catalog.Templates); err != nil {
		return Catalog{}, err
	}
	if err := decodeSeed("data/glossary.yaml", &catalog.Glossary); err != nil {
		return Catalog{}, err
	}
	if err := decodeSeed("data/categories.yaml", &catalog.Categories); err != nil {
		return Catalog{}, err
	}
	return catalog, nil
}

// MustSeed is Seed for process start-up and tests.
func MustSeed() Catalog {
	catalog, err := Seed()
	if err != nil {
		panic(err)
	}
	return catalog
}

func decodeSeed(name string, out any) error {
	raw, err := seedFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
