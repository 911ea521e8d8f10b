package solar

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultLocation is used when a requested location has no installers.
const DefaultLocation = "rawalpindi"

// dataExts are tried in order. YAML is a superset of JSON, so one decoder
// reads both.
var dataExts = []string{".json", ".yaml", ".yml"}

type FAQ struct {
	Question string `yaml:"q"`
	Answer   string `yaml:"a"`
}

type Installer struct {
	Name    string `yaml:"name"`
	Contact string `yaml:"contact"`
	Rating  string `yaml:"rating"`
	Address string `yaml:"address"`
}

// Catalog is the static reference data the advisor answers from.
type Catalog struct {
	FAQs       []FAQ
	Installers map[string][]Installer
}

// DefaultCatalog returns the built-in FAQs and installer directory.
func DefaultCatalog() *Catalog {
	return &Catalog{
		FAQs: []FAQ{
			{"Net Metering", "Export excess solar to the grid and get bill credits."},
			{"Maintenance", "Panels require periodic cleaning and checks."},
			{"Panel Lifespan", "~25 years; inverters ~10–12 years."},
			{"Payback Period", "Typically 3–6 years depending on usage and cost."},
		},
		Installers: map[string][]Installer{
			"rawalpindi": {
				{"Premier Solar Solutions", "051-111-123-456", "4.8/5", "6th Road, Rawalpindi"},
				{"RWP Solar Tech", "051-555-789-012", "4.6/5", "Commercial Market, Saddar"},
				{"Green Energy Pak", "0333-123-4567", "4.7/5", "Bahria Town Phase 7"},
			},
			"islamabad": {
				{"Capital Solar Systems", "051-222-345-678", "4.9/5", "F-10 Markaz"},
				{"Islamabad Solar", "0331-987-6543", "4.5/5", "Blue Area"},
				{"Solar Solutions Islamabad", "0333-555-1234", "4.7/5", "G-11 Markaz"},
			},
			"bahria town": {
				{"Bahria Solar Experts", "0345-555-1234", "4.7/5", "Bahria Town Phase 8"},
				{"Green Energy Bahria", "0332-444-5678", "4.6/5", "Bahria Town Phase 4"},
			},
			"taxila": {
				{"Taxila Solar Solutions", "0333-666-7890", "4.5/5", "Taxila City"},
			},
		},
	}
}

// LoadCatalog reads faqs and installers data files from dir, each as .json,
// .yaml or .yml. Built-in data is kept for any file that does not exist.
func LoadCatalog(dir string) (*Catalog, error) {
	c := DefaultCatalog()

	var faqs []FAQ
	ok, err := readDataFile(dir, "faqs", &faqs)
	if err != nil {
		return nil, err
	}
	if ok {
		c.FAQs = faqs
	}

	var installers map[string][]Installer
	ok, err = readDataFile(dir, "installers", &installers)
	if err != nil {
		return nil, err
	}
	if ok {
		c.Installers = make(map[string][]Installer, len(installers))
		for loc, list := range installers {
			c.Installers[strings.ToLower(strings.TrimSpace(loc))] = list
		}
	}
	return c, nil
}

// FindFAQ returns the FAQ whose question matches topic, ignoring case.
func (c *Catalog) FindFAQ(topic string) (FAQ, bool) {
	for _, f := range c.FAQs {
		if strings.EqualFold(f.Question, strings.TrimSpace(topic)) {
			return f, true
		}
	}
	return FAQ{}, false
}

// InstallersFor returns the installers for location, falling back to
// DefaultLocation.
func (c *Catalog) InstallersFor(location string) []Installer {
	if list, ok := c.Installers[strings.ToLower(location)]; ok {
		return list
	}
	return c.Installers[DefaultLocation]
}

func readDataFile(dir, base string, v any) (bool, error) {
	for _, ext := range dataExts {
		path := filepath.Join(dir, base+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return false, errors.Wrapf(err, "read %s", path)
		}
		if err := yaml.Unmarshal(data, v); err != nil {
			return false, errors.Wrapf(err, "parse %s", path)
		}
		return true, nil
	}
	return false, nil
}
