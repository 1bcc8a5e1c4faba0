// Package registry loads the static mountain catalog: one entry per ski
// area with the per-source-type addressing metadata. The catalog is read
// fresh for every run and never cached across runs.
package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScrapeConfig addresses a resort website for the scrape engine. Patterns
// map extracted field names (lifts_open, lifts_total, runs_open, runs_total,
// status) to the expressions the engine applies to the rendered page text.
type ScrapeConfig struct {
	URL      string            `yaml:"url"`
	Patterns map[string]string `yaml:"patterns"`
}

// Grid is a gridded-forecast cell: office plus grid coordinates.
type Grid struct {
	Office string `yaml:"office"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
}

// Station is a snow-telemetry station.
type Station struct {
	ID   string `yaml:"id"` // triplet form, e.g. "428:CA:SNTL"
	Name string `yaml:"name"`
}

// Webcam is one image endpoint.
type Webcam struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Mountain is one catalog entry. Optional sub-configurations are pointers
// or slices; a missing one means the mountain has no source of that type,
// which verifiers report as missing_data without touching the network.
type Mountain struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Region string  `yaml:"region"`
	Lat    float64 `yaml:"lat"`
	Lng    float64 `yaml:"lng"`

	Scrape      *ScrapeConfig `yaml:"scrape,omitempty"`
	Grid        *Grid         `yaml:"grid,omitempty"`
	Station     *Station      `yaml:"station,omitempty"`
	Webcams     []Webcam      `yaml:"webcams,omitempty"`
	RoadWebcams []Webcam      `yaml:"road_webcams,omitempty"`
}

// HasCoordinates reports whether the entry carries a usable lat/lng pair.
func (m Mountain) HasCoordinates() bool {
	return m.Lat != 0 || m.Lng != 0
}

// Registry is the loaded catalog.
type Registry struct {
	mountains []Mountain
	byID      map[string]Mountain
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Registry, error) {
	var doc struct {
		Mountains []Mountain `yaml:"mountains"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	byID := make(map[string]Mountain, len(doc.Mountains))
	for _, m := range doc.Mountains {
		if m.ID == "" {
			return nil, fmt.Errorf("registry entry %q has no id", m.Name)
		}
		if _, dup := byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate registry id %q", m.ID)
		}
		byID[m.ID] = m
	}

	return &Registry{mountains: doc.Mountains, byID: byID}, nil
}

// New builds a catalog from already-constructed entries (used by tests and
// embedding callers).
func New(mountains []Mountain) *Registry {
	byID := make(map[string]Mountain, len(mountains))
	for _, m := range mountains {
		byID[m.ID] = m
	}
	return &Registry{mountains: mountains, byID: byID}
}

// All returns every entry in catalog order.
func (r *Registry) All() []Mountain {
	return r.mountains
}

// Get looks up one entry by id.
func (r *Registry) Get(id string) (Mountain, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// Filter returns the entries matching ids, in catalog order. An empty
// filter returns everything.
func (r *Registry) Filter(ids []string) []Mountain {
	if len(ids) == 0 {
		return r.mountains
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Mountain
	for _, m := range r.mountains {
		if want[m.ID] {
			out = append(out, m)
		}
	}
	return out
}
