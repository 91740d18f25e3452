package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// SheetSource names one sheet and the file backing it.
type SheetSource struct {
	Name string `json:"name"`
	Path string `json:"path"`

	// Worksheet selects a tab inside an .xlsx source. Empty means the first.
	Worksheet string `json:"worksheet,omitempty"`
}

// Manifest is the ordered list of sheets the service serves.
type Manifest struct {
	Sheets []SheetSource `json:"sheets"`
}

// DefaultManifest lists the lead exports the service was first deployed with.
func DefaultManifest() Manifest {
	return Manifest{Sheets: []SheetSource{
		{Name: "a16z-gaming", Path: "leads - a16z-gaming.csv"},
		{Name: "recent raised series B", Path: "leads - recent raised series B (2).csv"},
		{Name: "Seed Stage VC", Path: "leads - Seed Stage VC (1).csv"},
		{Name: "Series A", Path: "leads - Series A (1).csv"},
		{Name: "Series Seed", Path: "leads - Series Seed (2).csv"},
		{Name: "LinkedIn Contacts", Path: "leads - LinkedIn Contacts.csv"},
	}}
}

// LoadManifest reads a manifest file. Comments and trailing commas are
// allowed:
//
//	{
//	    // one entry per tab in the client
//	    "sheets": [
//	        {"name": "Series A", "path": "leads - Series A (1).csv"},
//	        {"name": "Pipeline", "path": "pipeline.xlsx", "worksheet": "Q3"},
//	    ],
//	}
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates manifest content.
func ParseManifest(data []byte) (Manifest, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(std, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks that every sheet has a unique name and a path.
func (m Manifest) Validate() error {
	if len(m.Sheets) == 0 {
		return fmt.Errorf("manifest: no sheets defined")
	}

	seen := make(map[string]bool, len(m.Sheets))
	for i, s := range m.Sheets {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("manifest: sheet %d has no name", i)
		}
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("manifest: sheet %q has no path", s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("manifest: duplicate sheet name %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Names returns the sheet names in manifest order.
func (m Manifest) Names() []string {
	names := make([]string, len(m.Sheets))
	for i, s := range m.Sheets {
		names[i] = s.Name
	}
	return names
}

// Lookup finds a sheet by name.
func (m Manifest) Lookup(name string) (SheetSource, bool) {
	for _, s := range m.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return SheetSource{}, false
}

// resolve returns the source path, joined to dir unless already absolute.
func (s SheetSource) resolve(dir string) string {
	if filepath.IsAbs(s.Path) {
		return s.Path
	}
	return filepath.Join(dir, s.Path)
}
