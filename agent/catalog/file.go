// Package catalog serves the business lookup data (services, professionals and
// their assignments) to the dialogue.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
)

// FileProvider reads a YAML catalog from disk on every call so edits apply to
// the next turn without a restart.
type FileProvider struct {
	path string
}

var _ contractx.CatalogProvider = (*FileProvider)(nil)

// NewFileProvider checks that path holds a valid catalog.
func NewFileProvider(path string) (*FileProvider, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("catalog file path is required")
	}
	p := &FileProvider{path: path}
	if _, err := p.Catalog(context.Background()); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) Catalog(ctx context.Context) (contractx.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return contractx.Catalog{}, err
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return contractx.Catalog{}, fmt.Errorf("%w: reading %s: %v", contractx.ErrCatalog, p.path, err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes and validates a catalog document.
func ParseYAML(data []byte) (contractx.Catalog, error) {
	var c contractx.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return contractx.Catalog{}, fmt.Errorf("%w: parsing catalog: %v", contractx.ErrCatalog, err)
	}
	if err := Validate(c); err != nil {
		return contractx.Catalog{}, err
	}
	return c, nil
}

// Validate rejects empty or duplicate ids and names.
func Validate(c contractx.Catalog) error {
	services := make(map[string]struct{}, len(c.Services))
	for i, s := range c.Services {
		if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: service #%d needs id and name", contractx.ErrValidation, i+1)
		}
		if _, dup := services[s.ID]; dup {
			return fmt.Errorf("%w: duplicate service id %q", contractx.ErrValidation, s.ID)
		}
		services[s.ID] = struct{}{}
	}

	pros := make(map[string]struct{}, len(c.Professionals))
	for i, p := range c.Professionals {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: professional #%d needs id and name", contractx.ErrValidation, i+1)
		}
		if _, dup := pros[p.ID]; dup {
			return fmt.Errorf("%w: duplicate professional id %q", contractx.ErrValidation, p.ID)
		}
		pros[p.ID] = struct{}{}
	}

	for i, a := range c.Assignments {
		if _, ok := pros[a.ProfessionalID]; !ok {
			return fmt.Errorf("%w: assignment #%d references unknown professional %q", contractx.ErrValidation, i+1, a.ProfessionalID)
		}
		if _, ok := services[a.ServiceID]; !ok {
			return fmt.Errorf("%w: assignment #%d references unknown service %q", contractx.ErrValidation, i+1, a.ServiceID)
		}
	}
	return nil
}

// StaticProvider serves a fixed catalog.
type StaticProvider struct {
	catalog contractx.Catalog
}

var _ contractx.CatalogProvider = StaticProvider{}

func NewStaticProvider(c contractx.Catalog) StaticProvider {
	return StaticProvider{catalog: c}
}

func (p StaticProvider) Catalog(ctx context.Context) (contractx.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return contractx.Catalog{}, err
	}
	return p.catalog, nil
}
