package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
)

type serviceRow struct {
	bun.BaseModel `bun:"table:services,alias:s"`

	ID       string   `bun:"id,pk"`
	Name     string   `bun:"name,notnull"`
	Price    *float64 `bun:"price"`
	Position int      `bun:"position,notnull,default:0"`
}

type professionalRow struct {
	bun.BaseModel `bun:"table:professionals,alias:p"`

	ID       string `bun:"id,pk"`
	Name     string `bun:"name,notnull"`
	Active   bool   `bun:"active,notnull"`
	Position int    `bun:"position,notnull,default:0"`
}

type professionalServiceRow struct {
	bun.BaseModel `bun:"table:professional_services,alias:ps"`

	ProfessionalID string `bun:"professional_id,pk"`
	ServiceID      string `bun:"service_id,pk"`
	Enabled        bool   `bun:"enabled,notnull"`
}

// PostgresProvider reads the catalog from the services, professionals and
// professional_services tables.
type PostgresProvider struct {
	db *bun.DB
}

var _ contractx.CatalogProvider = (*PostgresProvider)(nil)

func NewPostgresProvider(db *bun.DB) (*PostgresProvider, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresProvider{db: db}, nil
}

// Migrate creates the catalog tables when missing.
func (p *PostgresProvider) Migrate(ctx context.Context) error {
	models := []any{(*serviceRow)(nil), (*professionalRow)(nil), (*professionalServiceRow)(nil)}
	for _, m := range models {
		if _, err := p.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create catalog table: %w", err)
		}
	}
	return nil
}

func (p *PostgresProvider) Catalog(ctx context.Context) (contractx.Catalog, error) {
	var (
		services []serviceRow
		pros     []professionalRow
		links    []professionalServiceRow
	)
	if err := p.db.NewSelect().Model(&services).Order("position ASC", "name ASC").Scan(ctx); err != nil {
		return contractx.Catalog{}, fmt.Errorf("%w: select services: %v", contractx.ErrCatalog, err)
	}
	if err := p.db.NewSelect().Model(&pros).Order("position ASC", "name ASC").Scan(ctx); err != nil {
		return contractx.Catalog{}, fmt.Errorf("%w: select professionals: %v", contractx.ErrCatalog, err)
	}
	if err := p.db.NewSelect().Model(&links).Scan(ctx); err != nil {
		return contractx.Catalog{}, fmt.Errorf("%w: select professional_services: %v", contractx.ErrCatalog, err)
	}

	out := contractx.Catalog{
		Services:      make([]contractx.Service, 0, len(services)),
		Professionals: make([]contractx.Professional, 0, len(pros)),
		Assignments:   make([]contractx.Assignment, 0, len(links)),
	}
	for _, s := range services {
		out.Services = append(out.Services, contractx.Service{ID: s.ID, Name: s.Name, Price: s.Price})
	}
	for _, pr := range pros {
		out.Professionals = append(out.Professionals, contractx.Professional{ID: pr.ID, Name: pr.Name, Active: pr.Active})
	}
	for _, l := range links {
		out.Assignments = append(out.Assignments, contractx.Assignment{
			ProfessionalID: l.ProfessionalID,
			ServiceID:      l.ServiceID,
			Enabled:        l.Enabled,
		})
	}
	return out, nil
}

// Seed upserts c into the catalog tables inside one transaction. List order
// becomes the presentation position.
func (p *PostgresProvider) Seed(ctx context.Context, c contractx.Catalog) error {
	if err := Validate(c); err != nil {
		return err
	}
	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i, s := range c.Services {
			row := &serviceRow{ID: s.ID, Name: s.Name, Price: s.Price, Position: i}
			if _, err := tx.NewInsert().Model(row).
				On("CONFLICT (id) DO UPDATE").
				Set("name = EXCLUDED.name").
				Set("price = EXCLUDED.price").
				Set("position = EXCLUDED.position").
				Exec(ctx); err != nil {
				return fmt.Errorf("upsert service %s: %w", s.ID, err)
			}
		}
		for i, pr := range c.Professionals {
			row := &professionalRow{ID: pr.ID, Name: pr.Name, Active: pr.Active, Position: i}
			if _, err := tx.NewInsert().Model(row).
				On("CONFLICT (id) DO UPDATE").
				Set("name = EXCLUDED.name").
				Set("active = EXCLUDED.active").
				Set("position = EXCLUDED.position").
				Exec(ctx); err != nil {
				return fmt.Errorf("upsert professional %s: %w", pr.ID, err)
			}
		}
		for _, a := range c.Assignments {
			row := &professionalServiceRow{ProfessionalID: a.ProfessionalID, ServiceID: a.ServiceID, Enabled: a.Enabled}
			if _, err := tx.NewInsert().Model(row).
				On("CONFLICT (professional_id, service_id) DO UPDATE").
				Set("enabled = EXCLUDED.enabled").
				Exec(ctx); err != nil {
				return fmt.Errorf("upsert assignment %s/%s: %w", a.ProfessionalID, a.ServiceID, err)
			}
		}
		return nil
	})
}
