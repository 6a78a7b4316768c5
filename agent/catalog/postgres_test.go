package catalog

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
)

func TestNewPostgresProviderRequiresDB(t *testing.T) {
	t.Parallel()

	_, err := NewPostgresProvider(nil)
	require.Error(t, err)
}

// Runs against a real database only when CHATIVE_TEST_POSTGRES_DSN is set.
func TestPostgresProviderSeedAndRead(t *testing.T) {
	dsn := os.Getenv("CHATIVE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CHATIVE_TEST_POSTGRES_DSN not set")
	}

	db, err := statex.OpenPostgres(statex.PostgresConfig{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	p, err := NewPostgresProvider(db)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, p.Migrate(ctx))

	seed, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, p.Seed(ctx, seed))

	got, err := p.Catalog(ctx)
	require.NoError(t, err)

	byID := make(map[string]contractx.Service, len(got.Services))
	for _, s := range got.Services {
		byID[s.ID] = s
	}
	require.Equal(t, "Corte de cabelo", byID["s1"].Name)
	require.Contains(t, got.Assignments, contractx.Assignment{ProfessionalID: "p1", ServiceID: "s1", Enabled: true})
}
