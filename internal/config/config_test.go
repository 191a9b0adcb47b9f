package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DBTypeSQLite, cfg.DBType)
	assert.Equal(t, "file::memory:?cache=shared", cfg.DBPath)
	assert.Equal(t, "INV-{YYYY}{MM}{DD}-{SEQ4}", cfg.Invoice.NumberTemplate)
	assert.Equal(t, 30, cfg.Invoice.DefaultDueDays)
	assert.Positive(t, cfg.AI.Timeout)
}

func TestLoadNormalizesDatabaseType(t *testing.T) {
	t.Setenv("DATABASE_TYPE", " PostgreSQL ")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DBTypePostgres, cfg.DBType)

	t.Setenv("DATABASE_TYPE", "oracle")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, DBTypeSQLite, cfg.DBType)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("AI_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestPlanCatalogFallsBackToDefaults(t *testing.T) {
	holder, err := NewPlanCatalogHolder(Config{PlansFile: filepath.Join(t.TempDir(), "missing.yml")}, zap.NewNop())
	require.NoError(t, err)

	catalog := holder.Get()
	require.Len(t, catalog.Plans, 2)
	assert.Equal(t, "free", catalog.Plans[0].ID)
	assert.True(t, catalog.Plans[0].Default)
}

func TestPlanCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yml")
	content := `plans:
  - id: starter
    name: Starter
    priceMonthly: "5"
    priceYearly: "50"
    default: true
    features: ["Invoices"]
  - id: pro
    name: Pro
    priceMonthly: "25"
    priceYearly: "250"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	holder, err := NewPlanCatalogHolder(Config{PlansFile: path}, zap.NewNop())
	require.NoError(t, err)

	catalog := holder.Get()
	require.Len(t, catalog.Plans, 2)
	assert.Equal(t, "starter", catalog.Plans[0].ID)
	assert.Equal(t, "25", catalog.Plans[1].PriceMonthly)
}

func TestPlanCatalogRejectsDuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yml")
	content := `plans:
  - id: pro
    name: Pro
  - id: pro
    name: Pro again
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := NewPlanCatalogHolder(Config{PlansFile: path}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate plan id")
}
