package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandsync/reconciler/internal/match"
	"github.com/brandsync/reconciler/internal/plan"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 90.0, cfg.Matching.AutoAcceptThreshold)
	assert.Equal(t, 80.0, cfg.Matching.ManualReviewThreshold)
	assert.Equal(t, match.DefaultTopK, cfg.Matching.TopK)
	assert.Equal(t, 1, cfg.Matching.Workers)
	assert.Equal(t, plan.DefaultSocialFields, cfg.Matching.SocialFields)
	assert.Equal(t, "memory", cfg.Registry.Driver)
	assert.Equal(t, []string{"name", "company_name", "brand_name", "title"}, cfg.Registry.NameFields)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reconciler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
matching:
  auto_accept_threshold: 95
  workers: 4
registry:
  driver: sqlite
  database:
    name: registry.db
`), 0o644))

	t.Setenv("RECONCILER_MATCHING_MANUAL_REVIEW_THRESHOLD", "70")

	v := New()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("dry-run", false, "")
	require.NoError(t, flags.Parse([]string{"--dry-run"}))
	require.NoError(t, BindFlags(v, flags, map[string]string{
		"matching.simulate_only": "dry-run",
		"matching.top_k":         "top-k",
	}))

	cfg, err := Load(v, path)
	require.NoError(t, err)

	assert.Equal(t, 95.0, cfg.Matching.AutoAcceptThreshold)
	assert.Equal(t, 70.0, cfg.Matching.ManualReviewThreshold)
	assert.Equal(t, 4, cfg.Matching.Workers)
	assert.True(t, cfg.Matching.SimulateOnly)
	assert.Equal(t, "sqlite", cfg.Registry.Driver)
	assert.Equal(t, "registry.db", cfg.Registry.Database.Name)
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	t.Setenv("RECONCILER_MATCHING_AUTO_ACCEPT_THRESHOLD", "70")
	t.Setenv("RECONCILER_MATCHING_MANUAL_REVIEW_THRESHOLD", "80")

	_, err := Load(New(), "")
	assert.ErrorIs(t, err, match.ErrInvalidThresholdConfiguration)
}

func TestLoadEnvFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RECONCILER_TEST_VALUE=from-file\n"), 0o644))
	t.Setenv("RECONCILER_TEST_VALUE", "")
	os.Unsetenv("RECONCILER_TEST_VALUE")

	require.NoError(t, LoadEnvFiles(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("RECONCILER_TEST_VALUE"))
}
