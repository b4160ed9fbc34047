package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/malcamp/internal/model"
)

func TestLoadConfig_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v, model.DefaultConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  url: https://comps.example.org\n  timeout: 45s\npolling:\n  interval: 2m\n"), 0o644))
	t.Setenv("MALCAMP_CONCURRENCY_WORKERS", "3")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MALCAMP")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	setDefaults(v, model.DefaultConfig())
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "https://comps.example.org", cfg.Service.URL)
	assert.Equal(t, 45*time.Second, cfg.Service.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Polling.Interval)
	assert.Equal(t, 3, cfg.Concurrency.Workers)
	assert.Equal(t, model.DefaultConfig().Registry.Path, cfg.Registry.Path)
}

func TestInitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".malcamp", "config.yaml")
	require.NoError(t, initConfigFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, model.DefaultConfig().Service.URL, cfg.Service.URL)

	assert.Error(t, initConfigFile(path), "existing file must not be overwritten")
}

func TestRedact(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Service.Token = "secret"

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, redact(cfg)))
	assert.NotContains(t, buf.String(), "secret")
	assert.Equal(t, "secret", cfg.Service.Token)
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(`
name: test
interventions:
  - type: drug_campaign
    campaign_type: MDA
    drug_code: DP
sweep:
  runs: 2
`), 0o644))

	out := filepath.Join(dir, "inputs")
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"build", scenarioPath, "--output-dir", out, "--sweep"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		buildSweep = false
	})
	require.NoError(t, Execute())

	for _, variant := range []string{"0000", "0001"} {
		assert.FileExists(t, filepath.Join(out, variant, "config.json"))
		assert.FileExists(t, filepath.Join(out, variant, "campaign.json"))
	}
	assert.Contains(t, stdout.String(), filepath.Join(out, "0001"))
}
