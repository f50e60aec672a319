package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Guardian.MaxFailures)
	assert.Equal(t, 2, cfg.Guardian.MaxRestarts)
	assert.True(t, cfg.Guardian.StartActive)
	assert.Equal(t, 5*time.Second, cfg.ProbeInterval())
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout())
	assert.Equal(t, 30*time.Second, cfg.RestartTimeout())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, "meshguard.toml", `
data_dir = "/var/lib/meshguard"

[guardian]
max_failures = 5
probe_interval_ms = 1000
start_active = false

[api]
enabled = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/meshguard", cfg.DataDir)
	assert.Equal(t, 5, cfg.Guardian.MaxFailures)
	assert.Equal(t, time.Second, cfg.ProbeInterval())
	assert.False(t, cfg.Guardian.StartActive)
	assert.False(t, cfg.API.Enabled)

	// Untouched sections keep their defaults.
	assert.Equal(t, 2, cfg.Guardian.MaxRestarts)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeFile(t, "meshguard.toml", `
[guardian]
max_restarts = 0
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeFile(t, "meshguard.toml", "[guardian\nmax_failures = ")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Configuration)
	}{
		{"zero max_failures", func(c *Configuration) { c.Guardian.MaxFailures = 0 }},
		{"negative max_restarts", func(c *Configuration) { c.Guardian.MaxRestarts = -1 }},
		{"zero probe interval", func(c *Configuration) { c.Guardian.ProbeIntervalMS = 0 }},
		{"zero probe timeout", func(c *Configuration) { c.Guardian.ProbeTimeoutMS = 0 }},
		{"zero restart timeout", func(c *Configuration) { c.Guardian.RestartTimeoutMS = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

const validManifest = `
apiVersion: v1
kind: NodeSet
nodes:
  - id: primary
    probe:
      kind: http
      endpoint: http://10.0.0.2:8080/health
    restart:
      kind: exec
      command: ["ssh", "10.0.0.2", "systemctl", "restart", "app"]
  - id: backup
    probe:
      kind: tcp
      endpoint: 10.0.0.3:6379
    restart:
      kind: http
      endpoint: http://10.0.0.3:9090/restart
`

func TestLoadNodes(t *testing.T) {
	path := writeFile(t, "nodes.yaml", validManifest)

	nodes, err := LoadNodes(path)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, "primary", nodes[0].ID)
	assert.Equal(t, "http://10.0.0.2:8080/health", nodes[0].Probe.Endpoint)
	assert.Equal(t, []string{"ssh", "10.0.0.2", "systemctl", "restart", "app"}, nodes[0].Restart.Command)
	assert.Equal(t, "backup", nodes[1].ID)
}

func TestLoadNodesErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"empty node set", "kind: NodeSet\nnodes: []\n"},
		{"wrong kind", "kind: PodSet\nnodes:\n  - id: a\n"},
		{
			"missing id",
			"nodes:\n  - probe: {kind: tcp, endpoint: 'x:1'}\n    restart: {kind: exec, command: ['true']}\n",
		},
		{
			"duplicate id",
			"nodes:\n" +
				"  - id: a\n    probe: {kind: tcp, endpoint: 'x:1'}\n    restart: {kind: exec, command: ['true']}\n" +
				"  - id: a\n    probe: {kind: tcp, endpoint: 'x:1'}\n    restart: {kind: exec, command: ['true']}\n",
		},
		{
			"http probe without endpoint",
			"nodes:\n  - id: a\n    probe: {kind: http}\n    restart: {kind: exec, command: ['true']}\n",
		},
		{
			"exec restart without command",
			"nodes:\n  - id: a\n    probe: {kind: tcp, endpoint: 'x:1'}\n    restart: {kind: exec}\n",
		},
		{
			"unknown probe kind",
			"nodes:\n  - id: a\n    probe: {kind: icmp}\n    restart: {kind: exec, command: ['true']}\n",
		},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "nodes.yaml", tt.manifest)
			_, err := LoadNodes(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadNodesMissingFile(t *testing.T) {
	_, err := LoadNodes(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
