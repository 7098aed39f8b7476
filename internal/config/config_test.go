package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
orchestrator_model: gpt-4o
system_prompt: You are a network triage assistant.
sub_agents:
  - name: aci
    description: Cisco ACI fabric specialist
    tools: [aci_diag, ping, traceroute]
  - name: palo_alto
    description: Firewall specialist
    tools: [check_firewall_logs, verify_policy]
  - name: infoblox
    description: IPAM and DNS
    tools: [get_ip_info, check_dns]
    kind: enrichment
aliases:
  network: [aci, palo_alto]
endpoints_file: endpoints.json
checkpoint:
  driver: badger
  path: /var/lib/triage
  ttl: 24h
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(writeFile(t, dir, "config.yaml", validYAML))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.OrchestratorModel)
	assert.Equal(t, DefaultProvider, cfg.OrchestratorProvider)
	assert.Equal(t, []string{"aci", "palo_alto", "infoblox"}, cfg.AgentNames())
	assert.Equal(t, KindDiagnostic, cfg.SubAgents[0].Kind)
	assert.Equal(t, filepath.Join(dir, "endpoints.json"), cfg.EndpointsFile)
	assert.Equal(t, 24*time.Hour, cfg.Checkpoint.TTL)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Nil(t, cfg.Devices)

	diagnostic := cfg.DiagnosticAgents()
	require.Len(t, diagnostic, 2)
	assert.Equal(t, "palo_alto", diagnostic[1].Name)

	enrichment, found := cfg.EnrichmentAgent()
	require.True(t, found)
	assert.Equal(t, "infoblox", enrichment.Name)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.json", `{
		"orchestrator_model": "gemini-2.0-flash",
		"orchestrator_provider": "Gemini",
		"system_prompt": "triage",
		"sub_agents": [{"name": "aci", "description": "fabric", "tools": ["ping"]}],
		"server": {"addr": ":9000", "rate_limit": 2.5}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.OrchestratorProvider)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2, cfg.Server.Burst)
	assert.Equal(t, DefaultCheckpoint, cfg.Checkpoint.Driver)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	testCases := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{name: "missing file", file: "", wantErr: "not found"},
		{name: "unsupported extension", file: "config.toml", content: "x = 1", wantErr: ".yaml, .yml, or .json"},
		{name: "malformed yaml", file: "bad.yaml", content: "orchestrator_model: [", wantErr: "parsing"},
		{name: "missing model", file: "nomodel.yaml", content: "system_prompt: x", wantErr: "OrchestratorModel: field is required"},
		{name: "unknown provider", file: "provider.yaml", content: "orchestrator_model: m\nsystem_prompt: s\norchestrator_provider: anthropic", wantErr: "must be one of"},
		{
			name:    "duplicate agent",
			file:    "dup.yaml",
			content: "orchestrator_model: m\nsystem_prompt: s\nsub_agents:\n  - {name: aci, description: a, tools: []}\n  - {name: aci, description: b, tools: []}",
			wantErr: "duplicate agent name",
		},
		{
			name:    "two enrichment agents",
			file:    "enrich.yaml",
			content: "orchestrator_model: m\nsystem_prompt: s\nsub_agents:\n  - {name: a, description: a, tools: [], kind: enrichment}\n  - {name: b, description: b, tools: [], kind: enrichment}",
			wantErr: "at most one",
		},
		{
			name:    "alias to unknown agent",
			file:    "alias.yaml",
			content: "orchestrator_model: m\nsystem_prompt: s\nsub_agents:\n  - {name: aci, description: a, tools: []}\naliases:\n  network: [aci, firewall]",
			wantErr: `unknown agent "firewall"`,
		},
		{
			name:    "postgres without dsn",
			file:    "pg.yaml",
			content: "orchestrator_model: m\nsystem_prompt: s\ncheckpoint:\n  driver: postgres",
			wantErr: "DSN: field is required",
		},
		{
			name:    "bad device url",
			file:    "device.yaml",
			content: "orchestrator_model: m\nsystem_prompt: s\ndevices:\n  aci:\n    apic_url: not a url",
			wantErr: "must be a URL",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			path := filepath.Join(dir, "absent.yaml")
			if testCase.file != "" {
				path = writeFile(t, dir, testCase.file, testCase.content)
			}
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), testCase.wantErr)
		})
	}
}

func TestDevicesDiscovery(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, filepath.Join("config", "devices.yaml"), `
aci:
  apic_url: https://apic.example.net
palo_alto:
  url: https://fw.example.net
  insecure_skip_verify: true
`)

	t.Run("next to the config file", func(t *testing.T) {
		cfg, err := Load(writeFile(t, root, "config.yaml", validYAML))
		require.NoError(t, err)
		require.NotNil(t, cfg.Devices)
		assert.Equal(t, "https://apic.example.net", cfg.Devices.ACI.APICURL)
		assert.True(t, cfg.Devices.PaloAlto.InsecureSkipVerify)
		assert.Nil(t, cfg.Devices.Infoblox)
	})

	t.Run("one level above the config file", func(t *testing.T) {
		cfg, err := Load(writeFile(t, root, filepath.Join("backend", "config.yaml"), validYAML))
		require.NoError(t, err)
		require.NotNil(t, cfg.Devices)
		assert.Equal(t, "https://fw.example.net", cfg.Devices.PaloAlto.URL)
	})

	t.Run("inline devices win", func(t *testing.T) {
		inline := validYAML + "devices:\n  infoblox:\n    url: https://ipam.example.net\n"
		cfg, err := Load(writeFile(t, root, "inline.yaml", inline))
		require.NoError(t, err)
		assert.Nil(t, cfg.Devices.ACI)
		assert.Equal(t, "https://ipam.example.net", cfg.Devices.Infoblox.URL)
	})
}

func TestWithOverrides(t *testing.T) {
	cfg, err := Load(writeFile(t, t.TempDir(), "config.yaml", validYAML))
	require.NoError(t, err)

	overridden, err := cfg.WithOverrides("gemini-2.0-flash", " Google ")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", overridden.OrchestratorModel)
	assert.Equal(t, "google", overridden.OrchestratorProvider)

	overridden.SubAgents[0].Tools[0] = "changed"
	overridden.Aliases["network"][0] = "changed"
	assert.Equal(t, "gpt-4o", cfg.OrchestratorModel)
	assert.Equal(t, "openai", cfg.OrchestratorProvider)
	assert.Equal(t, "aci_diag", cfg.SubAgents[0].Tools[0])
	assert.Equal(t, "aci", cfg.Aliases["network"][0])

	same, err := cfg.WithOverrides("", "")
	require.NoError(t, err)
	assert.Equal(t, cfg.OrchestratorModel, same.OrchestratorModel)

	_, err = cfg.WithOverrides("", "anthropic")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	cfg, err := Load(writeFile(t, t.TempDir(), "config.yaml", validYAML))
	require.NoError(t, err)

	summary := cfg.Summary()
	assert.Equal(t, "gpt-4o", summary.OrchestratorModel)
	assert.Equal(t, 3, summary.SubAgentsCount)
	assert.Equal(t, []string{"aci", "palo_alto", "infoblox"}, summary.SubAgents)
}
