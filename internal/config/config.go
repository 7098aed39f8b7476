package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Sub-agent kinds.
const (
	KindDiagnostic = "diagnostic"
	KindEnrichment = "enrichment"
)

// Defaults applied by Load.
const (
	DefaultProvider      = "openai"
	DefaultServerAddr    = ":8000"
	DefaultMaxIterations = 10
	DefaultCheckpoint    = "memory"
)

// AppConfig is the root of the configuration file.
type AppConfig struct {
	OrchestratorModel    string              `yaml:"orchestrator_model" json:"orchestrator_model" validate:"required"`
	OrchestratorProvider string              `yaml:"orchestrator_provider" json:"orchestrator_provider" validate:"oneof=openai google gemini"`
	SystemPrompt         string              `yaml:"system_prompt" json:"system_prompt" validate:"required"`
	SubAgents            []SubAgent          `yaml:"sub_agents" json:"sub_agents" validate:"dive"`
	Aliases              map[string][]string `yaml:"aliases" json:"aliases,omitempty" validate:"dive,min=1,dive,required"`
	Devices              *Devices            `yaml:"devices" json:"devices,omitempty"`
	// EndpointsFile is a JSON list of extra REST tools. Relative paths are
	// resolved against the configuration file.
	EndpointsFile  string     `yaml:"endpoints_file" json:"endpoints_file,omitempty"`
	Checkpoint     Checkpoint `yaml:"checkpoint" json:"checkpoint"`
	Server         Server     `yaml:"server" json:"server"`
	MaxConcurrency int        `yaml:"max_concurrency" json:"max_concurrency" validate:"gte=0"`
	MaxIterations  int        `yaml:"max_iterations" json:"max_iterations" validate:"gte=0"`
}

// SubAgent declares one agent of the triage graph.
type SubAgent struct {
	Name        string   `yaml:"name" json:"name" validate:"required"`
	Description string   `yaml:"description" json:"description" validate:"required"`
	Tools       []string `yaml:"tools" json:"tools" validate:"dive,required"`
	// Kind is diagnostic unless set. At most one agent may be the enrichment
	// step.
	Kind string `yaml:"kind" json:"kind,omitempty" validate:"oneof=diagnostic enrichment"`
}

// Devices holds the API address of each network device.
type Devices struct {
	ACI      *ACIDevice `yaml:"aci" json:"aci,omitempty"`
	PaloAlto *Device    `yaml:"palo_alto" json:"palo_alto,omitempty"`
	Infoblox *Device    `yaml:"infoblox" json:"infoblox,omitempty"`
}

// ACIDevice is the APIC controller.
type ACIDevice struct {
	APICURL            string `yaml:"apic_url" json:"apic_url" validate:"required,url"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" json:"insecure_skip_verify,omitempty"`
}

// Device is a device reached over a single base URL.
type Device struct {
	URL                string `yaml:"url" json:"url" validate:"required,url"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" json:"insecure_skip_verify,omitempty"`
}

// Checkpoint selects where thread state is kept between requests.
type Checkpoint struct {
	Driver string        `yaml:"driver" json:"driver" validate:"oneof=memory postgres badger"`
	DSN    string        `yaml:"dsn" json:"dsn,omitempty" validate:"required_if=Driver postgres"`
	Path   string        `yaml:"path" json:"path,omitempty" validate:"required_if=Driver badger"`
	TTL    time.Duration `yaml:"ttl" json:"ttl,omitempty" validate:"gte=0"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `yaml:"addr" json:"addr" validate:"required"`
	// RateLimit is the sustained number of /chat requests per second. Zero
	// disables limiting.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" json:"burst" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads, completes and validates the configuration at path.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found at: %s", path)
		}
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	cfg := &AppConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("configuration file must be .yaml, .yml, or .json: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing configuration %s: %w", path, err)
	}

	configDir := filepath.Dir(path)
	if cfg.Devices == nil {
		if devicesPath := FindDevicesFile(configDir); devicesPath != "" {
			if cfg.Devices, err = LoadDevices(devicesPath); err != nil {
				return nil, err
			}
		}
	}
	if cfg.EndpointsFile != "" && !filepath.IsAbs(cfg.EndpointsFile) {
		cfg.EndpointsFile = filepath.Join(configDir, cfg.EndpointsFile)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDevices reads a devices file.
func LoadDevices(path string) (*Devices, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading devices file: %w", err)
	}
	devices := &Devices{}
	if err := yaml.Unmarshal(data, devices); err != nil {
		return nil, fmt.Errorf("parsing devices file %s: %w", path, err)
	}
	return devices, nil
}

// FindDevicesFile returns the first existing config/devices.yaml under the
// working directory, configDir or the parent of configDir, or "".
func FindDevicesFile(configDir string) string {
	candidates := []string{
		filepath.Join("config", "devices.yaml"),
		filepath.Join(configDir, "config", "devices.yaml"),
		filepath.Join(configDir, "..", "config", "devices.yaml"),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func (cfg *AppConfig) applyDefaults() {
	cfg.OrchestratorProvider = strings.ToLower(strings.TrimSpace(cfg.OrchestratorProvider))
	if cfg.OrchestratorProvider == "" {
		cfg.OrchestratorProvider = DefaultProvider
	}
	for i := range cfg.SubAgents {
		if cfg.SubAgents[i].Kind == "" {
			cfg.SubAgents[i].Kind = KindDiagnostic
		}
	}
	if cfg.Checkpoint.Driver == "" {
		cfg.Checkpoint.Driver = DefaultCheckpoint
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.Burst == 0 {
		cfg.Server.Burst = max(1, int(cfg.Server.RateLimit))
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
}

// Validate checks struct constraints and the rules spanning several fields.
func (cfg *AppConfig) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	names := make(map[string]bool, len(cfg.SubAgents))
	enrichment := 0
	for _, agent := range cfg.SubAgents {
		if names[agent.Name] {
			return fmt.Errorf("sub_agents: duplicate agent name %q", agent.Name)
		}
		names[agent.Name] = true
		if agent.Kind == KindEnrichment {
			enrichment++
		}
	}
	if enrichment > 1 {
		return fmt.Errorf("sub_agents: %d enrichment agents configured, at most one is allowed", enrichment)
	}

	for _, alias := range slices.Sorted(maps.Keys(cfg.Aliases)) {
		if names[alias] {
			return fmt.Errorf("aliases: %q is already an agent name", alias)
		}
		for _, target := range cfg.Aliases[alias] {
			if !names[target] {
				return fmt.Errorf("aliases: %q refers to unknown agent %q", alias, target)
			}
		}
	}
	return nil
}

// DiagnosticAgents returns the agents run by the fan-out, in file order.
func (cfg *AppConfig) DiagnosticAgents() []SubAgent {
	var agents []SubAgent
	for _, agent := range cfg.SubAgents {
		if agent.Kind != KindEnrichment {
			agents = append(agents, agent)
		}
	}
	return agents
}

// EnrichmentAgent returns the enrichment agent, if one is configured.
func (cfg *AppConfig) EnrichmentAgent() (SubAgent, bool) {
	for _, agent := range cfg.SubAgents {
		if agent.Kind == KindEnrichment {
			return agent, true
		}
	}
	return SubAgent{}, false
}

// AgentNames lists every configured agent name in file order.
func (cfg *AppConfig) AgentNames() []string {
	names := make([]string, 0, len(cfg.SubAgents))
	for _, agent := range cfg.SubAgents {
		names = append(names, agent.Name)
	}
	return names
}

// WithOverrides returns a copy with the orchestrator model or provider
// replaced. Empty arguments keep the current value; cfg is never modified.
func (cfg *AppConfig) WithOverrides(modelName, modelProvider string) (*AppConfig, error) {
	clone := cfg.Clone()
	if modelName = strings.TrimSpace(modelName); modelName != "" {
		clone.OrchestratorModel = modelName
	}
	if modelProvider = strings.ToLower(strings.TrimSpace(modelProvider)); modelProvider != "" {
		clone.OrchestratorProvider = modelProvider
	}
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	return clone, nil
}

// Clone returns a deep copy.
func (cfg *AppConfig) Clone() *AppConfig {
	clone := *cfg
	clone.SubAgents = make([]SubAgent, len(cfg.SubAgents))
	for i, agent := range cfg.SubAgents {
		agent.Tools = slices.Clone(agent.Tools)
		clone.SubAgents[i] = agent
	}
	if cfg.Aliases != nil {
		clone.Aliases = make(map[string][]string, len(cfg.Aliases))
		for alias, targets := range cfg.Aliases {
			clone.Aliases[alias] = slices.Clone(targets)
		}
	}
	if cfg.Devices != nil {
		devices := *cfg.Devices
		if devices.ACI != nil {
			aci := *devices.ACI
			devices.ACI = &aci
		}
		if devices.PaloAlto != nil {
			paloAlto := *devices.PaloAlto
			devices.PaloAlto = &paloAlto
		}
		if devices.Infoblox != nil {
			infoblox := *devices.Infoblox
			devices.Infoblox = &infoblox
		}
		clone.Devices = &devices
	}
	return &clone
}

// Summary is the public view served by GET /config.
type Summary struct {
	OrchestratorModel string   `json:"orchestrator_model"`
	SubAgentsCount    int      `json:"sub_agents_count"`
	SubAgents         []string `json:"sub_agents"`
}

// Summary returns the public view of cfg.
func (cfg *AppConfig) Summary() Summary {
	return Summary{
		OrchestratorModel: cfg.OrchestratorModel,
		SubAgentsCount:    len(cfg.SubAgents),
		SubAgents:         cfg.AgentNames(),
	}
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		field := fieldErr.Namespace()
		switch fieldErr.Tag() {
		case "required", "required_if":
			messages = append(messages, fmt.Sprintf("%s: field is required", field))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s: must be one of [%s], got %q", field, fieldErr.Param(), fieldErr.Value()))
		case "url":
			messages = append(messages, fmt.Sprintf("%s: must be a URL", field))
		case "gte", "min":
			messages = append(messages, fmt.Sprintf("%s: must be at least %s", field, fieldErr.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s: validation failed (%s)", field, fieldErr.Tag()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}
