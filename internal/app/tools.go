package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/config"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool/aci"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool/infoblox"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool/paloalto"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool/rest"
)

// toolset holds every tool an agent may reference by name.
type toolset struct {
	tools    map[string]tool.GenericTool
	infoblox *infoblox.Client
}

func newToolset(cfg *config.AppConfig, observer observability.Provider) (*toolset, error) {
	devices := cfg.Devices
	if devices == nil {
		devices = &config.Devices{}
	}

	credentials, err := config.ACICredentials()
	if err != nil && (devices.ACI != nil || devices.PaloAlto != nil || devices.Infoblox != nil) {
		observer.Warn(context.Background(), "device credentials missing, calls are sent without authentication",
			observability.Error(err))
	}

	aciRunner := rest.NewRunner(rest.Connection{})
	if devices.ACI != nil {
		aciRunner = rest.NewRunner(rest.Connection{
			BaseURL:            devices.ACI.APICURL,
			Username:           credentials.Username,
			Password:           credentials.Password,
			InsecureSkipVerify: devices.ACI.InsecureSkipVerify,
		})
	}

	set := &toolset{
		tools:    map[string]tool.GenericTool{},
		infoblox: infoblox.NewClient(deviceRunner(devices.Infoblox, credentials)),
	}
	set.add(aci.Tools(aciRunner)...)
	set.add(paloalto.Tools(deviceRunner(devices.PaloAlto, credentials))...)
	set.add(set.infoblox.Tools()...)

	if cfg.EndpointsFile != "" {
		endpoints, err := rest.LoadEndpoints(cfg.EndpointsFile)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		set.add(rest.NewEndpointTools(endpoints, aciRunner)...)
	}
	return set, nil
}

func deviceRunner(device *config.Device, credentials config.Credentials) *rest.Runner {
	if device == nil {
		return rest.NewRunner(rest.Connection{})
	}
	return rest.NewRunner(rest.Connection{
		BaseURL:            device.URL,
		Username:           credentials.Username,
		Password:           credentials.Password,
		InsecureSkipVerify: device.InsecureSkipVerify,
	})
}

func (set *toolset) add(tools ...tool.GenericTool) {
	for _, t := range tools {
		set.tools[strings.ToLower(t.ToolInfo().Name)] = t
	}
}

// catalog returns the tools listed by agent. Unknown names are an error.
func (set *toolset) catalog(agent config.SubAgent) (*tool.Catalog, error) {
	catalog := tool.NewCatalog()
	var unknown []string
	for _, name := range agent.Tools {
		t, found := set.tools[strings.ToLower(name)]
		if !found {
			unknown = append(unknown, name)
			continue
		}
		catalog.AddTools(t)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("app: agent %q uses unknown tools %s (available: %s)",
			agent.Name, strings.Join(unknown, ", "), strings.Join(set.names(), ", "))
	}
	return catalog, nil
}

func (set *toolset) names() []string {
	names := make([]string, 0, len(set.tools))
	for name := range set.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// enricher returns the IPAM enricher. The engine records its errors and only
// fails a run when enrichment is requested twice.
func (set *toolset) enricher() graph.Enricher {
	return infoblox.NewEnricher(set.infoblox)
}
