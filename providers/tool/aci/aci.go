// Package aci provides the Cisco ACI diagnostic tools: fabric health of a
// target, endpoint reachability and path lookup through the APIC REST API.
package aci

import (
	"context"
	"fmt"
	"net/http"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool/rest"
)

// TargetInput is the argument of every ACI tool.
type TargetInput struct {
	Target string `json:"target" jsonschema:"description=IP address, hostname or APIC distinguished name to inspect"`
}

// Tools returns aci_diag, ping and traceroute. A nil or unconfigured runner
// yields simulated answers.
func Tools(runner *rest.Runner) []tool.GenericTool {
	return []tool.GenericTool{
		tool.NewTool("aci_diag", func(ctx context.Context, input TargetInput) (string, error) {
			if !runner.Configured() {
				return fmt.Sprintf("Diagnostics for %s: Health Score=95, Faults=0. Everything looks normal on the fabric.", input.Target), nil
			}
			return runner.Execute(ctx, http.MethodGet, "/api/node/mo/{target}.json",
				map[string]any{"target": input.Target, "rsp-subtree-include": "health,faults,count"}), nil
		}, tool.WithDescription("Run diagnostics on a Cisco ACI target: health score and active faults.")),

		tool.NewTool("ping", func(ctx context.Context, input TargetInput) (string, error) {
			if !runner.Configured() {
				return fmt.Sprintf("Ping to %s successful. RTT=2ms.", input.Target), nil
			}
			return runner.Execute(ctx, http.MethodGet, "/api/node/class/fvCEp.json",
				map[string]any{"query-target-filter": fmt.Sprintf(`eq(fvCEp.ip,"%s")`, input.Target)}), nil
		}, tool.WithDescription("Ping a network target. Checks that the fabric has learned the endpoint.")),

		tool.NewTool("traceroute", func(ctx context.Context, input TargetInput) (string, error) {
			if !runner.Configured() {
				return fmt.Sprintf("Traceroute to %s: 1 hop, directly connected.", input.Target), nil
			}
			return runner.Execute(ctx, http.MethodGet, "/api/node/class/fvIp.json",
				map[string]any{"query-target-filter": fmt.Sprintf(`eq(fvIp.addr,"%s")`, input.Target), "rsp-subtree": "full"}), nil
		}, tool.WithDescription("Traceroute to a network target. Returns the leaf and interface path the endpoint is learned on.")),
	}
}
