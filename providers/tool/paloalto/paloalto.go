// Package paloalto provides the firewall diagnostic tools backed by the
// PAN-OS XML API.
package paloalto

import (
	"context"
	"fmt"
	"net/http"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool/rest"
)

// TrafficInput selects a flow in the traffic logs.
type TrafficInput struct {
	SrcIP  string `json:"src_ip" jsonschema:"description=Source IP address"`
	DestIP string `json:"dest_ip" jsonschema:"description=Destination IP address"`
}

// PolicyInput names a security rule.
type PolicyInput struct {
	PolicyName string `json:"policy_name" jsonschema:"description=Name of the security policy rule"`
}

// Tools returns check_firewall_logs and verify_policy.
func Tools(runner *rest.Runner) []tool.GenericTool {
	return []tool.GenericTool{
		tool.NewTool("check_firewall_logs", func(ctx context.Context, input TrafficInput) (string, error) {
			if !runner.Configured() {
				return fmt.Sprintf("Traffic from %s to %s: Allowed by rule 'Permit-Web-Traffic'. No drops found in last 1 hour.", input.SrcIP, input.DestIP), nil
			}
			return runner.Execute(ctx, http.MethodGet, "/api/", map[string]any{
				"type":     "log",
				"log-type": "traffic",
				"query":    fmt.Sprintf("(addr.src in %s) and (addr.dst in %s)", input.SrcIP, input.DestIP),
			}), nil
		}, tool.WithDescription("Check firewall traffic logs for traffic between two IPs.")),

		tool.NewTool("verify_policy", func(ctx context.Context, input PolicyInput) (string, error) {
			if !runner.Configured() {
				return fmt.Sprintf("Policy '%s' is Active. Action: Allow.", input.PolicyName), nil
			}
			return runner.Execute(ctx, http.MethodGet, "/api/", map[string]any{
				"type":   "config",
				"action": "get",
				"xpath":  fmt.Sprintf("/config/devices/entry/vsys/entry/rulebase/security/rules/entry[@name='%s']", input.PolicyName),
			}), nil
		}, tool.WithDescription("Verify if a security policy is active and what action it takes.")),
	}
}
