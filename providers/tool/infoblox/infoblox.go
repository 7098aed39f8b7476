// Package infoblox provides the IPAM and DNS tools backed by the Infoblox
// WAPI, and the Enricher that fills in missing incident addresses.
package infoblox

import (
	"context"
	"fmt"
	"net/http"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/tool/rest"
)

const wapiVersion = "v2.12"

// IPInput is the argument of get_ip_info.
type IPInput struct {
	IPAddress string `json:"ip_address" jsonschema:"description=IPv4 address to look up"`
}

// HostnameInput is the argument of check_dns.
type HostnameInput struct {
	Hostname string `json:"hostname" jsonschema:"description=Fully qualified host name"`
}

// Client wraps the WAPI calls shared by the tools and the Enricher.
type Client struct {
	runner *rest.Runner
}

// NewClient returns a Client. A nil or unconfigured runner simulates.
func NewClient(runner *rest.Runner) *Client {
	return &Client{runner: runner}
}

// IPInfo describes the IPAM record of address.
func (c *Client) IPInfo(ctx context.Context, address string) string {
	if !c.runner.Configured() {
		return fmt.Sprintf("IP %s is assigned to host 'web-server-01' in subnet '10.0.0.0/24'. Status: Used.", address)
	}
	return c.runner.Execute(ctx, http.MethodGet, "/wapi/"+wapiVersion+"/ipv4address", map[string]any{
		"ip_address":     address,
		"_return_fields": "ip_address,names,network,status,types",
	})
}

// DNSRecord describes the A record of hostname.
func (c *Client) DNSRecord(ctx context.Context, hostname string) string {
	if !c.runner.Configured() {
		return fmt.Sprintf("DNS record for %s: A record points to 10.0.0.15. TTL: 3600.", hostname)
	}
	return c.runner.Execute(ctx, http.MethodGet, "/wapi/"+wapiVersion+"/record:a", map[string]any{
		"name":           hostname,
		"_return_fields": "name,ipv4addr,ttl,view",
	})
}

// Tools returns get_ip_info and check_dns.
func (c *Client) Tools() []tool.GenericTool {
	return []tool.GenericTool{
		tool.NewTool("get_ip_info", func(ctx context.Context, input IPInput) (string, error) {
			return c.IPInfo(ctx, input.IPAddress), nil
		}, tool.WithDescription("Retrieve details about an IP address from Infoblox.")),

		tool.NewTool("check_dns", func(ctx context.Context, input HostnameInput) (string, error) {
			return c.DNSRecord(ctx, input.Hostname), nil
		}, tool.WithDescription("Check DNS records for a hostname.")),
	}
}
