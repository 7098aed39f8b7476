package infoblox

import (
	"context"
	"errors"
	"maps"
	"net/netip"
	"regexp"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

// Incident data keys.
const (
	KeySourceIP        = "source_ip"
	KeyDestinationIP   = "destination_ip"
	KeySourceHost      = "source_host"
	KeyDestinationHost = "destination_host"
)

// ErrNoAddress is returned when neither the incident data nor the
// conversation yields both endpoints of the flow.
var ErrNoAddress = errors.New("infoblox: could not determine source and destination IP addresses")

var ipv4Pattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

// Enricher completes incident data with addresses mentioned by the user and
// annotates each address with its IPAM record.
type Enricher struct {
	client *Client
}

// NewEnricher returns an Enricher using client for lookups.
func NewEnricher(client *Client) *Enricher {
	return &Enricher{client: client}
}

// Enrich returns a copy of incidentData with source_ip and destination_ip
// filled from the user messages (first distinct addresses, oldest first) and
// source_host / destination_host from IPAM. Existing keys are kept. When an
// address is still missing the partial result is returned with ErrNoAddress.
func (e *Enricher) Enrich(ctx context.Context, messages []ai.Message, incidentData map[string]any) (map[string]any, error) {
	enriched := maps.Clone(incidentData)
	if enriched == nil {
		enriched = map[string]any{}
	}

	candidates := ExtractIPv4(messages)
	for _, key := range []string{KeySourceIP, KeyDestinationIP} {
		if present(enriched, key) {
			continue
		}
		for len(candidates) > 0 {
			candidate := candidates[0]
			candidates = candidates[1:]
			if candidate != enriched[KeySourceIP] && candidate != enriched[KeyDestinationIP] {
				enriched[key] = candidate
				break
			}
		}
	}

	for ipKey, hostKey := range map[string]string{KeySourceIP: KeySourceHost, KeyDestinationIP: KeyDestinationHost} {
		if err := ctx.Err(); err != nil {
			return enriched, err
		}
		address, isString := enriched[ipKey].(string)
		if !isString || address == "" || present(enriched, hostKey) {
			continue
		}
		enriched[hostKey] = e.client.IPInfo(ctx, address)
	}

	if !present(enriched, KeySourceIP) || !present(enriched, KeyDestinationIP) {
		return enriched, ErrNoAddress
	}
	return enriched, nil
}

// ExtractIPv4 returns the distinct valid IPv4 addresses found in user
// messages, in order of appearance.
func ExtractIPv4(messages []ai.Message) []string {
	seen := map[string]bool{}
	var addresses []string
	for _, message := range messages {
		if message.Role != ai.RoleUser {
			continue
		}
		for _, match := range ipv4Pattern.FindAllString(message.Content, -1) {
			address, err := netip.ParseAddr(match)
			if err != nil || !address.Is4() {
				continue
			}
			normalized := address.String()
			if seen[normalized] {
				continue
			}
			seen[normalized] = true
			addresses = append(addresses, normalized)
		}
	}
	return addresses
}

func present(data map[string]any, key string) bool {
	value, found := data[key]
	if !found || value == nil {
		return false
	}
	if text, isString := value.(string); isString {
		return text != ""
	}
	return true
}
