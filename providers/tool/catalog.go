package tool

import (
	"strings"
	"sync"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

// Catalog is a thread-safe registry of tools keyed by lowercase name. It keeps
// registration order so tool descriptions are sent to the model in a stable
// order.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]GenericTool
	order []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		tools: make(map[string]GenericTool),
	}
}

// NewCatalogWithTools creates a catalog pre-populated with tools.
func NewCatalogWithTools(tools ...GenericTool) *Catalog {
	catalog := NewCatalog()
	catalog.AddTools(tools...)
	return catalog
}

// AddTools registers tools. A tool with an existing name replaces the old one
// in place.
func (c *Catalog) AddTools(tools ...GenericTool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tools {
		name := strings.ToLower(t.ToolInfo().Name)
		if _, exists := c.tools[name]; !exists {
			c.order = append(c.order, name)
		}
		c.tools[name] = t
	}
}

// Get retrieves a tool by name (case-insensitive).
func (c *Catalog) Get(name string) (GenericTool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tool, exists := c.tools[strings.ToLower(name)]
	return tool, exists
}

// Has reports whether a tool with the given name exists (case-insensitive).
func (c *Catalog) Has(name string) bool {
	_, exists := c.Get(name)
	return exists
}

// Size returns the number of tools in the catalog.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

// Names returns the registered names in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Descriptions returns the tool descriptions in registration order.
func (c *Catalog) Descriptions() []ai.ToolDescription {
	c.mu.RLock()
	defer c.mu.RUnlock()

	descriptions := make([]ai.ToolDescription, 0, len(c.order))
	for _, name := range c.order {
		descriptions = append(descriptions, c.tools[name].ToolInfo())
	}
	return descriptions
}

// Subset returns a new catalog holding only the named tools, in the order of
// names. Unknown names are returned separately.
func (c *Catalog) Subset(names ...string) (*Catalog, []string) {
	subset := NewCatalog()
	var missing []string
	for _, name := range names {
		tool, found := c.Get(name)
		if !found {
			missing = append(missing, name)
			continue
		}
		subset.AddTools(tool)
	}
	return subset, missing
}

// Merge adds all tools from other. Existing names are replaced.
func (c *Catalog) Merge(other *Catalog) {
	if other == nil || other == c {
		return
	}

	other.mu.RLock()
	tools := make([]GenericTool, 0, len(other.order))
	for _, name := range other.order {
		tools = append(tools, other.tools[name])
	}
	other.mu.RUnlock()

	c.AddTools(tools...)
}
