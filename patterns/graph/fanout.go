package graph

import (
	"fmt"
	"slices"
)

// fanOutTable maps every routable name to the worker names it launches.
type fanOutTable map[string][]string

var reservedNames = []string{NodeRouter, NodeEnrichment, NodeAggregator, CatchAll}

// buildFanOutTable registers each worker under its own name, the catch-all
// under every worker and each alias under its targets.
func buildFanOutTable(workers []NamedWorker, aliases map[string][]string) (fanOutTable, error) {
	table := make(fanOutTable, len(workers)+len(aliases)+1)
	all := make([]string, 0, len(workers))

	for _, worker := range workers {
		switch {
		case worker.Name == "":
			return nil, fmt.Errorf("%w: worker without a name", ErrInvalidConfig)
		case worker.Worker == nil:
			return nil, fmt.Errorf("%w: worker %q has no implementation", ErrInvalidConfig, worker.Name)
		case slices.Contains(reservedNames, worker.Name):
			return nil, fmt.Errorf("%w: worker name %q is reserved", ErrInvalidConfig, worker.Name)
		}
		if _, exists := table[worker.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate worker %q", ErrInvalidConfig, worker.Name)
		}
		table[worker.Name] = []string{worker.Name}
		all = append(all, worker.Name)
	}
	table[CatchAll] = all

	for alias, targets := range aliases {
		if _, exists := table[alias]; exists || slices.Contains(reservedNames, alias) {
			return nil, fmt.Errorf("%w: alias %q shadows a node name", ErrInvalidConfig, alias)
		}
		for _, target := range targets {
			if !slices.Contains(all, target) {
				return nil, fmt.Errorf("%w: alias %q targets unknown worker %q", ErrInvalidConfig, alias, target)
			}
		}
		table[alias] = slices.Clone(targets)
	}

	return table, nil
}

// resolve expands nextSteps into the ordered set of worker names to launch.
// An empty nextSteps means the catch-all. Names without an entry are returned
// separately and otherwise ignored.
func (table fanOutTable) resolve(nextSteps []string) (workers []string, unknown []string) {
	if len(nextSteps) == 0 {
		nextSteps = []string{CatchAll}
	}

	seen := make(map[string]bool)
	for _, step := range nextSteps {
		targets, found := table[step]
		if !found {
			unknown = append(unknown, step)
			continue
		}
		for _, target := range targets {
			if !seen[target] {
				seen[target] = true
				workers = append(workers, target)
			}
		}
	}
	return workers, unknown
}
