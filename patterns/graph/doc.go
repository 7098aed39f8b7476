// Package graph implements the triage execution graph: a small, fixed state
// machine that routes a troubleshooting request through four phases.
//
//	decide → (enrich → decide)? → fan-out → aggregate
//
// The [Router] decides what to run next. A missing source or destination IP
// always routes to the enrichment node without consulting the planner;
// otherwise an LLM [Planner] picks diagnostic workers and its failure falls
// back to running all of them. Enrichment may run once per request; a second
// enrichment decision fails the run with [ErrEnrichmentReentry].
//
// The fan-out resolves the decision through a table built once in [New]: each
// worker name maps to itself, the catch-all token [CatchAll] maps to every
// worker in registration order, and configured aliases map to their targets.
// Unknown names are logged and ignored. Resolved workers run concurrently on a
// read-only [View] of the state; an error or panic becomes a FAILURE
// [WorkerResult] and never aborts sibling workers. When nothing resolves the
// run ends without a report.
//
// The [Aggregator] turns the collected results into a [Report] through a
// [Summarizer]. The list of failed workers is always computed from the results
// and a summarizer failure produces a fixed "Analysis Failed" report, so a
// completed run always carries a report.
//
// Progress is published to an [Emitter] that never blocks the run. A
// [CheckpointStore], when configured, is read once when the run starts and
// written once when it completes.
//
// Example:
//
//	engine, err := graph.New(graph.Config{
//	    Workers: []graph.NamedWorker{
//	        {Name: "aci", Worker: aciWorker},
//	        {Name: "palo_alto", Worker: firewallWorker},
//	    },
//	    Enricher:   enricher,
//	    Planner:    planner,
//	    Summarizer: summarizer,
//	}, graph.WithObserver(observer))
//
//	final, err := engine.RunGraph(ctx, graph.State{
//	    Messages: []ai.Message{{Role: ai.RoleUser, Content: "10.0.0.1 cannot reach 10.0.0.2"}},
//	}, graph.RunConfig{ThreadID: "incident-42"})
//	fmt.Println(final.Report.RootCause)
package graph
