package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/app"
	"github.com/antagligen/agent-triage-ralph-antigravity/internal/config"
	"github.com/antagligen/agent-triage-ralph-antigravity/internal/server"
	"github.com/antagligen/agent-triage-ralph-antigravity/internal/sse"
	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCommand() *cobra.Command {
	options := &rootOptions{}

	root := &cobra.Command{
		Use:           "triage",
		Short:         "Multi-agent network incident triage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&options.configPath, "config", "c", "config.yaml", "path to the YAML or JSON configuration")
	root.PersistentFlags().StringVar(&options.envFile, "env-file", "", "dotenv file with credentials (default ./.env when present)")

	root.AddCommand(newServeCommand(options), newRunCommand(options))
	return root
}

// load reads credentials and configuration, then builds the App.
func (options *rootOptions) load(ctx context.Context) (*app.App, error) {
	var envFiles []string
	if options.envFile != "" {
		envFiles = append(envFiles, options.envFile)
	}
	if err := config.LoadEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg, err := config.Load(options.configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func newServeCommand(options *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			application, err := options.load(ctx)
			if err != nil {
				return err
			}
			defer application.Close(context.WithoutCancel(ctx))

			if addr == "" {
				addr = application.Config().Server.Addr
			}
			return server.FromApp(application).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

type runOptions struct {
	threadID      string
	modelName     string
	modelProvider string
}

func newRunCommand(options *rootOptions) *cobra.Command {
	run := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <message>",
		Short: "Triage one message and print the event stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			application, err := options.load(ctx)
			if err != nil {
				return err
			}
			defer application.Close(context.WithoutCancel(ctx))

			return runOnce(ctx, application, app.Request{
				Message:       args[0],
				ThreadID:      run.threadID,
				ModelName:     run.modelName,
				ModelProvider: run.modelProvider,
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&run.threadID, "thread", "", "thread id to resume (a new one is generated when empty)")
	cmd.Flags().StringVar(&run.modelName, "model", "", "orchestrator model override")
	cmd.Flags().StringVar(&run.modelProvider, "provider", "", "orchestrator provider override")
	return cmd
}

// runOnce writes the run's events to out in SSE framing, ending with an
// error frame when the run fails.
func runOnce(ctx context.Context, runner server.Runner, request app.Request, out io.Writer) error {
	if request.ThreadID == "" {
		request.ThreadID = uuid.NewString()
	}
	fmt.Fprintf(out, ": thread %s\n\n", request.ThreadID)

	encoder := sse.NewEncoder(out)
	emitter := graph.NewChannelEmitter(256)
	drained := make(chan error, 1)
	reportWritten := false
	go func() {
		var firstErr error
		for event := range emitter.Events() {
			err := encoder.Encode(event)
			if err == nil && event.Type == graph.EventReport {
				reportWritten = true
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		drained <- firstErr
	}()

	final, runErr := runner.Run(ctx, request, emitter)
	emitter.Close()
	writeErr := <-drained

	if !reportWritten && final.Report != nil {
		if err := encoder.Encode(graph.Event{Type: graph.EventReport, Node: graph.NodeAggregator, Report: final.Report, Timestamp: time.Now()}); err != nil && writeErr == nil {
			writeErr = err
		}
	}

	if runErr != nil {
		_ = encoder.EncodeError(runErr)
		return runErr
	}
	return writeErr
}
