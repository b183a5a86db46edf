package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"funcfile/internal/config"
	"funcfile/internal/mcp"
	"funcfile/internal/parser"
	"funcfile/internal/retriever"
	"funcfile/internal/synth"
	"funcfile/internal/utils"
)

// app carries what every subcommand shares once flags and config are resolved.
type app struct {
	configPath string
	noCache    bool
	logLevel   string

	logger    *slog.Logger
	retriever *retriever.Retriever
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if a.noCache {
		cfg.Cache.Enabled = false
	}

	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	a.retriever = retriever.New(nil, retriever.WithLogger(a.logger))
	if !cfg.Cache.Enabled {
		a.retriever.DisableCache()
	}
	return nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "funcfile",
		Short:         "Extract named JavaScript functions from files and run them",
		Long:          "A CLI tool for locating function definitions in JavaScript sources, rebuilding them, and calling them in an embedded engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ~/.funcfile/config.{json,yaml})")
	rootCmd.PersistentFlags().BoolVar(&a.noCache, "no-cache", false, "Reparse files on every lookup")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newListCmd(a), newShowCmd(a), newCallCmd(a), newMCPCmd(a))
	if Version != "" {
		rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
	}
	return rootCmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list PATH...",
		Short: "List the named functions of files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := utils.ExpandPaths(args)
			if err != nil {
				return err
			}

			results := make([][]parser.FunctionDescriptor, len(files))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(8)
			for i, file := range files {
				g.Go(func() error {
					fns, err := a.retriever.Functions(ctx, file)
					if err != nil {
						return err
					}
					results[i] = fns
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, file := range files {
				if len(files) > 1 {
					fmt.Fprintf(out, "%s:\n", file)
				}
				for _, fn := range results[i] {
					fmt.Fprintf(out, "%s line %d\n", fn.Signature(), fn.Line)
				}
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show PATH NAME...",
		Short: "Print the rebuilt source of named functions",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, names := args[0], args[1:]
			fns, err := a.retriever.RetrieveAll(cmd.Context(), path, names, synth.NewScope())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), fns[name].String())
			}
			return nil
		},
	}
}

func newCallCmd(a *app) *cobra.Command {
	var define string

	callCmd := &cobra.Command{
		Use:   "call PATH NAME [JSON_ARG...]",
		Short: "Rebuild a function and call it with JSON arguments",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, name := args[0], args[1]

			callArgs := make([]any, 0, len(args)-2)
			for _, raw := range args[2:] {
				var v any
				if err := json.Unmarshal([]byte(raw), &v); err != nil {
					return fmt.Errorf("argument %q is not valid JSON: %w", raw, err)
				}
				callArgs = append(callArgs, v)
			}

			scope := synth.NewScope()
			if define != "" {
				if _, err := scope.Run(define); err != nil {
					return fmt.Errorf("evaluating --define: %w", err)
				}
			}

			fn, err := a.retriever.Retrieve(cmd.Context(), path, name, scope)
			if err != nil {
				return err
			}
			result, err := fn.Invoke(callArgs...)
			if err != nil {
				return fmt.Errorf("calling %s: %w", name, err)
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	callCmd.Flags().StringVar(&define, "define", "", "JavaScript evaluated in the scope before the call")
	return callCmd
}

func newMCPCmd(a *app) *cobra.Command {
	var watch []string

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := mcp.NewServer(a.retriever, Version, a.logger)
			if len(watch) > 0 {
				if err := server.Watch(watch...); err != nil {
					return err
				}
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return server.Run(ctx)
		},
	}
	mcpCmd.Flags().StringSliceVar(&watch, "watch", nil, "Evict cached files under these paths when they change")
	return mcpCmd
}

// Execute runs the command tree with the process arguments.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}
