// Command bamrun is the function entry point for bam-weather. Started with
// no subcommand it serves invocations from the Lambda runtime.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/charmbracelet/log"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/bamchoh/bamrun"
	"github.com/bamchoh/bamrun/internal/config"
	"github.com/bamchoh/bamrun/internal/invoke"
	"github.com/bamchoh/bamrun/internal/logging"
	bammcp "github.com/bamchoh/bamrun/internal/mcp"
	"github.com/bamchoh/bamrun/internal/record"
	"github.com/bamchoh/bamrun/internal/runner"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var failed *invocationFailed
		if !errors.As(err, &failed) {
			fmt.Fprintf(os.Stderr, "bamrun: %v\n", err)
		}
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:   "bamrun",
		Short: "Run bam-weather as a cloud function",
		Long: `bamrun launches ./bam-weather once per invocation, logs its output
streams and reports success or failure to the hosting platform.

Started without a subcommand it serves invocations from the Lambda runtime.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return lambdaMain(&g)
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default is ./"+config.FileName+")")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInvokeCmd(&g),
		newShowCmd(&g),
		newMCPCmd(&g),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), bamrun.Version)
			},
		},
	)
	return root
}

// --- lambda ---

func lambdaMain(g *globalFlags) error {
	app, err := newApp(g, os.Stderr)
	if err != nil {
		return err
	}
	lambda.Start(app.handler.Lambda())
	return nil
}

// --- invoke ---

// invocationFailed marks an invocation whose failure was already logged.
type invocationFailed struct {
	err error
}

func (e *invocationFailed) Error() string { return e.err.Error() }
func (e *invocationFailed) Unwrap() error { return e.err }

func newInvokeCmd(g *globalFlags) *cobra.Command {
	var eventPath string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Run one invocation locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			event, err := readEvent(eventPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			app, err := newApp(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := app.handler.Invoke(ctx, event)
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(out.Record); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Run: %s (%s)\n", out.Record.ID, out.Record.Status())
			}
			if out.Err != nil {
				return &invocationFailed{err: out.Err}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&eventPath, "event", "", "file holding the JSON event, or - for stdin (default {})")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the invocation record as JSON")
	return cmd
}

// readEvent loads the invocation event. The event is passed through
// untouched, so it only has to be valid JSON.
func readEvent(path string, stdin io.Reader) (json.RawMessage, error) {
	if path == "" {
		return json.RawMessage(`{}`), nil
	}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading event: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("event %s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

// --- show ---

func newShowCmd(g *globalFlags) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Print a stored invocation record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if app.archive == nil {
				return fmt.Errorf("no record store configured (set records.dir or records.s3 in %s)", config.FileName)
			}

			rec, err := app.archive.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			fmt.Fprint(cmd.OutOrStdout(), record.Format(rec))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the record as JSON")
	return cmd
}

// --- mcp ---

func newMCPCmd(g *globalFlags) *cobra.Command {
	var httpAddr string
	var instructions bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), bammcp.Instructions)
				return nil
			}

			// stdout carries the protocol; logs go to stderr.
			app, err := newApp(g, os.Stderr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			server := bammcp.NewServer(app.handler, app.store)
			if httpAddr != "" {
				return serveHTTP(ctx, app.logger, server, httpAddr)
			}
			return server.Run(ctx, &mcpsdk.StdioTransport{})
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "start HTTP server on address (e.g. :9090)")
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	return cmd
}

func serveHTTP(ctx context.Context, logger *log.Logger, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

// app wires the configured components together.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	handler *invoke.Handler
	store   *record.LRUStore
	archive record.Store // disk and/or S3; nil when neither is configured
}

func newApp(g *globalFlags, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Log
	if g.verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logOut, logCfg)
	if err != nil {
		return nil, err
	}

	archive, err := newArchive(cfg)
	if err != nil {
		return nil, err
	}
	store := record.NewLRUStore(cfg.CacheSize(), archive)

	r := &runner.Runner{
		Dir:       cfg.Dir,
		Timeout:   cfg.Timeout(),
		WaitDelay: cfg.WaitDelay(),
		MaxOutput: cfg.MaxOutputBytes(),
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		handler: &invoke.Handler{
			Runner:     r,
			Executable: cfg.ExecutablePath(),
			Logger:     logger,
			Store:      store,
		},
		store:   store,
		archive: archive,
	}, nil
}

func loadConfig(path string) (*config.Config, error) {
	var loaded *config.LoadResult
	var err error
	if path != "" {
		loaded, err = config.LoadFile(path)
	} else {
		var wd string
		wd, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining working directory: %w", err)
		}
		loaded, err = config.Load(wd)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return loaded.Config, nil
}

// newArchive returns the persistent record store, if any is configured.
func newArchive(cfg *config.Config) (record.Store, error) {
	var stores record.Tee
	if cfg.Records.Dir != "" {
		disk := record.NewDiskStore(cfg.Records.Dir)
		// Fail at startup rather than on the first save.
		if _, err := disk.Dir(); err != nil {
			return nil, err
		}
		stores = append(stores, disk)
	}
	if s3cfg := cfg.Records.S3; s3cfg.Enabled() {
		s, err := record.NewS3Store(s3cfg.Bucket, s3cfg.Region, s3cfg.KeyPrefix())
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}

	switch len(stores) {
	case 0:
		return nil, nil
	case 1:
		return stores[0], nil
	default:
		return stores, nil
	}
}
