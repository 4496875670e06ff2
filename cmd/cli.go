// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"render/internal/audio"
	"render/internal/config"
	"render/internal/control"
	"render/internal/log"
	"render/internal/project"
	"render/internal/transport"
	"render/internal/transport/udp"
	"render/pkg/build"

	"github.com/spf13/cobra"
)

// Options holds the flags shared by every subcommand.
type Options struct {
	ProjectPath string
	OutputFile  string
	Duration    float64
	DeviceID    int
	Verbose     bool
	JSON        bool
}

// NewRootCommand assembles the command tree. Output from subcommands goes to
// the command's configured writer so tests can capture it.
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	options := &Options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Offline audio graph renderer",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}

	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&options.ProjectPath, "project", "p", "",
		"Project file describing engine, processors and graph (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")

	// Render command
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render the project graph to a WAV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.OutOrStdout(), options)
		},
	}
	renderCmd.Flags().StringVarP(&options.OutputFile, "output", "o", "",
		"Output file name, overrides the project output path")
	renderCmd.Flags().Float64VarP(&options.Duration, "duration", "d", 0,
		"Seconds to render, overrides the project duration")
	rootCmd.AddCommand(renderCmd)

	// Params command
	paramsCmd := &cobra.Command{
		Use:   "params [processor...]",
		Short: "List processor parameters declared by the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParams(cmd.OutOrStdout(), options, args)
		},
	}
	paramsCmd.Flags().BoolVar(&options.JSON, "json", false, "Print descriptions as JSON")
	rootCmd.AddCommand(paramsCmd)

	// Devices command
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPortAudio(func() error {
				return audio.ListDevices(cmd.OutOrStdout())
			})
		},
	}
	rootCmd.AddCommand(devicesCmd)

	// Preview command
	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the project and play it on an output device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), options)
		},
	}
	previewCmd.Flags().IntVarP(&options.DeviceID, "device", "D", -1,
		"Output device ID, -1 for the default. Use 'devices' to see available devices.")
	previewCmd.Flags().Float64VarP(&options.Duration, "duration", "d", 0,
		"Seconds to render, overrides the project duration")
	rootCmd.AddCommand(previewCmd)

	// MCP command
	serveCmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the project engine over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(options)
		},
	}
	rootCmd.AddCommand(serveCmd)

	return rootCmd
}

// Execute runs the CLI against os.Args and cancels on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	rootCmd.SetArgs(os.Args[1:])
	return rootCmd.ExecuteContext(ctx)
}

// loadProject reads the project and applies the logging settings it carries.
func loadProject(options *Options) (*project.Project, error) {
	p, err := project.Load(options.ProjectPath)
	if err != nil {
		return nil, err
	}
	cfg := p.Config
	if err := log.Configure(cfg.LogLevel, cfg.Debug || options.Verbose); err != nil {
		log.Warnf("%v", err)
	}
	if options.Duration > 0 {
		cfg.Engine.Duration = options.Duration
	}
	if options.OutputFile != "" {
		// Flag paths are relative to the working directory, not the project.
		abs, err := filepath.Abs(options.OutputFile)
		if err != nil {
			return nil, err
		}
		cfg.Output.Path = abs
	}
	return p, nil
}

// transports builds the report sinks enabled in cfg. The returned transport
// is nil when none are enabled.
func transports(cfg config.TransportConfig) (transport.Transport, error) {
	var multi transport.Multi

	if cfg.UDPEnabled {
		sender, err := udp.NewSender(cfg.UDPTargetAddress)
		if err != nil {
			return nil, err
		}
		publisher, err := udp.NewPublisher(cfg.UDPSendInterval, sender)
		if err != nil {
			_ = sender.Close()
			return nil, err
		}
		publisher.Start()
		multi = append(multi, publisher)
	}

	if cfg.WebSocketAddress != "" {
		ws, err := transport.NewWebSocketTransport(cfg.WebSocketAddress)
		if err != nil {
			_ = multi.Close()
			return nil, err
		}
		log.Infof("render reports on ws://%s/ws", ws.Addr())
		multi = append(multi, ws)
	}

	if cfg.LogReports {
		multi = append(multi, transport.NewLoggingTransport())
	}

	if len(multi) == 0 {
		return nil, nil
	}
	return multi, nil
}

// buildEngine loads the project and returns its engine plus a cleanup that
// closes the engine before the transports it reports to.
func buildEngine(options *Options) (*project.Project, *audio.Engine, func(), error) {
	p, err := loadProject(options)
	if err != nil {
		return nil, nil, nil, err
	}

	tr, err := transports(p.Config.Transport)
	if err != nil {
		return nil, nil, nil, err
	}

	var opts []audio.Option
	if tr != nil {
		opts = append(opts, audio.WithTransport(tr))
	}
	e, err := p.Build(opts...)
	if err != nil {
		if tr != nil {
			_ = tr.Close()
		}
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := e.Close(); err != nil {
			log.Errorf("Error closing engine: %v", err)
		}
		if tr != nil {
			if err := tr.Close(); err != nil {
				log.Errorf("Error closing transport: %v", err)
			}
		}
	}
	return p, e, cleanup, nil
}

func runRender(w io.Writer, options *Options) error {
	p, e, cleanup, err := buildEngine(options)
	if err != nil {
		return err
	}
	defer cleanup()

	path, err := p.Render(e)
	if err != nil {
		return err
	}
	seconds := float64(e.Samples()) / float64(e.SampleRate())
	if path == "" {
		fmt.Fprintf(w, "Rendered %.3fs (%d samples), no output path set\n", seconds, e.Samples())
		return nil
	}
	fmt.Fprintf(w, "Rendered %.3fs (%d samples) to %s\n", seconds, e.Samples(), path)
	return nil
}

func runParams(w io.Writer, options *Options, names []string) error {
	_, e, cleanup, err := buildEngine(options)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(names) == 0 {
		names = e.ProcessorNames()
	}

	if options.JSON {
		out := make(map[string]any, len(names))
		for _, name := range names {
			proc, err := e.Processor(name)
			if err != nil {
				return err
			}
			out[name] = proc.ParametersDescription()
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		proc, err := e.Processor(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s (%s)\n", name, proc.Kind())
		descs := proc.ParametersDescription()
		if len(descs) == 0 {
			fmt.Fprintf(tw, "\t(no parameters)\n")
			continue
		}
		for _, d := range descs {
			fmt.Fprintf(tw, "\t%d\t%s\t%s\t[%g, %g]\n", d.Index, d.Name, d.Text, d.Min, d.Max)
		}
	}
	return tw.Flush()
}

func runPreview(ctx context.Context, options *Options) error {
	p, e, cleanup, err := buildEngine(options)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := p.Render(e); err != nil {
		return err
	}
	return withPortAudio(func() error {
		err := e.Preview(ctx, options.DeviceID)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

func runServe(options *Options) error {
	// stdout carries the protocol.
	log.SetOutput(os.Stderr)

	_, e, cleanup, err := buildEngine(options)
	if err != nil {
		return err
	}
	defer cleanup()

	return control.New(e, build.GetBuildFlags().Version).ServeStdio()
}

func withPortAudio(fn func() error) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := audio.Terminate(); err != nil {
			log.Errorf("%v", err)
		}
	}()
	return fn()
}
