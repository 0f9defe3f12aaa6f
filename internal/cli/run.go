package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/macropower/sweep/pkg/config"
	"github.com/macropower/sweep/pkg/history"
	"github.com/macropower/sweep/pkg/watch"
	"github.com/macropower/sweep/pkg/yaml"
)

const cmdExamples = `  # Print the run queue for a sweep configuration:
  sweep ./example/config.yaml

  # Print the effective merged configuration and exit:
  sweep ./example/config.yaml --show-config

  # Keep the queue consistent with the file while it is edited:
  sweep ./example/config.yaml --watch

  # Watch with filesystem notifications cutting the poll wait short:
  sweep ./example/config.yaml --watch --notify`

type RunArgs struct {
	*RootArgs

	ConfigPath string
	Interval   time.Duration
	Watch      bool
	Notify     bool
	ShowConfig bool
}

func NewRunArgs(rootArgs *RootArgs) *RunArgs {
	return &RunArgs{
		RootArgs: rootArgs,
	}
}

func (ra *RunArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&ra.Watch, "watch", "w", false, "Watch the configuration file and republish the queue on change")
	cmd.Flags().BoolVar(&ra.Notify, "notify", false, "Wake the watcher early on filesystem notifications")
	cmd.Flags().DurationVar(&ra.Interval, "interval", 0, "Poll interval, overrides meta.refresh_interval")
	cmd.Flags().BoolVar(&ra.ShowConfig, "show-config", false, "Print the effective configuration and exit")
}

func NewRunCmd(ra *RunArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run <config>",
		Short:   "Default command, enumerates the run queue for a configuration file",
		Example: cmdExamples,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ra.ConfigPath = args[0]

			return run(cmd, ra)
		},
	}
	ra.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func run(cmd *cobra.Command, ra *RunArgs) error {
	loader := watch.FileLoader(ra.ConfigPath)

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load %q: %w", ra.ConfigPath, err)
	}

	if ra.ShowConfig {
		return writeConfig(cmd, cfg)
	}

	if ra.Watch {
		return runWatch(cmd, ra, cfg)
	}

	return writeQueue(cmd, cfg)
}

// writeQueue derives the queue once, subtracts completed runs, and writes the
// result to stdout as a YAML sequence.
func writeQueue(cmd *cobra.Command, cfg *config.Config) error {
	engine, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	rows, err := history.Read(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("read run record: %w", err)
	}

	for _, row := range rows {
		engine.RemoveCompleted(row)
	}

	queue, _ := engine.RunConfigs()
	slog.Info("derived run queue",
		slog.Int("runs", len(queue)),
		slog.Any("permutable", engine.PermutableKeys()),
	)

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	defer enc.Close() //nolint:errcheck // Ignore errors.

	err = enc.Encode(queue)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}

	return nil
}

// writeConfig prints the effective merged document, in document order.
func writeConfig(cmd *cobra.Command, cfg *config.Config) error {
	out := yaml.MapSlice{}
	for _, entry := range cfg.Document.Entries() {
		if entry.Value.IsList() {
			out = append(out, yaml.MapItem{Key: entry.Key, Value: entry.Value.Scalars()})
		} else {
			out = append(out, yaml.MapItem{Key: entry.Key, Value: entry.Value.Scalar()})
		}
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	defer enc.Close() //nolint:errcheck // Ignore errors.

	err := enc.Encode(out)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}

// runWatch runs the watcher until the command context is canceled, logging
// every republication.
func runWatch(cmd *cobra.Command, ra *RunArgs, cfg *config.Config) error {
	interval := cfg.Meta.Interval()
	if ra.Interval > 0 {
		interval = ra.Interval
	}

	opts := []watch.Opt{watch.WithInterval(interval)}
	if ra.Notify {
		opts = append(opts, watch.WithNotify())
	}

	w := watch.New(ra.ConfigPath, watch.FileLoader(ra.ConfigPath), opts...)

	err := w.Start()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	snap := w.Snapshot()
	slog.Info("watching configuration",
		slog.String("path", ra.ConfigPath),
		slog.Duration("interval", interval),
		slog.Int("runs", len(snap.Queue)),
	)

	ctx := cmd.Context()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			<-w.Done()

			return nil

		case <-ticker.C:
			if w.ConsumeChangeFlag() {
				snap := w.Snapshot()
				slog.Info("run queue republished",
					slog.Int64("version", snap.Version),
					slog.Int("runs", len(snap.Queue)),
					slog.Any("permutable", snap.Engine.PermutableKeys()),
				)
			}
		}
	}
}
