package main

import (
	"fmt"
	"io"
	"log/slog"

	"paqman/pkg/config"
	"paqman/pkg/core"
	"paqman/pkg/engine"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// app carries what the commands share once the configuration is loaded.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

// run executes the command line. A failure is reported as one line on
// stderr and returned.
func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		log.NewWithOptions(stderr, log.Options{Prefix: config.AppName}).Error(err.Error())
		return err
	}
	return nil
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "paqman",
		Short: "Pack files and directories into compressed archives",
		Long: `Pack files and directories into compressed archives.

Methods run from 0 (store only) through 5 (best compression):
  0 store   1 lz4   2 lz4-hc   3 zstd   4 zstd-better   5 zstd-best`,
		Example: `  paqman c photos photos.pqm 3
  paqman l photos.pqm
  paqman d photos.pqm restored`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.DisableSuggestions = true

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/paqman/paqman.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("progress", false, "log progress while running")

	root.AddCommand(
		a.newCompressCommand(),
		a.newDecompressCommand(),
		a.newListCommand(),
	)
	return root
}

// setup loads the configuration and builds the logger for every command.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, path, err := config.Load(config.LoadOptions{
		ConfigFilePath: a.configFile,
		Flags:          cmd.Flags(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	handler := log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  cfg.Level(),
	})
	a.logger = slog.New(handler)
	if path != "" {
		a.logger.Debug("loaded config", "path", path)
	}
	return nil
}

func (a *app) options(m engine.Method) core.Options {
	return core.Options{
		Method:     m,
		ChunkSize:  a.cfg.ChunkSize,
		SkipVerify: !a.cfg.Verify,
		Progress:   a.cfg.Progress,
		Logger:     a.logger,
	}
}

func (a *app) newCompressCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "c <input> <output> [method]",
		Aliases: []string{"compress"},
		Short:   "Compress a file or directory into an archive",
		Args:    cobra.RangeArgs(2, 3),
		RunE: func(_ *cobra.Command, args []string) error {
			m := a.cfg.MethodValue()
			if len(args) == 3 {
				parsed, err := engine.ParseMethod(args[2])
				if err != nil {
					return err
				}
				m = parsed
			}
			return core.Compress(args[0], args[1], a.options(m))
		},
	}
}

func (a *app) newDecompressCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "d <input> <output_dir>",
		Aliases: []string{"decompress"},
		Short:   "Extract an archive beneath a directory",
		Args:    cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return core.Decompress(args[0], args[1], a.options(a.cfg.MethodValue()))
		},
	}
}

func (a *app) newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "l <input>",
		Aliases: []string{"list"},
		Short:   "List the names stored in an archive",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			for name, err := range core.List(args[0], a.options(a.cfg.MethodValue())) {
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(a.stdout, name); err != nil {
					return fmt.Errorf("write listing: %w", err)
				}
			}
			return nil
		},
	}
}
