// Lumen is a lighting control server: it merges every control input with
// highest-takes-precedence, streams DMX over sACN or Art-Net and keeps any
// number of browser dashboards in sync over a WebSocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gitlab.com/gomidi/midi/v2"

	"github.com/nerrad567/lumen-core/internal/infrastructure/config"
)

// Version information, set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is used when neither --config nor LUMEN_CONFIG is set.
// A missing default file is not an error; built-in defaults apply.
const defaultConfigPath = "configs/lumen.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer midi.CloseDriver()

	if err := newRootCommand().ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	serve := newServeCommand(v)
	root := &cobra.Command{
		Use:           "lumen",
		Short:         "Lumen lighting control server",
		SilenceErrors: true,
		Example: `
  # Serve with configs/lumen.yaml (or built-in defaults)
  lumen

  # Explicit config and a pre-built UI
  lumen serve --config /etc/lumen/lumen.yaml --ui-dir /usr/share/lumen/ui

  # Show interfaces usable as output bind addresses and MIDI inputs
  lumen interfaces
`,
		RunE: serve.RunE,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to YAML config file (env LUMEN_CONFIG, default "+defaultConfigPath+")")
	if err := v.BindPFlag("config", root.PersistentFlags().Lookup("config")); err != nil {
		panic(err)
	}
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newInterfacesCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lighting server (default command)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cfg, path, err := loadConfig(v.GetString("config"))
			if err != nil {
				return err
			}
			if err := applyFlagOverrides(cmd.Flags(), cfg); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, path)
		},
	}
	flags := cmd.Flags()
	flags.Int("port", 0, "HTTP port (overrides api.port)")
	flags.String("ui-dir", "", "pre-built UI directory (overrides api.ui_dir)")
	flags.String("show", "", "show document path for the file backend (overrides show.path)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	return cmd
}

// applyFlagOverrides copies explicitly set serve flags onto cfg and
// revalidates.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("port") {
		port, err := flags.GetInt("port")
		if err != nil {
			return err
		}
		cfg.API.Port = port
	}
	if flags.Changed("ui-dir") {
		dir, err := flags.GetString("ui-dir")
		if err != nil {
			return err
		}
		cfg.API.UIDir = dir
	}
	if flags.Changed("show") {
		path, err := flags.GetString("show")
		if err != nil {
			return err
		}
		cfg.Show.Path = path
	}
	if flags.Changed("log-level") {
		level, err := flags.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating flags: %w", err)
	}
	return nil
}

// loadConfig loads path, or the default path when empty. It falls back to
// built-in defaults only when the default file does not exist; an explicit
// path must exist. The returned path is "" for built-in defaults.
func loadConfig(path string) (*config.Config, string, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = defaultConfigPath
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			cfg, err := config.Default()
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
		return nil, "", fmt.Errorf("config file %q: %w", path, err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}
