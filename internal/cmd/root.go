// Package cmd implements the typedbus command line.
package cmd

import (
	"github.com/goclaw/typedbus/config"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	port       int
}

// overrides maps the flags that were set onto config keys. They take
// precedence over the file and the environment.
func (o *rootOptions) overrides() map[string]any {
	overrides := make(map[string]any)
	if o.logLevel != "" {
		overrides["log.level"] = o.logLevel
	}
	if o.port != 0 {
		overrides["server.port"] = o.port
	}
	return overrides
}

func (o *rootOptions) load() (*config.Config, *config.Loader, error) {
	loader := config.NewLoader()
	cfg, err := loader.Load(o.configPath, o.overrides())
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "typedbus",
		Short: "In-process typed event bus",
		Long: `typedbus runs a typed publish/subscribe bus with named delivery lanes,
an introspection HTTP server, Prometheus metrics and OpenTelemetry tracing.

Configuration is read from a YAML or JSON file, TYPEDBUS_* environment
variables and the flags below, in increasing order of precedence.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default is ./typedbus.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	root.PersistentFlags().IntVar(&opts.port, "port", 0, "override introspection server port")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newConfigCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
