package main

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/lanikai/alohasrc"
	"github.com/lanikai/alohasrc/internal/config"
	"github.com/lanikai/alohasrc/internal/logging"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func (f *rootFlags) register(fs *flag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Config file (default: $"+config.EnvConfigPath+")")
	fs.StringVarP(&f.logLevel, "log-level", "l", "", "Log level directives, e.g. debug,httpsrc=trace")
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "alohasrc",
		Short:         "Inspect and read from the alohasrc source plugins",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return initPlugin(cfg)
		},
	}
	cmd.SetHelpFunc(helpFunc(cmd.HelpFunc()))

	flags.register(cmd.PersistentFlags())

	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newCatCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func loadConfig(flags *rootFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.configPath != "" {
		cfg, err = config.Load(flags.configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}

	directives := cfg.LogLevel
	if flags.logLevel != "" {
		directives = flags.logLevel
	}
	if directives != "" {
		if err := logging.Configure(directives); err != nil {
			return nil, errors.Wrap(err, "log level")
		}
	}
	return cfg, nil
}

// The factory registry lives for the whole process, so the plugin is
// initialized by the first command that runs.
var pluginOnce struct {
	sync.Once
	err error
}

func initPlugin(cfg *config.Config) error {
	pluginOnce.Do(func() {
		pluginOnce.err = alohasrc.PluginInit(alohasrc.NewPlugin(), cfg)
	})
	return pluginOnce.err
}
