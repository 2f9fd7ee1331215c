// Package app holds the state shared by placesync commands: the viper
// instance, loaded settings, the central logger and telemetry lifecycle.
package app

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/locali/placesync/internal/buildinfo"
	"github.com/locali/placesync/internal/conf"
	"github.com/locali/placesync/internal/logger"
	"github.com/locali/placesync/internal/telemetry"
)

// App is created once per process by the root command.
type App struct {
	Info     *buildinfo.Context
	Settings *conf.Settings

	v          *viper.Viper
	configFile string
	logs       *logger.CentralLogger
	telemetry  bool
}

// New returns an App with a fresh viper instance.
func New(info *buildinfo.Context) *App {
	return &App{Info: info, v: viper.New()}
}

// RegisterGlobalFlags adds --config and --debug to fs.
func (a *App) RegisterGlobalFlags(fs *pflag.FlagSet) error {
	fs.StringVar(&a.configFile, "config", "", "Path to config file (default ./config.yaml)")
	fs.BoolP("debug", "d", false, "Enable debug output")
	return a.BindFlags(fs, map[string]string{"debug": "debug"})
}

// BindFlags binds flag names to viper keys. A flag only overrides the
// other sources when it is set on the command line.
func (a *App) BindFlags(fs *pflag.FlagSet, keys map[string]string) error {
	for flagName, key := range keys {
		f := fs.Lookup(flagName)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flagName)
		}
		if err := a.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("error binding flag %q: %w", flagName, err)
		}
	}
	return nil
}

// Init loads settings and starts logging and telemetry. It runs before any
// subcommand.
func (a *App) Init() error {
	settings, err := conf.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.Settings = settings

	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	logs, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	a.logs = logs

	enabled, err := telemetry.Init(telemetry.Config{
		DSN:         settings.Telemetry.SentryDSN,
		Environment: settings.Telemetry.Environment,
		Release:     a.Info.Version(),
		Debug:       settings.Debug,
	}, a.Logger("app"))
	if err != nil {
		return err
	}
	a.telemetry = enabled
	return nil
}

// Logger returns a module logger, or a discard logger before Init.
func (a *App) Logger(module string) logger.Logger {
	if a.logs == nil {
		return logger.NewDiscardLogger().Module(module)
	}
	return a.logs.Module(module)
}

// Close flushes telemetry and closes log files.
func (a *App) Close() error {
	if a.telemetry {
		telemetry.Flush(telemetry.DefaultFlushTimeout)
	}
	return a.logs.Close()
}
