// Command oysterd reads Oyster GPS uplinks from stdin, a file, a TCP feed or
// a serial gateway and writes decoded uplink records as JSON lines.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/skobkin/oystergo/internal/app"
	"github.com/skobkin/oystergo/internal/config"
	"github.com/skobkin/oystergo/internal/platform"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("run oysterd", "error", err)
		stop()
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath  string
	connector   string
	host        string
	port        int
	serialPort  string
	baud        int
	file        string
	output      string
	integration string
	deviceType  string
	logLevel    string
	logFormat   string
	noLock      bool
	saveConfig  bool
	version     bool
}

func parseFlags(args []string, stderr io.Writer) (*pflag.FlagSet, cliFlags, error) {
	var f cliFlags
	fs := pflag.NewFlagSet("oysterd", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&f.configPath, "config", "c", "", "config file (.json, .yaml, .yml or .toml); defaults to the user config dir")
	fs.StringVar(&f.connector, "connector", "", "input connector: stdin, file, ip, serial")
	fs.StringVar(&f.host, "host", "", "TCP host for the ip connector")
	fs.IntVar(&f.port, "port", 0, "TCP port for the ip connector")
	fs.StringVar(&f.serialPort, "serial-port", "", "serial device for the serial connector")
	fs.IntVar(&f.baud, "baud", 0, "serial baud rate")
	fs.StringVarP(&f.file, "file", "f", "", "input file for the file connector")
	fs.StringVarP(&f.output, "output", "o", "", "output path or strftime pattern, '-' for stdout")
	fs.StringVar(&f.integration, "integration-name", "", "integration name written into uplink attributes")
	fs.StringVar(&f.deviceType, "device-type", "", "device type written into uplink records")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json")
	fs.BoolVar(&f.noLock, "no-lock", false, "skip the single-instance lock")
	fs.BoolVar(&f.saveConfig, "save-config", false, "write the effective config back to the config file")
	fs.BoolVarP(&f.version, "version", "V", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, cliFlags{}, err
	}
	if fs.NArg() > 0 {
		return nil, cliFlags{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	return fs, f, nil
}

// applyOverrides copies every flag the user set explicitly over cfg.
func applyOverrides(fs *pflag.FlagSet, f cliFlags, cfg *config.AppConfig) {
	if fs.Changed("connector") {
		cfg.Connection.Connector = config.ConnectorType(strings.ToLower(strings.TrimSpace(f.connector)))
	}
	if fs.Changed("host") {
		cfg.Connection.Host = strings.TrimSpace(f.host)
	}
	if fs.Changed("port") {
		cfg.Connection.Port = f.port
	}
	if fs.Changed("serial-port") {
		cfg.Connection.SerialPort = strings.TrimSpace(f.serialPort)
	}
	if fs.Changed("baud") {
		cfg.Connection.SerialBaud = f.baud
	}
	if fs.Changed("file") {
		cfg.Connection.FilePath = strings.TrimSpace(f.file)
		if !fs.Changed("connector") {
			cfg.Connection.Connector = config.ConnectorFile
		}
	}
	if fs.Changed("output") {
		cfg.Output.Path = f.output
	}
	if fs.Changed("integration-name") {
		cfg.Output.IntegrationName = f.integration
	}
	if fs.Changed("device-type") {
		cfg.Output.DeviceType = f.deviceType
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Logging.Format = config.LogFormat(f.logFormat)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if f.version {
		_, _ = fmt.Fprintf(stdout, "oysterd %s\n", app.BuildVersionWithDate())
		return nil
	}

	paths, err := resolvePaths(f.configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(fs, f, &cfg)
	cfg.FillMissingDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if f.saveConfig {
		if err := config.Save(paths.ConfigFile, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}

	if !f.noLock {
		lock, err := platform.AcquireInstanceLock(app.Name, app.ConnectionTarget(cfg.Connection))
		switch {
		case errors.Is(err, platform.ErrInstanceAlreadyRunning):
			return fmt.Errorf("another oysterd already reads %s", app.ConnectionTarget(cfg.Connection))
		case errors.Is(err, platform.ErrInstanceLockUnsupported):
			slog.Warn("single-instance lock unavailable", "error", err)
		case err != nil:
			return fmt.Errorf("acquire instance lock: %w", err)
		default:
			defer func() { _ = lock.Release() }()
		}
	}

	opts := app.Options{LogConsole: stderr}
	if cfg.Output.Path == "" || cfg.Output.Path == "-" {
		opts.Output = stdout
	}
	rt, err := app.Initialize(ctx, paths, cfg, opts)
	if err != nil {
		return err
	}
	logger := rt.LogManager.Logger("oysterd")
	logger.Info("reading uplinks",
		"connector", cfg.Connection.Connector,
		"target", app.ConnectionTarget(cfg.Connection),
		"output", cfg.Output.Path,
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down", "reason", context.Cause(ctx))
	case <-rt.Done():
		logger.Info("input finished")
	}

	rt.Stop()
	rt.LogSnapshot(logger)
	if closeErr := rt.Close(); closeErr != nil {
		return fmt.Errorf("close runtime: %w", closeErr)
	}

	return nil
}

func resolvePaths(configPath string) (app.Paths, error) {
	if configPath != "" {
		return app.Paths{}.WithConfigFile(configPath), nil
	}

	paths, err := app.ResolvePaths()
	if err != nil {
		return app.Paths{}, fmt.Errorf("resolve paths: %w", err)
	}

	return paths, nil
}
