package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ConnectorType identifies which transport feeds uplink lines.
type ConnectorType string

// LogFormat selects the slog handler.
type LogFormat string

const (
	ConnectorStdin  ConnectorType = "stdin"
	ConnectorFile   ConnectorType = "file"
	ConnectorIP     ConnectorType = "ip"
	ConnectorSerial ConnectorType = "serial"

	DefaultIPPort     = 4404
	DefaultSerialBaud = 115200

	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"

	DefaultDeviceType = "Oyster GPS"
)

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level     string    `json:"level" yaml:"level" toml:"level"`
	Format    LogFormat `json:"format" yaml:"format" toml:"format"`
	LogToFile bool      `json:"log_to_file" yaml:"log_to_file" toml:"log_to_file"`
}

// ConnectionConfig contains connector-specific connection parameters.
type ConnectionConfig struct {
	Connector  ConnectorType `json:"connector" yaml:"connector" toml:"connector"`
	Host       string        `json:"host" yaml:"host" toml:"host"`
	Port       int           `json:"port" yaml:"port" toml:"port"`
	SerialPort string        `json:"serial_port" yaml:"serial_port" toml:"serial_port"`
	SerialBaud int           `json:"serial_baud" yaml:"serial_baud" toml:"serial_baud"`
	FilePath   string        `json:"file_path" yaml:"file_path" toml:"file_path"`
}

// OutputConfig controls where decoded uplinks go and how they are labelled.
type OutputConfig struct {
	// Path is a file path or strftime pattern; empty or "-" means stdout.
	Path            string `json:"path" yaml:"path" toml:"path"`
	IntegrationName string `json:"integration_name" yaml:"integration_name" toml:"integration_name"`
	DeviceType      string `json:"device_type" yaml:"device_type" toml:"device_type"`
}

// AppConfig is the root application configuration.
type AppConfig struct {
	Connection ConnectionConfig `json:"connection" yaml:"connection" toml:"connection"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging" toml:"logging"`
	Output     OutputConfig     `json:"output" yaml:"output" toml:"output"`
}

func Default() AppConfig {
	return AppConfig{
		Connection: ConnectionConfig{
			Connector:  ConnectorStdin,
			Host:       "",
			Port:       DefaultIPPort,
			SerialPort: "",
			SerialBaud: DefaultSerialBaud,
			FilePath:   "",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    LogFormatText,
			LogToFile: false,
		},
		Output: OutputConfig{
			Path:            "-",
			IntegrationName: "",
			DeviceType:      DefaultDeviceType,
		},
	}
}

// Load reads path as YAML when it ends in .yaml/.yml, as TOML when it ends in
// .toml and as JSON otherwise.
// A missing file yields defaults.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path comes from the operator via flag or user config dir.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	format := formatForPath(cleanPath)
	switch format {
	case formatYAML:
		err = yaml.Unmarshal(raw, &cfg)
	case formatTOML:
		err = toml.Unmarshal(raw, &cfg)
	default:
		err = json.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return AppConfig{}, fmt.Errorf("decode config %s: %w", format, err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *AppConfig) FillMissingDefaults() {
	if c.Connection.Connector == "" {
		c.Connection.Connector = ConnectorStdin
	}
	if c.Connection.Port <= 0 {
		c.Connection.Port = DefaultIPPort
	}
	if c.Connection.SerialBaud <= 0 {
		c.Connection.SerialBaud = DefaultSerialBaud
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Format = normalizeLogFormat(c.Logging.Format)
	if strings.TrimSpace(c.Output.Path) == "" {
		c.Output.Path = "-"
	}
	if strings.TrimSpace(c.Output.DeviceType) == "" {
		c.Output.DeviceType = DefaultDeviceType
	}
}

func normalizeLogFormat(format LogFormat) LogFormat {
	switch LogFormat(strings.ToLower(string(format))) {
	case LogFormatJSON:
		return LogFormatJSON
	default:
		return LogFormatText
	}
}

func (c AppConfig) Validate() error {
	switch c.Connection.Connector {
	case ConnectorStdin:
	case ConnectorFile:
		if strings.TrimSpace(c.Connection.FilePath) == "" {
			return errors.New("file path is required")
		}
	case ConnectorIP:
		if strings.TrimSpace(c.Connection.Host) == "" {
			return errors.New("ip host is required")
		}
		if c.Connection.Port <= 0 || c.Connection.Port > 65535 {
			return fmt.Errorf("ip port out of range: %d", c.Connection.Port)
		}
	case ConnectorSerial:
		if strings.TrimSpace(c.Connection.SerialPort) == "" {
			return errors.New("serial port is required")
		}
		if c.Connection.SerialBaud <= 0 {
			return errors.New("serial baud must be positive")
		}
	default:
		return fmt.Errorf("unknown connector: %s", c.Connection.Connector)
	}

	return nil
}

func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var (
		raw []byte
		err error
	)
	switch formatForPath(path) {
	case formatYAML:
		raw, err = yaml.Marshal(cfg)
	case formatTOML:
		raw, err = toml.Marshal(cfg)
	default:
		raw, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatTOML = "toml"
)

// formatForPath picks the encoding from the file extension; anything unknown is JSON.
func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".toml":
		return formatTOML
	default:
		return formatJSON
	}
}
