package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Preset is a material heat-up preset shown on the panel.
type Preset struct {
	Name   string `toml:"name" json:"name"`
	Nozzle int    `toml:"nozzle" json:"nozzle"`
	Bed    int    `toml:"bed" json:"bed"`
}

// Config captures everything roost reads at startup. It is copied into each
// component and never mutated afterwards.
type Config struct {
	Host         string
	Port         string
	Tool         string
	StatusMacro  string
	ProbeTimeout time.Duration
	LogLevel     string
	LogFile      string
	APIListen    string
	Presets      []Preset
}

const (
	defaultConfigPath   = "~/.config/roost/config.toml"
	defaultLogFile      = "~/.local/state/roost/roost.log"
	defaultPort         = "7125"
	defaultTool         = "tool0"
	defaultStatusMacro  = "_CROWPANEL_STATUS"
	defaultLogLevel     = "info"
	defaultProbeTimeout = time.Second
)

// DefaultPresets mirrors the two buttons of the stock panel.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "PLA", Nozzle: 220, Bed: 40},
		{Name: "ABS", Nozzle: 250, Bed: 100},
	}
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Port:         defaultPort,
		Tool:         defaultTool,
		StatusMacro:  defaultStatusMacro,
		ProbeTimeout: defaultProbeTimeout,
		LogLevel:     defaultLogLevel,
		LogFile:      mustExpand(defaultLogFile),
		Presets:      DefaultPresets(),
	}
}

type rawConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFile   string `toml:"log_file"`
	Moonraker struct {
		Host        string `toml:"host"`
		Port        string `toml:"port"`
		Tool        string `toml:"tool"`
		StatusMacro string `toml:"status_macro"`
	} `toml:"moonraker"`
	Link struct {
		ProbeTimeoutMS int `toml:"probe_timeout_ms"`
	} `toml:"link"`
	API struct {
		Listen string `toml:"listen"`
	} `toml:"api"`
	Presets []Preset `toml:"preset"`
}

// Load locates and parses the roost config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Host = strings.TrimSpace(raw.Moonraker.Host)
	cfg.Port = orDefault(raw.Moonraker.Port, defaultPort)
	cfg.Tool = orDefault(raw.Moonraker.Tool, defaultTool)
	cfg.StatusMacro = orDefault(raw.Moonraker.StatusMacro, defaultStatusMacro)
	cfg.LogLevel = orDefault(raw.LogLevel, defaultLogLevel)
	cfg.LogFile = mustExpand(orDefault(raw.LogFile, defaultLogFile))
	cfg.APIListen = strings.TrimSpace(raw.API.Listen)
	if raw.Link.ProbeTimeoutMS > 0 {
		cfg.ProbeTimeout = time.Duration(raw.Link.ProbeTimeoutMS) * time.Millisecond
	}

	if presets := cleanPresets(raw.Presets); len(presets) > 0 {
		cfg.Presets = presets
	}

	return cfg, nil
}

// Validate reports configuration that would keep the client from ever
// reaching the printer host.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("moonraker.host is not set")
	}
	if _, err := net.LookupPort("tcp", c.Port); err != nil {
		return fmt.Errorf("moonraker.port %q: %w", c.Port, err)
	}
	return nil
}

// Address returns host:port for dialing the printer host.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func cleanPresets(in []Preset) []Preset {
	var out []Preset
	for _, p := range in {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" || p.Nozzle < 0 || p.Bed < 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
