package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/mcprelay/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server  ServerConfig  `koanf:"server" yaml:"server"`
	Models  ModelsConfig  `koanf:"models" yaml:"models"`
	MCP     MCPConfig     `koanf:"mcp" yaml:"mcp"`
	Relay   RelayConfig   `koanf:"relay" yaml:"relay"`
	Weather WeatherConfig `koanf:"weather" yaml:"weather"`
	Daemon  DaemonConfig  `koanf:"daemon" yaml:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port" yaml:"port"`
	LogLevel        string `koanf:"log_level" yaml:"log_level"`
	ReadTimeout     string `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ModelsConfig selects models. Fallback serves requests for models missing
// from the registry; a failed request is never resent to it.
type ModelsConfig struct {
	Default  string          `koanf:"default" yaml:"default"`
	Fallback string          `koanf:"fallback" yaml:"fallback"`
	Registry []ModelRegistry `koanf:"registry" yaml:"registry"`
}

type ModelRegistry struct {
	Name     string `koanf:"name" yaml:"name"`
	Provider string `koanf:"provider" yaml:"provider"`
	BaseURL  string `koanf:"base_url" yaml:"base_url,omitempty"`
	APIKey   string `koanf:"api_key" yaml:"api_key,omitempty"`
}

// MCPConfig describes how to reach the tool provider.
type MCPConfig struct {
	// Transport is a transport spec: "stdio://cmd args", "sse://host/path",
	// "http+sse://...", "http(s)://..." (streamable) or a bare command line.
	Transport      string `koanf:"transport" yaml:"transport"`
	Workdir        string `koanf:"workdir" yaml:"workdir,omitempty"`
	ClientName     string `koanf:"client_name" yaml:"client_name"`
	ClientVersion  string `koanf:"client_version" yaml:"client_version"`
	ConnectTimeout string `koanf:"connect_timeout" yaml:"connect_timeout"`
	PingSchedule   string `koanf:"ping_schedule" yaml:"ping_schedule"`
	PingTimeout    string `koanf:"ping_timeout" yaml:"ping_timeout"`
}

type RelayConfig struct {
	UnavailableMessage string `koanf:"unavailable_message" yaml:"unavailable_message"`
	ErrorPrefix        string `koanf:"error_prefix" yaml:"error_prefix"`
	ParallelToolCalls  bool   `koanf:"parallel_tool_calls" yaml:"parallel_tool_calls"`
}

type WeatherConfig struct {
	BaseURL   string `koanf:"base_url" yaml:"base_url"`
	APIKey    string `koanf:"api_key" yaml:"api_key,omitempty"`
	Timeout   string `koanf:"timeout" yaml:"timeout"`
	Transport string `koanf:"transport" yaml:"transport"`
	Addr      string `koanf:"addr" yaml:"addr"`
}

type DaemonConfig struct {
	ShutdownTimeout        string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	HealthCheckInterval    string `koanf:"health_check_interval" yaml:"health_check_interval"`
	StartupShutdownTimeout string `koanf:"startup_shutdown_timeout" yaml:"startup_shutdown_timeout"`
}

const (
	DefaultServerPort                   = 8000
	DefaultServerLogLevel               = "info"
	DefaultServerReadTimeout            = "10s"
	DefaultServerWriteTimeout           = "120s"
	DefaultServerIdleTimeout            = "60s"
	DefaultServerShutdownTimeout        = "5s"
	DefaultModelDefault                 = "gpt-4o"
	DefaultModelFallback                = ""
	DefaultOpenAIBaseURL                = "https://api.openai.com/v1"
	DefaultOllamaBaseURL                = "http://localhost:11434/v1"
	DefaultOllamaAPIKey                 = "ollama"
	DefaultMCPTransport                 = "stdio://mcprelay weather serve"
	DefaultMCPClientName                = "mcprelay"
	DefaultMCPClientVersion             = "1.0.0"
	DefaultMCPConnectTimeout            = "30s"
	DefaultMCPPingSchedule              = "@every 1m"
	DefaultMCPPingTimeout               = "5s"
	DefaultRelayUnavailableMessage      = "MCP server is not connected. Please try again later."
	DefaultRelayErrorPrefix             = "An error occurred: "
	DefaultRelayParallelToolCalls       = false
	DefaultWeatherBaseURL               = "https://api.openweathermap.org/data/2.5/weather"
	DefaultWeatherTimeout               = "10s"
	DefaultWeatherTransport             = "stdio"
	DefaultWeatherAddr                  = "0.0.0.0:6277"
	DefaultDaemonShutdownTimeout        = "30s"
	DefaultDaemonHealthCheckInterval    = "30s"
	DefaultDaemonStartupShutdownTimeout = "10s"
)

// DefaultConfigPath is $HOME/.mcprelay/config.yaml, or empty when HOME is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mcprelay", "config.yaml")
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"server.port":                     DefaultServerPort,
		"server.log_level":                DefaultServerLogLevel,
		"server.read_timeout":             DefaultServerReadTimeout,
		"server.write_timeout":            DefaultServerWriteTimeout,
		"server.idle_timeout":             DefaultServerIdleTimeout,
		"server.shutdown_timeout":         DefaultServerShutdownTimeout,
		"models.default":                  DefaultModelDefault,
		"models.fallback":                 DefaultModelFallback,
		"mcp.transport":                   DefaultMCPTransport,
		"mcp.client_name":                 DefaultMCPClientName,
		"mcp.client_version":              DefaultMCPClientVersion,
		"mcp.connect_timeout":             DefaultMCPConnectTimeout,
		"mcp.ping_schedule":               DefaultMCPPingSchedule,
		"mcp.ping_timeout":                DefaultMCPPingTimeout,
		"relay.unavailable_message":       DefaultRelayUnavailableMessage,
		"relay.error_prefix":              DefaultRelayErrorPrefix,
		"relay.parallel_tool_calls":       DefaultRelayParallelToolCalls,
		"weather.base_url":                DefaultWeatherBaseURL,
		"weather.timeout":                 DefaultWeatherTimeout,
		"weather.transport":               DefaultWeatherTransport,
		"weather.addr":                    DefaultWeatherAddr,
		"daemon.shutdown_timeout":         DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":    DefaultDaemonHealthCheckInterval,
		"daemon.startup_shutdown_timeout": DefaultDaemonStartupShutdownTimeout,
		"models.registry": []ModelRegistry{
			{Name: DefaultModelDefault, Provider: "openai"},
		},
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else if globalPath := DefaultConfigPath(); globalPath != "" {
		if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
			slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
		}
	}

	// Environment Variables
	k.Load(env.Provider("MCPRELAY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "MCPRELAY_")), "_", ".", 1)
	}), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "openai"
		}
	}

	workdir, err := pathutil.Expand(cfg.MCP.Workdir)
	if err != nil {
		return nil, err
	}
	cfg.MCP.Workdir = workdir

	// Post-Process: Inject standard Env Vars if missing
	injectProviderKey(&cfg, "openai", os.Getenv("OPENAI_API_KEY"))
	injectProviderKey(&cfg, "anthropic", os.Getenv("ANTHROPIC_API_KEY"))
	injectProviderKey(&cfg, "gemini", os.Getenv("GEMINI_API_KEY"))
	if cfg.Weather.APIKey == "" {
		cfg.Weather.APIKey = os.Getenv("OPENWEATHER_API_KEY")
	}

	return &cfg, nil
}

func injectProviderKey(cfg *Config, provider, key string) {
	if key == "" {
		return
	}
	for i, m := range cfg.Models.Registry {
		if m.Provider == provider && m.APIKey == "" {
			cfg.Models.Registry[i].APIKey = key
		}
	}
}
