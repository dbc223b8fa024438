package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"syncrun/pkg/validation"
)

type Config struct {
	Server struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	WebSocket struct {
		PingInterval     time.Duration `yaml:"ping_interval"`
		PongTimeout      time.Duration `yaml:"pong_timeout"`
		MaxMessageBytes  int64         `yaml:"max_message_bytes"`
		OutboundQueueLen int           `yaml:"outbound_queue_len"`
	} `yaml:"websocket"`

	Streaming struct {
		LiveRoot        string        `yaml:"live_root"`
		RecordingRoot   string        `yaml:"recording_root"`
		TranscoderPath  string        `yaml:"transcoder_path"`
		SegmentDuration time.Duration `yaml:"segment_duration"`
		SegmentListSize int           `yaml:"segment_list_size"`
		StopTimeout     time.Duration `yaml:"stop_timeout"`
		ContainerExt    string        `yaml:"container_ext"`
		SegmentExt      string        `yaml:"segment_ext"`
	} `yaml:"streaming"`

	Archive struct {
		SiteURL    string        `yaml:"site_url"`
		BearerToken string       `yaml:"bearer_token"`
		HTTPTimeout time.Duration `yaml:"http_timeout"`
	} `yaml:"archive"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Tracing struct {
		Enabled   bool    `yaml:"enabled"`
		JaegerURL string  `yaml:"jaeger_url"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"http"`

		ConnectAttempts struct {
			PerMinute int `yaml:"per_minute"`
			Burst     int `yaml:"burst"`
		} `yaml:"connect_attempts"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host must not be empty")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("websocket.ping_interval must be > 0")
	}
	if c.WebSocket.PongTimeout <= 0 {
		return fmt.Errorf("websocket.pong_timeout must be > 0")
	}
	if c.WebSocket.MaxMessageBytes <= 0 {
		return fmt.Errorf("websocket.max_message_bytes must be > 0")
	}
	if c.WebSocket.OutboundQueueLen <= 0 {
		return fmt.Errorf("websocket.outbound_queue_len must be > 0")
	}

	if c.Streaming.LiveRoot == "" {
		return fmt.Errorf("streaming.live_root must not be empty")
	}
	if c.Streaming.RecordingRoot == "" {
		return fmt.Errorf("streaming.recording_root must not be empty")
	}
	if c.Streaming.TranscoderPath == "" {
		return fmt.Errorf("streaming.transcoder_path must not be empty")
	}
	if c.Streaming.SegmentDuration <= 0 {
		return fmt.Errorf("streaming.segment_duration must be > 0")
	}
	if c.Streaming.SegmentListSize <= 0 {
		return fmt.Errorf("streaming.segment_list_size must be > 0")
	}
	if c.Streaming.StopTimeout <= 0 {
		return fmt.Errorf("streaming.stop_timeout must be > 0")
	}

	if c.Archive.HTTPTimeout <= 0 {
		return fmt.Errorf("archive.http_timeout must be > 0")
	}
	if c.Archive.SiteURL != "" {
		if err := validation.ValidateURL(c.Archive.SiteURL); err != nil {
			return fmt.Errorf("archive.site_url: %w", err)
		}
		if err := validation.ValidateNonEmptyString(c.Archive.BearerToken, "archive.bearer_token"); err != nil {
			return err
		}
		if err := validation.ValidateStringLength(c.Archive.BearerToken, 8, 512, "archive.bearer_token"); err != nil {
			return err
		}
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.ConnectAttempts.PerMinute <= 0 {
			return fmt.Errorf("rate_limiting.connect_attempts.per_minute must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.ConnectAttempts.Burst <= 0 {
			return fmt.Errorf("rate_limiting.connect_attempts.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 3001
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 15 * time.Second

	cfg.WebSocket.PingInterval = 30 * time.Second
	cfg.WebSocket.PongTimeout = 60 * time.Second
	cfg.WebSocket.MaxMessageBytes = 5 * 1024 * 1024
	cfg.WebSocket.OutboundQueueLen = 32

	cfg.Streaming.LiveRoot = "./data/live"
	cfg.Streaming.RecordingRoot = "./data/recordings"
	cfg.Streaming.TranscoderPath = "ffmpeg"
	cfg.Streaming.SegmentDuration = 1 * time.Second
	cfg.Streaming.SegmentListSize = 4
	cfg.Streaming.StopTimeout = 10 * time.Second
	cfg.Streaming.ContainerExt = "mp4"
	cfg.Streaming.SegmentExt = "ts"

	cfg.Archive.HTTPTimeout = 30 * time.Second

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.ConnectAttempts.PerMinute = 30
	cfg.RateLimiting.ConnectAttempts.Burst = 10

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("SYNCRUN_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SYNCRUN_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if level := os.Getenv("SYNCRUN_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if root := os.Getenv("SYNCRUN_LIVE_ROOT"); root != "" {
		c.Streaming.LiveRoot = root
	}
	if root := os.Getenv("SYNCRUN_RECORDING_ROOT"); root != "" {
		c.Streaming.RecordingRoot = root
	}
	if path := os.Getenv("SYNCRUN_TRANSCODER_PATH"); path != "" {
		c.Streaming.TranscoderPath = path
	}
	if url := os.Getenv("SYNCRUN_ARCHIVE_SITE_URL"); url != "" {
		c.Archive.SiteURL = url
	}
	if token := os.Getenv("SYNCRUN_ARCHIVE_TOKEN"); token != "" {
		c.Archive.BearerToken = token
	}
}

// Address returns the listen address in host:port form.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
