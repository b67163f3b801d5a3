package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port                int    `yaml:"port"`
		ReadTimeoutSeconds  int    `yaml:"readTimeoutSeconds"`
		WriteTimeoutSeconds int    `yaml:"writeTimeoutSeconds"`
		LogLevel            string `yaml:"logLevel"`
	} `yaml:"server"`

	Scanner struct {
		MaxScanSeconds       int    `yaml:"maxScanSeconds"`
		ToolTimeoutSeconds   int    `yaml:"toolTimeoutSeconds"`
		ReportsDir           string `yaml:"reportsDir"`
		WapitiTmpDir         string `yaml:"wapitiTmpDir"`
		DemoTarget           string `yaml:"demoTarget"`
		DockerContainer      string `yaml:"dockerContainer"`
		WSLDistro            string `yaml:"wslDistro"`
		ShutdownGraceSeconds int    `yaml:"shutdownGraceSeconds"`
	} `yaml:"scanner"`

	Probe struct {
		Samples        int     `yaml:"samples"`
		TimeoutSeconds int     `yaml:"timeoutSeconds"`
		SimulationRPS  float64 `yaml:"simulationRps"`
	} `yaml:"probe"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | "" (disabled)
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Enabled      bool   `yaml:"enabled"`
		Endpoint     string `yaml:"endpoint"`
		AccessKey    string `yaml:"accessKey"`
		SecretKey    string `yaml:"secretKey"`
		BucketName   string `yaml:"bucketName"`
		Region       string `yaml:"region"`
		UseSSL       bool   `yaml:"useSSL"`
		PresignHours int    `yaml:"presignHours"` // 0 = public bucket URLs
	} `yaml:"minio"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	Auth struct {
		// tenant -> api key; empty disables auth
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity        int `yaml:"capacity"`
		RefillPerSecond int `yaml:"refillPerSecond"`
	} `yaml:"rateLimit"`
}

// Default returns the built-in settings used when no config file exists.
func Default() *Config {
	var c Config
	c.Server.Port = 8000
	c.Server.ReadTimeoutSeconds = 15
	c.Server.WriteTimeoutSeconds = 30
	c.Server.LogLevel = "info"
	c.Scanner.MaxScanSeconds = 300
	c.Scanner.ToolTimeoutSeconds = 120
	c.Scanner.ReportsDir = "reports"
	c.Scanner.WapitiTmpDir = "/tmp"
	c.Scanner.DemoTarget = "http://testphp.vulnweb.com"
	c.Scanner.DockerContainer = "kali_scanner"
	c.Scanner.WSLDistro = "kali-linux"
	c.Scanner.ShutdownGraceSeconds = 10
	c.Probe.Samples = 6
	c.Probe.TimeoutSeconds = 6
	c.Probe.SimulationRPS = 5
	c.Database.SSLMode = "disable"
	c.RateLimit.Capacity = 60
	c.RateLimit.RefillPerSecond = 1
	return &c
}

// Load baca file config.yaml di atas default; file yang tidak ada bukan error
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// secrets and the port can be overridden from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv("AUTOVULN_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("AUTOVULN_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("AUTOVULN_MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
}

// Validate checks ranges and fills zero values with defaults.
func (c *Config) Validate() error {
	d := Default()
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Scanner.MaxScanSeconds <= 0 {
		c.Scanner.MaxScanSeconds = d.Scanner.MaxScanSeconds
	}
	if c.Scanner.ToolTimeoutSeconds <= 0 {
		c.Scanner.ToolTimeoutSeconds = d.Scanner.ToolTimeoutSeconds
	}
	if c.Scanner.ReportsDir == "" {
		c.Scanner.ReportsDir = d.Scanner.ReportsDir
	}
	if c.Scanner.WapitiTmpDir == "" {
		c.Scanner.WapitiTmpDir = d.Scanner.WapitiTmpDir
	}
	if c.Probe.Samples <= 0 {
		c.Probe.Samples = d.Probe.Samples
	}
	if c.Probe.TimeoutSeconds <= 0 {
		c.Probe.TimeoutSeconds = d.Probe.TimeoutSeconds
	}
	if c.Scanner.ShutdownGraceSeconds <= 0 {
		c.Scanner.ShutdownGraceSeconds = d.Scanner.ShutdownGraceSeconds
	}
	if c.RateLimit.Capacity <= 0 {
		c.RateLimit.Capacity = d.RateLimit.Capacity
	}
	if c.RateLimit.RefillPerSecond <= 0 {
		c.RateLimit.RefillPerSecond = d.RateLimit.RefillPerSecond
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("database.driver must be mysql, postgres or empty, got %q", c.Database.Driver)
	}
	return nil
}

func (c *Config) MaxScanDuration() time.Duration {
	return time.Duration(c.Scanner.MaxScanSeconds) * time.Second
}

func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Scanner.ToolTimeoutSeconds) * time.Second
}

func (c *Config) PresignTTL() time.Duration {
	return time.Duration(c.Minio.PresignHours) * time.Hour
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
