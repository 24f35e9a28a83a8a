// Package config loads server configuration from an optional HCL file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// DefaultFile is read when CONFIG_FILE is unset. A missing file means defaults.
const DefaultFile = "openface.hcl"

// File is the HCL document layout. Every block is optional.
type File struct {
	Server  *ServerBlock  `hcl:"server,block"`
	Storage *StorageBlock `hcl:"storage,block"`
	Engine  *EngineBlock  `hcl:"engine,block"`
	History *HistoryBlock `hcl:"history,block"`
	Auth    *AuthBlock    `hcl:"auth,block"`
}

type ServerBlock struct {
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

type StorageBlock struct {
	Type     string `hcl:"type,optional"`
	RedisURL string `hcl:"redis_url,optional"`
	PoolSize int    `hcl:"pool_size,optional"`
	RoomTTL  string `hcl:"room_ttl,optional"`
}

type EngineBlock struct {
	RetryDelay     string `hcl:"retry_delay,optional"`
	ResyncInterval string `hcl:"resync_interval,optional"`
	Bots           *bool  `hcl:"bots,optional"`
}

type HistoryBlock struct {
	DatabaseURL string `hcl:"database_url,optional"`
}

type AuthBlock struct {
	SessionDuration string `hcl:"session_duration,optional"`
	CleanupInterval string `hcl:"cleanup_interval,optional"`
}

// Config is the resolved server configuration
type Config struct {
	Host     string
	Port     int
	LogLevel slog.Level

	StorageType  string
	RedisURL     string
	PoolSize     int
	RoomTTL      time.Duration
	DatabaseURL  string
	BotsEnabled  bool
	RetryDelay   time.Duration
	ResyncPeriod time.Duration

	SessionDuration time.Duration
	CleanupInterval time.Duration
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Port:            8080,
		LogLevel:        slog.LevelInfo,
		StorageType:     StorageMemory,
		RedisURL:        "redis://localhost:6379",
		PoolSize:        10,
		RoomTTL:         24 * time.Hour,
		BotsEnabled:     true,
		RetryDelay:      2 * time.Second,
		ResyncPeriod:    time.Minute,
		SessionDuration: 24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// Load reads the file named by CONFIG_FILE (or DefaultFile) and applies
// environment overrides on top
func Load() (Config, error) {
	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		cfg, err = Default(), nil
	}
	if err != nil {
		return Config{}, err
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFile parses an HCL file over the defaults
func LoadFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, err
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var doc File
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := Default()
	if err := cfg.apply(&doc); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) apply(doc *File) error {
	if s := doc.Server; s != nil {
		if s.Host != "" {
			c.Host = s.Host
		}
		if s.Port != 0 {
			c.Port = s.Port
		}
		if s.LogLevel != "" {
			if err := c.LogLevel.UnmarshalText([]byte(s.LogLevel)); err != nil {
				return fmt.Errorf("log_level: %w", err)
			}
		}
	}

	if s := doc.Storage; s != nil {
		if s.Type != "" {
			c.StorageType = s.Type
		}
		if s.RedisURL != "" {
			c.RedisURL = s.RedisURL
		}
		if s.PoolSize != 0 {
			c.PoolSize = s.PoolSize
		}
		if err := setDuration(&c.RoomTTL, "room_ttl", s.RoomTTL); err != nil {
			return err
		}
	}

	if e := doc.Engine; e != nil {
		if err := setDuration(&c.RetryDelay, "retry_delay", e.RetryDelay); err != nil {
			return err
		}
		if err := setDuration(&c.ResyncPeriod, "resync_interval", e.ResyncInterval); err != nil {
			return err
		}
		if e.Bots != nil {
			c.BotsEnabled = *e.Bots
		}
	}

	if h := doc.History; h != nil && h.DatabaseURL != "" {
		c.DatabaseURL = h.DatabaseURL
	}

	if a := doc.Auth; a != nil {
		if err := setDuration(&c.SessionDuration, "session_duration", a.SessionDuration); err != nil {
			return err
		}
		if err := setDuration(&c.CleanupInterval, "cleanup_interval", a.CleanupInterval); err != nil {
			return err
		}
	}
	return nil
}

func setDuration(dst *time.Duration, name, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

// applyEnv overrides fields from PORT, STORAGE_TYPE, REDIS_URL, DATABASE_URL
// and LOG_LEVEL
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	if v, ok := lookup("STORAGE_TYPE"); ok && v != "" {
		c.StorageType = strings.ToLower(v)
	}
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		c.RedisURL = v
		if _, set := lookup("STORAGE_TYPE"); !set {
			c.StorageType = StorageRedis
		}
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	return nil
}

// Validate checks the resolved configuration
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	switch c.StorageType {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("redis storage requires a redis url")
		}
	default:
		return fmt.Errorf("invalid storage type %q: must be %q or %q", c.StorageType, StorageMemory, StorageRedis)
	}
	if c.SessionDuration <= 0 || c.CleanupInterval <= 0 {
		return errors.New("auth durations must be positive")
	}
	return nil
}

// Addr returns the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
