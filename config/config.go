// Package config loads service configuration from defaults, a YAML file, a
// .env file and SUGGESTIT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/suggestit/ai"
	"github.com/poiesic/suggestit/ranking"
	"github.com/poiesic/suggestit/rules"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	AI      AIConfig      `yaml:"ai"`
	Ranking RankingConfig `yaml:"ranking"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// APIKeys gate every endpoint except health and metrics. Empty disables the gate.
	APIKeys            []string      `yaml:"api_keys"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

type AIConfig struct {
	EmbeddingHost  string        `yaml:"embedding_host"`
	EmbeddingModel string        `yaml:"embedding_model"`
	ExtractorHost  string        `yaml:"extractor_host"`
	ExtractorModel string        `yaml:"extractor_model"`
	Token          string        `yaml:"token"`
	Timeout        time.Duration `yaml:"timeout"`
}

type RankingConfig struct {
	Weights        ranking.Weights `yaml:"weights"`
	Boosts         ranking.Boosts  `yaml:"boosts"`
	CacheTTL       time.Duration   `yaml:"cache_ttl"`
	ColdStartTTL   time.Duration   `yaml:"cold_start_ttl"`
	HistoryCap     int             `yaml:"history_cap"`
	TopN           int             `yaml:"top_n"`
	MaxSuggestions int             `yaml:"max_suggestions"`
	WorkerPoolSize int             `yaml:"worker_pool_size"`
	WriteTimeout   time.Duration   `yaml:"write_timeout"`
	Rules          []rules.Rule    `yaml:"rules"`
}

type CacheConfig struct {
	Backend     string `yaml:"backend"`
	Capacity    int64  `yaml:"capacity"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	defaultAI := ai.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:               ":5000",
			RateLimitPerMinute: 120,
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       30 * time.Second,
			ShutdownTimeout:    10 * time.Second,
		},
		Storage: StorageConfig{Path: "suggestit.db"},
		AI: AIConfig{
			EmbeddingHost:  defaultAI.EmbeddingHost,
			EmbeddingModel: defaultAI.EmbeddingModel,
			ExtractorHost:  defaultAI.ExtractorHost,
			ExtractorModel: defaultAI.ExtractorModel,
			Token:          defaultAI.Token,
			Timeout:        defaultAI.Timeout,
		},
		Ranking: RankingConfig{
			Weights:        ranking.DefaultWeights(),
			Boosts:         ranking.DefaultBoosts(),
			CacheTTL:       5 * time.Minute,
			ColdStartTTL:   30 * time.Second,
			HistoryCap:     50,
			TopN:           5,
			MaxSuggestions: 5,
			WorkerPoolSize: 64,
			WriteTimeout:   5 * time.Second,
		},
		Cache: CacheConfig{
			Backend:     CacheMemory,
			Capacity:    10_000,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "suggestit:cache:",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. path names an optional YAML file; envFiles
// name optional .env files, missing ones are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env files without overriding variables already set.
func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks that the configuration can start a service.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("server.rate_limit_per_minute must not be negative"))
	}
	if c.Storage.Path == "" && !c.Storage.InMemory {
		errs = append(errs, errors.New("storage.path is required unless storage.in_memory is set"))
	}
	if c.Ranking.Weights.Semantic < 0 || c.Ranking.Weights.Lexical < 0 {
		errs = append(errs, errors.New("ranking.weights must not be negative"))
	}
	if c.Ranking.CacheTTL <= 0 {
		errs = append(errs, errors.New("ranking.cache_ttl must be positive"))
	}
	if c.Ranking.ColdStartTTL < 0 {
		errs = append(errs, errors.New("ranking.cold_start_ttl must not be negative"))
	}
	if c.Ranking.HistoryCap < 1 || c.Ranking.TopN < 1 || c.Ranking.MaxSuggestions < 1 {
		errs = append(errs, errors.New("ranking.history_cap, top_n and max_suggestions must be at least 1"))
	}
	if c.Ranking.WorkerPoolSize < 1 {
		errs = append(errs, errors.New("ranking.worker_pool_size must be at least 1"))
	}
	if c.Ranking.WriteTimeout <= 0 {
		errs = append(errs, errors.New("ranking.write_timeout must be positive"))
	}
	if !slices.Contains([]string{CacheMemory, CacheRedis}, c.Cache.Backend) {
		errs = append(errs, fmt.Errorf("cache.backend must be %q or %q, got %q", CacheMemory, CacheRedis, c.Cache.Backend))
	}
	if c.Cache.Backend == CacheMemory && c.Cache.Capacity < 1 {
		errs = append(errs, errors.New("cache.capacity must be at least 1"))
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisAddr == "" {
		errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AIConfig converts the ai section into provider configuration.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithExtractorHost(c.AI.ExtractorHost),
		ai.WithExtractorModel(c.AI.ExtractorModel),
		ai.WithToken(c.AI.Token),
		ai.WithTimeout(c.AI.Timeout),
	)
}
