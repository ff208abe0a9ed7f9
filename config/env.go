package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SUGGESTIT_"

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	e := &envReader{lookup: lookup}

	e.string("ADDR", &c.Server.Addr)
	e.list("API_KEYS", &c.Server.APIKeys)
	e.int("RATE_LIMIT_PER_MINUTE", &c.Server.RateLimitPerMinute)

	e.string("DB_PATH", &c.Storage.Path)
	e.bool("IN_MEMORY", &c.Storage.InMemory)

	e.string("EMBEDDING_HOST", &c.AI.EmbeddingHost)
	e.string("EMBEDDING_MODEL", &c.AI.EmbeddingModel)
	e.string("EXTRACTOR_HOST", &c.AI.ExtractorHost)
	e.string("EXTRACTOR_MODEL", &c.AI.ExtractorModel)
	e.string("AI_TOKEN", &c.AI.Token)
	e.duration("AI_TIMEOUT", &c.AI.Timeout)

	e.duration("CACHE_TTL", &c.Ranking.CacheTTL)
	e.duration("COLD_START_TTL", &c.Ranking.ColdStartTTL)
	e.int("HISTORY_CAP", &c.Ranking.HistoryCap)
	e.duration("WRITE_TIMEOUT", &c.Ranking.WriteTimeout)

	e.string("CACHE_BACKEND", &c.Cache.Backend)
	e.string("REDIS_ADDR", &c.Cache.RedisAddr)
	e.int("REDIS_DB", &c.Cache.RedisDB)

	e.string("LOG_LEVEL", &c.Log.Level)
	e.string("LOG_FORMAT", &c.Log.Format)

	return e.err
}

// envReader keeps the first parse error.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) get(name string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(EnvPrefix + name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(name, v string, err error) {
	e.err = fmt.Errorf("%s%s=%q: %w", EnvPrefix, name, v, err)
}

func (e *envReader) string(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) list(name string, dst *[]string) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) int(name string, dst *int) {
	if v, ok := e.get(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) bool(name string, dst *bool) {
	if v, ok := e.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	if v, ok := e.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = d
	}
}
