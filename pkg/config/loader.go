package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file at path, expands ${VAR}/${VAR:-default}/$VAR
// references against the process environment, applies GRAPHREASON_* scalar
// overrides, fills remaining zero values with defaults and validates the
// result.
//
// A missing file is not an error: Load returns Default() with overrides and
// env expansion still applied, so a caller can run with zero config files.
func Load(path string) (*ReasoningConfig, error) {
	raw := map[string]any{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	expanded := expandEnvVarsInData(raw)

	reencoded, err := yaml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("config: re-encode expanded document: %w", err)
	}

	cfg := &ReasoningConfig{}
	if err := yaml.Unmarshal(reencoded, cfg); err != nil {
		return nil, fmt.Errorf("config: decode into ReasoningConfig: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envOverrides maps a GRAPHREASON_* suffix to a setter applied after the
// YAML file (and its own env expansion) has been decoded, so a deploy can
// override a single field without touching the file at all.
var envOverrides = map[string]func(cfg *ReasoningConfig, raw string) error{
	"MAX_REASONING_DEPTH": intSetter(func(c *ReasoningConfig, v int) { c.MaxReasoningDepth = v }),
	"SEARCH_WIDTH":        intSetter(func(c *ReasoningConfig, v int) { c.SearchWidth = v }),
	"MAX_ENTITIES":        intSetter(func(c *ReasoningConfig, v int) { c.MaxEntities = v }),
	"MAX_PATHS":           intSetter(func(c *ReasoningConfig, v int) { c.MaxPaths = v }),
	"MAX_EVIDENCES":       intSetter(func(c *ReasoningConfig, v int) { c.MaxEvidences = v }),
	"THREAD_POOL_SIZE":    intSetter(func(c *ReasoningConfig, v int) { c.ThreadPoolSize = v }),
	"IO_POOL_SIZE":        intSetter(func(c *ReasoningConfig, v int) { c.IOPoolSize = v }),
	"BATCH_SIZE":          intSetter(func(c *ReasoningConfig, v int) { c.BatchSize = v }),
	"EMBEDDING_CACHE_SIZE": intSetter(func(c *ReasoningConfig, v int) { c.EmbeddingCacheSize = v }),
	"LLM_MAX_TOKENS":      intSetter(func(c *ReasoningConfig, v int) { c.LLMMaxTokens = v }),
	"MAX_RETRIES":         intSetter(func(c *ReasoningConfig, v int) { c.MaxRetries = v }),

	"ENTITY_SIMILARITY_THRESHOLD":   floatSetter(func(c *ReasoningConfig, v float64) { c.EntitySimilarityThreshold = v }),
	"RELATION_SIMILARITY_THRESHOLD": floatSetter(func(c *ReasoningConfig, v float64) { c.RelationSimilarityThreshold = v }),
	"LLM_TEMPERATURE":               floatSetter(func(c *ReasoningConfig, v float64) { c.LLMTemperature = v }),
	"CONFIDENCE_THRESHOLD":          floatSetter(func(c *ReasoningConfig, v float64) { c.ConfidenceThreshold = v }),

	"STRICT_VALIDATION": boolSetter(func(c *ReasoningConfig, v bool) { c.StrictValidation = v }),

	"SESSION_BUDGET_MS": durationMsSetter(func(c *ReasoningConfig, v time.Duration) { c.SessionBudget = v }),
}

const envPrefix = "GRAPHREASON_"

// applyEnvOverrides scans the process environment once for GRAPHREASON_*
// variables and applies any that match a known field. Unknown suffixes are
// ignored rather than treated as an error, since they may be meant for a
// different component reading the same environment.
func applyEnvOverrides(cfg *ReasoningConfig) {
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, envPrefix) {
			continue
		}
		suffix := strings.TrimPrefix(name, envPrefix)
		if setter, ok := envOverrides[suffix]; ok {
			_ = setter(cfg, value)
		}
	}
}

func intSetter(set func(*ReasoningConfig, int)) func(*ReasoningConfig, string) error {
	return func(c *ReasoningConfig, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("config: invalid int override %q: %w", raw, err)
		}
		set(c, v)
		return nil
	}
}

func floatSetter(set func(*ReasoningConfig, float64)) func(*ReasoningConfig, string) error {
	return func(c *ReasoningConfig, raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("config: invalid float override %q: %w", raw, err)
		}
		set(c, v)
		return nil
	}
}

func boolSetter(set func(*ReasoningConfig, bool)) func(*ReasoningConfig, string) error {
	return func(c *ReasoningConfig, raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("config: invalid bool override %q: %w", raw, err)
		}
		set(c, v)
		return nil
	}
}

func durationMsSetter(set func(*ReasoningConfig, time.Duration)) func(*ReasoningConfig, string) error {
	return func(c *ReasoningConfig, raw string) error {
		ms, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("config: invalid duration override %q: %w", raw, err)
		}
		set(c, time.Duration(ms)*time.Millisecond)
		return nil
	}
}
