// Package config defines ReasoningConfig, the immutable per-session
// configuration, and a small loader that layers a YAML file,
// environment-variable expansion and individual environment overrides
// on top of built-in defaults.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ReasoningConfig is immutable once a session starts. All fields
// default to their built-in values when left unset.
type ReasoningConfig struct {
	MaxReasoningDepth            int           `yaml:"max_reasoning_depth"`
	SearchWidth                  int           `yaml:"search_width"`
	EntitySimilarityThreshold    float64       `yaml:"entity_similarity_threshold"`
	RelationSimilarityThreshold  float64       `yaml:"relation_similarity_threshold"`
	MaxEntities                  int           `yaml:"max_entities"`
	MaxPaths                     int           `yaml:"max_paths"`
	MaxEvidences                 int           `yaml:"max_evidences"`
	SessionBudget                time.Duration `yaml:"-"`
	ThreadPoolSize               int           `yaml:"thread_pool_size"`
	IOPoolSize                   int           `yaml:"io_pool_size"`
	BatchSize                    int           `yaml:"batch_size"`
	EmbeddingCacheSize           int           `yaml:"embedding_cache_size"`
	LLMTemperature               float64       `yaml:"llm_temperature"`
	LLMMaxTokens                 int           `yaml:"llm_max_tokens"`
	ConfidenceThreshold          float64       `yaml:"confidence_threshold"`
	MaxRetries                   int           `yaml:"max_retries"`
	StrictValidation             bool          `yaml:"strict_validation"`

	// ScoringWeights exposes the traversal engine's hard-coded
	// constants as overridable config.
	ScoringWeights ScoringWeights `yaml:"scoring_weights"`

	// EvidenceThresholds exposes the reasoning context's
	// has-enough-evidence/should-stop constants.
	EvidenceThresholds EvidenceThresholds `yaml:"evidence_thresholds"`
}

// ScoringWeights are the traversal path-score coefficients:
// path_score = (RelWeight*rel + SourceWeight*source +
// TargetWeight*target) * DepthDecay^depth + NoveltyBonus (if novel).
type ScoringWeights struct {
	RelWeight    float64 `yaml:"rel_weight"`
	SourceWeight float64 `yaml:"source_weight"`
	TargetWeight float64 `yaml:"target_weight"`
	DepthDecay   float64 `yaml:"depth_decay"`
	NoveltyBonus float64 `yaml:"novelty_bonus"`

	// Final-ranking weights.
	BaseWeight       float64 `yaml:"base_weight"`
	LengthWeight     float64 `yaml:"length_weight"`
	CompletenessWeight float64 `yaml:"completeness_weight"`
	SemanticWeight   float64 `yaml:"semantic_weight"`
}

// EvidenceThresholds are the has-enough-evidence/should-stop constants.
type EvidenceThresholds struct {
	MinEvidences      int     `yaml:"min_evidences"`
	MinConfidence     float64 `yaml:"min_confidence"`
	MinDepthForEnough int     `yaml:"min_depth_for_enough"`

	// HighScorePathCount/HighScoreThreshold are the traversal engine's
	// "≥3 paths with score > 0.7" stop condition.
	HighScorePathCount int     `yaml:"high_score_path_count"`
	HighScoreThreshold float64 `yaml:"high_score_threshold"`

	// FoundPathSoftTimeout is the "10s after the first path" stop
	// condition.
	FoundPathSoftTimeout time.Duration `yaml:"-"`
}

// UnmarshalYAML decodes ReasoningConfig, reading session_budget_ms as a
// plain integer number of milliseconds rather than letting yaml.v3 decode
// it straight into time.Duration's nanosecond-scaled int64.
func (c *ReasoningConfig) UnmarshalYAML(value *yaml.Node) error {
	type alias ReasoningConfig
	aux := struct {
		SessionBudgetMS int `yaml:"session_budget_ms"`
		*alias          `yaml:",inline"`
	}{alias: (*alias)(c)}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if aux.SessionBudgetMS != 0 {
		c.SessionBudget = time.Duration(aux.SessionBudgetMS) * time.Millisecond
	}
	return nil
}

// UnmarshalYAML decodes EvidenceThresholds, reading
// found_path_soft_timeout_ms as a plain integer number of milliseconds.
func (t *EvidenceThresholds) UnmarshalYAML(value *yaml.Node) error {
	type alias EvidenceThresholds
	aux := struct {
		FoundPathSoftTimeoutMS int `yaml:"found_path_soft_timeout_ms"`
		*alias                 `yaml:",inline"`
	}{alias: (*alias)(t)}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if aux.FoundPathSoftTimeoutMS != 0 {
		t.FoundPathSoftTimeout = time.Duration(aux.FoundPathSoftTimeoutMS) * time.Millisecond
	}
	return nil
}

// Default returns a ReasoningConfig populated with defaults.
func Default() *ReasoningConfig {
	c := &ReasoningConfig{}
	c.SetDefaults()
	return c
}

// SetDefaults fills zero-valued fields with defaults. It is
// safe to call on a partially populated config loaded from YAML, so
// that a user only needs to specify the overrides they care about.
func (c *ReasoningConfig) SetDefaults() {
	if c.MaxReasoningDepth == 0 {
		c.MaxReasoningDepth = 3
	}
	if c.SearchWidth == 0 {
		c.SearchWidth = 3
	}
	if c.EntitySimilarityThreshold == 0 {
		c.EntitySimilarityThreshold = 0.5
	}
	if c.RelationSimilarityThreshold == 0 {
		c.RelationSimilarityThreshold = 0.2
	}
	if c.MaxEntities == 0 {
		c.MaxEntities = 100
	}
	if c.MaxPaths == 0 {
		c.MaxPaths = 50
	}
	if c.MaxEvidences == 0 {
		c.MaxEvidences = 10
	}
	if c.SessionBudget == 0 {
		c.SessionBudget = 30 * time.Second
	}
	if c.ThreadPoolSize == 0 {
		c.ThreadPoolSize = 4
	}
	if c.IOPoolSize == 0 {
		c.IOPoolSize = c.ThreadPoolSize / 2
		if c.IOPoolSize == 0 {
			c.IOPoolSize = 1
		}
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.EmbeddingCacheSize == 0 {
		c.EmbeddingCacheSize = 1000
	}
	if c.LLMTemperature == 0 {
		c.LLMTemperature = 0.2
	}
	if c.LLMMaxTokens == 0 {
		c.LLMMaxTokens = 256
	}
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = 0.3
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	c.ScoringWeights.setDefaults()
	c.EvidenceThresholds.setDefaults()
}

func (w *ScoringWeights) setDefaults() {
	if w.RelWeight == 0 {
		w.RelWeight = 0.4
	}
	if w.SourceWeight == 0 {
		w.SourceWeight = 0.2
	}
	if w.TargetWeight == 0 {
		w.TargetWeight = 0.4
	}
	if w.DepthDecay == 0 {
		w.DepthDecay = 0.8
	}
	if w.NoveltyBonus == 0 {
		w.NoveltyBonus = 0.1
	}
	if w.BaseWeight == 0 {
		w.BaseWeight = 0.4
	}
	if w.LengthWeight == 0 {
		w.LengthWeight = 0.2
	}
	if w.CompletenessWeight == 0 {
		w.CompletenessWeight = 0.2
	}
	if w.SemanticWeight == 0 {
		w.SemanticWeight = 0.2
	}
}

func (t *EvidenceThresholds) setDefaults() {
	if t.MinEvidences == 0 {
		t.MinEvidences = 5
	}
	if t.MinConfidence == 0 {
		t.MinConfidence = 2.0
	}
	if t.MinDepthForEnough == 0 {
		t.MinDepthForEnough = 3
	}
	if t.HighScorePathCount == 0 {
		t.HighScorePathCount = 3
	}
	if t.HighScoreThreshold == 0 {
		t.HighScoreThreshold = 0.7
	}
	if t.FoundPathSoftTimeout == 0 {
		t.FoundPathSoftTimeout = 10 * time.Second
	}
}

// Validate reports whether the configuration is internally consistent.
// It is an input error for a caller to run a session with an
// invalid config.
func (c *ReasoningConfig) Validate() error {
	switch {
	case c.MaxReasoningDepth <= 0:
		return fmt.Errorf("config: max_reasoning_depth must be positive")
	case c.SearchWidth <= 0:
		return fmt.Errorf("config: search_width must be positive")
	case c.MaxEntities <= 0:
		return fmt.Errorf("config: max_entities must be positive")
	case c.MaxPaths <= 0:
		return fmt.Errorf("config: max_paths must be positive")
	case c.MaxEvidences <= 0:
		return fmt.Errorf("config: max_evidences must be positive")
	case c.SessionBudget <= 0:
		return fmt.Errorf("config: session_budget_ms must be positive")
	case c.ThreadPoolSize <= 0:
		return fmt.Errorf("config: thread_pool_size must be positive")
	case c.EntitySimilarityThreshold < 0 || c.EntitySimilarityThreshold > 1:
		return fmt.Errorf("config: entity_similarity_threshold must be in [0,1]")
	case c.RelationSimilarityThreshold < 0 || c.RelationSimilarityThreshold > 1:
		return fmt.Errorf("config: relation_similarity_threshold must be in [0,1]")
	case c.LLMTemperature < 0 || c.LLMTemperature > 2:
		return fmt.Errorf("config: llm_temperature must be in [0,2]")
	case c.LLMMaxTokens <= 0:
		return fmt.Errorf("config: llm_max_tokens must be positive")
	}
	return nil
}
