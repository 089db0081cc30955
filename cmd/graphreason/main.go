// Command graphreason runs the knowledge-graph reasoning core against
// a single question or a batch of questions, or dispatches one task
// straight to the agent coordinator, printing the results as JSON.
// Every subcommand runs once and exits; there is no interactive mode.
//
// Usage:
//
//	graphreason ask --config config.yaml --question "who discovered radium"
//	graphreason batch --config config.yaml --questions questions.json
//	graphreason agent --kind path_finding --entity-id e1 --target-id e3
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/graphreason/pkg/agents"
	"github.com/kadirpekel/graphreason/pkg/config"
	"github.com/kadirpekel/graphreason/pkg/embed"
	"github.com/kadirpekel/graphreason/pkg/graph"
	"github.com/kadirpekel/graphreason/pkg/graph/sqlstore"
	"github.com/kadirpekel/graphreason/pkg/logger"
	"github.com/kadirpekel/graphreason/pkg/prompt"
	"github.com/kadirpekel/graphreason/pkg/scheduler"
	"github.com/kadirpekel/graphreason/pkg/schema"
	"github.com/kadirpekel/graphreason/pkg/search"
	"github.com/kadirpekel/graphreason/pkg/session"
)

// CLI defines the command-line interface.
type CLI struct {
	Ask   AskCmd   `cmd:"" help:"Ask a single question."`
	Batch BatchCmd `cmd:"" help:"Ask every question in a JSON array file."`
	Agent AgentCmd `cmd:"" help:"Dispatch a single task to the agent coordinator directly, bypassing the session pipeline."`

	Config      string `short:"c" help:"Path to config file." type:"path"`
	DatabaseURL string `help:"Postgres connection string (empty uses an in-memory store)." env:"GRAPHREASON_DATABASE_URL"`
	PromptsDir  string `help:"Directory of prompt template assets." default:"prompts"`
	LogLevel    string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// AskCmd asks a single question and prints its ReasoningResult as JSON.
type AskCmd struct {
	Question string `required:"" help:"The question to ask."`
}

func (c *AskCmd) Run(cli *CLI) error {
	eng, err := buildEngine(cli)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	sess := eng.NewSession()
	result := sess.Ask(context.Background(), c.Question)
	return printJSON(result)
}

// BatchCmd asks every question in a JSON array file and prints the
// results as a JSON array, in input order.
type BatchCmd struct {
	Questions string `required:"" type:"path" help:"Path to a JSON file containing an array of question strings."`
}

func (c *BatchCmd) Run(cli *CLI) error {
	data, err := os.ReadFile(c.Questions)
	if err != nil {
		return fmt.Errorf("read questions file: %w", err)
	}
	var questions []string
	if err := json.Unmarshal(data, &questions); err != nil {
		return fmt.Errorf("parse questions file: %w", err)
	}

	eng, err := buildEngine(cli)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	sess := eng.NewSession()
	results := sess.AskBatch(context.Background(), questions)
	return printJSON(results)
}

// AgentCmd dispatches a single task straight to the agent coordinator
//, for callers that want one capability (entity search,
// path finding, ...) without running the full C10 reasoning pipeline.
type AgentCmd struct {
	Kind        string `required:"" help:"Task kind, e.g. entity_search, path_finding, relationship_analysis."`
	Description string `help:"Free-text task description, used by search-flavored kinds."`
	EntityID    string `help:"Source entity id, used by relationship-flavored kinds."`
	TargetID    string `help:"Target entity id, used by path_finding."`
}

func (c *AgentCmd) Run(cli *CLI) error {
	eng, err := buildEngine(cli)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	coordinator := agents.NewCoordinator()
	coordinator.Register(agents.NewEntitySearchAgent(eng.Searcher))
	coordinator.Register(agents.NewRelationshipAnalysisAgent(eng.Store))

	taskCtx := map[string]any{}
	if c.EntityID != "" {
		taskCtx["entity_id"] = c.EntityID
	}
	if c.TargetID != "" {
		taskCtx["target_id"] = c.TargetID
	}

	result := coordinator.ExecuteTask(context.Background(), c.Kind, c.Description, taskCtx)
	return printJSON(result)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// buildEngine wires a session.Engine from the CLI's config: loads the
// ReasoningConfig, opens the graph store (Postgres if a DSN is given,
// else an empty in-memory store), builds the schema inspector and
// schema-guided searcher, loads the prompt registry, and starts the
// task scheduler.
func buildEngine(cli *CLI) (*session.Engine, error) {
	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.Init(level, os.Stderr, "simple")
	log := logger.GetLogger()

	cfg := config.Default()
	if cli.Config != "" {
		loaded, err := config.Load(cli.Config)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	var store graph.Store
	if cli.DatabaseURL != "" {
		pgStore, err := sqlstore.Open(context.Background(), sqlstore.Config{DSN: cli.DatabaseURL})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		store = pgStore
		log.Info("opened postgres graph store")
	} else {
		store = graph.NewMemStore()
		log.Warn("no database_url configured, running against an empty in-memory store")
	}

	// TODO: swap the stub embedder/LLM for real adapters once one is wired in.
	cachedEmbedder, err := embed.NewEmbeddingCache(embed.NewStubEmbedder(cfg.EmbeddingCacheSize), cfg.EmbeddingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("build embedding cache: %w", err)
	}
	var embedder embed.Embedder = cachedEmbedder
	llm := embed.NewStubLLM()

	inspector := schema.NewInspector(store, 5*time.Minute, 50)
	searcher := search.NewSchemaGuided(store, embedder, inspector, cfg.EntitySimilarityThreshold, cfg.RelationSimilarityThreshold)
	if err := searcher.Initialize(context.Background()); err != nil {
		log.Warn("search layer initialization degraded", slog.String("error", err.Error()))
	}

	prompts := prompt.NewRegistry(cli.PromptsDir)
	sched := scheduler.New(scheduler.Config{CPUPoolSize: cfg.ThreadPoolSize, IOPoolSize: cfg.IOPoolSize})

	return session.NewEngine(store, llm, inspector, searcher, prompts, sched, cfg), nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("graphreason"),
		kong.Description("Knowledge-graph reasoning core: schema-aware multi-hop question answering."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
