// Package plan implements the reasoning planner: given a question and
// a schema, it produces an ordered list of typed steps with declared
// dependencies and an execution strategy tag.
package plan

import (
	"github.com/kadirpekel/graphreason/pkg/schema"
)

// StepKind is one of the canonical planner steps.
type StepKind string

const (
	StepEntityIdentification StepKind = "entity_identification"
	StepRelationExploration  StepKind = "relation_exploration"
	StepSimilarityCalc       StepKind = "similarity_calculation"
	StepEvidenceCollection   StepKind = "evidence_collection"
	StepAnswerGeneration     StepKind = "answer_generation"
	StepValidation           StepKind = "validation"
)

// Strategy is the execution strategy a Plan declares.
type Strategy string

const (
	StrategySequential Strategy = "sequential"
	StrategyParallel   Strategy = "parallel"
	StrategyAdaptive   Strategy = "adaptive"
)

// Step is one planned unit of work with its declared dependencies.
type Step struct {
	Kind      StepKind
	DependsOn []StepKind
}

// Plan is the planner's output: an ordered step list plus a strategy
// tag driving how the session dispatches it.
type Plan struct {
	Steps    []Step
	Strategy Strategy
}

// canonicalDAG is the fixed six-step dependency graph every Plan this
// package produces uses; only the Strategy tag and (in a future
// extension) step inclusion/exclusion vary.
func canonicalDAG() []Step {
	return []Step{
		{Kind: StepEntityIdentification},
		{Kind: StepRelationExploration, DependsOn: []StepKind{StepEntityIdentification}},
		{Kind: StepSimilarityCalc, DependsOn: []StepKind{StepRelationExploration}},
		{Kind: StepEvidenceCollection, DependsOn: []StepKind{StepSimilarityCalc}},
		{Kind: StepAnswerGeneration, DependsOn: []StepKind{StepEvidenceCollection}},
		{Kind: StepValidation, DependsOn: []StepKind{StepAnswerGeneration}},
	}
}

// PlanInput describes the shape of one question for the strategy
// selector. EntityFamilyCount is the number of distinct entity types
// the caller's own extraction step found; callers that haven't run
// extraction yet may pass 0 or 1 (conservative: assume a single
// family).
type PlanInput struct {
	Question           string
	Schema             *schema.GraphSchema
	EntityFamilyCount  int
	SmallSchemaNodeMax int // threshold below which the schema counts as "small"
	ShortQuestionWords int // threshold below which the question counts as "short"
}

// Build produces a Plan for in. The step DAG is always the canonical
// six-step chain; only the Strategy tag varies with the question/schema
// shape.
func Build(in PlanInput) Plan {
	return Plan{
		Steps:    canonicalDAG(),
		Strategy: selectStrategy(in),
	}
}

func selectStrategy(in PlanInput) Strategy {
	smallNodeMax := in.SmallSchemaNodeMax
	if smallNodeMax <= 0 {
		smallNodeMax = 5
	}
	shortWordMax := in.ShortQuestionWords
	if shortWordMax <= 0 {
		shortWordMax = 8
	}

	questionIsShort := wordCount(in.Question) <= shortWordMax
	schemaIsSmall := in.Schema == nil || len(in.Schema.NodeTypes) <= smallNodeMax

	if in.EntityFamilyCount > 1 {
		return StrategyParallel
	}
	if questionIsShort && schemaIsSmall {
		return StrategySequential
	}
	return StrategyAdaptive
}

func wordCount(s string) int {
	count := 0
	inWord := false
	for _, r := range s {
		isSpace := r == ' ' || r == '\t' || r == '\n'
		if !isSpace && !inWord {
			count++
			inWord = true
		} else if isSpace {
			inWord = false
		}
	}
	return count
}

// CriticalPath returns, in order, every step of plan that has at least
// one dependency.
func (p Plan) CriticalPath() []Step {
	var out []Step
	for _, s := range p.Steps {
		if len(s.DependsOn) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Independent returns the steps of plan with no declared dependency;
// for the canonical chain that is only entity_identification.
func (p Plan) Independent() []Step {
	var out []Step
	for _, s := range p.Steps {
		if len(s.DependsOn) == 0 {
			out = append(out, s)
		}
	}
	return out
}

// Ready returns the steps whose dependencies are all present in done,
// excluding steps already in done themselves — the scheduler's
// dispatch-next query for a DAG-ordered execution.
func (p Plan) Ready(done map[StepKind]bool) []Step {
	var out []Step
	for _, s := range p.Steps {
		if done[s.Kind] {
			continue
		}
		ready := true
		for _, dep := range s.DependsOn {
			if !done[dep] {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, s)
		}
	}
	return out
}
