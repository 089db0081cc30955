package plan

import (
	"testing"

	"github.com/kadirpekel/graphreason/pkg/schema"
)

func TestBuildAlwaysProducesCanonicalSixStepChain(t *testing.T) {
	p := Build(PlanInput{Question: "who is Einstein"})
	if len(p.Steps) != 6 {
		t.Fatalf("expected 6 canonical steps, got %d", len(p.Steps))
	}
	if p.Steps[0].Kind != StepEntityIdentification || len(p.Steps[0].DependsOn) != 0 {
		t.Fatalf("expected first step to be entity_identification with no deps, got %+v", p.Steps[0])
	}
	if p.Steps[5].Kind != StepValidation {
		t.Fatalf("expected last step to be validation, got %+v", p.Steps[5])
	}
}

func TestSelectStrategySequentialForShortQuestionSmallSchema(t *testing.T) {
	small := &schema.GraphSchema{NodeTypes: map[string]schema.NodeTypeInfo{"Person": {}}}
	p := Build(PlanInput{Question: "who is Einstein", Schema: small, EntityFamilyCount: 1})
	if p.Strategy != StrategySequential {
		t.Fatalf("expected sequential strategy, got %s", p.Strategy)
	}
}

func TestSelectStrategyParallelForMultipleEntityFamilies(t *testing.T) {
	p := Build(PlanInput{Question: "who is Einstein", EntityFamilyCount: 3})
	if p.Strategy != StrategyParallel {
		t.Fatalf("expected parallel strategy, got %s", p.Strategy)
	}
}

func TestSelectStrategyAdaptiveForLongQuestionOrBigSchema(t *testing.T) {
	big := &schema.GraphSchema{NodeTypes: map[string]schema.NodeTypeInfo{}}
	for i := 0; i < 20; i++ {
		big.NodeTypes[string(rune('A'+i))] = schema.NodeTypeInfo{}
	}
	p := Build(PlanInput{Question: "explain the complicated relationship between these many entities in detail", Schema: big, EntityFamilyCount: 1})
	if p.Strategy != StrategyAdaptive {
		t.Fatalf("expected adaptive strategy, got %s", p.Strategy)
	}
}

func TestReadyRespectsDependencies(t *testing.T) {
	p := Build(PlanInput{Question: "q"})

	ready := p.Ready(map[StepKind]bool{})
	if len(ready) != 1 || ready[0].Kind != StepEntityIdentification {
		t.Fatalf("expected only entity_identification ready initially, got %+v", ready)
	}

	ready = p.Ready(map[StepKind]bool{StepEntityIdentification: true})
	if len(ready) != 1 || ready[0].Kind != StepRelationExploration {
		t.Fatalf("expected relation_exploration ready next, got %+v", ready)
	}
}

func TestCriticalPathAndIndependent(t *testing.T) {
	p := Build(PlanInput{Question: "q"})
	if len(p.Independent()) != 1 || p.Independent()[0].Kind != StepEntityIdentification {
		t.Fatalf("expected entity_identification as the only independent step, got %+v", p.Independent())
	}
	if len(p.CriticalPath()) != 5 {
		t.Fatalf("expected 5 dependent steps on the critical path, got %d", len(p.CriticalPath()))
	}
}
