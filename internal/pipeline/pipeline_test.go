package pipeline_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"brand-workflow-service/internal/entity"
	"brand-workflow-service/internal/pipeline"
)

func noop(_ context.Context, _ entity.Brief, _ map[string]json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func TestNew_WeightsMustSumTo100(t *testing.T) {
	_, err := pipeline.New(
		pipeline.Stage{Name: "a", Weight: 50, Run: noop},
		pipeline.Stage{Name: "b", Weight: 40, Run: noop},
	)
	if err == nil || !strings.Contains(err.Error(), "sum to 90") {
		t.Fatalf("expected weight sum error, got %v", err)
	}

	p, err := pipeline.New(
		pipeline.Stage{Name: "a", Weight: 60, Run: noop},
		pipeline.Stage{Name: "b", Weight: 40, Run: noop},
	)
	if err != nil {
		t.Fatalf("expected valid pipeline, got %v", err)
	}
	if got := len(p.Stages()); got != 2 {
		t.Fatalf("expected 2 stages, got %d", got)
	}
	if p.First() != "a" {
		t.Fatalf("expected first stage a, got %s", p.First())
	}
}

func TestNew_RejectsDuplicatesAndMissingRun(t *testing.T) {
	if _, err := pipeline.New(
		pipeline.Stage{Name: "a", Weight: 50, Run: noop},
		pipeline.Stage{Name: "a", Weight: 50, Run: noop},
	); err == nil {
		t.Fatal("expected duplicate stage error")
	}

	if _, err := pipeline.New(
		pipeline.Stage{Name: "a", Weight: 100},
	); err == nil {
		t.Fatal("expected missing run function error")
	}

	if _, err := pipeline.New(
		pipeline.Stage{Name: "a", Weight: 0, Run: noop},
		pipeline.Stage{Name: "b", Weight: 100, Run: noop},
	); err == nil {
		t.Fatal("expected non-positive weight error")
	}
}

func TestConfig_Build(t *testing.T) {
	cfg, err := pipeline.ParseConfig([]byte(`
stages:
  - name: prepare
    weight: 30
  - name: publish
    weight: 70
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	registry := map[entity.WorkflowStep]pipeline.StageFunc{
		"prepare": noop,
		"publish": noop,
	}
	p, err := cfg.Build(registry)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	stages := p.Stages()
	if stages[0].Name != "prepare" || stages[0].Weight != 30 {
		t.Fatalf("unexpected first stage: %+v", stages[0])
	}
	if stages[1].Name != "publish" || stages[1].Weight != 70 {
		t.Fatalf("unexpected second stage: %+v", stages[1])
	}
}

func TestConfig_Build_UnknownStage(t *testing.T) {
	cfg, err := pipeline.ParseConfig([]byte("stages:\n  - name: mystery\n    weight: 100\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := cfg.Build(map[entity.WorkflowStep]pipeline.StageFunc{}); err == nil {
		t.Fatal("expected unknown stage error")
	}
}
