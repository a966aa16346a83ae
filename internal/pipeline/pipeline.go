// Package pipeline defines the ordered stage list a workflow run executes.
// A pipeline is immutable configuration shared read-only across all jobs;
// execution and supervision belong to the workflow package.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"brand-workflow-service/internal/entity"
)

// StageFunc is the contract every stage collaborator satisfies: it receives
// the normalized brief and the accumulated outputs of prior stages, and
// returns its own output or an error.
type StageFunc func(ctx context.Context, brief entity.Brief, prior map[string]json.RawMessage) (json.RawMessage, error)

// Stage is one named step with the share of total progress it contributes
// on completion.
type Stage struct {
	Name   entity.WorkflowStep
	Weight int
	Run    StageFunc
}

type Pipeline struct {
	stages []Stage
}

// New validates and freezes the stage list. Weights must be positive and sum
// to exactly 100 so cumulative progress lands on 100 at the final stage.
func New(stages ...Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, errors.New("pipeline: no stages")
	}
	seen := make(map[entity.WorkflowStep]bool, len(stages))
	total := 0
	for _, st := range stages {
		if st.Name == "" {
			return nil, errors.New("pipeline: stage without a name")
		}
		if seen[st.Name] {
			return nil, fmt.Errorf("pipeline: duplicate stage %q", st.Name)
		}
		seen[st.Name] = true
		if st.Run == nil {
			return nil, fmt.Errorf("pipeline: stage %q has no run function", st.Name)
		}
		if st.Weight <= 0 {
			return nil, fmt.Errorf("pipeline: stage %q has non-positive weight %d", st.Name, st.Weight)
		}
		total += st.Weight
	}
	if total != 100 {
		return nil, fmt.Errorf("pipeline: stage weights sum to %d, want 100", total)
	}
	return &Pipeline{stages: append([]Stage(nil), stages...)}, nil
}

// Stages returns the ordered stage list.
func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// First returns the name of the first stage.
func (p *Pipeline) First() entity.WorkflowStep {
	return p.stages[0].Name
}
