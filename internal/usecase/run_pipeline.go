package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ptrunner/pt/internal/domain"
)

// RunPipelineInput names the pipeline to run.
type RunPipelineInput struct {
	Name string
}

// RunPipelineOutput aggregates the stage outcomes.
type RunPipelineOutput struct {
	Stages      []*RunMultiOutput
	Failed      bool
	Interrupted bool
}

// RunPipeline drives a pipeline's stages sequentially through the
// scheduler. The pipeline's on_failure policy applies across stages: under
// fail-fast and wait, a failing stage aborts the rest.
type RunPipeline struct {
	res      *domain.Resolved
	runMulti *RunMulti
	log      *slog.Logger
}

// NewRunPipeline creates the use case.
func NewRunPipeline(res *domain.Resolved, runMulti *RunMulti, log *slog.Logger) *RunPipeline {
	return &RunPipeline{res: res, runMulti: runMulti, log: log}
}

// Execute runs the named pipeline.
func (uc *RunPipeline) Execute(ctx context.Context, in RunPipelineInput) (*RunPipelineOutput, error) {
	pipe, ok := uc.res.Config.Pipelines[in.Name]
	if !ok {
		names := make([]string, 0, len(uc.res.Config.Pipelines))
		for name := range uc.res.Config.Pipelines {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, &domain.TaskNotFoundError{Name: in.Name, Available: names}
	}

	out := &RunPipelineOutput{}
	for i, stage := range pipe.Stages {
		uc.log.Debug("running pipeline stage", "pipeline", in.Name, "stage", i+1, "tasks", stage.Tasks)
		stageOut, err := uc.runMulti.Execute(ctx, RunMultiInput{
			TaskNames: stage.Tasks,
			Parallel:  stage.Parallel,
			OnFailure: pipe.OnFailure.OrDefault(),
			Output:    pipe.Output.OrDefault(),
		})
		if err != nil {
			return nil, err
		}
		out.Stages = append(out.Stages, stageOut)
		if stageOut.Interrupted {
			out.Interrupted = true
			out.Failed = true
			break
		}
		if stageOut.Failed {
			out.Failed = true
			if pipe.OnFailure.OrDefault() != domain.FailContinue {
				break
			}
		}
	}
	return out, nil
}
