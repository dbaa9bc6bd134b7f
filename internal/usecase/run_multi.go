package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ptrunner/pt/internal/domain"
)

// RunMultiInput contains the parameters for scheduling a group of tasks.
type RunMultiInput struct {
	TaskNames []string // canonical names, declared order
	OnFailure domain.OnFailure
	Output    domain.OutputMode
	Parallel  bool
}

// RunMultiOutput aggregates per-task outcomes for a scheduled group.
type RunMultiOutput struct {
	Results     map[string]*domain.TaskResult // root result per task
	Failed      bool
	Interrupted bool
}

// RunMulti schedules a set of tasks with the chosen concurrency, failure
// policy, and output mode. The fan-out/fan-in shape: a feeder goroutine
// hands task names to workers, workers run the full task (dependencies
// included), a collector drains results and renders buffered output in
// completion order.
type RunMulti struct {
	runTask *RunTask
	log     *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
}

// NewRunMulti creates the use case. stdout and stderr are where task
// output is rendered.
func NewRunMulti(runTask *RunTask, log *slog.Logger, stdout, stderr io.Writer) *RunMulti {
	return &RunMulti{runTask: runTask, log: log, stdout: stdout, stderr: stderr}
}

type multiResult struct {
	out  *RunTaskOutput
	err  error
	name string
}

// Execute runs the group. The returned error is reserved for configuration
// problems; task failures are reported through the output.
func (uc *RunMulti) Execute(ctx context.Context, in RunMultiInput) (*RunMultiOutput, error) {
	if !in.Parallel {
		return uc.executeSequential(ctx, in)
	}
	return uc.executeParallel(ctx, in)
}

// executeSequential runs tasks one after another in declared order, so a
// failure is observed before the next task can start.
func (uc *RunMulti) executeSequential(ctx context.Context, in RunMultiInput) (*RunMultiOutput, error) {
	onFailure := in.OnFailure.OrDefault()
	output := in.Output.OrDefault()

	agg := &RunMultiOutput{Results: make(map[string]*domain.TaskResult)}
	for _, name := range in.TaskNames {
		if ctx.Err() != nil {
			agg.Interrupted = true
			break
		}
		out, err := uc.runTask.Execute(ctx, RunTaskInput{TaskName: name, Stdio: uc.stdioFor(name, output)})
		if err != nil {
			return agg, err
		}
		if output == domain.OutputBuffered {
			uc.renderBuffered(out)
		}
		for taskName, r := range out.Results {
			agg.Results[taskName] = r
		}
		agg.Results[name] = out.Root

		if out.Failed() {
			agg.Failed = true
			if onFailure != domain.FailContinue {
				break
			}
		}
	}
	if ctx.Err() != nil {
		agg.Interrupted = true
	}
	return agg, nil
}

// executeParallel dispatches through a feeder/worker/collector pool with
// fan-out equal to the group size.
func (uc *RunMulti) executeParallel(ctx context.Context, in RunMultiInput) (*RunMultiOutput, error) {
	onFailure := in.OnFailure.OrDefault()
	output := in.Output.OrDefault()

	workers := len(in.TaskNames)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskChan := make(chan string)
	resultChan := make(chan multiResult, len(in.TaskNames))
	stopFeed := make(chan struct{})
	var stopOnce sync.Once

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range taskChan {
				stdio := uc.stdioFor(name, output)
				out, err := uc.runTask.Execute(runCtx, RunTaskInput{TaskName: name, Stdio: stdio})
				resultChan <- multiResult{name: name, out: out, err: err}
			}
		}()
	}

	go func() {
		defer close(taskChan)
		for _, name := range in.TaskNames {
			select {
			case <-runCtx.Done():
				return
			case <-stopFeed:
				return
			case taskChan <- name:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	agg := &RunMultiOutput{Results: make(map[string]*domain.TaskResult)}
	var firstErr error
	for res := range resultChan {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			agg.Failed = true
			uc.failUnlessContinue(onFailure, cancel, stopFeed, &stopOnce)
			continue
		}

		if output == domain.OutputBuffered {
			uc.renderBuffered(res.out)
		}
		for name, r := range res.out.Results {
			agg.Results[name] = r
		}
		agg.Results[res.name] = res.out.Root

		if res.out.Failed() {
			agg.Failed = true
			uc.failUnlessContinue(onFailure, cancel, stopFeed, &stopOnce)
		}
	}

	if ctx.Err() != nil {
		agg.Interrupted = true
	}
	return agg, firstErr
}

// failUnlessContinue applies the failure policy after a task failed:
// fail-fast cancels in-flight work, wait stops dispatching new tasks,
// continue does nothing.
func (uc *RunMulti) failUnlessContinue(mode domain.OnFailure, cancel context.CancelFunc, stopFeed chan struct{}, once *sync.Once) {
	switch mode {
	case domain.FailFast:
		once.Do(func() { close(stopFeed) })
		cancel()
	case domain.FailWait:
		once.Do(func() { close(stopFeed) })
	case domain.FailContinue:
	}
}

// stdioFor returns the live sinks for a task: interleaved mode streams
// through prefixed writers, buffered mode captures only.
func (uc *RunMulti) stdioFor(name string, output domain.OutputMode) Stdio {
	if output == domain.OutputInterleaved {
		return Stdio{
			Out: &prefixWriter{w: uc.stdout, prefix: name},
			Err: &prefixWriter{w: uc.stderr, prefix: name},
		}
	}
	return Stdio{}
}

// renderBuffered emits a completed task's captured output contiguously,
// dependencies first.
func (uc *RunMulti) renderBuffered(out *RunTaskOutput) {
	for _, name := range out.Order {
		r := out.Results[name]
		if r.Stdout == "" && r.Stderr == "" {
			continue
		}
		fmt.Fprintf(uc.stdout, "=== %s ===\n", name)
		if r.Stdout != "" {
			io.WriteString(uc.stdout, r.Stdout)
		}
		if r.Stderr != "" {
			io.WriteString(uc.stderr, r.Stderr)
		}
	}
}

// prefixWriter labels every line with the task name. Writers are called
// from concurrent workers; a shared mutex keeps lines whole.
type prefixWriter struct {
	w      io.Writer
	prefix string
}

var prefixMu sync.Mutex

func (p *prefixWriter) Write(b []byte) (int, error) {
	prefixMu.Lock()
	defer prefixMu.Unlock()
	if _, err := fmt.Fprintf(p.w, "%s | %s", p.prefix, b); err != nil {
		return 0, err
	}
	return len(b), nil
}
