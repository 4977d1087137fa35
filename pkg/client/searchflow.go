package client

import (
	"context"
	"sync"

	"github.com/feichai0017/rag-tuner/internal/models"
)

// Search flow steps, in execution order.
const (
	StepPre = iota
	StepPost
	StepParse
	stepCount
)

// SearchFlow chains the three search sub-stages. Each step owns its
// own StageController; moving back preserves the results of the steps
// ahead until they are resubmitted.
type SearchFlow struct {
	steps [stepCount]*StageController

	mu   sync.Mutex
	step int
}

func NewSearchFlow(c *Client) *SearchFlow {
	return &SearchFlow{
		steps: [stepCount]*StageController{
			NewStageController(c, StageRoutes{
				Config: "/documents/%d/search/pre-config",
				Run:    "/documents/%d/search/pre",
			}),
			NewStageController(c, StageRoutes{
				Config: "/documents/%d/search/post-config",
				Run:    "/documents/%d/search/post",
			}),
			NewStageController(c, StageRoutes{
				Config: "/documents/%d/search/parse-config",
				Run:    "/documents/%d/search/parse",
			}),
		},
	}
}

// Select binds the flow to a document and rewinds to the first step.
func (f *SearchFlow) Select(ctx context.Context, resourceID int64) error {
	f.mu.Lock()
	f.step = StepPre
	f.mu.Unlock()

	var firstErr error
	for _, sc := range f.steps {
		if err := sc.Select(ctx, resourceID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Step reports the current step index.
func (f *SearchFlow) Step() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Current returns the controller for the current step.
func (f *SearchFlow) Current() *StageController {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps[f.step]
}

// Controller returns the controller for a given step.
func (f *SearchFlow) Controller(step int) *StageController {
	if step < 0 || step >= stepCount {
		return nil
	}
	return f.steps[step]
}

// Next submits the current step and advances on success. The chain
// stops advancing on failure.
func (f *SearchFlow) Next(ctx context.Context) (*models.StageResult, error) {
	f.mu.Lock()
	sc := f.steps[f.step]
	f.mu.Unlock()

	result, err := sc.Submit(ctx)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.step < stepCount-1 {
		f.step++
	}
	f.mu.Unlock()
	return result, nil
}

// Back moves to the previous step. Results of later steps are kept so
// revisiting a step does not lose downstream work.
func (f *SearchFlow) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step > 0 {
		f.step--
	}
}
