package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/schema"
)

// StageRoutes names the two endpoints a stage controller talks to,
// as printf patterns over the resource id.
type StageRoutes struct {
	Config string // e.g. "/documents/%d/load-config"
	Run    string // e.g. "/documents/%d/parse"
}

// StageController owns the form state for one pipeline stage: the
// fetched schema, the user's values, and the last run result.
//
// Every fetch and submit takes a monotonically increasing sequence
// token; a response whose token is no longer current is discarded, so
// rapid resource switches can never let a stale response overwrite
// state for a newer selection.
type StageController struct {
	client *Client
	routes StageRoutes

	mu         sync.Mutex
	seq        uint64
	resourceID int64
	params     *schema.ConfigParams
	values     schema.FormValues
	result     *models.StageResult
	processing bool
	lastErr    string
}

func NewStageController(c *Client, routes StageRoutes) *StageController {
	return &StageController{client: c, routes: routes}
}

// Select switches the controller to a new resource. The previous
// result is cleared immediately and the config is refetched; any
// in-flight response for the old resource becomes stale.
func (sc *StageController) Select(ctx context.Context, resourceID int64) error {
	sc.mu.Lock()
	sc.resourceID = resourceID
	sc.result = nil
	sc.params = nil
	sc.values = nil
	sc.lastErr = ""
	token := sc.nextToken()
	sc.mu.Unlock()

	return sc.fetchConfig(ctx, resourceID, token)
}

// FetchConfig refetches the schema for the current resource and
// reseeds the form values from its default_config.
func (sc *StageController) FetchConfig(ctx context.Context) error {
	sc.mu.Lock()
	id := sc.resourceID
	token := sc.nextToken()
	sc.mu.Unlock()

	if id == 0 {
		return &APIError{Message: "no resource selected"}
	}
	return sc.fetchConfig(ctx, id, token)
}

func (sc *StageController) fetchConfig(ctx context.Context, id int64, token uint64) error {
	var params schema.ConfigParams
	err := sc.client.Get(ctx, fmt.Sprintf(sc.routes.Config, id), &params)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if token != sc.seq {
		// superseded by a newer fetch, drop silently
		return nil
	}
	if err != nil {
		sc.params = nil
		sc.lastErr = err.Error()
		return err
	}

	sc.params = &params
	sc.values = schema.FormValues{}
	for k, v := range params.DefaultConfig {
		sc.values[k] = v
	}
	sc.lastErr = ""
	return nil
}

// SetValue records a single form value change.
func (sc *StageController) SetValue(name string, value interface{}) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.values == nil {
		sc.values = schema.FormValues{}
	}
	sc.values[name] = value
}

// Submit validates the visible fields, merges values over defaults and
// posts them. On validation failure nothing is sent; on any failure
// the current values are retained so the user can retry.
func (sc *StageController) Submit(ctx context.Context) (*models.StageResult, error) {
	sc.mu.Lock()
	if sc.params == nil || sc.resourceID == 0 {
		sc.mu.Unlock()
		return nil, &APIError{Message: "configuration incomplete"}
	}
	if sc.processing {
		sc.mu.Unlock()
		return nil, &APIError{Message: "a submit is already in progress"}
	}
	params := sc.params
	id := sc.resourceID
	values := sc.values.Clone()
	token := sc.nextToken()
	sc.processing = true
	sc.mu.Unlock()

	defer func() {
		sc.mu.Lock()
		sc.processing = false
		sc.mu.Unlock()
	}()

	if errs := params.Validate(values); len(errs) > 0 {
		sc.mu.Lock()
		sc.lastErr = errs[0].Message
		sc.mu.Unlock()
		return nil, &APIError{Status: 400, Message: errs[0].Message}
	}

	merged := params.Merge(values)
	var result models.StageResult
	err := sc.client.Post(ctx, fmt.Sprintf(sc.routes.Run, id), merged, &result)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if token != sc.seq {
		return nil, nil
	}
	if err != nil {
		sc.lastErr = err.Error()
		return nil, err
	}
	sc.result = &result
	sc.lastErr = ""
	return &result, nil
}

// Params returns the current schema, nil before a successful fetch.
func (sc *StageController) Params() *schema.ConfigParams {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.params
}

// Values returns a copy of the current form values.
func (sc *StageController) Values() schema.FormValues {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.values.Clone()
}

// Result returns the last run result for the current resource.
func (sc *StageController) Result() *models.StageResult {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.result
}

// Err returns the stored error message from the last failed call.
func (sc *StageController) Err() string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.lastErr
}

// VisibleGroups projects the schema through the current values.
func (sc *StageController) VisibleGroups() []schema.FieldGroup {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.params == nil {
		return nil
	}
	return sc.params.VisibleGroups(sc.values)
}

// nextToken must be called with the mutex held.
func (sc *StageController) nextToken() uint64 {
	sc.seq++
	return sc.seq
}
