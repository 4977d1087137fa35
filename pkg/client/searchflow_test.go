package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/rag-tuner/internal/schema"
)

func searchServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "-config"):
			w.Write([]byte(`{
				"code": 200, "message": "success",
				"data": {
					"name": "search",
					"fields": [{"name": "query", "label": "查询", "type": "textarea", "default": "", "group": "basic"}],
					"default_config": {"query": ""},
					"group_order": ["basic"]
				}
			}`))
		default:
			step := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
			fmt.Fprintf(w, `{"code":200,"message":"success","data":{"stage":%q,"items":[{"page_content":%q,"metadata":{"page":1}}]}}`,
				step, "result of "+step)
		}
	}))
}

func TestSearchFlowAdvancesThroughSteps(t *testing.T) {
	srv := searchServer(t)
	defer srv.Close()

	flow := NewSearchFlow(New(srv.URL))
	require.NoError(t, flow.Select(context.Background(), 3))
	assert.Equal(t, StepPre, flow.Step())

	_, err := flow.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepPost, flow.Step())

	_, err = flow.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepParse, flow.Step())

	result, err := flow.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "result of parse", result.Items[0].PageContent)
}

func TestSearchFlowBackPreservesForwardResults(t *testing.T) {
	srv := searchServer(t)
	defer srv.Close()

	flow := NewSearchFlow(New(srv.URL))
	require.NoError(t, flow.Select(context.Background(), 3))

	_, err := flow.Next(context.Background()) // pre
	require.NoError(t, err)
	_, err = flow.Next(context.Background()) // post
	require.NoError(t, err)

	flow.Back()
	assert.Equal(t, StepPost, flow.Step())
	flow.Back()
	assert.Equal(t, StepPre, flow.Step())

	// 回退不丢弃已有结果
	require.NotNil(t, flow.Controller(StepPre).Result())
	require.NotNil(t, flow.Controller(StepPost).Result())
	assert.Equal(t, "result of post", flow.Controller(StepPost).Result().Items[0].PageContent)
}

func writeParams(t *testing.T, w http.ResponseWriter, params *schema.ConfigParams) {
	t.Helper()
	data, err := json.Marshal(params)
	require.NoError(t, err)
	fmt.Fprintf(w, `{"code":200,"message":"success","data":%s}`, data)
}

// 对着真实的三套表单走完整个向导: pre 填一次查询语句,
// post 与 parse 只用默认值就能提交
func TestSearchFlowCompletesWithRealSchemas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/pre-config"):
			writeParams(t, w, schema.PreSearchConfig())
		case strings.HasSuffix(r.URL.Path, "/post-config"):
			writeParams(t, w, schema.PostSearchConfig())
		case strings.HasSuffix(r.URL.Path, "/parse-config"):
			writeParams(t, w, schema.SearchConfig())
		default:
			step := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
			fmt.Fprintf(w, `{"code":200,"message":"success","data":{"stage":%q,"items":[{"page_content":%q,"metadata":{"page":1}}]}}`,
				step, "result of "+step)
		}
	}))
	defer srv.Close()

	flow := NewSearchFlow(New(srv.URL))
	require.NoError(t, flow.Select(context.Background(), 3))

	flow.Current().SetValue("query", "what is chunking")
	_, err := flow.Next(context.Background())
	require.NoError(t, err)

	_, err = flow.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepParse, flow.Step())

	result, err := flow.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "result of parse", result.Items[0].PageContent)
	assert.Empty(t, flow.Controller(StepParse).Err())
}

func TestSearchFlowStopsOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "-config") {
			w.Write([]byte(`{"code":200,"message":"success","data":{"name":"search","fields":[],"default_config":{},"group_order":[]}}`))
			return
		}
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":409,"message":"stage not allowed"}`))
	}))
	defer srv.Close()

	flow := NewSearchFlow(New(srv.URL))
	require.NoError(t, flow.Select(context.Background(), 3))

	_, err := flow.Next(context.Background())
	require.Error(t, err)
	assert.Equal(t, StepPre, flow.Step())
}
