package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listServer 维护一个内存文档表, 模拟列表/删除/上传接口
type listServer struct {
	mu     sync.Mutex
	nextID int64
	docs   []string // filename, 下标+1 即 id
	gone   map[int64]bool
}

func newListServer() *listServer {
	return &listServer{nextID: 1, gone: map[int64]bool{}}
}

func (ls *listServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ls.mu.Lock()
		defer ls.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/upload"):
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fh := r.MultipartForm.File["file"][0]
			ls.docs = append(ls.docs, fh.Filename)
			id := ls.nextID
			ls.nextID++
			fmt.Fprintf(w, `{"code":200,"message":"success","data":{"id":%d,"filename":%q,"status":"pending"}}`, id, fh.Filename)

		case r.Method == http.MethodDelete:
			var id int64
			fmt.Sscanf(r.URL.Path, "/api/v1/documents/%d", &id)
			ls.gone[id] = true
			fmt.Fprintf(w, `{"code":200,"message":"success","data":{"id":%d}}`, id)

		default:
			search := r.URL.Query().Get("search")
			var items []string
			for i, name := range ls.docs {
				id := int64(i + 1)
				if ls.gone[id] {
					continue
				}
				if search != "" && !strings.Contains(name, search) {
					continue
				}
				items = append(items, fmt.Sprintf(`{"id":%d,"filename":%q,"status":"pending"}`, id, name))
			}
			fmt.Fprintf(w, `{"code":200,"message":"success","data":{"items":[%s],"total":%d}}`,
				strings.Join(items, ","), len(items))
		}
	}
}

func TestResourceListUploadSelectsNewDocument(t *testing.T) {
	srv := httptest.NewServer(newListServer().handler())
	defer srv.Close()

	rl := NewResourceList(New(srv.URL))
	var selections []int64
	rl.OnSelect(func(id int64) { selections = append(selections, id) })

	doc, err := rl.Upload(context.Background(), "report.pdf", strings.NewReader("%PDF-"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.ID)
	assert.Equal(t, int64(1), rl.Selected())
	assert.Equal(t, []int64{1}, selections)
	assert.Len(t, rl.Items(), 1)
}

func TestResourceListDeleteClearsSelection(t *testing.T) {
	ls := newListServer()
	srv := httptest.NewServer(ls.handler())
	defer srv.Close()

	rl := NewResourceList(New(srv.URL))
	_, err := rl.Upload(context.Background(), "a.txt", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = rl.Upload(context.Background(), "b.txt", strings.NewReader("b"))
	require.NoError(t, err)
	require.NoError(t, rl.Select(1))

	require.NoError(t, rl.Delete(context.Background(), 1))
	assert.Equal(t, int64(0), rl.Selected())
	require.Len(t, rl.Items(), 1)
	assert.Equal(t, int64(2), rl.Items()[0].ID)
}

func TestResourceListFilter(t *testing.T) {
	ls := newListServer()
	srv := httptest.NewServer(ls.handler())
	defer srv.Close()

	rl := NewResourceList(New(srv.URL))
	_, err := rl.Upload(context.Background(), "report.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = rl.Upload(context.Background(), "notes.txt", strings.NewReader("y"))
	require.NoError(t, err)

	require.NoError(t, rl.Filter(context.Background(), "report", ""))
	require.Len(t, rl.Items(), 1)
	assert.Equal(t, "report.pdf", rl.Items()[0].Filename)
}

func TestResourceListSelectUnknownID(t *testing.T) {
	srv := httptest.NewServer(newListServer().handler())
	defer srv.Close()

	rl := NewResourceList(New(srv.URL))
	require.NoError(t, rl.Fetch(context.Background()))
	assert.Error(t, rl.Select(42))
}
