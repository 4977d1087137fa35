package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/pipeline"
	"github.com/feichai0017/rag-tuner/internal/repository"
	"github.com/feichai0017/rag-tuner/internal/schema"
	"github.com/feichai0017/rag-tuner/internal/utils/validator"
	"github.com/feichai0017/rag-tuner/pkg/logger"
	"github.com/feichai0017/rag-tuner/pkg/queue"
	"github.com/feichai0017/rag-tuner/pkg/storage"
)

// memRepo 内存实现, 仅服务于测试
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	docs   map[int64]*models.Document
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, docs: map[int64]*models.Document{}}
}

func (r *memRepo) Create(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc.ID = r.nextID
	r.nextID++
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *memRepo) GetByHash(ctx context.Context, hash string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.Hash == hash {
			cp := *doc
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) List(ctx context.Context, filter repository.ListFilter) ([]*models.Document, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Document
	for _, doc := range r.docs {
		cp := *doc
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memRepo) Update(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *memRepo) UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return repository.ErrNotFound
	}
	doc.Status = status
	doc.ErrorMessage = errMsg
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

// memStorage 内存对象存储
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Put(ctx context.Context, reader io.Reader, key string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return key, nil
}

func (s *memStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStorage) DeletePrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			delete(s.objects, k)
		}
	}
	return nil
}

func (s *memStorage) CleanupBefore(ctx context.Context, threshold time.Time) error { return nil }

// memQueue 记录入队任务
type memQueue struct {
	mu    sync.Mutex
	tasks []*queue.Task
}

func (q *memQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *memQueue) GetTaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error) {
	return nil, errors.New("not found")
}

func (q *memQueue) CancelTask(ctx context.Context, taskID string) error { return nil }

func (q *memQueue) SaveStatus(ctx context.Context, status *queue.TaskStatus) error { return nil }

func newTestService(t *testing.T) (DocumentService, *memRepo, *memStorage) {
	t.Helper()

	repo := newMemRepo()
	store := newMemStorage()
	log := logger.NewTestLogger()

	vectors, err := pipeline.NewVectorStore("")
	require.NoError(t, err)

	pipe := pipeline.New(&pipeline.Deps{
		Store:   store,
		Vectors: vectors,
		Logger:  log,
	})

	v := validator.NewDocumentValidator(log, nil)
	svc := NewDocumentService(repo, store, pipe, &memQueue{}, v, log)
	return svc, repo, store
}

func seedDocument(t *testing.T, repo *memRepo, store *memStorage, status models.DocumentStatus) *models.Document {
	t.Helper()

	doc := &models.Document{
		Filename: "note.txt",
		FileType: ".txt",
		FileSize: 11,
		Status:   status,
	}
	require.NoError(t, repo.Create(context.Background(), doc))

	key := storage.OriginalKey(doc.ID, doc.Filename)
	_, err := store.Put(context.Background(), strings.NewReader("hello world"), key)
	require.NoError(t, err)
	doc.StorageKey = key
	require.NoError(t, repo.Update(context.Background(), doc))
	return doc
}

func TestRunStageRejectsOutOfOrder(t *testing.T) {
	svc, repo, store := newTestService(t)
	doc := seedDocument(t, repo, store, models.StatusPending)

	_, err := svc.RunStage(context.Background(), doc.ID, models.StageChunk, schema.FormValues{})
	assert.ErrorIs(t, err, ErrStageNotAllowed)

	_, err = svc.RunStage(context.Background(), doc.ID, models.StageSearchPre, schema.FormValues{
		"query": "anything",
	})
	assert.ErrorIs(t, err, ErrStageNotAllowed)
}

func TestRunLoadAdvancesStatusAndSnapshots(t *testing.T) {
	svc, repo, store := newTestService(t)
	doc := seedDocument(t, repo, store, models.StatusPending)

	result, err := svc.RunStage(context.Background(), doc.ID, models.StageLoad, schema.FormValues{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Items)
	assert.Equal(t, "hello world", result.Items[0].PageContent)

	updated, err := repo.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLoaded, updated.Status)

	// 快照可回读
	snap, err := svc.StageResult(context.Background(), doc.ID, models.StageLoad)
	require.NoError(t, err)
	assert.Len(t, snap.Items, len(result.Items))
}

func TestRunLoadFailureMarksError(t *testing.T) {
	svc, repo, _ := newTestService(t)

	// 原始文件缺失
	doc := &models.Document{Filename: "ghost.txt", FileType: ".txt", Status: models.StatusPending}
	require.NoError(t, repo.Create(context.Background(), doc))

	_, err := svc.RunStage(context.Background(), doc.ID, models.StageLoad, schema.FormValues{})
	require.Error(t, err)

	updated, err := repo.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, updated.Status)
	assert.NotEmpty(t, updated.ErrorMessage)

	// error 态只能重新 load
	_, err = svc.RunStage(context.Background(), doc.ID, models.StageChunk, schema.FormValues{})
	assert.ErrorIs(t, err, ErrStageNotAllowed)
}

func TestRunStageValidatesValues(t *testing.T) {
	svc, repo, store := newTestService(t)
	doc := seedDocument(t, repo, store, models.StatusStored)

	_, err := svc.RunStage(context.Background(), doc.ID, models.StageSearchPre, schema.FormValues{})
	var vf *ValidationFailed
	require.ErrorAs(t, err, &vf)
	require.NotEmpty(t, vf.Errors)
	assert.Equal(t, "query", vf.Errors[0].Field)
}

func TestSearchPreKeepsStatus(t *testing.T) {
	svc, repo, store := newTestService(t)
	doc := seedDocument(t, repo, store, models.StatusStored)

	result, err := svc.RunStage(context.Background(), doc.ID, models.StageSearchPre, schema.FormValues{
		"query": "hello chunking",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello chunking", result.Items[0].PageContent)

	updated, err := repo.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusStored, updated.Status)
}

func TestStageConfigUnknownStage(t *testing.T) {
	svc, repo, store := newTestService(t)
	doc := seedDocument(t, repo, store, models.StatusPending)

	_, err := svc.StageConfig(context.Background(), doc.ID, models.Stage("bogus"))
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestReprocessEnqueuesTask(t *testing.T) {
	repo := newMemRepo()
	store := newMemStorage()
	log := logger.NewTestLogger()
	vectors, err := pipeline.NewVectorStore("")
	require.NoError(t, err)
	pipe := pipeline.New(&pipeline.Deps{Store: store, Vectors: vectors, Logger: log})
	q := &memQueue{}
	svc := NewDocumentService(repo, store, pipe, q, validator.NewDocumentValidator(log, nil), log)

	doc := seedDocument(t, repo, store, models.StatusStored)

	taskID, err := svc.Reprocess(context.Background(), doc.ID, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, taskID)
	require.Len(t, q.tasks, 1)
	assert.Equal(t, doc.ID, q.tasks[0].DocumentID)
	assert.Equal(t, []string{"load", "chunk", "embed", "store"}, q.tasks[0].Stages)
}
