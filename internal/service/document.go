package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	cfg "github.com/feichai0017/rag-tuner/config"
	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/pipeline"
	"github.com/feichai0017/rag-tuner/internal/repository"
	"github.com/feichai0017/rag-tuner/internal/schema"
	"github.com/feichai0017/rag-tuner/internal/utils/validator"
	"github.com/feichai0017/rag-tuner/pkg/logger"
	"github.com/feichai0017/rag-tuner/pkg/queue"
	"github.com/feichai0017/rag-tuner/pkg/storage"
)

var (
	ErrNotFound        = repository.ErrNotFound
	ErrStageNotAllowed = errors.New("stage not allowed in current status")
	ErrNoResult        = errors.New("stage result not found")
	ErrUnknownStage    = errors.New("unknown stage")
)

// ValidationFailed 表单校验失败, 带字段级错误
type ValidationFailed struct {
	Errors []schema.ValidationError `json:"errors"`
}

func (e *ValidationFailed) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Message
	}
	return strings.Join(msgs, "; ")
}

// UploadRejected 上传文件未通过验证
type UploadRejected struct {
	Result *validator.ValidationResult
}

func (e *UploadRejected) Error() string {
	if len(e.Result.Errors) > 0 {
		return e.Result.Errors[0].Message
	}
	return "file rejected"
}

// DocumentService 文档与流水线编排
type DocumentService interface {
	Upload(ctx context.Context, file *multipart.FileHeader) (*models.Document, error)
	List(ctx context.Context, filter repository.ListFilter) ([]*models.Document, int, error)
	Get(ctx context.Context, id int64) (*models.Document, error)
	Delete(ctx context.Context, id int64) error

	StageConfig(ctx context.Context, id int64, stage models.Stage) (*schema.ConfigParams, error)
	RunStage(ctx context.Context, id int64, stage models.Stage, values schema.FormValues) (*models.StageResult, error)
	StageResult(ctx context.Context, id int64, stage models.Stage) (*models.StageResult, error)

	Reprocess(ctx context.Context, id int64, stages []string, config map[string]interface{}) (string, error)
	TaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error)

	// RunTask 由后台 worker 调用
	RunTask(ctx context.Context, task *queue.Task, progress func(stage string, done, total int)) error
	// CleanupStorage 清理超过保留期的对象, 由定时任务触发
	CleanupStorage(ctx context.Context) error
}

type documentService struct {
	repo      repository.DocumentRepo
	store     storage.Storage
	pipe      *pipeline.Pipeline
	queue     queue.Queue
	validator *validator.DocumentValidator
	logger    logger.Logger
}

func NewDocumentService(
	repo repository.DocumentRepo,
	store storage.Storage,
	pipe *pipeline.Pipeline,
	q queue.Queue,
	v *validator.DocumentValidator,
	log logger.Logger,
) DocumentService {
	return &documentService{
		repo:      repo,
		store:     store,
		pipe:      pipe,
		queue:     q,
		validator: v,
		logger:    log,
	}
}

func (s *documentService) Upload(ctx context.Context, file *multipart.FileHeader) (*models.Document, error) {
	result, err := s.validator.ValidateFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to validate file: %w", err)
	}
	if !result.IsValid {
		return nil, &UploadRejected{Result: result}
	}

	// 相同内容的文件直接复用已有记录
	if existing, err := s.repo.GetByHash(ctx, result.FileInfo.Hash); err == nil {
		s.logger.Info("Duplicate upload, reusing document",
			logger.Int64("documentId", existing.ID),
			logger.String("filename", file.Filename),
		)
		return existing, nil
	}

	doc := &models.Document{
		Filename: file.Filename,
		FileType: strings.ToLower(filepath.Ext(file.Filename)),
		FileSize: file.Size,
		Hash:     result.FileInfo.Hash,
		Status:   models.StatusPending,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	key := storage.OriginalKey(doc.ID, doc.Filename)
	if _, err := s.store.Put(ctx, f, key); err != nil {
		// 对象写入失败时回收元数据记录
		_ = s.repo.Delete(ctx, doc.ID)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	doc.StorageKey = key
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("Document uploaded",
		logger.Int64("documentId", doc.ID),
		logger.String("filename", doc.Filename),
		logger.Int64("size", doc.FileSize),
	)
	return doc, nil
}

func (s *documentService) List(ctx context.Context, filter repository.ListFilter) ([]*models.Document, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *documentService) Get(ctx context.Context, id int64) (*models.Document, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *documentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeletePrefix(ctx, storage.DocPrefix(id)); err != nil {
		s.logger.Warn("Failed to delete stored objects",
			logger.Int64("documentId", id),
			logger.Error(err),
		)
	}
	if err := s.pipe.DropVectors(ctx, doc.ID); err != nil {
		s.logger.Warn("Failed to drop vector collection",
			logger.Int64("documentId", doc.ID),
			logger.Error(err),
		)
	}

	return s.repo.Delete(ctx, id)
}

func (s *documentService) StageConfig(ctx context.Context, id int64, stage models.Stage) (*schema.ConfigParams, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	st, err := s.pipe.Stage(stage)
	if err != nil {
		return nil, ErrUnknownStage
	}
	return st.Config(doc)
}

func (s *documentService) RunStage(ctx context.Context, id int64, stage models.Stage, values schema.FormValues) (*models.StageResult, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	st, err := s.pipe.Stage(stage)
	if err != nil {
		return nil, ErrUnknownStage
	}

	if !doc.Status.CanRun(gateOf(stage)) {
		return nil, fmt.Errorf("%w: document is %s, cannot run %s", ErrStageNotAllowed, doc.Status, stage)
	}

	params, err := st.Config(doc)
	if err != nil {
		return nil, err
	}
	if errs := params.Validate(values); len(errs) > 0 {
		return nil, &ValidationFailed{Errors: errs}
	}
	merged := params.Merge(values)

	items, err := st.Run(ctx, doc, merged)
	if err != nil {
		// 主流程阶段失败时文档进入 error 态
		if doc.Status.Outcome(stage) != doc.Status {
			if uerr := s.repo.UpdateStatus(ctx, id, models.StatusError, err.Error()); uerr != nil {
				s.logger.Error("Failed to mark document as failed", logger.Error(uerr))
			}
		}
		return nil, err
	}

	if err := s.pipe.SaveResult(ctx, doc.ID, stage, items); err != nil {
		return nil, err
	}

	if next := doc.Status.Outcome(stage); next != doc.Status {
		doc.Status = next
		doc.ErrorMessage = ""
		if next == models.StatusStored {
			now := time.Now()
			doc.ProcessedAt = &now
		}
		if err := s.repo.Update(ctx, doc); err != nil {
			return nil, err
		}
	}

	return &models.StageResult{Stage: stage, Items: items}, nil
}

func (s *documentService) StageResult(ctx context.Context, id int64, stage models.Stage) (*models.StageResult, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.pipe.Stage(stage); err != nil {
		return nil, ErrUnknownStage
	}
	result, err := s.pipe.LoadResult(ctx, id, stage)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoResult, stage)
	}
	return result, nil
}

func (s *documentService) Reprocess(ctx context.Context, id int64, stages []string, config map[string]interface{}) (string, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	if len(stages) == 0 {
		stages = []string{
			string(models.StageLoad),
			string(models.StageChunk),
			string(models.StageEmbed),
			string(models.StageStore),
		}
	}
	for _, name := range stages {
		if _, err := s.pipe.Stage(models.Stage(name)); err != nil {
			return "", ErrUnknownStage
		}
	}

	task := &queue.Task{
		ID:         uuid.New().String(),
		Type:       queue.TaskTypePipelineRun,
		DocumentID: doc.ID,
		Stages:     stages,
		Config:     config,
		CreatedAt:  time.Now(),
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return "", err
	}

	s.logger.Info("Reprocess task enqueued",
		logger.String("taskId", task.ID),
		logger.Int64("documentId", doc.ID),
		logger.Any("stages", stages),
	)
	return task.ID, nil
}

func (s *documentService) TaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error) {
	return s.queue.GetTaskStatus(ctx, taskID)
}

func (s *documentService) RunTask(ctx context.Context, task *queue.Task, progress func(stage string, done, total int)) error {
	total := len(task.Stages)
	for i, name := range task.Stages {
		stage := models.Stage(name)
		values := schema.FormValues{}
		if task.Config != nil {
			values = schema.FormValues(task.Config).Clone()
		}
		if _, err := s.RunStage(ctx, task.DocumentID, stage, values); err != nil {
			return fmt.Errorf("stage %s failed: %w", name, err)
		}
		if progress != nil {
			progress(name, i+1, total)
		}
	}
	return nil
}

func (s *documentService) CleanupStorage(ctx context.Context) error {
	retention := time.Duration(cfg.GetServerConfig().RetentionDays) * 24 * time.Hour
	threshold := time.Now().Add(-retention)

	if err := s.store.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup storage: %w", err)
	}

	s.logger.Info("Completed storage cleanup",
		logger.Time("threshold", threshold),
	)
	return nil
}

// gateOf 子步骤沿用 search 的状态门槛
func gateOf(stage models.Stage) models.Stage {
	switch stage {
	case models.StageSearchPre, models.StageSearchPost:
		return models.StageSearch
	default:
		return stage
	}
}
