package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/schema"
	"github.com/feichai0017/rag-tuner/pkg/logger"
	"github.com/feichai0017/rag-tuner/pkg/storage"
)

// LoadStage 从对象存储取回原始文件并解析为文本条目
type LoadStage struct {
	deps *Deps
}

func (s *LoadStage) Name() models.Stage { return models.StageLoad }

func (s *LoadStage) Config(doc *models.Document) (*schema.ConfigParams, error) {
	return schema.LoadConfig(doc.FileType), nil
}

func (s *LoadStage) Run(ctx context.Context, doc *models.Document, values schema.FormValues) ([]models.ResultItem, error) {
	key := storage.OriginalKey(doc.ID, doc.Filename)
	rc, err := s.deps.Store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch original file: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read original file: %w", err)
	}

	opts, err := loadOptions(values)
	if err != nil {
		return nil, err
	}

	items, err := parseContent(ctx, content, doc.FileType, opts)
	if err != nil {
		return nil, err
	}

	s.deps.Logger.Info("Document loaded",
		logger.Int64("documentId", doc.ID),
		logger.String("fileType", doc.FileType),
		logger.Int("items", len(items)),
	)
	return items, nil
}

// loadOptions 将表单值转换为解析选项
func loadOptions(values schema.FormValues) (parseOptions, error) {
	opts := parseOptions{
		perPage:    asString(values["loader_tool"]) == "per_page",
		plainText:  asString(values["loader_tool"]) == "plain",
		password:   asString(values["password"]),
		stripSpace: asBool(values["strip_whitespace"]),
	}
	pages, err := parsePageRange(asString(values["page_range"]))
	if err != nil {
		return opts, err
	}
	opts.pages = pages
	return opts, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asInt(v interface{}, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func asFloat(v interface{}, fallback float64) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return fallback
	}
}
