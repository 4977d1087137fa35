package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/rag-tuner/pkg/logger"
)

// 设置分类
var settingsDefaults = map[string]map[string]interface{}{
	"model": {
		"default_embedding_model": "text-embedding-3-small",
		"default_generate_model":  "gpt-3.5-turbo",
	},
	"connection": {
		"request_timeout_seconds": 30,
		"max_retries":             3,
	},
	"system": {
		"auto_reprocess":    false,
		"result_page_size":  20,
		"keep_stage_result": true,
	},
}

var ErrUnknownCategory = fmt.Errorf("unknown settings category")

// SettingsService 服务端设置, 按分类存取
type SettingsService interface {
	Get(ctx context.Context, category string) (map[string]interface{}, error)
	Save(ctx context.Context, category string, values map[string]interface{}) (map[string]interface{}, error)
	Categories() []string
}

type settingsService struct {
	redis  *redis.Client
	logger logger.Logger
}

func NewSettingsService(rc *redis.Client, log logger.Logger) SettingsService {
	return &settingsService{redis: rc, logger: log}
}

func (s *settingsService) Categories() []string {
	return []string{"model", "connection", "system"}
}

func (s *settingsService) Get(ctx context.Context, category string) (map[string]interface{}, error) {
	defaults, ok := settingsDefaults[category]
	if !ok {
		return nil, ErrUnknownCategory
	}

	out := make(map[string]interface{}, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}

	data, err := s.redis.Get(ctx, settingsKey(category)).Bytes()
	if err == redis.Nil {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var saved map[string]interface{}
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	for k, v := range saved {
		out[k] = v
	}
	return out, nil
}

func (s *settingsService) Save(ctx context.Context, category string, values map[string]interface{}) (map[string]interface{}, error) {
	if _, ok := settingsDefaults[category]; !ok {
		return nil, ErrUnknownCategory
	}

	current, err := s.Get(ctx, category)
	if err != nil {
		return nil, err
	}
	for k, v := range values {
		current[k] = v
	}

	data, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, settingsKey(category), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	s.logger.Info("Settings saved", logger.String("category", category))
	return current, nil
}

func settingsKey(category string) string {
	return fmt.Sprintf("settings:%s", category)
}
