package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Stage 流水线阶段
type Stage string

const (
	StageLoad     Stage = "load"
	StageChunk    Stage = "chunk"
	StageEmbed    Stage = "embed"
	StageStore    Stage = "store"
	StageSearch   Stage = "search"
	StageGenerate Stage = "generate"

	// 检索的前后置子步骤, 只作结果快照的键, 不参与状态机
	StageSearchPre  Stage = "search_pre"
	StageSearchPost Stage = "search_post"
)

// DocumentStatus 文档状态机: pending → loaded → chunked → embedded → stored,
// error 可从任意状态进入
type DocumentStatus string

const (
	StatusPending  DocumentStatus = "pending"
	StatusLoaded   DocumentStatus = "loaded"
	StatusChunked  DocumentStatus = "chunked"
	StatusEmbedded DocumentStatus = "embedded"
	StatusStored   DocumentStatus = "stored"
	StatusError    DocumentStatus = "error"
)

// 状态在线性流程中的位置, error 不参与排序
var statusRank = map[DocumentStatus]int{
	StatusPending:  0,
	StatusLoaded:   1,
	StatusChunked:  2,
	StatusEmbedded: 3,
	StatusStored:   4,
}

// 每个阶段要求文档至少达到的状态
var stageRequires = map[Stage]DocumentStatus{
	StageLoad:     StatusPending,
	StageChunk:    StatusLoaded,
	StageEmbed:    StatusChunked,
	StageStore:    StatusEmbedded,
	StageSearch:   StatusStored,
	StageGenerate: StatusStored,
}

// 阶段成功后文档进入的状态, search/generate 不改变状态
var stageOutcome = map[Stage]DocumentStatus{
	StageLoad:  StatusLoaded,
	StageChunk: StatusChunked,
	StageEmbed: StatusEmbedded,
	StageStore: StatusStored,
}

// CanRun reports whether a document in status s may run the given stage.
// Re-running an earlier stage is allowed (the pipeline restarts from there);
// a document in error must be reloaded first.
func (s DocumentStatus) CanRun(stage Stage) bool {
	required, ok := stageRequires[stage]
	if !ok {
		return false
	}
	if s == StatusError {
		return stage == StageLoad
	}
	return statusRank[s] >= statusRank[required]
}

// Outcome returns the status a document enters after the stage succeeds.
// Stages that do not advance the pipeline keep the current status.
func (s DocumentStatus) Outcome(stage Stage) DocumentStatus {
	if next, ok := stageOutcome[stage]; ok {
		return next
	}
	return s
}

// Document 正在被流水线处理的资源
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID           int64             `bun:"id,pk,autoincrement" json:"id"`
	Filename     string            `bun:"filename,notnull" json:"filename"`
	FileType     string            `bun:"file_type,notnull" json:"file_type"`
	FileSize     int64             `bun:"file_size" json:"file_size"`
	StorageKey   string            `bun:"storage_key,notnull" json:"-"`
	Hash         string            `bun:"hash" json:"-"`
	Status       DocumentStatus    `bun:"status,notnull,default:'pending'" json:"status"`
	ErrorMessage string            `bun:"error_message" json:"error_message,omitempty"`
	DocMetadata  map[string]string `bun:"doc_metadata,type:jsonb" json:"doc_metadata,omitempty"`
	CreatedAt    time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
	ProcessedAt  *time.Time        `bun:"processed_at" json:"processed_at,omitempty"`
}
