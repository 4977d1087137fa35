package models

// ResultItem 单条阶段结果, metadata 仅用于分组展示 (page / chunk_id 等)
type ResultItem struct {
	PageContent string                 `json:"page_content"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// StageResult 一次阶段执行的完整输出
type StageResult struct {
	Stage Stage        `json:"stage"`
	Items []ResultItem `json:"items"`
}
